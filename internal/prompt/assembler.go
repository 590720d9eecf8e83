package prompt

import (
	"fmt"
	"strings"
	"time"

	"whisperengine/internal/boundary"
	"whisperengine/internal/character"
	"whisperengine/internal/intelligence"
	"whisperengine/internal/knowledge"
	"whisperengine/internal/memory"
	"whisperengine/internal/safety"
	"whisperengine/internal/tokens"
)

const (
	selfAwarenessConfidenceGate = 0.5
	selfAwarenessTopMotivations = 3
	selfAwarenessMaxPatterns    = 5
	memoryMinAge                = 2 * time.Hour
	minRecentTurns              = 2
)

// Inputs is everything the Assembler needs to compose one turn's request.
type Inputs struct {
	Character        character.Character
	Context          boundary.ContextView
	HasContext       bool
	Bundle           intelligence.Bundle
	Memories         []memory.Record
	GlobalFacts      []knowledge.Fact
	UserFacts        []knowledge.Fact
	Preferences      []knowledge.Preference
	CurrentMessage   string
	ImageDescriptors []string
	PriorTurns       []tokens.Message // alternating user/assistant, oldest first
	Now              time.Time
}

// Assembler composes Requests per spec.md §4.10.
type Assembler struct{}

func NewAssembler() *Assembler { return &Assembler{} }

// Assemble builds the ordered message list, enforces the two-stage token
// budget, and scans the final output for context leakage before returning.
func (a *Assembler) Assemble(in Inputs) Request {
	blocks := a.buildSystemBlocks(in)
	blocks = enforceStageA(blocks)

	var messages []Message
	for _, b := range blocks {
		if b.content == "" {
			continue
		}
		messages = append(messages, Message{Role: RoleSystem, Content: b.content})
	}

	repaired := repairAlternation(in.PriorTurns)
	for _, t := range repaired {
		messages = append(messages, Message{Role: Role(t.Role), Content: t.Content})
	}

	userContent := in.CurrentMessage
	if len(in.ImageDescriptors) > 0 {
		userContent = userContent + "\n" + strings.Join(in.ImageDescriptors, "\n")
	}
	messages = append(messages, Message{Role: RoleUser, Content: userContent})

	messages = enforceStageB(messages)

	for i, m := range messages {
		scanned, _ := safety.ScanLeakage(m.Content)
		messages[i].Content = scanned
	}

	return Request{Messages: messages}
}

// systemBlock is one named, priority-ordered contributor to the system
// prompt (spec.md §4.10 Stage A drop order).
type systemBlock struct {
	name     string
	content  string
	priority int // keys enforceStageA's drop order; priorities 0 (character) and 1 (time) are never dropped
}

const (
	priorityCharacterPrompt = 0
	priorityTimeContext     = 1
	priorityRelationship    = 5
	prioritySelfAwareness   = 4
	priorityMemories        = 3
	prioritySummary         = 2
)

func (a *Assembler) buildSystemBlocks(in Inputs) []systemBlock {
	var blocks []systemBlock

	blocks = append(blocks, systemBlock{name: "character", content: renderCharacterPrompt(in), priority: priorityCharacterPrompt})
	blocks = append(blocks, systemBlock{name: "time", content: renderTimeContext(in.Now), priority: priorityTimeContext})

	if rel := renderRelationshipSummary(in); rel != "" {
		blocks = append(blocks, systemBlock{name: "relationship", content: rel, priority: priorityRelationship})
	}
	if sa := renderSelfAwareness(in.Bundle.HumanLike); sa != "" {
		blocks = append(blocks, systemBlock{name: "self_awareness", content: sa, priority: prioritySelfAwareness})
	}
	if mem := renderMemories(in); mem != "" {
		blocks = append(blocks, systemBlock{name: "memories", content: mem, priority: priorityMemories})
	}
	if in.HasContext && in.Context.ContextSummary != "" {
		blocks = append(blocks, systemBlock{name: "summary", content: "Conversation summary: " + in.Context.ContextSummary, priority: prioritySummary})
	}

	return blocks
}

func renderCharacterPrompt(in Inputs) string {
	template := in.Character.Personality.SystemPromptTemplate
	vars := collectVariables(in)
	for _, name := range contextVariableNames {
		value := vars[name]
		template = strings.ReplaceAll(template, "{"+name+"}", value)
	}
	return template
}

func collectVariables(in Inputs) map[string]string {
	vars := map[string]string{}
	if in.HasContext {
		vars["CONVERSATION_MODE"] = "" // Inputs carries no mode hint, so this stays empty
	}
	if len(in.Memories) > 0 {
		vars["MEMORY_NETWORK_STATUS"] = fmt.Sprintf("%d memories available", len(in.Memories))
	}
	if in.Bundle.HumanLike != nil && in.Bundle.HumanLike.SelfKnowledge != nil && len(in.Bundle.HumanLike.SelfKnowledge.Insights) > 0 {
		vars["PERSONALITY_CONTEXT"] = in.Bundle.HumanLike.SelfKnowledge.Insights[0].Text
	}
	if in.Bundle.ExternalEmotion != nil {
		vars["EXTERNAL_EMOTION_CONTEXT"] = fmt.Sprintf("%s (confidence %.2f)", in.Bundle.ExternalEmotion.Label, in.Bundle.ExternalEmotion.Confidence)
	}
	if in.Bundle.IntrinsicEmotion != nil {
		vars["EMOTIONAL_STATE_CONTEXT"] = fmt.Sprintf("%s (intensity %.2f)", in.Bundle.IntrinsicEmotion.Label, in.Bundle.IntrinsicEmotion.Intensity)
	}
	return vars
}

func renderTimeContext(now time.Time) string {
	if now.IsZero() {
		now = time.Now()
	}
	return "Current time: " + now.Format(time.RFC1123)
}

func renderRelationshipSummary(in Inputs) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("Relationship: %d prior turns.", len(in.Memories)))
	if in.Bundle.HumanLike != nil && in.Bundle.HumanLike.Empathy != nil {
		parts = append(parts, fmt.Sprintf("Recommended empathy style: %s.", in.Bundle.HumanLike.Empathy.RecommendedStyle))
	}
	if in.Bundle.IntrinsicEmotion != nil {
		parts = append(parts, fmt.Sprintf("User mood: %s (intensity %.2f).", in.Bundle.IntrinsicEmotion.Label, in.Bundle.IntrinsicEmotion.Intensity))
	}
	for _, p := range in.Preferences {
		if p.Confidence < selfAwarenessConfidenceGate {
			continue
		}
		parts = append(parts, fmt.Sprintf("Known preference: %s = %s.", p.Key, p.Value))
	}
	return strings.Join(parts, " ")
}

func renderSelfAwareness(hli *intelligence.HumanLikeIntelligence) string {
	if hli == nil || hli.SelfKnowledge == nil {
		return ""
	}
	discovery := hli.SelfKnowledge
	var motivations []string
	for i, m := range discovery.Motivations {
		if i >= selfAwarenessTopMotivations {
			break
		}
		if m.Confidence < selfAwarenessConfidenceGate {
			continue
		}
		motivations = append(motivations, m.Motivation)
	}
	var patterns []string
	for i, p := range discovery.Patterns {
		if i >= selfAwarenessMaxPatterns {
			break
		}
		patterns = append(patterns, string(p.Kind))
	}
	if len(motivations) == 0 && len(patterns) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Self-awareness: ")
	if len(motivations) > 0 {
		sb.WriteString("motivated by " + strings.Join(motivations, ", ") + ". ")
	}
	if len(patterns) > 0 {
		sb.WriteString("notable behavioral patterns: " + strings.Join(patterns, ", ") + ".")
	}
	return sb.String()
}

// renderMemories builds the retrieved-memories block, splitting the
// character's own attributed facts ("global") from the user's own
// conversation records and facts ("user-specific"). Records younger than
// memoryMinAge are filtered out — they would duplicate the prior-turns
// section (spec.md §4.10 step 5).
func renderMemories(in Inputs) string {
	cutoff := in.Now
	if cutoff.IsZero() {
		cutoff = time.Now()
	}

	var globalLines, userLines []string
	for _, f := range in.GlobalFacts {
		if cutoff.Sub(f.UpdatedAt) < memoryMinAge {
			continue
		}
		globalLines = append(globalLines, fmt.Sprintf("- (%s) %s %s %s", relativeTime(cutoff, f.UpdatedAt), f.EntityName, f.RelationshipType, f.EntityType))
	}
	for _, f := range in.UserFacts {
		if cutoff.Sub(f.UpdatedAt) < memoryMinAge {
			continue
		}
		userLines = append(userLines, fmt.Sprintf("- (%s) %s %s %s", relativeTime(cutoff, f.UpdatedAt), f.EntityName, f.RelationshipType, f.EntityType))
	}
	for _, m := range in.Memories {
		if cutoff.Sub(m.Timestamp) < memoryMinAge {
			continue
		}
		userLines = append(userLines, fmt.Sprintf("- (%s) %s", relativeTime(cutoff, m.Timestamp), m.Content))
	}

	if len(globalLines) == 0 && len(userLines) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("--- Retrieved memories ---\n")
	if len(globalLines) > 0 {
		sb.WriteString("Global facts:\n" + strings.Join(globalLines, "\n") + "\n")
	}
	if len(userLines) > 0 {
		sb.WriteString("User-specific:\n" + strings.Join(userLines, "\n") + "\n")
	}
	sb.WriteString("--- End retrieved memories ---")
	return sb.String()
}

func relativeTime(now, t time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%d days ago", int(d.Hours()/24))
	}
}

// repairAlternation drops the minimum number of adjacent same-role turns
// from the oldest end so the sequence strictly alternates user/assistant
// (spec.md §4.10 step 7).
func repairAlternation(turns []tokens.Message) []tokens.Message {
	if len(turns) == 0 {
		return turns
	}
	repaired := make([]tokens.Message, 0, len(turns))
	for _, t := range turns {
		if len(repaired) > 0 && repaired[len(repaired)-1].Role == t.Role {
			repaired[len(repaired)-1] = t // keep the newer of the two same-role turns
			continue
		}
		repaired = append(repaired, t)
	}
	return repaired
}

// enforceStageA drops lower-priority system blocks in the order summary,
// self-awareness, memories, relationship until the system block's estimated
// token cost fits SYSTEM_PROMPT_MAX_TOKENS. The retrieved-memories block is
// dropped whole, not record by record. The character prompt (priority 0)
// and the time context are never dropped.
func enforceStageA(blocks []systemBlock) []systemBlock {
	dropOrder := []int{prioritySummary, prioritySelfAwareness, priorityMemories, priorityRelationship}

	total := func(bs []systemBlock) int {
		sum := 0
		for _, b := range bs {
			sum += tokens.Estimate(b.content)
		}
		return sum
	}

	for _, priority := range dropOrder {
		if total(blocks) <= tokens.SystemPromptMaxTokens {
			break
		}
		blocks = dropBlocksWithPriority(blocks, priority)
	}
	return blocks
}

func dropBlocksWithPriority(blocks []systemBlock, priority int) []systemBlock {
	var out []systemBlock
	for _, b := range blocks {
		if b.priority == priority {
			continue
		}
		out = append(out, b)
	}
	return out
}

// enforceStageB runs the whole message list through L1's truncate, keeping
// system messages intact and trimming prior turns from the oldest end.
func enforceStageB(messages []Message) []Message {
	var system []Message
	var conversational []tokens.Message

	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m)
			continue
		}
		conversational = append(conversational, tokens.Message{Role: string(m.Role), Content: m.Content})
	}

	truncated, _ := tokens.Truncate(conversational, tokens.ConversationHistoryMaxTokens, minRecentTurns)

	out := make([]Message, 0, len(system)+len(truncated))
	out = append(out, system...)
	for _, t := range truncated {
		out = append(out, Message{Role: Role(t.Role), Content: t.Content})
	}
	return out
}
