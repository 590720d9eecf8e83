// Package tokens implements the Token Accountant (L1): a coarse, local
// token estimator and a two-stage message-list truncator, per spec.md §4.1.
package tokens

import "strings"

// Budget constants (policy defaults; see spec.md §4.1).
const (
	SystemPromptMaxTokens       = 16000
	ConversationHistoryMaxTokens = 8000
	TotalBudget                 = 24000

	truncationMarker = "\n\n[...earlier content truncated...]"
)

// Message is the minimal role/content pair the accountant operates on.
type Message struct {
	Role    string // "system" | "user" | "assistant"
	Content string
}

// Tokenizer is an optional capability for a real, model-specific token
// counter. When absent, Estimate's coarse heuristic is used everywhere
// (spec.md §9 open question: the heuristic is kept, but a real tokenizer
// can be plugged in later without changing the budget constants).
type Tokenizer interface {
	CountTokens(text string) int
}

// Estimate approximates the token count of text as
// max(1, len(normalized_whitespace)/4). Deterministic; never used for
// billing, only local budgeting.
func Estimate(text string) int {
	normalized := strings.Join(strings.Fields(text), " ")
	n := len(normalized) / 4
	if n < 1 {
		n = 1
	}
	return n
}

// EstimateWith uses tok if non-nil, else falls back to Estimate.
func EstimateWith(tok Tokenizer, text string) int {
	if tok != nil {
		return tok.CountTokens(text)
	}
	return Estimate(text)
}

// Truncate separates system messages from conversation messages (preserving
// order), applies the emergency system-message truncation rule, then trims
// conversation messages from the oldest end while keeping at least
// minRecentTurns of the newest ones, within maxConversationTokens (net of
// system tokens). It returns the resulting message list and the number of
// tokens removed from the conversation portion.
func Truncate(messages []Message, maxConversationTokens, minRecentTurns int) ([]Message, int) {
	var system, convo []Message
	for _, m := range messages {
		if m.Role == "system" {
			system = append(system, m)
		} else {
			convo = append(convo, m)
		}
	}

	systemTokens := 0
	for _, m := range system {
		systemTokens += Estimate(m.Content)
	}
	if systemTokens > SystemPromptMaxTokens {
		system = emergencyTruncateSystem(system)
	}
	// Recompute after emergency truncation for budget math below.
	systemTokens = 0
	for _, m := range system {
		systemTokens += Estimate(m.Content)
	}

	budget := maxConversationTokens - systemTokens
	if budget < 0 {
		budget = 0
	}

	kept, removedTokens := truncateConversation(convo, budget, minRecentTurns)

	out := make([]Message, 0, len(system)+len(kept))
	out = append(out, system...)
	out = append(out, kept...)
	return out, removedTokens
}

// emergencyTruncateSystem keeps only the final system message, character-
// truncated from the tail with an inserted marker, dropping the others.
func emergencyTruncateSystem(system []Message) []Message {
	if len(system) == 0 {
		return system
	}
	last := system[len(system)-1]
	maxChars := SystemPromptMaxTokens * 4
	content := last.Content
	if len(content) > maxChars {
		cut := maxChars - len(truncationMarker)
		if cut < 0 {
			cut = 0
		}
		content = content[:cut] + truncationMarker
	}
	return []Message{{Role: "system", Content: content}}
}

// truncateConversation walks messages from newest to oldest, unconditionally
// keeping the first minRecentTurns, then keeping older messages only while
// the running total stays within budget. Emits in original order.
func truncateConversation(convo []Message, budget, minRecentTurns int) ([]Message, int) {
	if len(convo) == 0 {
		return nil, 0
	}
	keep := make([]bool, len(convo))
	running := 0
	removed := 0

	for i := len(convo) - 1; i >= 0; i-- {
		newestIndex := len(convo) - 1 - i
		cost := Estimate(convo[i].Content)
		if newestIndex < minRecentTurns {
			keep[i] = true
			running += cost
			continue
		}
		if running+cost <= budget {
			keep[i] = true
			running += cost
			continue
		}
		// Budget exceeded: stop walking further into older messages.
		for j := i; j >= 0; j-- {
			removed += Estimate(convo[j].Content)
		}
		break
	}

	out := make([]Message, 0, len(convo))
	for i, m := range convo {
		if keep[i] {
			out = append(out, m)
		}
	}
	return out, removed
}

// TotalTokens sums Estimate over every message's content.
func TotalTokens(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += Estimate(m.Content)
	}
	return total
}
