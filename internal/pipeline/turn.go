package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"whisperengine/internal/boundary"
	"whisperengine/internal/empathy"
	"whisperengine/internal/intelligence"
	"whisperengine/internal/knowledge"
	"whisperengine/internal/llmclient"
	"whisperengine/internal/memory"
	"whisperengine/internal/observability"
	"whisperengine/internal/platform"
	"whisperengine/internal/prompt"
	"whisperengine/internal/queryclass"
	"whisperengine/internal/safety"
	"whisperengine/internal/selfknowledge"
	"whisperengine/internal/tokens"
)

// processTurn implements spec.md §4.11 steps 1-8 and always returns a
// Reply, even on failure.
func (c *Controller) processTurn(ctx context.Context, msg platform.Message) platform.Reply {
	logger := observability.LoggerWithTrace(ctx)

	var transcriber audioTranscriber
	if c.transcriber != nil {
		transcriber = c.transcriber
	}
	content := normalizeAttachments(msg, transcriber)
	c.persistAttachments(ctx, msg)

	// Step 1: input validation.
	if safety.IsUnsafeInput(content) {
		return textReply("I'm not able to help with that request. Is there something else I can help you with?")
	}

	// Step 2: boundary session update.
	var session boundarySession
	if c.boundary != nil {
		s, transition := c.boundary.ProcessMessage(msg.UserID, msg.ChannelID, content, msg.Timestamp)
		session = boundarySession{session: s, transition: transition, has: true}
	}

	// Step 3: query classification.
	emotionIntensity := heuristicEmotionIntensity(content)
	category, strategy := queryclass.Classify(content, queryclass.EmotionSignals{EmotionalIntensity: emotionIntensity}, isTemporalQuery(content))
	_ = category

	// Step 4: parallel retrieval + intelligence fan-out.
	var (
		memories       []memory.Record
		userFacts      []knowledge.Fact
		preferences    []knowledge.Preference
		discovery      selfknowledge.Discovery
		bundle         intelligence.Bundle
		recentMessages []empathy.RecentMessage
		history        []memory.Record
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if c.memoryStore == nil {
			return nil
		}
		recs, err := c.memoryStore.Search(gctx, content, msg.UserID, strategy, memorySearchLimit)
		if err != nil {
			logger.Warn().Err(err).Msg("pipeline: memory search failed")
			return nil
		}
		memories = recs
		return nil
	})

	g.Go(func() error {
		if c.knowledge == nil {
			return nil
		}
		if facts, err := c.knowledge.GetUserFacts(gctx, msg.UserID, knowledgeFactLimit); err == nil {
			userFacts = facts
		} else {
			logger.Warn().Err(err).Msg("pipeline: get user facts failed")
		}
		if prefs, err := c.knowledge.GetUserPreferences(gctx, msg.UserID, knowledgeFactLimit); err == nil {
			preferences = prefs
		} else {
			logger.Warn().Err(err).Msg("pipeline: get user preferences failed")
		}
		return nil
	})

	g.Go(func() error {
		discovery = c.cachedSelfKnowledge(gctx)
		return nil
	})

	g.Go(func() error {
		recentMessages = c.recentUserMessages(gctx, msg.UserID)
		return nil
	})

	g.Go(func() error {
		if c.memoryStore == nil {
			return nil
		}
		recs, err := c.memoryStore.History(gctx, msg.UserID, conversationHistoryLimit)
		if err != nil {
			logger.Warn().Err(err).Msg("pipeline: history lookup failed")
			return nil
		}
		history = recs
		return nil
	})

	_ = g.Wait()

	bundle = c.orchestrator.Run(ctx, intelligence.Tasks{
		ExternalEmotion: c.externalEmotionTask(content),
		IntrinsicEmotion: func(ctx context.Context) (*intelligence.IntrinsicEmotion, error) {
			label, intensity := heuristicIntrinsicEmotion(content)
			return &intelligence.IntrinsicEmotion{Label: label, Intensity: intensity}, nil
		},
		Personality: func(ctx context.Context) (*intelligence.PersonalityAnalysis, error) {
			if c.contextSwitch == nil {
				return &intelligence.PersonalityAnalysis{}, nil
			}
			return &intelligence.PersonalityAnalysis{Switches: c.contextSwitch.Detect(ctx, msg.UserID, content)}, nil
		},
		HumanLike: func(ctx context.Context) (*intelligence.HumanLikeIntelligence, error) {
			return c.humanLikeTask(ctx, msg.UserID, content, discovery, recentMessages)
		},
	})

	if len(memories) == 0 && bundle.ExternalEmotion == nil && bundle.IntrinsicEmotion == nil && bundle.Personality == nil && bundle.HumanLike == nil {
		return textReply(apologyText(c.character.DisplayName, "I couldn't pull up anything to work with just now"))
	}

	// Step 5: prompt assembly.
	global, userSpecific := splitFacts(userFacts)
	req := c.assembler.Assemble(prompt.Inputs{
		Character:        c.character,
		Context:          session.contextView(),
		HasContext:       session.has,
		Bundle:           bundle,
		Memories:         memories,
		GlobalFacts:      global,
		UserFacts:        userSpecific,
		Preferences:      preferences,
		CurrentMessage:   content,
		ImageDescriptors: imageDescriptors(msg),
		PriorTurns:       priorTurns(history),
		Now:              msg.Timestamp,
	})

	// Step 6: LLM call.
	assistantText, err := c.callLLM(ctx, req)
	if err != nil {
		logger.Warn().Err(err).Msg("pipeline: llm call failed")
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return textReply(apologyText(c.character.DisplayName, "that took longer than expected to think through"))
		}
		return textReply(apologyText(c.character.DisplayName, "something went wrong while forming a reply"))
	}

	// Step 7: post-response scan + chunking.
	scanned, _ := safety.ScanLeakage(assistantText)
	reply := platform.Reply{Text: scanned}
	if len(scanned) > c.chunkSize {
		reply.Chunks = chunkText(scanned, c.chunkSize)
	}

	// Step 8: best-effort persistence.
	c.persistTurn(ctx, msg, content, scanned, bundle)

	return reply
}

type boundarySession struct {
	session    boundary.Session
	transition boundary.TransitionKind
	has        bool
}

func (b boundarySession) contextView() boundary.ContextView {
	if !b.has {
		return boundary.ContextView{}
	}
	return boundary.ContextView{
		State:          b.session.State,
		CurrentTopic:   b.session.CurrentTopic,
		TopicHistory:   b.session.TopicHistory,
		ContextSummary: b.session.ContextSummary,
	}
}

func (c *Controller) callLLM(ctx context.Context, req prompt.Request) (string, error) {
	if c.llm == nil {
		return "", llmclient.ErrUnavailable
	}
	reply, err := c.llm.Chat(ctx, req, c.model)
	if err != nil {
		return "", err
	}
	return reply.Content, nil
}

func textReply(text string) platform.Reply {
	return platform.Reply{Text: text}
}

func apologyText(displayName, reason string) string {
	name := displayName
	if name == "" {
		name = "I"
	}
	return fmt.Sprintf("%s — %s. Could you try again in a moment?", name, reason)
}

// chunkText splits text into chunks no longer than limit, breaking on
// whitespace where possible (spec.md §4.11 step 7).
func chunkText(text string, limit int) []string {
	if limit <= 0 || len(text) <= limit {
		return []string{text}
	}
	var chunks []string
	remaining := text
	for len(remaining) > limit {
		cut := limit
		if idx := strings.LastIndexAny(remaining[:limit], " \n\t"); idx > 0 {
			cut = idx
		}
		chunks = append(chunks, strings.TrimSpace(remaining[:cut]))
		remaining = strings.TrimSpace(remaining[cut:])
	}
	if remaining != "" {
		chunks = append(chunks, remaining)
	}
	return chunks
}

var temporalMarkers = []string{
	"yesterday", "last week", "last time", "earlier", "before you said",
	"a while ago", "remember when", "in the past", "last month",
}

func isTemporalQuery(content string) bool {
	low := strings.ToLower(content)
	for _, m := range temporalMarkers {
		if strings.Contains(low, m) {
			return true
		}
	}
	return false
}

var emotionKeywordLabels = map[string]string{
	"happy": "joy", "joy": "joy", "excited": "joy",
	"sad": "sadness", "down": "sadness", "blue": "sadness",
	"angry": "anger", "frustrated": "anger", "furious": "anger",
	"anxious": "anxiety", "worried": "anxiety", "nervous": "anxiety",
	"calm": "calm", "peaceful": "calm", "relaxed": "calm",
	"scared": "fear", "afraid": "fear",
}

// heuristicEmotionIntensity is a deterministic keyword-density estimate
// used as the emotion_hint input to the query classifier (spec.md §4.11
// step 3), independent of the richer L9 intrinsic-emotion heuristic.
func heuristicEmotionIntensity(content string) float64 {
	low := strings.ToLower(content)
	hits := 0
	for kw := range emotionKeywordLabels {
		if strings.Contains(low, kw) {
			hits++
		}
	}
	intensity := float64(hits) * 0.25
	if intensity > 1 {
		intensity = 1
	}
	return intensity
}

// heuristicIntrinsicEmotion is the local (non-API) emotion read that feeds
// the orchestrator's IntrinsicEmotion task.
func heuristicIntrinsicEmotion(content string) (label string, intensity float64) {
	low := strings.ToLower(content)
	for kw, lbl := range emotionKeywordLabels {
		if strings.Contains(low, kw) {
			return lbl, heuristicEmotionIntensity(content)
		}
	}
	return "neutral", 0
}

func (c *Controller) externalEmotionTask(content string) func(ctx context.Context) (*intelligence.ExternalEmotion, error) {
	if c.emotionClient == nil {
		return nil
	}
	return func(ctx context.Context) (*intelligence.ExternalEmotion, error) {
		return c.emotionClient.Analyze(ctx, content)
	}
}

func (c *Controller) cachedSelfKnowledge(ctx context.Context) selfknowledge.Discovery {
	if c.selfExtractor == nil || c.selfDiscovery == nil {
		return selfknowledge.Discovery{}
	}
	profile, err := c.selfExtractor.Extract(ctx, c.character.Normalized)
	if err != nil {
		return selfknowledge.Discovery{}
	}
	return c.selfDiscovery.Discover(ctx, profile)
}

func (c *Controller) humanLikeTask(ctx context.Context, userID, content string, discovery selfknowledge.Discovery, recent []empathy.RecentMessage) (*intelligence.HumanLikeIntelligence, error) {
	result := &intelligence.HumanLikeIntelligence{SelfKnowledge: &discovery}

	if c.empathy != nil {
		label, _ := heuristicIntrinsicEmotion(content)
		var convCtx *empathy.ConversationContext
		if isProblemSolving(content) {
			convCtx = &empathy.ConversationContext{Mode: "problem_solving"}
		}
		calibration := c.empathy.Calibrate(userID, label, content, recent, convCtx)
		result.Empathy = &calibration
	}

	return result, nil
}

func (c *Controller) recentUserMessages(ctx context.Context, userID string) []empathy.RecentMessage {
	if c.memoryStore == nil {
		return nil
	}
	records, err := c.memoryStore.ScrollRecent(ctx, userID, recentEmotionsLimit*2)
	if err != nil {
		return nil
	}
	out := make([]empathy.RecentMessage, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		if r.Role != memory.RoleUser {
			continue
		}
		_, intensity := heuristicIntrinsicEmotion(r.Content)
		ordinal := intensity * 3
		if isNegativeEmotion(r.Content) {
			ordinal = -ordinal
		}
		out = append(out, empathy.RecentMessage{Content: r.Content, EmotionOrdinal: ordinal})
	}
	return out
}

var problemSolvingMarkers = []string{
	"how do i", "how can i", "what should i do", "help me fix", "i need to solve",
	"what's the best way to", "troubleshoot", "debug", "figure out",
}

func isProblemSolving(content string) bool {
	low := strings.ToLower(content)
	for _, m := range problemSolvingMarkers {
		if strings.Contains(low, m) {
			return true
		}
	}
	return false
}

func isNegativeEmotion(content string) bool {
	low := strings.ToLower(content)
	for _, kw := range []string{"sad", "down", "blue", "angry", "frustrated", "furious", "anxious", "worried", "nervous", "scared", "afraid"} {
		if strings.Contains(low, kw) {
			return true
		}
	}
	return false
}

func splitFacts(facts []knowledge.Fact) (global, user []knowledge.Fact) {
	for _, f := range facts {
		if f.UserID == "" {
			global = append(global, f)
			continue
		}
		user = append(user, f)
	}
	return global, user
}

func imageDescriptors(msg platform.Message) []string {
	var out []string
	for _, a := range msg.Attachments {
		if strings.HasPrefix(a.ContentType, "image/") {
			out = append(out, fmt.Sprintf("[attached image: %s]", a.Filename))
		}
	}
	return out
}

// priorTurns derives the alternating-history view the assembler expects
// from retrieved memory records, oldest first.
func priorTurns(memories []memory.Record) []tokens.Message {
	out := make([]tokens.Message, 0, len(memories))
	for i := len(memories) - 1; i >= 0; i-- {
		r := memories[i]
		out = append(out, tokens.Message{Role: string(r.Role), Content: r.Content})
	}
	return out
}

// audioTranscriber is the narrow capability normalizeAttachments needs;
// internal/transcribe.Transcriber satisfies it.
type audioTranscriber interface {
	Transcribe(wav []byte) (string, error)
}

// normalizeAttachments transcribes WAV attachments (audio/wav, audio/x-wav)
// into text and appends it to the message content; other audio types are
// not transcribed (spec.md §4.11 step 1 pre-processing).
func normalizeAttachments(msg platform.Message, transcriber audioTranscriber) string {
	content := msg.Content
	if transcriber == nil {
		return content
	}
	for _, a := range msg.Attachments {
		if a.ContentType != "audio/wav" && a.ContentType != "audio/x-wav" {
			continue
		}
		if text, err := transcriber.Transcribe(a.Data); err == nil && text != "" {
			content = strings.TrimSpace(content + " " + text)
		}
	}
	return content
}
