package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"whisperengine/internal/empathy"
	"whisperengine/internal/intelligence"
	"whisperengine/internal/knowledge"
	"whisperengine/internal/memory"
	"whisperengine/internal/objectstore"
	"whisperengine/internal/observability"
	"whisperengine/internal/platform"
)

// persistAttachments best-effort persists every inbound attachment to the
// object store keyed by message id, per spec.md §4.12. A failure here is a
// Persistence-class error (spec.md §7) and never fails the turn.
func (c *Controller) persistAttachments(ctx context.Context, msg platform.Message) {
	if c.attachments == nil || len(msg.Attachments) == 0 {
		return
	}
	logger := observability.LoggerWithTrace(ctx)
	for i, a := range msg.Attachments {
		key := fmt.Sprintf("%s/%d-%s", msg.MessageID, i, a.Filename)
		if _, err := c.attachments.Put(ctx, key, bytes.NewReader(a.Data), objectstore.PutOptions{ContentType: a.ContentType}); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("pipeline: persist attachment failed")
		}
	}
}

// persistTurn appends the user and assistant turns to the Vector Memory
// Store and upserts any facts/preferences the deterministic extractor
// finds, per spec.md §4.11 step 8. All failures are logged at warn and
// never propagate: persistence is best-effort.
func (c *Controller) persistTurn(ctx context.Context, msg platform.Message, userContent, assistantContent string, bundle intelligence.Bundle) {
	logger := observability.LoggerWithTrace(ctx)
	emotionLabel := emotionLabelFromBundle(bundle)

	if c.memoryStore != nil {
		userRecord := memory.Record{
			ID:               uuid.NewString(),
			UserID:           msg.UserID,
			Role:             memory.RoleUser,
			Content:          userContent,
			Timestamp:        msg.Timestamp,
			EmotionalContext: emotionLabel,
			Metadata:         map[string]string{"channel_id": msg.ChannelID},
		}
		if err := c.memoryStore.Store(ctx, userRecord); err != nil {
			logger.Warn().Err(err).Msg("pipeline: persist user turn failed")
		}

		assistantRecord := memory.Record{
			ID:               uuid.NewString(),
			UserID:           msg.UserID,
			Role:             memory.RoleAssistant,
			Content:          assistantContent,
			Timestamp:        time.Now(),
			EmotionalContext: emotionLabel,
			Metadata:         map[string]string{"channel_id": msg.ChannelID},
		}
		if err := c.memoryStore.Store(ctx, assistantRecord); err != nil {
			logger.Warn().Err(err).Msg("pipeline: persist assistant turn failed")
		}
	}

	if c.knowledge != nil {
		for _, f := range extractFacts(msg.UserID, userContent, time.Now()) {
			if err := c.knowledge.UpsertFact(ctx, f); err != nil {
				logger.Warn().Err(err).Msg("pipeline: upsert fact failed")
			}
		}
		for _, p := range extractPreferences(msg.UserID, userContent, time.Now()) {
			if err := c.knowledge.UpsertPreference(ctx, p); err != nil {
				logger.Warn().Err(err).Msg("pipeline: upsert preference failed")
			}
		}
	}

	if c.empathy != nil && bundle.HumanLike != nil && bundle.HumanLike.Empathy != nil {
		c.empathy.Learn(msg.UserID, emotionLabel, bundle.HumanLike.Empathy.RecommendedStyle, feedbackFromReply(assistantContent))
	}
}

func emotionLabelFromBundle(bundle intelligence.Bundle) string {
	external := bundle.ExternalEmotion
	if external != nil && external.Label != "" && external.Confidence >= 0.7 {
		return external.Label
	}
	if bundle.IntrinsicEmotion != nil && bundle.IntrinsicEmotion.Label != "" {
		return bundle.IntrinsicEmotion.Label
	}
	if external != nil && external.Label != "" {
		return external.Label
	}
	return "neutral"
}

// feedbackFromReply derives a provisional self-estimate of style
// effectiveness from the assistant's own reply length and tone, since the
// user's next turn (the ideal feedback signal) is not yet available at
// turn close (spec.md §4.11 step 8).
func feedbackFromReply(assistantContent string) empathy.FeedbackIndicators {
	return empathy.FeedbackIndicators{
		MoreDetail:            len(assistantContent) > 400,
		ContinuedConversation: strings.HasSuffix(strings.TrimSpace(assistantContent), "?"),
	}
}

// entityPhrase matches one to three words, stopping before a coordinating
// conjunction or punctuation so pattern captures stay short (spec.md
// §4.11 step 8 deterministic extractor).
const entityPhrase = `([a-z0-9]+(?:\s[a-z0-9]+){0,2})(?:\s+(?:and|but|,|\.)|[.,]|$)`

var (
	likePattern     = regexp.MustCompile(`(?i)\bi (?:really )?(?:like|love|enjoy) ` + entityPhrase)
	livePattern     = regexp.MustCompile(`(?i)\bi live in ` + entityPhrase)
	workPattern     = regexp.MustCompile(`(?i)\bi (?:work as|am) an? ` + entityPhrase)
	namePattern     = regexp.MustCompile(`(?i)\bmy name is ` + entityPhrase)
	favoritePattern = regexp.MustCompile(`(?i)\bmy favorite ([a-z0-9]+) is ` + entityPhrase)
)

// extractFacts is the deterministic keyword/pattern fact extractor
// (spec.md §4.11 step 8: "extractor is deterministic keyword/pattern
// based"). LLM-assisted extraction is optional and gated; this module
// does not call one.
func extractFacts(userID, content string, now time.Time) []knowledge.Fact {
	var facts []knowledge.Fact

	if m := likePattern.FindStringSubmatch(content); m != nil {
		facts = append(facts, knowledge.Fact{
			UserID: userID, EntityName: strings.TrimSpace(m[1]), EntityType: "interest",
			RelationshipType: "likes", Confidence: 0.6, UpdatedAt: now,
		})
	}
	if m := livePattern.FindStringSubmatch(content); m != nil {
		facts = append(facts, knowledge.Fact{
			UserID: userID, EntityName: strings.TrimSpace(m[1]), EntityType: "location",
			RelationshipType: "lives_in", Confidence: 0.7, UpdatedAt: now,
		})
	}
	if m := workPattern.FindStringSubmatch(content); m != nil {
		facts = append(facts, knowledge.Fact{
			UserID: userID, EntityName: strings.TrimSpace(m[1]), EntityType: "occupation",
			RelationshipType: "works_as", Confidence: 0.6, UpdatedAt: now,
		})
	}

	return facts
}

// extractPreferences mirrors extractFacts for the key/value preference
// shape ("my name is X", "my favorite Y is Z").
func extractPreferences(userID, content string, now time.Time) []knowledge.Preference {
	var prefs []knowledge.Preference

	if m := namePattern.FindStringSubmatch(content); m != nil {
		prefs = append(prefs, knowledge.Preference{UserID: userID, Key: "name", Value: strings.TrimSpace(m[1]), Confidence: 0.8, UpdatedAt: now})
	}
	if m := favoritePattern.FindStringSubmatch(content); m != nil {
		key := "favorite_" + strings.ReplaceAll(strings.TrimSpace(m[1]), " ", "_")
		prefs = append(prefs, knowledge.Preference{UserID: userID, Key: key, Value: strings.TrimSpace(m[2]), Confidence: 0.7, UpdatedAt: now})
	}

	return prefs
}
