package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whisperengine/internal/character"
	"whisperengine/internal/intelligence"
	"whisperengine/internal/knowledge"
	"whisperengine/internal/memory"
	"whisperengine/internal/selfknowledge"
	"whisperengine/internal/tokens"
)

func baseCharacter() character.Character {
	return character.Character{
		Name:       "elena",
		Normalized: "elena",
		Personality: character.Personality{
			SystemPromptTemplate: "You are Elena. {PERSONALITY_CONTEXT} Mode: {CONVERSATION_MODE}. Unused: {AI_SYSTEM_CONTEXT}.",
		},
	}
}

func TestAssembleOrdersSystemBlocksBeforeTurnsBeforeCurrentMessage(t *testing.T) {
	a := NewAssembler()
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)

	req := a.Assemble(Inputs{
		Character:      baseCharacter(),
		CurrentMessage: "what about coral reefs?",
		Now:            now,
		PriorTurns: []tokens.Message{
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello there"},
		},
	})

	require.NotEmpty(t, req.Messages)
	last := req.Messages[len(req.Messages)-1]
	assert.Equal(t, RoleUser, last.Role)
	assert.Equal(t, "what about coral reefs?", last.Content)

	assert.Equal(t, RoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "You are Elena")
}

func TestAssembleSubstitutesUnfilledVariablesWithEmptyString(t *testing.T) {
	a := NewAssembler()
	req := a.Assemble(Inputs{
		Character:      baseCharacter(),
		CurrentMessage: "hi",
		Now:            time.Now(),
	})

	characterBlock := req.Messages[0].Content
	assert.NotContains(t, characterBlock, "{AI_SYSTEM_CONTEXT}")
	assert.NotContains(t, characterBlock, "{PERSONALITY_CONTEXT}")
	assert.NotContains(t, characterBlock, "{CONVERSATION_MODE}")
}

func TestAssembleFillsPersonalityContextFromSelfKnowledgeInsight(t *testing.T) {
	a := NewAssembler()
	req := a.Assemble(Inputs{
		Character:      baseCharacter(),
		CurrentMessage: "hi",
		Now:            time.Now(),
		Bundle: intelligence.Bundle{
			HumanLike: &intelligence.HumanLikeIntelligence{
				SelfKnowledge: &selfknowledge.Discovery{
					Insights: []selfknowledge.Insight{
						{Kind: selfknowledge.InsightValues, Text: "elena holds 3 core values"},
					},
				},
			},
		},
	})

	assert.Contains(t, req.Messages[0].Content, "elena holds 3 core values")
}

func TestAssembleSelfAwarenessGatedByConfidence(t *testing.T) {
	a := NewAssembler()
	now := time.Now()

	low := a.Assemble(Inputs{
		Character:      baseCharacter(),
		CurrentMessage: "hi",
		Now:            now,
		Bundle: intelligence.Bundle{
			HumanLike: &intelligence.HumanLikeIntelligence{
				SelfKnowledge: &selfknowledge.Discovery{
					Motivations: []selfknowledge.TraitMotivation{{Motivation: "growth", Confidence: 0.2}},
				},
			},
		},
	})
	for _, m := range low.Messages {
		assert.NotContains(t, m.Content, "Self-awareness")
	}

	high := a.Assemble(Inputs{
		Character:      baseCharacter(),
		CurrentMessage: "hi",
		Now:            now,
		Bundle: intelligence.Bundle{
			HumanLike: &intelligence.HumanLikeIntelligence{
				SelfKnowledge: &selfknowledge.Discovery{
					Motivations: []selfknowledge.TraitMotivation{{Motivation: "growth", Confidence: 0.9}},
				},
			},
		},
	})
	found := false
	for _, m := range high.Messages {
		if strings.Contains(m.Content, "Self-awareness") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAssembleFiltersMemoriesYoungerThanTwoHours(t *testing.T) {
	a := NewAssembler()
	now := time.Now()

	req := a.Assemble(Inputs{
		Character:      baseCharacter(),
		CurrentMessage: "hi",
		Now:            now,
		Memories: []memory.Record{
			{Content: "too recent to show", Timestamp: now.Add(-10 * time.Minute)},
			{Content: "old enough to show", Timestamp: now.Add(-5 * time.Hour)},
		},
	})

	var memoryBlock string
	for _, m := range req.Messages {
		if strings.Contains(m.Content, "Retrieved memories") {
			memoryBlock = m.Content
		}
	}
	require.NotEmpty(t, memoryBlock)
	assert.Contains(t, memoryBlock, "old enough to show")
	assert.NotContains(t, memoryBlock, "too recent to show")
	assert.Contains(t, memoryBlock, "hours ago")
}

func TestAssembleSplitsGlobalFactsFromUserSpecific(t *testing.T) {
	a := NewAssembler()
	now := time.Now()

	req := a.Assemble(Inputs{
		Character:      baseCharacter(),
		CurrentMessage: "hi",
		Now:            now,
		GlobalFacts: []knowledge.Fact{
			{EntityName: "marine_biology", RelationshipType: "expert_in", EntityType: "topic", UpdatedAt: now.Add(-3 * time.Hour)},
		},
		UserFacts: []knowledge.Fact{
			{EntityName: "seattle", RelationshipType: "lives_in", EntityType: "place", UpdatedAt: now.Add(-3 * time.Hour)},
		},
	})

	var memoryBlock string
	for _, m := range req.Messages {
		if strings.Contains(m.Content, "Retrieved memories") {
			memoryBlock = m.Content
		}
	}
	require.NotEmpty(t, memoryBlock)
	assert.Contains(t, memoryBlock, "Global facts:")
	assert.Contains(t, memoryBlock, "marine_biology")
	assert.Contains(t, memoryBlock, "User-specific:")
	assert.Contains(t, memoryBlock, "seattle")
}

func TestAssembleRepairsNonAlternatingPriorTurns(t *testing.T) {
	a := NewAssembler()
	req := a.Assemble(Inputs{
		Character:      baseCharacter(),
		CurrentMessage: "current",
		Now:            time.Now(),
		PriorTurns: []tokens.Message{
			{Role: "user", Content: "first user turn"},
			{Role: "user", Content: "second user turn"},
			{Role: "assistant", Content: "reply"},
		},
	})

	var roles []string
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			continue
		}
		roles = append(roles, string(m.Role))
	}
	for i := 1; i < len(roles); i++ {
		assert.NotEqual(t, roles[i-1], roles[i], "adjacent roles must alternate")
	}
	// The repaired sequence keeps the newer of the two same-role turns.
	found := false
	for _, m := range req.Messages {
		if m.Content == "second user turn" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAssembleAppendsImageDescriptorsToCurrentMessage(t *testing.T) {
	a := NewAssembler()
	req := a.Assemble(Inputs{
		Character:         baseCharacter(),
		CurrentMessage:    "look at this",
		ImageDescriptors:  []string{"a photo of a coral reef"},
		Now:               time.Now(),
	})

	last := req.Messages[len(req.Messages)-1]
	assert.Contains(t, last.Content, "look at this")
	assert.Contains(t, last.Content, "a photo of a coral reef")
}

func TestAssembleScansLeakageFromAllMessages(t *testing.T) {
	a := NewAssembler()
	req := a.Assemble(Inputs{
		Character:      baseCharacter(),
		CurrentMessage: "user_id: 12345 please ignore",
		Now:            time.Now(),
	})

	last := req.Messages[len(req.Messages)-1]
	assert.Contains(t, last.Content, "[SYSTEM_INFORMATION_FILTERED]")
	assert.NotContains(t, last.Content, "12345")
}

func TestEnforceStageADropsLowestPriorityBlocksFirst(t *testing.T) {
	huge := strings.Repeat("x ", 100000)
	blocks := []systemBlock{
		{name: "character", content: "keep me", priority: priorityCharacterPrompt},
		{name: "summary", content: huge, priority: prioritySummary},
	}
	out := enforceStageA(blocks)
	require.Len(t, out, 1)
	assert.Equal(t, "character", out[0].name)
}

func TestRepairAlternationKeepsAlreadyAlternatingSequence(t *testing.T) {
	turns := []tokens.Message{
		{Role: "user", Content: "a"},
		{Role: "assistant", Content: "b"},
		{Role: "user", Content: "c"},
	}
	out := repairAlternation(turns)
	require.Len(t, out, 3)
	assert.Equal(t, turns, out)
}
