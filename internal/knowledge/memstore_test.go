package knowledge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertFactTakesMaxConfidenceAndLatestEmotionalContext(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.UpsertFact(ctx, Fact{
		UserID: "alice", EntityName: "hiking", RelationshipType: "likes",
		Confidence: 0.4, EmotionalContext: "neutral", UpdatedAt: time.Now(),
	}))
	require.NoError(t, s.UpsertFact(ctx, Fact{
		UserID: "alice", EntityName: "hiking", RelationshipType: "likes",
		Confidence: 0.9, EmotionalContext: "excited", UpdatedAt: time.Now(),
	}))
	// A later, lower-confidence observation must not lower the stored
	// confidence but should still refresh the emotional context.
	require.NoError(t, s.UpsertFact(ctx, Fact{
		UserID: "alice", EntityName: "hiking", RelationshipType: "likes",
		Confidence: 0.5, EmotionalContext: "content", UpdatedAt: time.Now(),
	}))

	facts, err := s.GetUserFacts(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, 0.9, facts[0].Confidence)
	assert.Equal(t, "content", facts[0].EmotionalContext)
}

func TestUpsertPreferenceOverwrites(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.UpsertPreference(ctx, Preference{UserID: "alice", Key: "tone", Value: "casual", Confidence: 0.6, UpdatedAt: time.Now()}))
	require.NoError(t, s.UpsertPreference(ctx, Preference{UserID: "alice", Key: "tone", Value: "formal", Confidence: 0.3, UpdatedAt: time.Now()}))

	prefs, err := s.GetUserPreferences(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, prefs, 1)
	assert.Equal(t, "formal", prefs[0].Value)
	assert.Equal(t, 0.3, prefs[0].Confidence)
}

func TestGetUserFactsOrdersByConfidenceThenRecency(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.UpsertFact(ctx, Fact{UserID: "alice", EntityName: "tea", RelationshipType: "likes", Confidence: 0.5, UpdatedAt: now}))
	require.NoError(t, s.UpsertFact(ctx, Fact{UserID: "alice", EntityName: "coffee", RelationshipType: "likes", Confidence: 0.9, UpdatedAt: now}))

	facts, err := s.GetUserFacts(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, facts, 2)
	assert.Equal(t, "coffee", facts[0].EntityName)
}

func TestBuildCharacterGraphReplacesPriorRelationships(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.BuildCharacterGraph(ctx, "elena", []Trait{{Character: "elena", Name: "curious", Intensity: 0.8}},
		[]TraitRelationship{{Character: "elena", SourceTrait: "curious", TargetTrait: "playful", Kind: Influences, Strength: 0.6}}))

	rels, err := s.QueryCharacterGraph(ctx, "elena", "")
	require.NoError(t, err)
	require.Len(t, rels, 1)

	require.NoError(t, s.BuildCharacterGraph(ctx, "elena", nil, nil))
	rels, err = s.QueryCharacterGraph(ctx, "elena", "")
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func TestQueryCharacterGraphFiltersByTraitPrefix(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.BuildCharacterGraph(ctx, "elena", nil, []TraitRelationship{
		{Character: "elena", SourceTrait: "curiosity_depth", TargetTrait: "playful", Kind: Influences, Strength: 0.6},
		{Character: "elena", SourceTrait: "warmth", TargetTrait: "supportive", Kind: ExpressesAs, Strength: 0.7},
	}))

	rels, err := s.QueryCharacterGraph(ctx, "elena", "curiosity")
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, "curiosity_depth", rels[0].SourceTrait)
}
