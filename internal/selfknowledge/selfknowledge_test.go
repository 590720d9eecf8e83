package selfknowledge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whisperengine/internal/knowledge"
)

func seedElena(t *testing.T, store knowledge.Store) {
	t.Helper()
	traits := []knowledge.Trait{
		{Character: "elena", Name: "honesty and truth above all", Category: "value", Intensity: 0.9},
		{Character: "elena", Name: "empathy and caring", Category: "value", Intensity: 0.85},
		{Character: "elena", Name: "marine biology", Category: "ability", Intensity: 0.8},
	}
	require.NoError(t, store.BuildCharacterGraph(context.Background(), "elena", traits, nil))
}

func TestExtractComputesConfidenceFromTraitVarietyAndCount(t *testing.T) {
	store := knowledge.NewInMemoryStore()
	seedElena(t, store)

	extractor := NewExtractor(store)
	profile, err := extractor.Extract(context.Background(), "elena")
	require.NoError(t, err)
	assert.Len(t, profile.Values, 2)
	assert.Len(t, profile.Abilities, 1)
	assert.Greater(t, profile.Confidence, 0.0)
}

func TestGraphBuilderDerivesRelationshipsFromValueKeywords(t *testing.T) {
	store := knowledge.NewInMemoryStore()
	seedElena(t, store)

	extractor := NewExtractor(store)
	profile, err := extractor.Extract(context.Background(), "elena")
	require.NoError(t, err)

	builder := NewGraphBuilder(store)
	require.NoError(t, builder.Build(context.Background(), profile, nil))

	rels, err := store.QueryCharacterGraph(context.Background(), "elena", "")
	require.NoError(t, err)

	var hasDirect, hasSupportive, hasCompassionate bool
	for _, r := range rels {
		switch r.TargetTrait {
		case "communication:direct_style":
			hasDirect = true
		case "communication:supportive_tone":
			hasSupportive = true
		case "behavior:compassionate_honesty":
			hasCompassionate = true
		}
	}
	assert.True(t, hasDirect)
	assert.True(t, hasSupportive)
	assert.True(t, hasCompassionate)
}

func TestTraitDiscoveryCachesResultsPerCharacter(t *testing.T) {
	store := knowledge.NewInMemoryStore()
	seedElena(t, store)
	extractor := NewExtractor(store)
	profile, err := extractor.Extract(context.Background(), "elena")
	require.NoError(t, err)

	builder := NewGraphBuilder(store)
	require.NoError(t, builder.Build(context.Background(), profile, nil))

	cache := NewInMemoryCache()
	discovery := NewTraitDiscovery(store, cache)

	first := discovery.Discover(context.Background(), profile)
	cached, ok := cache.Get(context.Background(), "elena", InsightMotivation)
	require.True(t, ok)
	assert.Equal(t, first.Motivations, cached.Motivations)
}

func TestTraitDiscoveryDerivesMotivations(t *testing.T) {
	store := knowledge.NewInMemoryStore()
	seedElena(t, store)
	extractor := NewExtractor(store)
	profile, err := extractor.Extract(context.Background(), "elena")
	require.NoError(t, err)

	discovery := NewTraitDiscovery(store, NewInMemoryCache())
	result := discovery.Discover(context.Background(), profile)
	assert.NotEmpty(t, result.Motivations)
}
