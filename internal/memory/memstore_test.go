package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whisperengine/internal/queryclass"
)

// fakeEmbedder returns deterministic, content-derived vectors so similarity
// ranking is predictable in tests without a real embedding model.
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, content string) ([]float32, []float32, []float32, error) {
	v := make([]float32, 4)
	for i, r := range content {
		v[i%4] += float32(r % 7)
	}
	return v, v, v, nil
}

func TestInMemoryStoreScopesToUser(t *testing.T) {
	s := NewInMemoryStore(fakeEmbedder{})
	ctx := context.Background()
	require.NoError(t, s.Store(ctx, Record{ID: "a1", UserID: "alice", Content: "alice likes tea", Timestamp: time.Now()}))
	require.NoError(t, s.Store(ctx, Record{ID: "b1", UserID: "bob", Content: "bob likes coffee", Timestamp: time.Now()}))

	results, err := s.ScrollRecent(ctx, "alice", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, "a1", results[0].ID)
}

func TestInMemoryStoreScrollRecentOrdersNewestFirst(t *testing.T) {
	s := NewInMemoryStore(fakeEmbedder{})
	ctx := context.Background()
	base := time.Now()
	require.NoError(t, s.Store(ctx, Record{ID: "older", UserID: "alice", Content: "first", Timestamp: base}))
	require.NoError(t, s.Store(ctx, Record{ID: "newer", UserID: "alice", Content: "second", Timestamp: base.Add(time.Minute)}))

	results, err := s.ScrollRecent(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "newer", results[0].ID)
	assert.Equal(t, "older", results[1].ID)
}

func TestInMemoryStoreSearchFusesAcrossNamedVectors(t *testing.T) {
	s := NewInMemoryStore(fakeEmbedder{})
	ctx := context.Background()
	require.NoError(t, s.Store(ctx, Record{ID: "r1", UserID: "alice", Content: "I remember our trip to the lake", Timestamp: time.Now()}))
	require.NoError(t, s.Store(ctx, Record{ID: "r2", UserID: "alice", Content: "completely unrelated sentence about rocks", Timestamp: time.Now()}))

	strategy := queryclass.Strategy{VectorNames: []string{"content", "semantic"}, Weights: []float64{0.5, 0.5}, Fuse: true}
	results, err := s.Search(ctx, "trip to the lake", "alice", strategy, 5)
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestInMemoryStoreDetectContradictionsLowSimilarity(t *testing.T) {
	s := NewInMemoryStore(fakeEmbedder{})
	ctx := context.Background()
	require.NoError(t, s.Store(ctx, Record{ID: "r1", UserID: "alice", Content: "aaaa", Timestamp: time.Now()}))

	cd, ok := s.(ContradictionDetector)
	require.True(t, ok)
	contradictions, err := cd.DetectContradictions(ctx, "zzzzzzzzzzzzzzz", "alice", 0.9)
	require.NoError(t, err)
	assert.NotEmpty(t, contradictions)
}

func TestCollectionNamePrefixesNormalizedCharacter(t *testing.T) {
	assert.Equal(t, "whisperengine_memory_elena", CollectionName("elena"))
}
