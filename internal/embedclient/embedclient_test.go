package embedclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whisperengine/internal/config"
)

func TestLocalEmbedderIsDeterministic(t *testing.T) {
	e := NewLocalEmbedder(64)
	c1, em1, s1, err := e.Embed(context.Background(), "I feel anxious about the exam")
	require.NoError(t, err)
	c2, em2, s2, err := e.Embed(context.Background(), "I feel anxious about the exam")
	require.NoError(t, err)

	assert.Equal(t, c1, c2)
	assert.Equal(t, em1, em2)
	assert.Equal(t, s1, s2)
}

func TestLocalEmbedderContentAndSemanticVectorsDiffer(t *testing.T) {
	e := NewLocalEmbedder(64)
	c, _, s, err := e.Embed(context.Background(), "coral reefs are fascinating ecosystems")
	require.NoError(t, err)
	assert.NotEqual(t, c, s)
}

func TestLocalEmbedderEmotionVectorReflectsLexiconHit(t *testing.T) {
	e := NewLocalEmbedder(64)
	_, anxious, _, err := e.Embed(context.Background(), "I am so anxious right now")
	require.NoError(t, err)
	_, neutral, _, err := e.Embed(context.Background(), "the weather report says rain tomorrow")
	require.NoError(t, err)

	assert.NotEqual(t, anxious[3], float32(0))
	assert.Equal(t, float32(0), neutral[3])
}

func TestFactoryReturnsLocalEmbedderWhenExternalDisabled(t *testing.T) {
	e := New(config.EmbeddingConfig{UseExternal: false, Dimensions: 384})
	_, ok := e.(*LocalEmbedder)
	assert.True(t, ok)
}

func TestFactoryReturnsHTTPEmbedderWhenExternalEnabledWithBaseURL(t *testing.T) {
	e := New(config.EmbeddingConfig{UseExternal: true, BaseURL: "http://localhost:8080/v1/embeddings", Dimensions: 384})
	_, ok := e.(*HTTPEmbedder)
	assert.True(t, ok)
}
