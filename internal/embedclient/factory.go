package embedclient

import (
	"context"
	"strings"
	"time"

	"whisperengine/internal/config"
	"whisperengine/internal/logging"
	"whisperengine/internal/memory"
)

// New returns the configured external embedder when cfg.UseExternal is set
// and a base URL is configured: a Gemini embedder when the base URL names
// Google's API host, otherwise an HTTP client against any OpenAI-compatible
// /embeddings endpoint. With no external backend configured it falls back
// to the local deterministic embedder.
func New(cfg config.EmbeddingConfig) memory.Embedder {
	if cfg.UseExternal && cfg.BaseURL != "" {
		if strings.Contains(cfg.BaseURL, "generativelanguage.googleapis.com") {
			embedder, err := NewGenAIEmbedder(context.Background(), cfg.APIKey, cfg.Model, cfg.Dimensions)
			if err != nil {
				logging.Log.WithError(err).Warn("genai embedder init failed, falling back to local embedder")
				return NewLocalEmbedder(cfg.Dimensions)
			}
			return embedder
		}
		timeout := time.Duration(cfg.Timeout) * time.Second
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		return NewHTTPEmbedder(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Dimensions, timeout)
	}
	return NewLocalEmbedder(cfg.Dimensions)
}
