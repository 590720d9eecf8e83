package embedclient

import (
	"context"
	"fmt"

	genai "google.golang.org/genai"
)

// GenAIEmbedder calls the Gemini embedding API for the content and semantic
// vectors (one call covers both, since they share the same model) and
// derives the emotion vector locally from the same lexicon HTTPEmbedder
// uses, so the two backends are interchangeable from the vector store's
// point of view.
type GenAIEmbedder struct {
	client    *genai.Client
	model     string
	dimension int
}

// NewGenAIEmbedder opens a Gemini client for the given API key with
// genai.NewClient.
func NewGenAIEmbedder(ctx context.Context, apiKey, model string, dimension int) (*GenAIEmbedder, error) {
	if model == "" {
		model = "text-embedding-004"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("embedclient: init genai client: %w", err)
	}
	return &GenAIEmbedder{client: client, model: model, dimension: dimension}, nil
}

func (e *GenAIEmbedder) Embed(ctx context.Context, content string) (contentVec, emotionVec, semanticVec []float32, err error) {
	emotionVec = lexiconVector(content, e.dimension)

	resp, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(content), nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("embedclient: genai embed content: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, nil, nil, fmt.Errorf("embedclient: genai returned no embeddings")
	}
	raw := fitDimension(resp.Embeddings[0].Values, e.dimension)
	return raw, emotionVec, raw, nil
}

// fitDimension truncates or zero-pads values to the fixed width the vector
// store's collections are created with (internal/memory.Dimension).
func fitDimension(values []float32, dimension int) []float32 {
	out := make([]float32, dimension)
	n := len(values)
	if n > dimension {
		n = dimension
	}
	copy(out, values[:n])
	return out
}
