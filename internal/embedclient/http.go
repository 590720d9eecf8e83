package embedclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"whisperengine/internal/observability"
)

// HTTPEmbedder calls an OpenAI-compatible /embeddings endpoint for the
// content and semantic vectors (one call covers both, since they share
// the same model), and derives the emotion vector locally from a shared
// keyword lexicon.
type HTTPEmbedder struct {
	baseURL    string
	apiKey     string
	model      string
	dimension  int
	httpClient *http.Client
}

func NewHTTPEmbedder(baseURL, apiKey, model string, dimension int, timeout time.Duration) *HTTPEmbedder {
	return &HTTPEmbedder{
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		dimension:  dimension,
		httpClient: observability.NewHTTPClient(&http.Client{Timeout: timeout}),
	}
}

type embeddingRequest struct {
	Input          []string `json:"input"`
	Model          string   `json:"model"`
	EncodingFormat string   `json:"encoding_format"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (e *HTTPEmbedder) Embed(ctx context.Context, content string) (contentVec, emotionVec, semanticVec []float32, err error) {
	emotionVec = lexiconVector(content, e.dimension)

	if len(content) < 10 {
		contentVec = make([]float32, e.dimension)
		semanticVec = make([]float32, e.dimension)
		return contentVec, emotionVec, semanticVec, nil
	}

	raw, err := e.fetch(ctx, content)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("embedclient: fetch embedding: %w", err)
	}
	contentVec = raw
	semanticVec = raw
	return contentVec, emotionVec, semanticVec, nil
}

func (e *HTTPEmbedder) fetch(ctx context.Context, content string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{Input: []string{content}, Model: e.model, EncodingFormat: "float"})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	log := observability.LoggerWithTrace(ctx)
	resp, err := e.httpClient.Do(req)
	if err != nil {
		log.Error().Err(err).Msg("embedclient_request_failed")
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedclient: status %d: %s", resp.StatusCode, string(data))
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("embedclient: empty embedding response")
	}
	return parsed.Data[0].Embedding, nil
}
