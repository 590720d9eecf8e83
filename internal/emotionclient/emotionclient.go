// Package emotionclient implements the optional external emotion
// analysis API consumed by the Parallel Intelligence Orchestrator's
// ExternalEmotion task (spec.md §4.9). When config.Emotion.BaseURL is
// empty the pipeline simply omits this task; the orchestrator already
// tolerates a nil task slot.
package emotionclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"whisperengine/internal/intelligence"
	"whisperengine/internal/observability"
)

// Client calls an external emotion-classification HTTP endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: observability.NewHTTPClient(&http.Client{Timeout: 5 * time.Second}),
	}
}

type analyzeRequest struct {
	Text string `json:"text"`
}

type analyzeResponse struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Intensity  float64 `json:"intensity"`
}

// Analyze classifies text's emotional content via the external API.
func (c *Client) Analyze(ctx context.Context, text string) (*intelligence.ExternalEmotion, error) {
	body, err := json.Marshal(analyzeRequest{Text: text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("emotionclient: status %d", resp.StatusCode)
	}

	var parsed analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	return &intelligence.ExternalEmotion{Label: parsed.Label, Confidence: parsed.Confidence, Intensity: parsed.Intensity}, nil
}
