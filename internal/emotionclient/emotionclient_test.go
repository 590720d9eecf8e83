package emotionclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeParsesLabelAndConfidence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req analyzeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "I'm thrilled about this", req.Text)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(analyzeResponse{Label: "excitement", Confidence: 0.9})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	result, err := c.Analyze(context.Background(), "I'm thrilled about this")
	require.NoError(t, err)
	assert.Equal(t, "excitement", result.Label)
	assert.Equal(t, 0.9, result.Confidence)
}

func TestAnalyzeReturnsErrorOnNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	_, err := c.Analyze(context.Background(), "hello")
	assert.Error(t, err)
}
