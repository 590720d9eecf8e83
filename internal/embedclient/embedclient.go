// Package embedclient implements the embedding backends consumed by the
// Vector Memory Store's Embedder capability (spec.md §4.3): a
// deterministic local embedder for offline/dev use, and an HTTP client
// against any OpenAI-compatible /embeddings endpoint.
package embedclient

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// emotionLexicon maps a keyword to an emotion-vector axis index; the
// local embedder and the HTTP embedder's derived emotion vector both use
// it so a word like "anxious" always lights up the same axis regardless
// of backend.
var emotionLexicon = map[string]int{
	"happy": 0, "joy": 0, "excited": 0,
	"sad": 1, "down": 1, "blue": 1,
	"angry": 2, "frustrated": 2, "mad": 2,
	"anxious": 3, "worried": 3, "nervous": 3,
	"calm": 4, "peaceful": 4, "relaxed": 4,
	"scared": 5, "afraid": 5, "fear": 5,
}

// LocalEmbedder produces deterministic, content-derived vectors with no
// external dependency: a hash-based content/semantic vector plus a small
// keyword-lexicon emotion vector. It satisfies memory.Embedder and is the
// default when no external embedding backend is configured.
type LocalEmbedder struct {
	dimension int
}

func NewLocalEmbedder(dimension int) *LocalEmbedder {
	return &LocalEmbedder{dimension: dimension}
}

func (e *LocalEmbedder) Embed(ctx context.Context, content string) (contentVec, emotionVec, semanticVec []float32, err error) {
	contentVec = hashVector(content, e.dimension, 0)
	semanticVec = hashVector(content, e.dimension, 1)
	emotionVec = lexiconVector(content, e.dimension)
	return contentVec, emotionVec, semanticVec, nil
}

// hashVector derives a deterministic unit vector from content's words,
// salted by seed so content/semantic vectors differ from each other while
// both staying stable across runs for the same input.
func hashVector(content string, dimension int, seed uint32) []float32 {
	vec := make([]float32, dimension)
	words := strings.Fields(strings.ToLower(content))
	if len(words) == 0 {
		return vec
	}
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte{byte(seed), byte(seed >> 8)})
		h.Write([]byte(w))
		idx := int(h.Sum32() % uint32(dimension))
		vec[idx] += 1
	}
	return normalize(vec)
}

func lexiconVector(content string, dimension int) []float32 {
	vec := make([]float32, dimension)
	low := strings.ToLower(content)
	for word, axis := range emotionLexicon {
		if axis >= dimension {
			continue
		}
		if strings.Contains(low, word) {
			vec[axis] += 1
		}
	}
	return normalize(vec)
}

func normalize(vec []float32) []float32 {
	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares == 0 {
		return vec
	}
	norm := float32(math.Sqrt(sumSquares))
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}
