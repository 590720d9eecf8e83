// Package queryclass implements the Query Classifier (L2): it assigns a
// query to one of five categories and maps the category to a vector
// retrieval strategy, per spec.md §4.2.
package queryclass

import "strings"

// Category is one of the five query classifications.
type Category string

const (
	Factual       Category = "factual"
	Conversational Category = "conversational"
	Emotional     Category = "emotional"
	Temporal      Category = "temporal"
	General       Category = "general"
)

// Strategy describes which named vectors to search and how to combine them.
type Strategy struct {
	VectorNames []string
	Weights     []float64
	Fuse        bool
}

var strategies = map[Category]Strategy{
	Factual:        {VectorNames: []string{"content"}, Weights: []float64{1.0}, Fuse: false},
	Conversational: {VectorNames: []string{"content", "semantic"}, Weights: []float64{0.5, 0.5}, Fuse: true},
	Emotional:      {VectorNames: []string{"content", "emotion"}, Weights: []float64{0.4, 0.6}, Fuse: true},
	Temporal:       {VectorNames: nil, Weights: nil, Fuse: false},
	General:        {VectorNames: []string{"content"}, Weights: []float64{1.0}, Fuse: false},
}

var factualPatterns = []string{
	"what is", "define", "how to", "explain", "calculate", "formula", "definition of", "tell me about",
}

var conversationalPatterns = []string{
	"we talked", "our conversation", "remember when", "you mentioned", "what did we",
}

var emotionalKeywords = []string{
	"feel", "feeling", "mood", "how are you", "happy", "sad", "angry", "excited", "anxious", "scared",
}

// EmotionSignals carries the pre-analyzed emotion inputs the classifier
// consults for the emotional category (spec.md §4.2 step 3).
type EmotionSignals struct {
	EmotionalIntensity float64 // [0,1]
}

// Classify assigns a category and the corresponding retrieval Strategy.
// Priority order (first match wins): factual, conversational, emotional,
// temporal (only when isTemporal), general.
func Classify(query string, emotion EmotionSignals, isTemporal bool) (Category, Strategy) {
	low := strings.ToLower(query)

	if matchesAny(low, factualPatterns) {
		return Factual, strategies[Factual]
	}
	if matchesAny(low, conversationalPatterns) {
		return Conversational, strategies[Conversational]
	}
	if matchesAny(low, emotionalKeywords) || emotion.EmotionalIntensity >= 0.3 {
		return Emotional, strategies[Emotional]
	}
	if isTemporal {
		return Temporal, strategies[Temporal]
	}
	return General, strategies[General]
}

func matchesAny(haystack string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(haystack, p) {
			return true
		}
	}
	return false
}
