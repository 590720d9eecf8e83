package queryclass

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyConversationalBeatsTemporal(t *testing.T) {
	// scenario 2: conversational priority beats temporal even with is_temporal=true.
	cat, strat := Classify("What did we talk about yesterday?", EmotionSignals{}, true)
	assert.Equal(t, Conversational, cat)
	assert.Equal(t, []string{"content", "semantic"}, strat.VectorNames)
	assert.Equal(t, []float64{0.5, 0.5}, strat.Weights)
	assert.True(t, strat.Fuse)
}

func TestClassifyPureTemporalWithoutConversationalMarker(t *testing.T) {
	cat, _ := Classify("What was the first thing you said?", EmotionSignals{}, true)
	assert.Equal(t, Temporal, cat)
}

func TestClassifyFactual(t *testing.T) {
	cat, strat := Classify("What is the boiling point of water?", EmotionSignals{}, false)
	assert.Equal(t, Factual, cat)
	assert.False(t, strat.Fuse)
}

func TestClassifyEmotionalByIntensity(t *testing.T) {
	cat, _ := Classify("I can't take this anymore", EmotionSignals{EmotionalIntensity: 0.5}, false)
	assert.Equal(t, Emotional, cat)
}

func TestClassifyGeneralFallback(t *testing.T) {
	cat, _ := Classify("Let's grab coffee sometime", EmotionSignals{}, false)
	assert.Equal(t, General, cat)
}
