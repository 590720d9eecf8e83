package empathy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalibrateUsesBaselineWhenNoPreference(t *testing.T) {
	c := NewCalibrator(NewInMemoryPreferenceStore())
	result := c.Calibrate("alice", "frustration", "this is annoying", nil, nil)
	assert.Equal(t, StyleValidationFirst, result.RecommendedStyle)
}

func TestCalibrateProblemSolvingOverridesToSolutionFocused(t *testing.T) {
	// scenario: detected_emotion=frustration, conversation mode problem_solving.
	c := NewCalibrator(NewInMemoryPreferenceStore())
	result := c.Calibrate("alice", "frustration", "I'm so frustrated with this stupid computer! Nothing is working!", nil, &ConversationContext{Mode: "problem_solving"})
	assert.Equal(t, StyleSolutionFocused, result.RecommendedStyle)
}

func TestCalibrateVolatilityForcesValidationFirst(t *testing.T) {
	c := NewCalibrator(NewInMemoryPreferenceStore())
	recent := []RecentMessage{
		{Content: "great day", EmotionOrdinal: 3},
		{Content: "feeling awful", EmotionOrdinal: -3},
		{Content: "actually good now", EmotionOrdinal: 3},
		{Content: "terrible again", EmotionOrdinal: -3},
	}
	result := c.Calibrate("alice", "excitement", "what a ride", recent, nil)
	assert.Equal(t, StyleValidationFirst, result.RecommendedStyle)
}

func TestLearnCreatesFreshPreferenceWithConfidence03(t *testing.T) {
	store := NewInMemoryPreferenceStore()
	c := NewCalibrator(store)
	c.Learn("alice", "sadness", StyleSupportivePresence, FeedbackIndicators{Gratitude: true})

	pref, ok := store.Get("alice", "sadness")
	assert.True(t, ok)
	assert.Equal(t, 0.3, pref.Confidence)
	assert.Equal(t, StyleSupportivePresence, pref.PreferredStyle)
}

func TestLearnOverwritesPreferredStyleAfterMinInteractions(t *testing.T) {
	store := NewInMemoryPreferenceStore()
	c := NewCalibrator(store)

	c.Learn("alice", "frustration", StyleValidationFirst, FeedbackIndicators{AbruptEnd: true})
	c.Learn("alice", "frustration", StyleValidationFirst, FeedbackIndicators{AbruptEnd: true})
	c.Learn("alice", "frustration", StyleSolutionFocused, FeedbackIndicators{DeEscalation: true, Gratitude: true, PositiveSentiment: true})

	pref, ok := store.Get("alice", "frustration")
	assert.True(t, ok)
	assert.Equal(t, StyleSolutionFocused, pref.PreferredStyle)
	assert.InDelta(t, 0.4, pref.Confidence, 0.001)
}

func TestAlternativesCappedAtThree(t *testing.T) {
	c := NewCalibrator(NewInMemoryPreferenceStore())
	result := c.Calibrate("alice", "sadness", "feeling down", nil, nil)
	assert.LessOrEqual(t, len(result.Alternatives), 3)
}
