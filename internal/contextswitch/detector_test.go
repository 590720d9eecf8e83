package contextswitch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMemory struct {
	emotions []RecentEmotion
}

func (f fakeMemory) RecentUserEmotions(ctx context.Context, userID string, limit int) ([]RecentEmotion, error) {
	return f.emotions, nil
}

func (f fakeMemory) DetectContradiction(ctx context.Context, userID, topic string) (float64, bool, error) {
	return 0, false, nil
}

func TestDetectFirstMessageProducesNoTopicSwitch(t *testing.T) {
	d := NewDetector(fakeMemory{})
	switches := d.Detect(context.Background(), "alice", "I've been researching coral reefs")
	for _, s := range switches {
		assert.NotEqual(t, KindTopic, s.Kind)
	}
}

func TestDetectConversationModeShiftToProblemSolving(t *testing.T) {
	d := NewDetector(nil)
	d.Detect(context.Background(), "alice", "hey, how's it going")
	switches := d.Detect(context.Background(), "alice", "my code is broken, help me fix this error")

	var found bool
	for _, s := range switches {
		if s.Kind == KindConversationMode {
			found = true
			assert.Equal(t, StrategyModeAdjustment, s.Adaptation)
		}
	}
	assert.True(t, found)
}

func TestDetectUrgencyChangeFromKeywordsAndPunctuation(t *testing.T) {
	d := NewDetector(nil)
	d.Detect(context.Background(), "alice", "whenever you get a chance, no rush")
	switches := d.Detect(context.Background(), "alice", "this is urgent!!!")

	var found bool
	for _, s := range switches {
		if s.Kind == KindUrgency {
			found = true
		}
	}
	assert.True(t, found)
}

func TestDetectEmotionalShiftFromMemoryHistory(t *testing.T) {
	d := NewDetector(fakeMemory{emotions: []RecentEmotion{{Label: "very_positive"}, {Label: "positive"}, {Label: "neutral"}, {Label: "negative"}, {Label: "very_negative"}}})
	switches := d.Detect(context.Background(), "alice", "talking about something else entirely")

	var found bool
	for _, s := range switches {
		if s.Kind == KindEmotional {
			found = true
			assert.Equal(t, StrengthDramatic, s.Strength)
		}
	}
	assert.True(t, found)
}

func TestDetectNeverPanics(t *testing.T) {
	d := NewDetector(fakeMemory{})
	require.NotPanics(t, func() {
		d.Detect(context.Background(), "", "")
	})
}

func TestDetectBumpsContextConfidence(t *testing.T) {
	d := NewDetector(nil)
	d.Detect(context.Background(), "alice", "hello")
	d.mu.Lock()
	snap := d.snapshots["alice"]
	d.mu.Unlock()
	require.NotNil(t, snap)
	assert.InDelta(t, 0.4, snap.ContextConfidence, 0.001)
}
