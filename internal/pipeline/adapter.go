package pipeline

import (
	"context"

	"whisperengine/internal/contextswitch"
	"whisperengine/internal/memory"
)

// memoryLookup adapts internal/memory.Store to the narrow read surface
// the Context Switch Detector (L6) needs, per spec.md §4.6's MemoryLookup
// capability.
type memoryLookup struct {
	store memory.Store
}

// NewMemoryLookup wraps store for use as a contextswitch.Detector's
// MemoryLookup dependency. store may be nil, in which case both methods
// report "no signal" rather than erroring.
func NewMemoryLookup(store memory.Store) contextswitch.MemoryLookup {
	return &memoryLookup{store: store}
}

func (m *memoryLookup) RecentUserEmotions(ctx context.Context, userID string, limit int) ([]contextswitch.RecentEmotion, error) {
	if m.store == nil {
		return nil, nil
	}
	records, err := m.store.ScrollRecent(ctx, userID, limit*2)
	if err != nil {
		return nil, err
	}
	out := make([]contextswitch.RecentEmotion, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		if r.Role != memory.RoleUser || r.EmotionalContext == "" {
			continue
		}
		out = append(out, contextswitch.RecentEmotion{Label: r.EmotionalContext})
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *memoryLookup) DetectContradiction(ctx context.Context, userID, topic string) (dissimilarity float64, found bool, err error) {
	if m.store == nil {
		return 0, false, nil
	}
	detector, ok := m.store.(memory.ContradictionDetector)
	if !ok {
		return 0, false, nil
	}
	contradictions, err := detector.DetectContradictions(ctx, topic, userID, contradictionThreshold)
	if err != nil {
		return 0, false, err
	}
	if len(contradictions) == 0 {
		return 0, false, nil
	}
	return 1 - contradictions[0].Similarity, true, nil
}
