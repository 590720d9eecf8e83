package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"whisperengine/internal/queryclass"
)

// memStore is the in-process backend used for tests and for deployments
// without a configured vector store.
type memStore struct {
	mu       sync.RWMutex
	embedder Embedder
	byID     map[string]Record
	order    []string // insertion order, used as a stable tiebreak
}

// NewInMemoryStore returns a Store backed by an in-process map. embedder may
// be nil, in which case records are stored with only the embeddings they
// already carry; Store does not return an error for records without them.
func NewInMemoryStore(embedder Embedder) Store {
	return &memStore{embedder: embedder, byID: map[string]Record{}}
}

func (m *memStore) Store(ctx context.Context, record Record) error {
	if m.embedder != nil && record.ContentEmbedding == nil {
		cv, ev, sv, err := m.embedder.Embed(ctx, record.Content)
		if err != nil {
			return err
		}
		record.ContentEmbedding, record.EmotionEmbedding, record.SemanticEmbedding = cv, ev, sv
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byID[record.ID]; !exists {
		m.order = append(m.order, record.ID)
	}
	m.byID[record.ID] = record
	return nil
}

func (m *memStore) Search(ctx context.Context, query string, userID string, strategy queryclass.Strategy, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 10
	}
	if len(strategy.VectorNames) == 0 {
		return m.ScrollRecent(ctx, userID, limit)
	}

	var queryContent, queryEmotion, querySemantic []float32
	if m.embedder != nil {
		cv, ev, sv, err := m.embedder.Embed(ctx, query)
		if err != nil {
			return nil, err
		}
		queryContent, queryEmotion, querySemantic = cv, ev, sv
	}

	m.mu.RLock()
	candidates := m.userRecords(userID)
	m.mu.RUnlock()

	if !strategy.Fuse {
		vecName := strategy.VectorNames[0]
		ranked := rankByVector(candidates, vecName, queryContent, queryEmotion, querySemantic)
		return take(ranked, limit), nil
	}

	perVector := make([][]rankedHit, len(strategy.VectorNames))
	recordsByID := map[string]Record{}
	for vi, vecName := range strategy.VectorNames {
		ranked := rankByVector(candidates, vecName, queryContent, queryEmotion, querySemantic)
		hits := make([]rankedHit, len(ranked))
		for i, r := range ranked {
			hits[i] = rankedHit{id: r.ID, rank: i}
			recordsByID[r.ID] = r
		}
		perVector[vi] = hits
	}
	fusedIDs := reciprocalRankFuse(perVector, strategy.Weights, limit)
	out := make([]Record, 0, len(fusedIDs))
	for _, id := range fusedIDs {
		out = append(out, recordsByID[id])
	}
	return out, nil
}

func (m *memStore) ScrollRecent(ctx context.Context, userID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 10
	}
	m.mu.RLock()
	records := m.userRecords(userID)
	m.mu.RUnlock()
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	return take(records, limit), nil
}

func (m *memStore) History(ctx context.Context, userID string, limit int) ([]Record, error) {
	return m.ScrollRecent(ctx, userID, limit)
}

func (m *memStore) Close() error { return nil }

// DetectContradictions implements the optional ContradictionDetector
// capability (spec.md §4.3/§9) using cosine similarity against the content
// embedding of recent records sharing the user scope.
func (m *memStore) DetectContradictions(ctx context.Context, newContent string, userID string, threshold float64) ([]Contradiction, error) {
	if m.embedder == nil {
		return nil, nil
	}
	cv, _, _, err := m.embedder.Embed(ctx, newContent)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	candidates := m.userRecords(userID)
	m.mu.RUnlock()

	var out []Contradiction
	for _, r := range candidates {
		if len(r.ContentEmbedding) == 0 {
			continue
		}
		sim := cosineSimilarity(cv, r.ContentEmbedding)
		if sim < threshold {
			out = append(out, Contradiction{Record: r, Similarity: sim})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity < out[j].Similarity })
	return out, nil
}

func (m *memStore) userRecords(userID string) []Record {
	out := make([]Record, 0, len(m.order))
	for _, id := range m.order {
		r := m.byID[id]
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out
}

func rankByVector(candidates []Record, vecName string, qContent, qEmotion, qSemantic []float32) []Record {
	type scored struct {
		rec   Record
		score float64
	}
	var scoredList []scored
	for _, r := range candidates {
		var rv []float32
		var qv []float32
		switch vecName {
		case "content":
			rv, qv = r.ContentEmbedding, qContent
		case "emotion":
			rv, qv = r.EmotionEmbedding, qEmotion
		case "semantic":
			rv, qv = r.SemanticEmbedding, qSemantic
		default:
			rv, qv = r.ContentEmbedding, qContent
		}
		if len(rv) == 0 || len(qv) == 0 {
			continue
		}
		scoredList = append(scoredList, scored{rec: r, score: cosineSimilarity(qv, rv)})
	}
	sort.SliceStable(scoredList, func(i, j int) bool {
		if scoredList[i].score != scoredList[j].score {
			return scoredList[i].score > scoredList[j].score
		}
		return scoredList[i].rec.Timestamp.After(scoredList[j].rec.Timestamp)
	})
	out := make([]Record, len(scoredList))
	for i, s := range scoredList {
		out[i] = s.rec
	}
	return out
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func take(records []Record, limit int) []Record {
	if limit <= 0 || limit >= len(records) {
		return records
	}
	return records[:limit]
}
