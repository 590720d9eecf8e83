package memory

import (
	"context"

	"whisperengine/internal/queryclass"
)

// Store is the Vector Memory Store contract (spec.md §4.3).
type Store interface {
	// Store embeds and upserts a record. It does not create the character
	// collection; the Qdrant backend creates it, with its fixed
	// three-named-vector schema, when the store is opened (NewQdrantStore).
	Store(ctx context.Context, record Record) error

	// Search runs the category strategy's vector search(es), fusing results
	// when the strategy calls for it. Every query is filtered by userID.
	Search(ctx context.Context, query string, userID string, strategy queryclass.Strategy, limit int) ([]Record, error)

	// ScrollRecent returns records time-ordered descending with no vector
	// scoring; used for temporal queries.
	ScrollRecent(ctx context.Context, userID string, limit int) ([]Record, error)

	// History returns the latest limit records ordered by timestamp desc.
	History(ctx context.Context, userID string, limit int) ([]Record, error)

	Close() error
}

// ContradictionDetector is an optional capability a Store implementation may
// satisfy (spec.md §9 "plugin patchwork" redesign: explicit capability
// interface instead of runtime monkey-patching). L6 checks for it once and
// falls back to the deterministic keyword heuristic when absent.
type ContradictionDetector interface {
	DetectContradictions(ctx context.Context, newContent string, userID string, threshold float64) ([]Contradiction, error)
}

// Embedder produces the three named-vector embeddings for a record's
// content. Concrete implementations live in internal/embedclient.
type Embedder interface {
	Embed(ctx context.Context, content string) (contentVec, emotionVec, semanticVec []float32, err error)
}
