package memory

// Dimension is the fixed embedding width used across all three named
// vectors (spec.md §4.3 names the vectors but leaves width to the
// embedding backend; internal/embedclient targets this width).
const Dimension = 384

// New returns a Qdrant-backed Store when dsn is non-empty, otherwise an
// in-memory Store.
func New(dsn string, normalizedCharacter string, embedder Embedder) (Store, error) {
	if dsn == "" {
		return NewInMemoryStore(embedder), nil
	}
	return NewQdrantStore(dsn, normalizedCharacter, Dimension, embedder)
}
