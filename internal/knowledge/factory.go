package knowledge

import "context"

// New returns a Postgres-backed Store when dsn is non-empty, otherwise an
// in-memory Store (grounded in databases.NewUserPreferencesStore), and
// initializes its schema.
func New(ctx context.Context, dsn string) (Store, error) {
	if dsn == "" {
		s := NewInMemoryStore()
		return s, s.Init(ctx)
	}
	pool, err := OpenPool(ctx, dsn)
	if err != nil {
		return nil, err
	}
	s := NewPostgresStore(pool)
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	return s, nil
}
