package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// OpenPool creates a Postgres connection pool with conservative pooling
// defaults (grounded in databases.newPgPool).
func OpenPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("knowledge: parse dsn: %w", err)
	}
	cfg.MaxConns = 8
	cfg.MinConns = 0
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 5 * time.Minute
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("knowledge: open pool: %w", err)
	}
	cctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(cctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("knowledge: ping: %w", err)
	}
	return pool, nil
}

// pgStore is the Postgres-backed implementation used for auth-enabled,
// durable deployments (grounded in databases.pgUserPreferencesStore).
type pgStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore returns a Store backed by pool. Callers must call Init
// once at startup to create the schema.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

func (s *pgStore) Init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS facts (
    user_id TEXT NOT NULL,
    entity_name TEXT NOT NULL,
    entity_type TEXT,
    relationship_type TEXT NOT NULL,
    confidence DOUBLE PRECISION NOT NULL,
    emotional_context TEXT,
    attributed_character TEXT,
    source_conversation_id TEXT,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (user_id, entity_name, relationship_type)
);
CREATE INDEX IF NOT EXISTS idx_facts_user_confidence ON facts(user_id, confidence DESC, updated_at DESC);

CREATE TABLE IF NOT EXISTS preferences (
    user_id TEXT NOT NULL,
    key TEXT NOT NULL,
    value TEXT NOT NULL,
    confidence DOUBLE PRECISION NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (user_id, key)
);
CREATE INDEX IF NOT EXISTS idx_preferences_user_confidence ON preferences(user_id, confidence DESC, updated_at DESC);

CREATE TABLE IF NOT EXISTS character_traits (
    character TEXT NOT NULL,
    name TEXT NOT NULL,
    category TEXT,
    intensity DOUBLE PRECISION NOT NULL,
    PRIMARY KEY (character, name)
);

CREATE TABLE IF NOT EXISTS character_trait_relationships (
    character TEXT NOT NULL,
    source_trait TEXT NOT NULL,
    target_trait TEXT NOT NULL,
    kind TEXT NOT NULL,
    strength DOUBLE PRECISION NOT NULL,
    context TEXT,
    PRIMARY KEY (character, source_trait, target_trait, kind)
);
CREATE INDEX IF NOT EXISTS idx_trait_rel_character_source ON character_trait_relationships(character, source_trait);
`)
	return err
}

func (s *pgStore) UpsertFact(ctx context.Context, f Fact) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO facts (user_id, entity_name, entity_type, relationship_type, confidence, emotional_context, attributed_character, source_conversation_id, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
ON CONFLICT (user_id, entity_name, relationship_type) DO UPDATE SET
    confidence = GREATEST(facts.confidence, EXCLUDED.confidence),
    emotional_context = EXCLUDED.emotional_context,
    entity_type = EXCLUDED.entity_type,
    attributed_character = EXCLUDED.attributed_character,
    source_conversation_id = EXCLUDED.source_conversation_id,
    updated_at = EXCLUDED.updated_at
`, f.UserID, f.EntityName, f.EntityType, f.RelationshipType, f.Confidence, f.EmotionalContext, f.AttributedCharacter, f.SourceConversationID)
	return err
}

func (s *pgStore) UpsertPreference(ctx context.Context, p Preference) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO preferences (user_id, key, value, confidence, updated_at)
VALUES ($1, $2, $3, $4, NOW())
ON CONFLICT (user_id, key) DO UPDATE SET
    value = EXCLUDED.value,
    confidence = EXCLUDED.confidence,
    updated_at = EXCLUDED.updated_at
`, p.UserID, p.Key, p.Value, p.Confidence)
	return err
}

func (s *pgStore) GetUserFacts(ctx context.Context, userID string, limit int) ([]Fact, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
SELECT user_id, entity_name, entity_type, relationship_type, confidence, emotional_context, attributed_character, source_conversation_id, updated_at
FROM facts WHERE user_id = $1
ORDER BY confidence DESC, updated_at DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("knowledge: get user facts: %w", err)
	}
	defer rows.Close()

	var out []Fact
	for rows.Next() {
		var f Fact
		if err := rows.Scan(&f.UserID, &f.EntityName, &f.EntityType, &f.RelationshipType, &f.Confidence, &f.EmotionalContext, &f.AttributedCharacter, &f.SourceConversationID, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("knowledge: scan fact: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *pgStore) GetUserPreferences(ctx context.Context, userID string, limit int) ([]Preference, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
SELECT user_id, key, value, confidence, updated_at
FROM preferences WHERE user_id = $1
ORDER BY confidence DESC, updated_at DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("knowledge: get user preferences: %w", err)
	}
	defer rows.Close()

	var out []Preference
	for rows.Next() {
		var p Preference
		if err := rows.Scan(&p.UserID, &p.Key, &p.Value, &p.Confidence, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("knowledge: scan preference: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *pgStore) BuildCharacterGraph(ctx context.Context, character string, traits []Trait, relationships []TraitRelationship) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("knowledge: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM character_traits WHERE character = $1`, character); err != nil {
		return fmt.Errorf("knowledge: clear traits: %w", err)
	}
	for _, t := range traits {
		if _, err := tx.Exec(ctx, `
INSERT INTO character_traits (character, name, category, intensity)
VALUES ($1, $2, $3, $4)
ON CONFLICT (character, name) DO UPDATE SET category = EXCLUDED.category, intensity = EXCLUDED.intensity
`, t.Character, t.Name, t.Category, t.Intensity); err != nil {
			return fmt.Errorf("knowledge: insert trait: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM character_trait_relationships WHERE character = $1`, character); err != nil {
		return fmt.Errorf("knowledge: clear trait relationships: %w", err)
	}
	for _, r := range relationships {
		if _, err := tx.Exec(ctx, `
INSERT INTO character_trait_relationships (character, source_trait, target_trait, kind, strength, context)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (character, source_trait, target_trait, kind) DO UPDATE SET strength = EXCLUDED.strength, context = EXCLUDED.context
`, r.Character, r.SourceTrait, r.TargetTrait, string(r.Kind), r.Strength, r.Context); err != nil {
			return fmt.Errorf("knowledge: insert trait relationship: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (s *pgStore) QueryCharacterGraph(ctx context.Context, character string, traitPrefix string) ([]TraitRelationship, error) {
	query := `SELECT character, source_trait, target_trait, kind, strength, context FROM character_trait_relationships WHERE character = $1`
	args := []any{character}
	if traitPrefix != "" {
		query += ` AND source_trait LIKE $2`
		args = append(args, traitPrefix+"%")
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("knowledge: query character graph: %w", err)
	}
	defer rows.Close()

	var out []TraitRelationship
	for rows.Next() {
		var r TraitRelationship
		var kind string
		if err := rows.Scan(&r.Character, &r.SourceTrait, &r.TargetTrait, &kind, &r.Strength, &r.Context); err != nil {
			return nil, fmt.Errorf("knowledge: scan trait relationship: %w", err)
		}
		r.Kind = TraitRelationshipKind(kind)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *pgStore) Traits(ctx context.Context, character string) ([]Trait, error) {
	rows, err := s.pool.Query(ctx, `SELECT character, name, category, intensity FROM character_traits WHERE character = $1`, character)
	if err != nil {
		return nil, fmt.Errorf("knowledge: query traits: %w", err)
	}
	defer rows.Close()

	var out []Trait
	for rows.Next() {
		var t Trait
		if err := rows.Scan(&t.Character, &t.Name, &t.Category, &t.Intensity); err != nil {
			return nil, fmt.Errorf("knowledge: scan trait: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *pgStore) Close() error {
	s.pool.Close()
	return nil
}
