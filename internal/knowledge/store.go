package knowledge

import "context"

// Store is the Knowledge Store contract (spec.md §4.4). All character-keyed
// operations expect an already-normalized character name.
type Store interface {
	// Init creates the schema if needed. A no-op for the in-memory backend.
	Init(ctx context.Context) error

	UpsertFact(ctx context.Context, f Fact) error
	UpsertPreference(ctx context.Context, p Preference) error

	GetUserFacts(ctx context.Context, userID string, limit int) ([]Fact, error)
	GetUserPreferences(ctx context.Context, userID string, limit int) ([]Preference, error)

	// BuildCharacterGraph stores traits as character's static trait rows and
	// writes the full set of derived relationships in one transaction,
	// replacing any previously derived set; previously stored trait rows are
	// replaced by traits as well (spec.md §4.8).
	BuildCharacterGraph(ctx context.Context, character string, traits []Trait, relationships []TraitRelationship) error

	// QueryCharacterGraph returns derived relationships for character whose
	// source trait matches traitPrefix ("" matches all).
	QueryCharacterGraph(ctx context.Context, character string, traitPrefix string) ([]TraitRelationship, error)

	// Traits returns the static trait rows seeded for character.
	Traits(ctx context.Context, character string) ([]Trait, error)

	Close() error
}
