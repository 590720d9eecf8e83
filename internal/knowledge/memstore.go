package knowledge

import (
	"context"
	"sort"
	"strings"
	"sync"
)

type factKey struct {
	userID, entity, relationship string
}

type prefKey struct {
	userID, key string
}

// memStore is the in-process backend, used when no Postgres pool is
// configured (grounded in databases.memUserPreferencesStore).
type memStore struct {
	mu            sync.RWMutex
	facts         map[factKey]Fact
	preferences   map[prefKey]Preference
	traits        map[string][]Trait
	relationships map[string][]TraitRelationship
}

// NewInMemoryStore returns a Store backed by process memory.
func NewInMemoryStore() Store {
	return &memStore{
		facts:         map[factKey]Fact{},
		preferences:   map[prefKey]Preference{},
		traits:        map[string][]Trait{},
		relationships: map[string][]TraitRelationship{},
	}
}

func (m *memStore) Init(ctx context.Context) error { return nil }

func (m *memStore) UpsertFact(ctx context.Context, f Fact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := factKey{userID: f.UserID, entity: strings.ToLower(f.EntityName), relationship: f.RelationshipType}
	if existing, ok := m.facts[key]; ok {
		if f.Confidence > existing.Confidence {
			existing.Confidence = f.Confidence
		}
		existing.EmotionalContext = f.EmotionalContext
		existing.EntityType = f.EntityType
		existing.AttributedCharacter = f.AttributedCharacter
		existing.SourceConversationID = f.SourceConversationID
		existing.UpdatedAt = f.UpdatedAt
		m.facts[key] = existing
		return nil
	}
	m.facts[key] = f
	return nil
}

func (m *memStore) UpsertPreference(ctx context.Context, p Preference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := prefKey{userID: p.UserID, key: p.Key}
	m.preferences[key] = p
	return nil
}

func (m *memStore) GetUserFacts(ctx context.Context, userID string, limit int) ([]Fact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Fact
	for _, f := range m.facts {
		if f.UserID == userID {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return truncateFacts(out, limit), nil
}

func (m *memStore) GetUserPreferences(ctx context.Context, userID string, limit int) ([]Preference, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Preference
	for _, p := range m.preferences {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return truncatePreferences(out, limit), nil
}

func (m *memStore) BuildCharacterGraph(ctx context.Context, character string, traits []Trait, relationships []TraitRelationship) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.traits[character] = traits
	m.relationships[character] = relationships
	return nil
}

func (m *memStore) QueryCharacterGraph(ctx context.Context, character string, traitPrefix string) ([]TraitRelationship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.relationships[character]
	if traitPrefix == "" {
		return append([]TraitRelationship(nil), all...), nil
	}
	var out []TraitRelationship
	for _, r := range all {
		if strings.HasPrefix(r.SourceTrait, traitPrefix) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) Traits(ctx context.Context, character string) ([]Trait, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Trait(nil), m.traits[character]...), nil
}

func (m *memStore) Close() error { return nil }

func truncateFacts(facts []Fact, limit int) []Fact {
	if limit <= 0 || limit >= len(facts) {
		return facts
	}
	return facts[:limit]
}

func truncatePreferences(prefs []Preference, limit int) []Preference {
	if limit <= 0 || limit >= len(prefs) {
		return prefs
	}
	return prefs[:limit]
}
