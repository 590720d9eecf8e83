// Package knowledge implements the relational Knowledge Store (L4): facts,
// preferences, static character traits, and derived character-trait
// relationships, per spec.md §4.4.
package knowledge

import "time"

// Fact is one observed (user, entity, relationship) tuple.
type Fact struct {
	UserID               string
	EntityName           string
	EntityType           string
	RelationshipType     string
	Confidence           float64 // [0,1]
	EmotionalContext      string
	AttributedCharacter  string
	SourceConversationID string
	UpdatedAt            time.Time
}

// Preference is one observed (user, key) value.
type Preference struct {
	UserID     string
	Key        string
	Value      string
	Confidence float64
	UpdatedAt  time.Time
}

// Trait is a static character trait row, seeded at character load time.
type Trait struct {
	Character string
	Name      string
	Category  string
	Intensity float64 // [0,1]
}

// TraitRelationshipKind enumerates edge types in the derived trait graph.
type TraitRelationshipKind string

const (
	Influences TraitRelationshipKind = "influences"
	LeadsTo    TraitRelationshipKind = "leads_to"
	Contradicts TraitRelationshipKind = "contradicts"
	Supports   TraitRelationshipKind = "supports"
	ExpressesAs TraitRelationshipKind = "expresses_as"
	Motivates  TraitRelationshipKind = "motivates"
)

// TraitRelationship is one derived edge in a character's trait graph.
type TraitRelationship struct {
	Character    string
	SourceTrait  string
	TargetTrait  string
	Kind         TraitRelationshipKind
	Strength     float64 // [0,1]
	Context      string
}
