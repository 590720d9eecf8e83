package selfknowledge

import (
	"context"
	"fmt"
	"strings"

	"whisperengine/internal/knowledge"
)

// GraphBuilder converts a CharacterKnowledgeProfile into derived
// CharacterTraitRelationship rows by deterministic keyword rules
// (spec.md §4.8 Graph Builder).
type GraphBuilder struct {
	store knowledge.Store
}

func NewGraphBuilder(store knowledge.Store) *GraphBuilder {
	return &GraphBuilder{store: store}
}

// Build derives relationships from profile and upserts them (replacing any
// previously derived set for the character) via BuildCharacterGraph.
func (g *GraphBuilder) Build(ctx context.Context, profile CharacterKnowledgeProfile, traits []knowledge.Trait) error {
	rels := deriveRelationships(profile)
	if err := g.store.BuildCharacterGraph(ctx, profile.Character, traits, rels); err != nil {
		return fmt.Errorf("selfknowledge: build character graph: %w", err)
	}
	return nil
}

func deriveRelationships(profile CharacterKnowledgeProfile) []knowledge.TraitRelationship {
	character := profile.Character
	var rels []knowledge.TraitRelationship

	hasHonesty, hasEmpathy := false, false
	for _, v := range profile.Values {
		desc := strings.ToLower(v.Name + " " + v.Category)
		if containsAny(desc, "honest", "truth") {
			hasHonesty = true
			rels = append(rels, rel(character, v.Name, "communication:direct_style", knowledge.LeadsTo, 0.8))
		}
		if containsAny(desc, "empathy", "caring") {
			hasEmpathy = true
			rels = append(rels, rel(character, v.Name, "communication:supportive_tone", knowledge.ExpressesAs, 0.9))
		}
		if containsAny(desc, "knowledge", "learning") {
			rels = append(rels, rel(character, v.Name, "behavior:educational_sharing", knowledge.Motivates, 0.7))
		}
	}

	for _, ability := range profile.Abilities {
		if containsAny(strings.ToLower(ability.Name), "science", "scientific") {
			rels = append(rels, rel(character, ability.Name, "behavior:scientific_explanations", knowledge.Supports, 0.7))
		}
	}

	if hasEmpathy && hasHonesty {
		rels = append(rels, rel(character, "empathy+directness", "behavior:compassionate_honesty", knowledge.Supports, 0.75))
	}

	return rels
}

func rel(character, source, target string, kind knowledge.TraitRelationshipKind, strength float64) knowledge.TraitRelationship {
	return knowledge.TraitRelationship{Character: character, SourceTrait: source, TargetTrait: target, Kind: kind, Strength: strength}
}

func containsAny(haystack string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
