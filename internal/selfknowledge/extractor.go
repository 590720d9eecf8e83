package selfknowledge

import (
	"context"
	"fmt"

	"whisperengine/internal/knowledge"
)

const (
	traitCountSaturation = 20
	traitKindSaturation  = 5
)

// Extractor builds a CharacterKnowledgeProfile from L4 static trait rows.
type Extractor struct {
	store knowledge.Store
}

func NewExtractor(store knowledge.Store) *Extractor {
	return &Extractor{store: store}
}

// Extract loads character's traits and computes profile confidence as a
// function of trait count, trait-kind variety, and high-importance trait
// count (spec.md §4.8 Extractor).
func (e *Extractor) Extract(ctx context.Context, character string) (CharacterKnowledgeProfile, error) {
	traits, err := e.store.Traits(ctx, character)
	if err != nil {
		return CharacterKnowledgeProfile{}, fmt.Errorf("selfknowledge: load traits: %w", err)
	}

	profile := CharacterKnowledgeProfile{Character: character, BigFive: map[string]float64{}}
	kinds := map[string]struct{}{}
	highImportance := 0

	for _, t := range traits {
		kinds[t.Category] = struct{}{}
		if t.Intensity >= 0.7 {
			highImportance++
		}
		switch t.Category {
		case "value":
			profile.Values = append(profile.Values, t)
		case "ability":
			profile.Abilities = append(profile.Abilities, t)
		case "trigger":
			profile.BehavioralTriggers = append(profile.BehavioralTriggers, t)
		case "big_five":
			profile.BigFive[t.Name] = t.Intensity
		}
	}

	countScore := clamp01(float64(len(traits)) / traitCountSaturation)
	kindScore := clamp01(float64(len(kinds)) / traitKindSaturation)
	importanceScore := clamp01(float64(highImportance) / traitCountSaturation)
	profile.Confidence = clamp01((countScore + kindScore + importanceScore) / 3)

	return profile, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
