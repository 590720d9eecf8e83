package selfknowledge

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"whisperengine/internal/knowledge"
)

const (
	patternStrengthThreshold = 0.7
	patternMinRelationships  = 2
	cacheTTL                 = time.Hour
)

var motivationVocabulary = map[string][]string{
	"connection":   {"friend", "relationship", "together", "belonging"},
	"growth":       {"learn", "grow", "improve", "knowledge"},
	"achievement":  {"succeed", "achieve", "accomplish", "goal"},
	"care":         {"help", "support", "comfort", "empathy", "caring"},
	"authenticity": {"honest", "truth", "genuine", "real"},
}

// Cache stores Discovery results per (character, insight kind) for one
// hour. Concrete implementations: in-memory (default) or Redis-backed.
type Cache interface {
	Get(ctx context.Context, character string, kind InsightKind) (Discovery, bool)
	Put(ctx context.Context, character string, kind InsightKind, d Discovery)
}

// TraitDiscovery derives motivations, behavioral patterns, and
// self-awareness insights from a character's trait graph (spec.md §4.8
// Trait Discovery).
type TraitDiscovery struct {
	store knowledge.Store
	cache Cache
}

func NewTraitDiscovery(store knowledge.Store, cache Cache) *TraitDiscovery {
	if cache == nil {
		cache = NewInMemoryCache()
	}
	return &TraitDiscovery{store: store, cache: cache}
}

// Discover returns the cached discovery for character if fresh, otherwise
// recomputes and caches it. Failures yield an empty Discovery rather than
// an error (spec.md §4.8 "Failure of any L8 step yields empty results").
func (d *TraitDiscovery) Discover(ctx context.Context, profile CharacterKnowledgeProfile) Discovery {
	if cached, ok := d.cache.Get(ctx, profile.Character, InsightMotivation); ok {
		return cached
	}

	relationships, err := d.store.QueryCharacterGraph(ctx, profile.Character, "")
	if err != nil {
		return Discovery{}
	}

	discovery := Discovery{
		Motivations: deriveMotivations(profile),
		Patterns:    derivePatterns(relationships),
	}
	discovery.Insights = deriveInsights(discovery, profile)

	d.cache.Put(ctx, profile.Character, InsightMotivation, discovery)
	return discovery
}

func deriveMotivations(profile CharacterKnowledgeProfile) []TraitMotivation {
	var out []TraitMotivation
	sources := map[string]string{}
	for _, v := range profile.Values {
		sources[v.Name] = "value"
	}

	for motivation, keywords := range motivationVocabulary {
		var hits int
		var source string
		for name, kind := range sources {
			lower := strings.ToLower(name)
			for _, kw := range keywords {
				if strings.Contains(lower, kw) {
					hits++
					source = kind
				}
			}
		}
		if hits == 0 {
			continue
		}
		confidence := clamp01(float64(hits) / float64(len(keywords)))
		out = append(out, TraitMotivation{Motivation: motivation, Confidence: confidence, Source: source})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Motivation < out[j].Motivation
	})
	return out
}

func derivePatterns(relationships []knowledge.TraitRelationship) []BehavioralPattern {
	byKind := map[knowledge.TraitRelationshipKind][]knowledge.TraitRelationship{}
	for _, r := range relationships {
		if r.Strength < patternStrengthThreshold {
			continue
		}
		byKind[r.Kind] = append(byKind[r.Kind], r)
	}

	var patterns []BehavioralPattern
	for kind, rels := range byKind {
		if len(rels) < patternMinRelationships {
			continue
		}
		patterns = append(patterns, BehavioralPattern{Kind: kind, Relationships: rels})
	}
	return patterns
}

func deriveInsights(discovery Discovery, profile CharacterKnowledgeProfile) []Insight {
	var insights []Insight
	for _, m := range discovery.Motivations {
		insights = append(insights, Insight{
			Kind: InsightMotivation,
			Text: fmt.Sprintf("%s is motivated by %s (confidence %.2f)", profile.Character, m.Motivation, m.Confidence),
		})
	}
	for _, p := range discovery.Patterns {
		insights = append(insights, Insight{
			Kind: InsightBehavior,
			Text: fmt.Sprintf("%s shows a consistent %s pattern across %d traits", profile.Character, p.Kind, len(p.Relationships)),
		})
	}
	if len(profile.Values) > 0 {
		insights = append(insights, Insight{Kind: InsightValues, Text: fmt.Sprintf("%s holds %d core values", profile.Character, len(profile.Values))})
	}
	return insights
}
