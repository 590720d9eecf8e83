// Package intelligence implements the Parallel Intelligence Orchestrator
// (L9): concurrent fan-out/fan-in of the four per-turn analyses, per
// spec.md §4.9.
package intelligence

import (
	"whisperengine/internal/contextswitch"
	"whisperengine/internal/empathy"
	"whisperengine/internal/selfknowledge"
)

// ExternalEmotion is the result of the external emotion analysis API call.
type ExternalEmotion struct {
	Label      string
	Confidence float64
	Intensity  float64
}

// IntrinsicEmotion is the local-heuristic emotion read (phase-2 analysis).
type IntrinsicEmotion struct {
	Label      string
	Intensity  float64
}

// PersonalityAnalysis bundles the L6 context-switch output for this turn.
type PersonalityAnalysis struct {
	Switches []contextswitch.Switch
}

// HumanLikeIntelligence bundles empathy calibration, self-knowledge
// discovery, and an optional conversation summary (phase-4 analysis).
type HumanLikeIntelligence struct {
	Empathy   *empathy.Calibration
	SelfKnowledge *selfknowledge.Discovery
	Summary   string
}

// Bundle is the fan-in result handed to the Prompt Assembler (L10). Any
// field may be nil/zero if its task failed or timed out — the turn must
// still proceed (spec.md §4.9).
type Bundle struct {
	ExternalEmotion *ExternalEmotion
	IntrinsicEmotion *IntrinsicEmotion
	Personality     *PersonalityAnalysis
	HumanLike       *HumanLikeIntelligence
}
