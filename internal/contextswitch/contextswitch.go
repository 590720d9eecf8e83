// Package contextswitch implements the Context Switch Detector (L6):
// per-turn detection of topic, emotional, conversation-mode, urgency, and
// intent shifts against a running per-user ContextSnapshot, per
// spec.md §4.6.
package contextswitch

import "time"

// Kind is the axis along which a context switch was detected.
type Kind string

const (
	KindTopic             Kind = "topic_shift"
	KindEmotional         Kind = "emotional_shift"
	KindConversationMode  Kind = "conversation_mode"
	KindUrgency           Kind = "urgency_change"
	KindIntent            Kind = "intent_change"
)

// Strength buckets a switch's magnitude.
type Strength string

const (
	StrengthSubtle   Strength = "subtle"
	StrengthModerate Strength = "moderate"
	StrengthStrong   Strength = "strong"
	StrengthDramatic Strength = "dramatic"
)

// AdaptationStrategy is the L10-consumed recommendation attached to a switch.
type AdaptationStrategy string

const (
	StrategyAcknowledgeTransition AdaptationStrategy = "acknowledge_transition"
	StrategyEmotionalValidation   AdaptationStrategy = "emotional_validation"
	StrategyModeAdjustment        AdaptationStrategy = "mode_adjustment"
	StrategyUrgencyAdaptation     AdaptationStrategy = "urgency_adaptation"
	StrategyIntentRealignment     AdaptationStrategy = "intent_realignment"
)

var adaptationByKind = map[Kind]AdaptationStrategy{
	KindTopic:            StrategyAcknowledgeTransition,
	KindEmotional:        StrategyEmotionalValidation,
	KindConversationMode: StrategyModeAdjustment,
	KindUrgency:          StrategyUrgencyAdaptation,
	KindIntent:           StrategyIntentRealignment,
}

// Switch is one detected change along one axis.
type Switch struct {
	Kind        Kind
	Strength    Strength
	Confidence  float64
	Description string
	Adaptation  AdaptationStrategy
}

// Mode is the conversational register in play.
type Mode string

const (
	ModeCasual         Mode = "casual"
	ModeSupport        Mode = "support"
	ModeEducational    Mode = "educational"
	ModeProblemSolving Mode = "problem_solving"
)

// Intent classifies the communicative purpose of a message.
type Intent string

const (
	IntentQuestion    Intent = "question"
	IntentSeekingHelp Intent = "seeking_help"
	IntentSharing     Intent = "sharing"
	IntentVenting     Intent = "venting"
	IntentGeneral     Intent = "general"
	IntentGreeting    Intent = "greeting"
)

// ContextSnapshot is the runtime-only per-user conversation context.
type ContextSnapshot struct {
	PrimaryTopic      string
	EmotionalState    string
	Mode              Mode
	Urgency           float64
	Intent            Intent
	Engagement        float64
	ContextConfidence float64
	UpdatedAt         time.Time
}

var emotionOrdinal = map[string]float64{
	"very_positive": 1, "positive": 0.7, "neutral": 0,
	"negative": -0.7, "very_negative": -1, "anxious": -0.5, "contemplative": 0.2,
}

// modeDistanceThreshold is the minimum mode-distance-matrix delta that
// counts as a conversation-mode switch.
const modeDistanceThreshold = 0.5

var modeDistance = map[Mode]map[Mode]float64{
	ModeCasual:         {ModeCasual: 0, ModeSupport: 0.6, ModeEducational: 0.4, ModeProblemSolving: 0.7},
	ModeSupport:        {ModeCasual: 0.6, ModeSupport: 0, ModeEducational: 0.7, ModeProblemSolving: 0.3},
	ModeEducational:    {ModeCasual: 0.4, ModeSupport: 0.7, ModeEducational: 0, ModeProblemSolving: 0.5},
	ModeProblemSolving: {ModeCasual: 0.7, ModeSupport: 0.3, ModeEducational: 0.5, ModeProblemSolving: 0},
}
