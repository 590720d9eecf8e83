// Package empathy implements the Empathy Calibrator (L7): per-user style
// preference learning and per-turn style recommendation, per spec.md §4.7.
package empathy

import "time"

// Style is one of the six empathetic response postures.
type Style string

const (
	StyleDirectAcknowledgment Style = "direct_acknowledgment"
	StyleReflectiveListening  Style = "reflective_listening"
	StyleSolutionFocused      Style = "solution_focused"
	StyleValidationFirst      Style = "validation_first"
	StyleGentleInquiry        Style = "gentle_inquiry"
	StyleSupportivePresence   Style = "supportive_presence"
)

// baselineEffectiveness is the static per-emotion fallback table (spec.md
// §4.7 step 1). Emotions absent from this table fall back to
// reflective_listening.
var baselineEffectiveness = map[string][]styleScore{
	"frustration": {{StyleValidationFirst, 0.8}, {StyleSolutionFocused, 0.6}, {StyleDirectAcknowledgment, 0.5}},
	"sadness":     {{StyleSupportivePresence, 0.8}, {StyleValidationFirst, 0.6}, {StyleReflectiveListening, 0.5}},
	"anxiety":     {{StyleSupportivePresence, 0.8}, {StyleGentleInquiry, 0.6}, {StyleValidationFirst, 0.5}},
	"excitement":  {{StyleDirectAcknowledgment, 0.8}, {StyleReflectiveListening, 0.5}, {StyleSupportivePresence, 0.4}},
}

var defaultBaseline = []styleScore{{StyleReflectiveListening, 0.5}, {StyleGentleInquiry, 0.4}, {StyleValidationFirst, 0.3}}

type styleScore struct {
	Style Style
	Score float64
}

// Preference is one user's learned effectiveness for one emotion kind.
type Preference struct {
	UserID          string
	EmotionKind     string
	PreferredStyle  Style
	Confidence      float64
	Effectiveness   float64
	InteractionCount int
	UpdatedAt       time.Time
}

// Calibration is the per-turn recommendation returned by Calibrate.
type Calibration struct {
	RecommendedStyle Style
	Confidence       float64
	Reasoning        string
	Alternatives     []Style
}

const minInteractionsForConfidence = 3
const learningRate = 0.1

// feedback indicator weights (spec.md §4.7 learn).
const (
	feedbackContinuedConversation  = 0.2
	feedbackDeEscalation           = 0.3
	feedbackGratitude              = 0.2
	feedbackMoreDetail             = 0.1
	feedbackPositiveSentiment      = 0.3
	feedbackAbruptEnd              = -0.4
	feedbackRepeatedFrustration    = -0.3
	feedbackRequestDifferentStyle  = -0.2
	feedbackEscalation             = -0.4
)

// FeedbackIndicators is the set of observed signals after a reply using a
// given style (spec.md §4.7 learn).
type FeedbackIndicators struct {
	ContinuedConversation bool
	DeEscalation          bool
	Gratitude             bool
	MoreDetail            bool
	PositiveSentiment     bool
	AbruptEnd             bool
	RepeatedFrustration   bool
	RequestedDifferentResponse bool
	Escalation            bool
}

func (f FeedbackIndicators) effectiveness() float64 {
	score := 0.0
	if f.ContinuedConversation {
		score += feedbackContinuedConversation
	}
	if f.DeEscalation {
		score += feedbackDeEscalation
	}
	if f.Gratitude {
		score += feedbackGratitude
	}
	if f.MoreDetail {
		score += feedbackMoreDetail
	}
	if f.PositiveSentiment {
		score += feedbackPositiveSentiment
	}
	if f.AbruptEnd {
		score += feedbackAbruptEnd
	}
	if f.RepeatedFrustration {
		score += feedbackRepeatedFrustration
	}
	if f.RequestedDifferentResponse {
		score += feedbackRequestDifferentStyle
	}
	if f.Escalation {
		score += feedbackEscalation
	}
	return clamp01(score)
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
