// Package boundary implements the Boundary Manager (L5): an in-memory,
// process-local table of conversation sessions keyed by (user, channel),
// topic tracking, and keepalive/absolute-timeout lifecycle, per
// spec.md §4.5.
package boundary

import "time"

const (
	defaultKeepaliveTimeout     = 15 * time.Minute
	defaultAbsoluteTimeout      = 90 * time.Minute
	defaultSummarizationThreshold = 50
	maxTopicHistory             = 5
	topicKeywordCount           = 10
)

// SessionState is the Boundary Manager's session lifecycle state.
type SessionState string

const (
	StateActive      SessionState = "active"
	StatePaused      SessionState = "paused"
	StateResumed     SessionState = "resumed"
	StateInterrupted SessionState = "interrupted"
	StateCompleted   SessionState = "completed"
)

// TransitionKind classifies what process_message detected in one turn.
type TransitionKind string

const (
	TransitionNewSession    TransitionKind = "new_session"
	TransitionExplicitChange TransitionKind = "explicit_change"
	TransitionResumption    TransitionKind = "resumption"
	TransitionNaturalFlow   TransitionKind = "natural_flow"
)

// TopicResolution records why a topic ended.
type TopicResolution string

const (
	ResolutionEnded       TopicResolution = "ended"
	ResolutionInterrupted TopicResolution = "interrupted"
	ResolutionResolved    TopicResolution = "resolved"
)

// Topic is one bounded span of conversation about a subject.
type Topic struct {
	Keywords     []string
	StartTime    time.Time
	EndTime      time.Time // zero while open
	MessageCount int
	Resolution   TopicResolution
	EmotionalTone string
}

func (t Topic) Duration(now time.Time) time.Duration {
	end := t.EndTime
	if end.IsZero() {
		end = now
	}
	return end.Sub(t.StartTime)
}

// Session is one (user, channel) conversation's running state.
type Session struct {
	UserID       string
	ChannelID    string
	State        SessionState
	StartTime    time.Time
	LastActivity time.Time
	MessageCount int

	CurrentTopic *Topic
	TopicHistory []Topic

	ContextSummary string
}

// ContextView is the read-side projection returned by GetConversationContext.
type ContextView struct {
	State          SessionState
	CurrentTopic   *Topic
	TopicHistory   []Topic
	ContextSummary string
}

// Summarizer optionally regenerates a context summary from recent topics.
// Concrete implementations may call out to an LLM; failures fall back to a
// deterministic string (spec.md §4.5 step 7).
type Summarizer interface {
	Summarize(ctx SummarizeContext) (string, error)
}

// SummarizeContext is the input handed to a Summarizer.
type SummarizeContext struct {
	UserID string
	Topics []Topic
}
