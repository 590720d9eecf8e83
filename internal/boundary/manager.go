package boundary

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

var explicitChangeMarkers = []string{
	"anyway", "by the way", "new topic", "speaking of something else",
	"changing the subject", "on a different note",
}

var resumptionMarkers = []string{
	"back to", "as i was saying", "anyway, about", "returning to",
	"going back to", "where were we",
}

var completionMarkers = []string{
	"thanks", "thank you", "got it", "that helps", "makes sense",
}

var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "is": {},
	"are": {}, "was": {}, "were": {}, "be": {}, "been": {}, "to": {}, "of": {},
	"in": {}, "on": {}, "for": {}, "with": {}, "about": {}, "as": {}, "at": {},
	"by": {}, "it": {}, "its": {}, "i": {}, "you": {}, "we": {}, "they": {},
	"this": {}, "that": {}, "these": {}, "those": {}, "my": {}, "your": {},
	"our": {}, "their": {}, "have": {}, "has": {}, "had": {}, "do": {}, "does": {},
	"did": {}, "can": {}, "could": {}, "would": {}, "should": {}, "will": {},
	"so": {}, "if": {}, "then": {}, "than": {}, "what": {}, "when": {}, "where": {},
	"which": {}, "who": {}, "how": {}, "just": {}, "also": {}, "very": {},
}

// Manager holds all active sessions for one character process.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	keepaliveTimeout        time.Duration
	absoluteTimeout         time.Duration
	summarizationThreshold  int
	summarizer              Summarizer
}

// NewManager constructs a Manager with spec.md §4.5 defaults. summarizer may
// be nil, in which case summarization always uses the deterministic fallback.
func NewManager(summarizer Summarizer) *Manager {
	return &Manager{
		sessions:               map[string]*Session{},
		keepaliveTimeout:       defaultKeepaliveTimeout,
		absoluteTimeout:        defaultAbsoluteTimeout,
		summarizationThreshold: defaultSummarizationThreshold,
		summarizer:             summarizer,
	}
}

func sessionKey(userID, channelID string) string {
	return userID + "\x00" + channelID
}

// ProcessMessage applies one inbound turn to the (user, channel) session,
// per spec.md §4.5 steps 1-7. Detector and summarizer failures never
// propagate: the turn always proceeds with natural_flow on failure.
func (m *Manager) ProcessMessage(userID, channelID, content string, ts time.Time) (s Session, transition TransitionKind) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sessionKey(userID, channelID)
	sess, ok := m.sessions[key]

	if ok && sess.State == StateResumed {
		// A resumed session settles back into active on the turn after
		// resumption (spec.md §4.5 state machine: resumed -> active).
		sess.State = StateActive
	}

	if ok {
		switch {
		case ts.Sub(sess.LastActivity) > m.keepaliveTimeout:
			sess.State = StatePaused
		case ts.Sub(sess.StartTime) > m.absoluteTimeout:
			sess.State = StatePaused
		}
	}

	isNewSession := false
	if !ok {
		sess = &Session{UserID: userID, ChannelID: channelID, State: StateActive, StartTime: ts}
		m.sessions[key] = sess
		isNewSession = true
	} else if sess.State == StatePaused {
		sess.State = StateResumed
	}

	sess.LastActivity = ts
	sess.MessageCount++

	transition = m.detectTransition(content, isNewSession)
	m.applyTransition(sess, transition, content, ts)

	if sess.MessageCount >= m.summarizationThreshold {
		sess.ContextSummary = m.summarize(sess, userID)
	}

	return *sess, transition
}

func (m *Manager) detectTransition(content string, isNewSession bool) TransitionKind {
	if isNewSession {
		return TransitionNewSession
	}
	lower := strings.ToLower(content)
	if containsAny(lower, explicitChangeMarkers) {
		return TransitionExplicitChange
	}
	if containsAny(lower, resumptionMarkers) {
		return TransitionResumption
	}
	return TransitionNaturalFlow
}

func containsAny(haystack string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(haystack, marker) {
			return true
		}
	}
	return false
}

// isCompletionSignal reports whether content is a short acknowledgment; per
// spec.md §4.5 step 4 this is folded into natural_flow (it ends the topic
// without ending the session).
func isCompletionSignal(content string) bool {
	return containsAny(strings.ToLower(content), completionMarkers)
}

func (m *Manager) applyTransition(sess *Session, transition TransitionKind, content string, ts time.Time) {
	switch transition {
	case TransitionNaturalFlow:
		if isCompletionSignal(content) && sess.CurrentTopic != nil {
			m.endTopic(sess, ResolutionResolved, ts)
			return
		}
		if sess.CurrentTopic == nil {
			m.startTopic(sess, content, ts)
			return
		}
		sess.CurrentTopic.MessageCount++
	case TransitionExplicitChange:
		m.endTopic(sess, ResolutionEnded, ts)
		m.startTopic(sess, content, ts)
	case TransitionResumption:
		m.endTopic(sess, ResolutionInterrupted, ts)
		m.startTopic(sess, content, ts)
	case TransitionNewSession:
		m.startTopic(sess, content, ts)
	}
}

func (m *Manager) endTopic(sess *Session, resolution TopicResolution, ts time.Time) {
	if sess.CurrentTopic == nil {
		return
	}
	sess.CurrentTopic.EndTime = ts
	sess.CurrentTopic.Resolution = resolution
	sess.TopicHistory = append(sess.TopicHistory, *sess.CurrentTopic)
	if len(sess.TopicHistory) > maxTopicHistory {
		sess.TopicHistory = sess.TopicHistory[len(sess.TopicHistory)-maxTopicHistory:]
	}
	sess.CurrentTopic = nil
}

func (m *Manager) startTopic(sess *Session, content string, ts time.Time) {
	sess.CurrentTopic = &Topic{
		Keywords:     extractKeywords(content, topicKeywordCount),
		StartTime:    ts,
		MessageCount: 1,
	}
}

func (m *Manager) summarize(sess *Session, userID string) string {
	topics := lastTopics(sess.TopicHistory, 3)
	if m.summarizer != nil {
		if summary, err := m.summarizer.Summarize(SummarizeContext{UserID: userID, Topics: topics}); err == nil {
			return summary
		}
	}
	return fallbackSummary(topics, sess.StartTime)
}

func lastTopics(topics []Topic, n int) []Topic {
	if len(topics) <= n {
		return topics
	}
	return topics[len(topics)-n:]
}

func fallbackSummary(topics []Topic, start time.Time) string {
	if len(topics) == 0 {
		return "no topics recorded yet"
	}
	minutes := time.Since(start).Minutes()
	labels := make([]string, 0, len(topics))
	for _, t := range topics {
		if len(t.Keywords) > 0 {
			labels = append(labels, strings.Join(t.Keywords[:min(3, len(t.Keywords))], " "))
		}
	}
	return fmt.Sprintf("%d topics over %.0f minutes, topics: %s", len(topics), minutes, strings.Join(labels, "; "))
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// GetConversationContext returns the read-side projection for prompt
// assembly (spec.md §4.5). includeSummary controls whether ContextSummary
// is populated in the result.
func (m *Manager) GetConversationContext(userID, channelID string, includeSummary bool) (ContextView, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sessionKey(userID, channelID)]
	if !ok {
		return ContextView{}, false
	}
	view := ContextView{
		State:        sess.State,
		CurrentTopic: sess.CurrentTopic,
		TopicHistory: append([]Topic(nil), sess.TopicHistory...),
	}
	if includeSummary {
		view.ContextSummary = sess.ContextSummary
	}
	return view, true
}

// extractKeywords performs cheap stopword-filtered tokenization, returning
// up to limit distinct content words in order of first appearance
// (spec.md §4.5 step 5).
func extractKeywords(content string, limit int) []string {
	var keywords []string
	seen := map[string]struct{}{}
	for _, raw := range strings.Fields(content) {
		word := strings.ToLower(strings.Trim(raw, ".,!?;:\"'()[]{}"))
		if word == "" {
			continue
		}
		if _, isStop := stopwords[word]; isStop {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		keywords = append(keywords, word)
		if len(keywords) >= limit {
			break
		}
	}
	return keywords
}
