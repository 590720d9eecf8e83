package boundary

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessMessageFirstTurnIsNewSession(t *testing.T) {
	m := NewManager(nil)
	sess, transition := m.ProcessMessage("alice", "general", "hello there", time.Now())
	assert.Equal(t, TransitionNewSession, transition)
	assert.Equal(t, StateActive, sess.State)
	require.NotNil(t, sess.CurrentTopic)
	assert.Equal(t, 1, sess.MessageCount)
}

func TestProcessMessageExplicitChangeEndsTopicAndStartsNew(t *testing.T) {
	m := NewManager(nil)
	now := time.Now()
	m.ProcessMessage("alice", "general", "I love coral reefs and ocean life", now)
	sess, transition := m.ProcessMessage("alice", "general", "By the way, any good restaurants in Seattle?", now.Add(time.Second))

	assert.Equal(t, TransitionExplicitChange, transition)
	require.Len(t, sess.TopicHistory, 1)
	assert.Equal(t, ResolutionEnded, sess.TopicHistory[0].Resolution)
	require.NotNil(t, sess.CurrentTopic)
	assert.NotContains(t, sess.CurrentTopic.Keywords, "coral")
}

func TestProcessMessageKeepaliveTimeoutPausesThenResumes(t *testing.T) {
	m := NewManager(nil)
	start := time.Now()
	m.ProcessMessage("alice", "general", "talking about hiking trails", start)

	resumedAt := start.Add(20 * time.Minute)
	sess, _ := m.ProcessMessage("alice", "general", "anyway let's keep going", resumedAt)
	assert.Equal(t, StateResumed, sess.State)

	sess, _ = m.ProcessMessage("alice", "general", "another message shortly after", resumedAt.Add(time.Second))
	assert.Equal(t, StateActive, sess.State)
}

func TestProcessMessageNaturalFlowIncrementsCurrentTopic(t *testing.T) {
	m := NewManager(nil)
	now := time.Now()
	m.ProcessMessage("alice", "general", "tell me about whales", now)
	sess, transition := m.ProcessMessage("alice", "general", "that's fascinating, go on", now.Add(time.Second))

	assert.Equal(t, TransitionNaturalFlow, transition)
	require.NotNil(t, sess.CurrentTopic)
	assert.Equal(t, 2, sess.CurrentTopic.MessageCount)
}

func TestProcessMessageCompletionSignalEndsTopicWithoutEndingSession(t *testing.T) {
	m := NewManager(nil)
	now := time.Now()
	m.ProcessMessage("alice", "general", "what's the capital of france", now)
	sess, transition := m.ProcessMessage("alice", "general", "got it, thanks", now.Add(time.Second))

	assert.Equal(t, TransitionNaturalFlow, transition)
	assert.Nil(t, sess.CurrentTopic)
	require.Len(t, sess.TopicHistory, 1)
	assert.Equal(t, ResolutionResolved, sess.TopicHistory[0].Resolution)
	assert.NotEqual(t, StateCompleted, sess.State)
}

func TestGetConversationContextReturnsFalseForUnknownSession(t *testing.T) {
	m := NewManager(nil)
	_, ok := m.GetConversationContext("nobody", "nowhere", true)
	assert.False(t, ok)
}

func TestExtractKeywordsFiltersStopwordsAndLimits(t *testing.T) {
	kw := extractKeywords("the quick brown fox jumps over the lazy dog in the quiet forest glade today", 5)
	assert.LessOrEqual(t, len(kw), 5)
	assert.NotContains(t, kw, "the")
	assert.Contains(t, kw, "quick")
}

func TestSummarizationFallbackAfterThreshold(t *testing.T) {
	m := NewManager(nil)
	m.summarizationThreshold = 2
	now := time.Now()
	m.ProcessMessage("alice", "general", "first message about gardening", now)
	sess, _ := m.ProcessMessage("alice", "general", "anyway, second message about cars", now.Add(time.Second))
	assert.NotEmpty(t, sess.ContextSummary)
}
