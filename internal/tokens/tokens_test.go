package tokens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateCoarseHeuristic(t *testing.T) {
	assert.Equal(t, 1, Estimate(""))
	assert.Equal(t, 1, Estimate("hi"))
	assert.Equal(t, len("abcdefgh")/4, Estimate("abcdefgh"))
}

func TestTruncateKeepsMinRecentTurns(t *testing.T) {
	// scenario 4: one ~2000-token system prompt, 15 exchanges each ~180
	// tokens, current message 50 tokens; budget 2000, min_recent_turns 2.
	sys := Message{Role: "system", Content: strings.Repeat("x", 2000*4)}
	var convo []Message
	for i := 0; i < 15; i++ {
		convo = append(convo, Message{Role: "user", Content: strings.Repeat("y", 180*4)})
	}
	convo = append(convo, Message{Role: "user", Content: strings.Repeat("z", 50*4)})

	messages := append([]Message{sys}, convo...)
	out, _ := Truncate(messages, 2000, 2)

	require.NotEmpty(t, out)
	assert.Equal(t, "system", out[0].Role)

	var keptConvo []Message
	for _, m := range out {
		if m.Role != "system" {
			keptConvo = append(keptConvo, m)
		}
	}
	require.GreaterOrEqual(t, len(keptConvo), 2)
	// the two newest messages must survive unconditionally
	assert.Equal(t, convo[len(convo)-1].Content, keptConvo[len(keptConvo)-1].Content)
	assert.Equal(t, convo[len(convo)-2].Content, keptConvo[len(keptConvo)-2].Content)

	convoTokens := 0
	for _, m := range keptConvo {
		convoTokens += Estimate(m.Content)
	}
	assert.LessOrEqual(t, convoTokens, 2000)
}

func TestTruncateEmergencyTruncatesOversizedSystemMessage(t *testing.T) {
	huge := Message{Role: "system", Content: strings.Repeat("s", (SystemPromptMaxTokens+1000)*4)}
	out, _ := Truncate([]Message{huge}, ConversationHistoryMaxTokens, 2)
	require.Len(t, out, 1)
	assert.Contains(t, out[0].Content, truncationMarker)
}

func TestTruncateNeverDropsLoneExchange(t *testing.T) {
	sys := Message{Role: "system", Content: "persona"}
	convo := []Message{{Role: "user", Content: "hello"}, {Role: "assistant", Content: "hi there"}}
	out, removed := Truncate(append([]Message{sys}, convo...), 10, 2)
	assert.Equal(t, 0, removed)
	assert.Len(t, out, 3)
}
