// Package prompt implements the Prompt Assembler (L10): deterministic
// composition of the final LLM request from character definition,
// self-knowledge, retrieved memories, recent history, and live
// intelligence signals, under a hard token budget, per spec.md §4.10.
package prompt

// Role is the speaker of one composed message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in the assembled request.
type Message struct {
	Role    Role
	Content string
}

// Request is the Prompt Assembler's output, handed to the LLM client.
type Request struct {
	Messages   []Message
	ModelHints string
	MaxTokens  int
}

// contextVariableNames are substituted into the character's system prompt
// template. Unfilled variables are replaced with empty strings
// (spec.md §4.10 step 1).
var contextVariableNames = []string{
	"MEMORY_NETWORK_CONTEXT", "RELATIONSHIP_CONTEXT", "EMOTIONAL_STATE_CONTEXT",
	"PERSONALITY_CONTEXT", "EXTERNAL_EMOTION_CONTEXT", "EMOTIONAL_PREDICTION_CONTEXT",
	"PROACTIVE_SUPPORT_CONTEXT", "EMOTIONAL_INTELLIGENCE_CONTEXT", "AI_SYSTEM_CONTEXT",
	"MEMORY_NETWORK_STATUS", "RELATIONSHIP_DEPTH", "CONVERSATION_MODE",
}
