package llmclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whisperengine/internal/config"
	"whisperengine/internal/prompt"
)

func TestNewSelectsAnthropicClientForAnthropicHost(t *testing.T) {
	p, model, err := New(config.LLMEndpoint{BaseURL: "https://api.anthropic.com", APIKey: "k", Model: "claude-3-7-sonnet"})
	require.NoError(t, err)
	assert.Equal(t, "claude-3-7-sonnet", model)
	_, ok := p.(*AnthropicClient)
	assert.True(t, ok)
}

func TestNewSelectsOpenAIClientByDefault(t *testing.T) {
	p, model, err := New(config.LLMEndpoint{BaseURL: "https://api.openai.com/v1", APIKey: "k", Model: "gpt-4o-mini"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", model)
	_, ok := p.(*OpenAIClient)
	assert.True(t, ok)
}

func TestNewRequiresModel(t *testing.T) {
	_, _, err := New(config.LLMEndpoint{BaseURL: "https://example.com"})
	assert.Error(t, err)
}

func TestFirstNonEmptyPicksFirstSetValue(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "b", "c"))
	assert.Equal(t, "", firstNonEmpty("", ""))
}

func TestAdaptMessagesPreservesRoleOrder(t *testing.T) {
	out := adaptMessages([]prompt.Message{
		{Role: prompt.RoleSystem, Content: "sys"},
		{Role: prompt.RoleUser, Content: "hi"},
		{Role: prompt.RoleAssistant, Content: "hello"},
	})
	require.Len(t, out, 3)
}
