package llmclient

import (
	"fmt"
	"strings"

	"whisperengine/internal/config"
)

// New builds the configured Provider and its resolved model name.
// The provider is selected by inspecting endpoint.BaseURL: an
// "anthropic.com" host picks the Anthropic client, anything else (or
// empty, the OpenAI default) picks the OpenAI-compatible client so a
// self-hosted server can be swapped in without code changes.
func New(endpoint config.LLMEndpoint) (Provider, string, error) {
	if endpoint.Model == "" {
		return nil, "", fmt.Errorf("llmclient: no model configured")
	}
	if strings.Contains(endpoint.BaseURL, "anthropic.com") {
		return NewAnthropicClient(endpoint.BaseURL, endpoint.APIKey, endpoint.Model), endpoint.Model, nil
	}
	return NewOpenAIClient(endpoint.BaseURL, endpoint.APIKey, endpoint.Model), endpoint.Model, nil
}
