package llmclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"whisperengine/internal/observability"
	"whisperengine/internal/prompt"
)

const defaultAnthropicMaxTokens int64 = 1024

// AnthropicClient talks to the Anthropic Messages API.
type AnthropicClient struct {
	sdk       anthropic.Client
	model     string
	maxTokens int64
}

func NewAnthropicClient(baseURL, apiKey, model string) *AnthropicClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(observability.NewHTTPClient(&http.Client{Timeout: 60 * time.Second})),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(baseURL, "/")))
	}
	return &AnthropicClient{sdk: anthropic.NewClient(opts...), model: model, maxTokens: defaultAnthropicMaxTokens}
}

func (c *AnthropicClient) Chat(ctx context.Context, req prompt.Request, model string) (Reply, error) {
	effectiveModel := firstNonEmpty(model, req.ModelHints, c.model)

	var system []anthropic.TextBlockParam
	var messages []anthropic.MessageParam
	for _, m := range req.Messages {
		switch m.Role {
		case prompt.RoleSystem:
			if m.Content != "" {
				system = append(system, anthropic.TextBlockParam{Text: m.Content})
			}
		case prompt.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	maxTokens := c.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = int64(req.MaxTokens)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(effectiveModel),
		Messages:  messages,
		System:    system,
		MaxTokens: maxTokens,
	}

	log := observability.LoggerWithTrace(ctx)
	start := time.Now()
	resp, err := c.sdk.Messages.New(ctx, params)
	dur := time.Since(start)
	if err != nil {
		log.Error().Err(err).Str("model", effectiveModel).Dur("duration", dur).Msg("anthropic_chat_error")
		return Reply{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	log.Info().Str("model", effectiveModel).Dur("duration", dur).
		Int64("prompt_tokens", resp.Usage.InputTokens).
		Int64("completion_tokens", resp.Usage.OutputTokens).
		Msg("anthropic_chat_complete")

	return Reply{
		Content:          content.String(),
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
	}, nil
}

// ValidateModel has no list-models endpoint on Anthropic's API; it
// validates configuration shape only (non-empty model name).
func (c *AnthropicClient) ValidateModel(ctx context.Context, model string) error {
	if model == "" {
		return fmt.Errorf("llmclient: no model configured")
	}
	return nil
}
