package llmclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/param"

	"whisperengine/internal/observability"
	"whisperengine/internal/prompt"
)

// OpenAIClient talks to any OpenAI-compatible chat-completions endpoint
// (OpenAI itself, or a self-hosted server exposing the same API).
type OpenAIClient struct {
	sdk   sdk.Client
	model string
}

// NewOpenAIClient builds a client against baseURL (empty means the default
// OpenAI endpoint) authenticated with apiKey.
func NewOpenAIClient(baseURL, apiKey, model string) *OpenAIClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	opts = append(opts, option.WithHTTPClient(observability.NewHTTPClient(&http.Client{Timeout: 60 * time.Second})))
	return &OpenAIClient{sdk: sdk.NewClient(opts...), model: model}
}

func (c *OpenAIClient) Chat(ctx context.Context, req prompt.Request, model string) (Reply, error) {
	effectiveModel := firstNonEmpty(model, req.ModelHints, c.model)

	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(effectiveModel),
		Messages: adaptMessages(req.Messages),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = param.NewOpt(int64(req.MaxTokens))
	}

	log := observability.LoggerWithTrace(ctx)
	start := time.Now()
	comp, err := c.sdk.Chat.Completions.New(ctx, params)
	dur := time.Since(start)
	if err != nil {
		log.Error().Err(err).Str("model", effectiveModel).Dur("duration", dur).Msg("openai_chat_error")
		return Reply{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(comp.Choices) == 0 {
		return Reply{}, fmt.Errorf("%w: no choices returned", ErrUnavailable)
	}
	log.Info().Str("model", effectiveModel).Dur("duration", dur).
		Int64("prompt_tokens", comp.Usage.PromptTokens).
		Int64("completion_tokens", comp.Usage.CompletionTokens).
		Msg("openai_chat_complete")

	return Reply{
		Content:          comp.Choices[0].Message.Content,
		PromptTokens:     int(comp.Usage.PromptTokens),
		CompletionTokens: int(comp.Usage.CompletionTokens),
	}, nil
}

// ValidateModel lists available models and confirms model is servable,
// failing fast at startup rather than on the first real turn.
func (c *OpenAIClient) ValidateModel(ctx context.Context, model string) error {
	if model == "" {
		return fmt.Errorf("llmclient: no model configured")
	}
	page, err := c.sdk.Models.List(ctx)
	if err != nil {
		return fmt.Errorf("llmclient: list models: %w", err)
	}
	for _, m := range page.Data {
		if m.ID == model {
			return nil
		}
	}
	return fmt.Errorf("llmclient: model %q not found on this endpoint", model)
}

func adaptMessages(msgs []prompt.Message) []sdk.ChatCompletionMessageParamUnion {
	out := make([]sdk.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case prompt.RoleSystem:
			out = append(out, sdk.SystemMessage(m.Content))
		case prompt.RoleAssistant:
			out = append(out, sdk.AssistantMessage(m.Content))
		default:
			out = append(out, sdk.UserMessage(m.Content))
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
