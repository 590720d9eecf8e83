// Package llmclient implements the LLM client (§6): a minimal
// provider-agnostic Chat call over the final assembled prompt.
// Streaming and tool-calls are out of scope (spec.md Non-goals); this
// package only ever sends one request and reads back one reply.
package llmclient

import (
	"context"
	"errors"

	"whisperengine/internal/prompt"
)

// Reply is the provider's response to one Chat call.
type Reply struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// Provider is the narrow interface every backend implements.
type Provider interface {
	// Chat sends req and returns the assistant's reply. model overrides
	// req.ModelHints when non-empty.
	Chat(ctx context.Context, req prompt.Request, model string) (Reply, error)

	// ValidateModel checks that model is servable by this provider,
	// called once at startup (spec.md §6 "fail fast on misconfiguration").
	ValidateModel(ctx context.Context, model string) error
}

// ErrUnavailable is returned (wrapped) by a Provider when the upstream
// connection, timeout, or rate limit makes the call unservable. The
// pipeline controller maps this to a persona-consistent apology rather
// than surfacing it to the user verbatim.
var ErrUnavailable = errors.New("llmclient: provider unavailable")
