package driven

import (
	"context"

	"github.com/leohan123123/blueprint-core/internal/core/domain"
)

// ChatProvider generates a conversational answer from one model vendor.
// Implementations map the normalized turns into the vendor envelope,
// prepend the domain system preamble, and normalize the response back
// into domain.ChatResult. No cross-provider retry happens inside a
// single call; provider selection is the caller's decision.
type ChatProvider interface {
	// Chat sends the conversation and returns the generated answer
	Chat(ctx context.Context, turns []domain.ConversationTurn) (domain.ChatResult, error)

	// ProviderID returns the vendor identifier ("openai", "anthropic", "ollama")
	ProviderID() string

	// HealthCheck verifies the provider is reachable
	HealthCheck(ctx context.Context) error
}

// ChatRegistry resolves chat providers by id
type ChatRegistry interface {
	// Get returns the provider registered under id.
	// Unknown ids fail with domain.ErrInvalidProvider.
	Get(id string) (ChatProvider, error)

	// Default returns the provider to use when the caller names none
	Default() (ChatProvider, error)

	// IDs lists the registered provider ids, sorted
	IDs() []string
}
