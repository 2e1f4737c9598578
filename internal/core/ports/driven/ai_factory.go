package driven

import (
	"github.com/leohan123123/blueprint-core/internal/core/domain"
)

// AIFactory builds AI providers from settings.
// The settings service uses it to hot-swap providers at runtime.
type AIFactory interface {
	// NewEmbeddingProvider builds the embedding strategy the settings
	// name. Remote strategies without a credential fail with
	// domain.ErrNotConfigured; the local strategy never fails.
	NewEmbeddingProvider(settings domain.EmbeddingSettings) (EmbeddingProvider, error)

	// NewChatRegistry builds a registry with one provider per settings
	// entry. An entry naming an unknown provider fails with
	// domain.ErrInvalidProvider; one missing its credential fails with
	// domain.ErrNotConfigured.
	NewChatRegistry(settings []domain.LLMSettings) (ChatRegistry, error)
}
