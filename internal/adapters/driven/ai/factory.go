package ai

import (
	"fmt"

	"github.com/leohan123123/blueprint-core/internal/adapters/driven/chat"
	"github.com/leohan123123/blueprint-core/internal/core/domain"
	"github.com/leohan123123/blueprint-core/internal/core/ports/driven"
)

// Ensure Factory implements AIFactory
var _ driven.AIFactory = (*Factory)(nil)

// Factory builds embedding providers and chat registries from settings
type Factory struct{}

// NewFactory creates a new AI factory
func NewFactory() *Factory {
	return &Factory{}
}

// NewEmbeddingProvider builds the embedding provider for the given settings.
// Only local and openai are valid embedding strategies, the other vendors
// are chat only and fail with domain.ErrInvalidProvider.
func (f *Factory) NewEmbeddingProvider(settings domain.EmbeddingSettings) (driven.EmbeddingProvider, error) {
	switch settings.Provider {
	case domain.AIProviderLocal:
		return NewLocalEmbedding(settings.Dimensions), nil
	case domain.AIProviderOpenAI:
		return NewOpenAIEmbedding(settings)
	default:
		return nil, fmt.Errorf("%w: %q is not an embedding strategy", domain.ErrInvalidProvider, settings.Provider)
	}
}

// NewChatRegistry builds a registry holding one chat provider per entry.
// The first entry becomes the default provider. An empty slice yields an
// empty registry, which is legal and simply means questions cannot be
// answered until settings arrive.
func (f *Factory) NewChatRegistry(settings []domain.LLMSettings) (driven.ChatRegistry, error) {
	registry := chat.NewRegistry()

	for _, entry := range settings {
		provider, err := f.newChatProvider(entry)
		if err != nil {
			return nil, err
		}
		registry.Register(provider)
	}

	return registry, nil
}

func (f *Factory) newChatProvider(settings domain.LLMSettings) (driven.ChatProvider, error) {
	switch settings.Provider {
	case domain.AIProviderOpenAI:
		return chat.NewOpenAI(settings)
	case domain.AIProviderAnthropic:
		return chat.NewAnthropic(settings)
	case domain.AIProviderOllama:
		return chat.NewOllama(settings)
	default:
		return nil, fmt.Errorf("%w: %q is not a chat provider", domain.ErrInvalidProvider, settings.Provider)
	}
}
