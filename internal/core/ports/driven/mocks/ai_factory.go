package mocks

import (
	"github.com/leohan123123/blueprint-core/internal/core/domain"
	"github.com/leohan123123/blueprint-core/internal/core/ports/driven"
)

// MockAIFactory hands out mock providers so runtime and settings tests
// can exercise hot-swapping without vendor clients.
type MockAIFactory struct {
	EmbeddingErr error
	RegistryErr  error

	// Embedders holds every embedding provider built, in order
	Embedders []*MockEmbeddingProvider

	// Registries holds every chat registry built, in order
	Registries []*MockChatRegistry
}

// NewMockAIFactory creates a new MockAIFactory
func NewMockAIFactory() *MockAIFactory {
	return &MockAIFactory{}
}

func (f *MockAIFactory) NewEmbeddingProvider(settings domain.EmbeddingSettings) (driven.EmbeddingProvider, error) {
	if f.EmbeddingErr != nil {
		return nil, f.EmbeddingErr
	}

	provider := NewMockEmbeddingProvider()
	provider.SetStrategy(string(settings.Provider))
	if settings.Dimensions > 0 {
		provider.SetDimensions(settings.Dimensions)
	}

	f.Embedders = append(f.Embedders, provider)
	return provider, nil
}

func (f *MockAIFactory) NewChatRegistry(settings []domain.LLMSettings) (driven.ChatRegistry, error) {
	if f.RegistryErr != nil {
		return nil, f.RegistryErr
	}

	registry := NewMockChatRegistry()
	for _, entry := range settings {
		registry.Register(NewMockChatProvider(string(entry.Provider), "mock answer"))
	}

	f.Registries = append(f.Registries, registry)
	return registry, nil
}
