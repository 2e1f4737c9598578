package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/leohan123123/blueprint-core/internal/core/domain"
	"github.com/leohan123123/blueprint-core/internal/core/ports/driven"
)

// Services holds the hot-swappable AI side of the engine: the
// embedding provider, the vector index it fills, and the chat
// registry. The settings service updates them at runtime through
// Apply*; core services read them through the accessors on every
// call so a swap is visible immediately.
// Thread-safe for concurrent access.
type Services struct {
	mu sync.RWMutex

	// Config tracks capability flags
	config  *domain.RuntimeConfig
	factory driven.AIFactory
	logger  *slog.Logger

	// newIndex builds a replacement index when the embedding
	// dimension changes. Backend-specific, fixed at startup; nil
	// when the backend cannot change dimensions.
	newIndex func(ctx context.Context, dimensions int) (driven.VectorIndex, error)

	embedder driven.EmbeddingProvider
	index    driven.VectorIndex
	chat     driven.ChatRegistry
	settings domain.AISettings
}

// Config holds the dependencies of a Services container
type Config struct {
	RuntimeConfig *domain.RuntimeConfig
	Factory       driven.AIFactory
	NewIndex      func(ctx context.Context, dimensions int) (driven.VectorIndex, error)
	Logger        *slog.Logger
}

// NewServices creates a new Services registry
func NewServices(cfg Config) *Services {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Services{
		config:   cfg.RuntimeConfig,
		factory:  cfg.Factory,
		newIndex: cfg.NewIndex,
		logger:   logger.With("component", "runtime"),
	}
}

// Bootstrap builds the initial providers from settings and adopts the
// index. Unlike ApplyEmbeddingSettings it never resets the index, so
// a persistent backend keeps its vectors across restarts.
func (s *Services) Bootstrap(settings domain.AISettings, index driven.VectorIndex) error {
	embedder, err := s.factory.NewEmbeddingProvider(settings.Embedding)
	if err != nil {
		return fmt.Errorf("failed to build embedding provider: %w", err)
	}

	registry, err := s.factory.NewChatRegistry(settings.LLM)
	if err != nil {
		_ = embedder.Close()
		return fmt.Errorf("failed to build chat registry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.embedder = embedder
	s.index = index
	s.chat = registry
	s.settings = settings
	s.settings.UpdatedAt = time.Now()
	s.config.SetEmbeddingStrategy(embedder.Strategy())
	s.config.SetChatProviders(registry.IDs())

	s.logger.Info("runtime bootstrapped",
		"embedding_strategy", embedder.Strategy(),
		"dimensions", embedder.Dimensions(),
		"chat_providers", registry.IDs())

	return nil
}

// Config returns the runtime configuration
func (s *Services) Config() *domain.RuntimeConfig {
	return s.config
}

// Embedder returns the current embedding provider (may be nil)
func (s *Services) Embedder() driven.EmbeddingProvider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.embedder
}

// Index returns the current vector index (may be nil)
func (s *Services) Index() driven.VectorIndex {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

// Chat returns the current chat registry (may be nil)
func (s *Services) Chat() driven.ChatRegistry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chat
}

// Settings returns a copy of the active AI settings
func (s *Services) Settings() domain.AISettings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings := s.settings
	settings.LLM = make([]domain.LLMSettings, len(s.settings.LLM))
	copy(settings.LLM, s.settings.LLM)
	return settings
}

// ApplyEmbeddingSettings builds the embedding provider the settings
// name and swaps it in. The vector index is always emptied: vectors
// from the previous embedding space must never answer queries against
// the new one. When the dimension changes the index is rebuilt through
// newIndex instead of reset in place.
// Returns how many vectors were dropped.
func (s *Services) ApplyEmbeddingSettings(ctx context.Context, settings domain.EmbeddingSettings) (int, error) {
	provider, err := s.factory.NewEmbeddingProvider(settings)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := 0
	if s.index != nil && s.index.Dimensions() == provider.Dimensions() {
		result, err := s.index.Reset(ctx)
		if err != nil {
			_ = provider.Close()
			return 0, fmt.Errorf("failed to reset index: %w", err)
		}
		dropped = result.DeletedCount
	} else {
		if s.newIndex == nil {
			_ = provider.Close()
			return 0, fmt.Errorf("%w: index backend cannot change dimensions", domain.ErrInvalidInput)
		}

		// Count before the rebuild wipes the backend
		if s.index != nil {
			if stats, err := s.index.Stats(ctx); err == nil {
				dropped = stats.VectorCount
			}
		}

		replacement, err := s.newIndex(ctx, provider.Dimensions())
		if err != nil {
			_ = provider.Close()
			return 0, fmt.Errorf("failed to rebuild index: %w", err)
		}
		if s.index != nil {
			_ = s.index.Close()
		}
		s.index = replacement
	}

	if s.embedder != nil {
		_ = s.embedder.Close()
	}
	s.embedder = provider
	s.settings.Embedding = settings
	s.settings.UpdatedAt = time.Now()
	s.config.SetEmbeddingStrategy(provider.Strategy())

	s.logger.Info("embedding settings applied",
		"strategy", provider.Strategy(),
		"dimensions", provider.Dimensions(),
		"vectors_dropped", dropped)

	return dropped, nil
}

// ApplyLLMSettings rebuilds the chat registry from settings and swaps
// it in. The previous registry is simply dropped; chat providers hold
// no connections.
func (s *Services) ApplyLLMSettings(ctx context.Context, settings []domain.LLMSettings) error {
	registry, err := s.factory.NewChatRegistry(settings)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.chat = registry
	s.settings.LLM = make([]domain.LLMSettings, len(settings))
	copy(s.settings.LLM, settings)
	s.settings.UpdatedAt = time.Now()
	s.config.SetChatProviders(registry.IDs())

	s.logger.Info("chat settings applied", "providers", registry.IDs())

	return nil
}

// Close shuts down all services
func (s *Services) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embedder != nil {
		_ = s.embedder.Close()
		s.embedder = nil
	}
	if s.index != nil {
		_ = s.index.Close()
		s.index = nil
	}
	s.chat = nil

	s.config.SetEmbeddingStrategy("")
	s.config.SetChatProviders(nil)

	return nil
}
