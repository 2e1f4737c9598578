package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leohan123123/blueprint-core/internal/core/domain"
	"github.com/leohan123123/blueprint-core/internal/core/ports/driving"
	"github.com/leohan123123/blueprint-core/internal/runtime"
)

// Ensure settingsService implements SettingsService
var _ driving.SettingsService = (*settingsService)(nil)

// settingsService applies AI configuration changes to the runtime.
// Changing the embedding side always resets the vector index: vectors
// from two embedding spaces must never coexist in one index.
type settingsService struct {
	services *runtime.Services
	logger   *slog.Logger
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(services *runtime.Services, logger *slog.Logger) driving.SettingsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &settingsService{
		services: services,
		logger:   logger.With("component", "settings"),
	}
}

// GetAISettings retrieves the active AI configuration.
// API keys carry `json:"-"` tags, so serialized settings never leak
// credentials.
func (s *settingsService) GetAISettings(ctx context.Context) (*domain.AISettings, error) {
	settings := s.services.Settings()
	return &settings, nil
}

// UpdateAISettings validates and applies configuration changes,
// hot-swapping the affected providers
func (s *settingsService) UpdateAISettings(ctx context.Context, req driving.UpdateAISettingsRequest) (*driving.AISettingsStatus, error) {
	if req.Embedding == nil && req.LLM == nil {
		return nil, fmt.Errorf("%w: no settings to update", domain.ErrInvalidInput)
	}

	dropped := 0
	if req.Embedding != nil {
		settings, err := embeddingSettingsFromInput(*req.Embedding)
		if err != nil {
			return nil, err
		}

		dropped, err = s.services.ApplyEmbeddingSettings(ctx, settings)
		if err != nil {
			return nil, err
		}
		if dropped > 0 {
			s.logger.Warn("embedding space changed, index reset",
				"strategy", settings.Provider,
				"vectors_dropped", dropped)
		}
	}

	if req.LLM != nil {
		settings := make([]domain.LLMSettings, 0, len(req.LLM))
		for _, input := range req.LLM {
			entry, err := llmSettingsFromInput(input)
			if err != nil {
				return nil, err
			}
			settings = append(settings, entry)
		}

		if err := s.services.ApplyLLMSettings(ctx, settings); err != nil {
			return nil, err
		}
	}

	status := s.currentStatus()
	status.VectorsDropped = dropped
	return status, nil
}

// GetAIStatus returns the current status of the AI services
func (s *settingsService) GetAIStatus(ctx context.Context) (*driving.AISettingsStatus, error) {
	return s.currentStatus(), nil
}

func (s *settingsService) currentStatus() *driving.AISettingsStatus {
	status := &driving.AISettingsStatus{}
	settings := s.services.Settings()

	if embedder := s.services.Embedder(); embedder != nil {
		status.Embedding = driving.EmbeddingStatus{
			Configured: true,
			Provider:   settings.Embedding.Provider,
			Model:      settings.Embedding.Model,
			Strategy:   embedder.Strategy(),
			Dimensions: embedder.Dimensions(),
		}
	}

	if registry := s.services.Chat(); registry != nil {
		status.Chat.Providers = registry.IDs()
		if provider, err := registry.Default(); err == nil {
			status.Chat.Default = provider.ProviderID()
		}
	}
	if status.Chat.Providers == nil {
		status.Chat.Providers = []string{}
	}

	return status
}

func embeddingSettingsFromInput(input driving.EmbeddingSettingsInput) (domain.EmbeddingSettings, error) {
	if !input.Provider.IsValid() {
		return domain.EmbeddingSettings{}, fmt.Errorf("%w: %q", domain.ErrInvalidProvider, input.Provider)
	}
	if input.Provider.RequiresAPIKey() && input.APIKey == "" {
		return domain.EmbeddingSettings{}, fmt.Errorf("%w: %s requires an API key", domain.ErrNotConfigured, input.Provider)
	}
	if input.Dimensions < 0 {
		return domain.EmbeddingSettings{}, fmt.Errorf("%w: dimensions must be positive", domain.ErrInvalidInput)
	}

	return domain.EmbeddingSettings{
		Provider:   input.Provider,
		Model:      input.Model,
		APIKey:     input.APIKey,
		BaseURL:    input.BaseURL,
		Dimensions: input.Dimensions,
	}, nil
}

func llmSettingsFromInput(input driving.LLMSettingsInput) (domain.LLMSettings, error) {
	if !input.Provider.IsValid() {
		return domain.LLMSettings{}, fmt.Errorf("%w: %q", domain.ErrInvalidProvider, input.Provider)
	}
	if input.Provider.RequiresAPIKey() && input.APIKey == "" {
		return domain.LLMSettings{}, fmt.Errorf("%w: %s requires an API key", domain.ErrNotConfigured, input.Provider)
	}

	return domain.LLMSettings{
		Provider: input.Provider,
		Model:    input.Model,
		APIKey:   input.APIKey,
		BaseURL:  input.BaseURL,
	}, nil
}
