package driving

import (
	"context"

	"github.com/leohan123123/blueprint-core/internal/core/domain"
)

// UpdateAISettingsRequest represents a request to update AI settings
type UpdateAISettingsRequest struct {
	Embedding *EmbeddingSettingsInput `json:"embedding,omitempty"`
	LLM       []LLMSettingsInput      `json:"llm,omitempty"`
}

// EmbeddingSettingsInput is the input for embedding configuration
type EmbeddingSettingsInput struct {
	Provider   domain.AIProvider `json:"provider"`
	Model      string            `json:"model"`
	APIKey     string            `json:"api_key"`
	BaseURL    string            `json:"base_url,omitempty"`
	Dimensions int               `json:"dimensions,omitempty"`
}

// LLMSettingsInput is the input for one chat provider configuration
type LLMSettingsInput struct {
	Provider domain.AIProvider `json:"provider"`
	Model    string            `json:"model"`
	APIKey   string            `json:"api_key"`
	BaseURL  string            `json:"base_url,omitempty"`
}

// EmbeddingStatus describes the active embedding strategy
type EmbeddingStatus struct {
	Configured bool              `json:"configured"`
	Provider   domain.AIProvider `json:"provider,omitempty"`
	Model      string            `json:"model,omitempty"`
	Strategy   string            `json:"strategy,omitempty"`
	Dimensions int               `json:"dimensions,omitempty"`
}

// ChatStatus lists the configured chat providers
type ChatStatus struct {
	Providers []string `json:"providers"`
	Default   string   `json:"default,omitempty"`
}

// AISettingsStatus represents the status of the AI services.
// VectorsDropped counts the index entries discarded because the
// embedding space changed; only UpdateAISettings sets it.
type AISettingsStatus struct {
	Embedding      EmbeddingStatus `json:"embedding"`
	Chat           ChatStatus      `json:"chat"`
	VectorsDropped int             `json:"vectors_dropped,omitempty"`
}

// SettingsService manages the runtime AI configuration
type SettingsService interface {
	// GetAISettings retrieves the current AI configuration, secrets masked
	GetAISettings(ctx context.Context) (*domain.AISettings, error)

	// UpdateAISettings updates AI configuration and hot-swaps the
	// affected services. Changing the embedding settings resets the
	// vector index so stale vectors from another embedding space can
	// never be queried.
	UpdateAISettings(ctx context.Context, req UpdateAISettingsRequest) (*AISettingsStatus, error)

	// GetAIStatus returns the current status of the AI services
	GetAIStatus(ctx context.Context) (*AISettingsStatus, error)
}
