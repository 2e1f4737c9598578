package domain

import "time"

// AIProvider identifies the AI/embedding provider
type AIProvider string

const (
	AIProviderOpenAI    AIProvider = "openai"
	AIProviderAnthropic AIProvider = "anthropic"
	AIProviderOllama    AIProvider = "ollama"
	AIProviderLocal     AIProvider = "local" // Deterministic embeddings, no network
)

// RequiresAPIKey returns true if this provider requires an API key
func (p AIProvider) RequiresAPIKey() bool {
	switch p {
	case AIProviderOllama, AIProviderLocal:
		return false // Self-hosted or in-process, no API key needed
	default:
		return true
	}
}

// IsValid returns true if this is a known provider
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOpenAI, AIProviderAnthropic, AIProviderOllama, AIProviderLocal:
		return true
	default:
		return false
	}
}

// DefaultEmbeddingDimensions is the vector width used when none is configured.
// Matches OpenAI's text-embedding-3-small so a later switch from the local
// strategy to the remote one keeps the same index shape.
const DefaultEmbeddingDimensions = 1536

// EmbeddingSettings configures the embedding strategy for an index.
// Exactly one strategy is active per index; ingestion and query
// embeddings always come from the same configuration.
type EmbeddingSettings struct {
	Provider   AIProvider `json:"provider"`
	Model      string     `json:"model"`
	APIKey     string     `json:"-"` // Never serialize to JSON
	BaseURL    string     `json:"base_url,omitempty"`
	Dimensions int        `json:"dimensions"`
}

// IsConfigured returns true if embedding settings are properly configured
func (e *EmbeddingSettings) IsConfigured() bool {
	if e.Provider == "" {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// DefaultEmbeddingSettings returns the zero-credential local strategy
func DefaultEmbeddingSettings() EmbeddingSettings {
	return EmbeddingSettings{
		Provider:   AIProviderLocal,
		Dimensions: DefaultEmbeddingDimensions,
	}
}

// LLMSettings configures a chat provider
type LLMSettings struct {
	Provider AIProvider `json:"provider"`
	Model    string     `json:"model"`
	APIKey   string     `json:"-"` // Never serialize to JSON
	BaseURL  string     `json:"base_url,omitempty"`
}

// IsConfigured returns true if LLM settings are properly configured
func (l *LLMSettings) IsConfigured() bool {
	if l.Provider == "" {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// DefaultLLMSettings returns a zero-credential local Ollama configuration
func DefaultLLMSettings() LLMSettings {
	return LLMSettings{
		Provider: AIProviderOllama,
		Model:    "llama3.1",
		BaseURL:  "http://localhost:11434",
	}
}

// AISettings holds the runtime-updatable AI configuration
type AISettings struct {
	Embedding EmbeddingSettings `json:"embedding"`
	LLM       []LLMSettings     `json:"llm"`
	UpdatedAt time.Time         `json:"updated_at"`
}
