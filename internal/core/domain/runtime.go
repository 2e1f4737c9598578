package domain

import "sync"

// RuntimeConfig tracks which capabilities are live in this process.
// Backends are fixed at startup; the AI side can change at runtime
// through the settings service. Thread-safe for concurrent access.
type RuntimeConfig struct {
	mu sync.RWMutex

	// Static (set at startup, read-only)
	VectorBackend  string // "memory", "pinecone" or "postgres"
	SessionBackend string // "redis" or "memory"

	// Dynamic (updated when AI settings change)
	embeddingStrategy string
	chatProviders     []string
}

// NewRuntimeConfig creates a new RuntimeConfig with initial values
func NewRuntimeConfig(vectorBackend, sessionBackend string) *RuntimeConfig {
	return &RuntimeConfig{
		VectorBackend:  vectorBackend,
		SessionBackend: sessionBackend,
	}
}

// EmbeddingStrategy returns the active embedding strategy name
func (c *RuntimeConfig) EmbeddingStrategy() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.embeddingStrategy
}

// SetEmbeddingStrategy records the active embedding strategy name
func (c *RuntimeConfig) SetEmbeddingStrategy(strategy string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.embeddingStrategy = strategy
}

// RemoteEmbeddings returns true when embeddings come from a remote API
func (c *RuntimeConfig) RemoteEmbeddings() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.embeddingStrategy != "" && c.embeddingStrategy != string(AIProviderLocal)
}

// ChatProviders returns the ids of the configured chat providers
func (c *RuntimeConfig) ChatProviders() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	providers := make([]string, len(c.chatProviders))
	copy(providers, c.chatProviders)
	return providers
}

// SetChatProviders records which chat providers are configured
func (c *RuntimeConfig) SetChatProviders(providers []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chatProviders = make([]string, len(providers))
	copy(c.chatProviders, providers)
}

// CanAnswer returns true if at least one chat provider is configured
func (c *RuntimeConfig) CanAnswer() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.chatProviders) > 0
}
