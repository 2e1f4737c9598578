package driven

import (
	"context"
)

// EmbeddingProvider converts text into fixed-dimension vectors.
// All embeddings for one index must come from the same provider
// instance; cosine similarity is meaningless across embedding spaces.
type EmbeddingProvider interface {
	// Embed generates an embedding for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, order-preserving
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension size
	Dimensions() int

	// Strategy returns the strategy name ("openai", "local", ...)
	// so callers can assert which embedding space is active
	Strategy() string

	// HealthCheck verifies the provider is available
	HealthCheck(ctx context.Context) error

	// Close releases resources held by the provider
	Close() error
}
