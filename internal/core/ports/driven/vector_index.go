package driven

import (
	"context"

	"github.com/leohan123123/blueprint-core/internal/core/domain"
)

// VectorIndex stores chunk records and answers similarity queries.
// Backends (in-memory, Pinecone, pgvector) satisfy the same
// externally observable contract so callers stay backend-agnostic.
type VectorIndex interface {
	// Upsert stores records, validating each embedding against the
	// index dimension. Malformed records are rejected and counted;
	// the call itself succeeds.
	Upsert(ctx context.Context, records []domain.ChunkRecord) (domain.UpsertResult, error)

	// Query returns the topK stored chunks by descending cosine
	// similarity to vector, optionally restricted by filter.
	// Ties keep insertion order. A query vector whose dimension does
	// not match the index fails with domain.ErrInvalidInput.
	Query(ctx context.Context, vector []float32, topK int, filter domain.Filter) ([]domain.QueryMatch, error)

	// DeleteByDocument removes every chunk of a source document.
	// Idempotent: deleting an unknown id reports zero, not an error.
	DeleteByDocument(ctx context.Context, sourceDocID string) (domain.DeleteResult, error)

	// Reset drops every stored vector. Used when the embedding space
	// changes, stale vectors from another space must never be queried.
	Reset(ctx context.Context) (domain.DeleteResult, error)

	// Stats computes the aggregate view over the index
	Stats(ctx context.Context) (domain.KnowledgeBaseStats, error)

	// Dimensions returns the embedding dimension D of this index
	Dimensions() int

	// HealthCheck verifies the backend is reachable
	HealthCheck(ctx context.Context) error

	// Close releases resources held by the backend
	Close() error
}
