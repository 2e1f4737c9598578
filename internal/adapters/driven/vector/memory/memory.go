package memory

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/leohan123123/blueprint-core/internal/core/domain"
	"github.com/leohan123123/blueprint-core/internal/core/ports/driven"
)

// Ensure Index implements VectorIndex
var _ driven.VectorIndex = (*Index)(nil)

// Config holds settings for the in-memory vector index
type Config struct {
	Dimensions int
	Logger     *slog.Logger
}

// Index is a process local VectorIndex backed by a linear scan.
// It serves development and tests, contents are lost on restart.
type Index struct {
	mu         sync.RWMutex
	dimensions int
	records    []domain.ChunkRecord
	byID       map[string]int
	logger     *slog.Logger
}

// NewIndex creates an empty in-memory vector index
func NewIndex(cfg Config) *Index {
	dimensions := cfg.Dimensions
	if dimensions <= 0 {
		dimensions = domain.DefaultEmbeddingDimensions
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Index{
		dimensions: dimensions,
		byID:       make(map[string]int),
		logger:     logger.With("component", "memory_index"),
	}
}

// Upsert stores chunk records, replacing records with the same id.
// Records with an empty id or a mismatched embedding dimension are
// counted as rejected without failing the call.
func (idx *Index) Upsert(ctx context.Context, records []domain.ChunkRecord) (domain.UpsertResult, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	var result domain.UpsertResult
	for _, record := range records {
		if record.ID == "" || len(record.Embedding) != idx.dimensions {
			idx.logger.Warn("rejecting chunk record",
				"id", record.ID,
				"embedding_len", len(record.Embedding),
				"want_dimensions", idx.dimensions)
			result.Rejected++
			continue
		}

		stored := cloneRecord(record)
		if pos, ok := idx.byID[record.ID]; ok {
			idx.records[pos] = stored
		} else {
			idx.byID[record.ID] = len(idx.records)
			idx.records = append(idx.records, stored)
		}
		result.Accepted++
	}

	return result, nil
}

// Query scores every stored record against the vector and returns the
// topK best matches in descending score order. Ties keep insertion
// order. A non-positive topK returns all matches.
func (idx *Index) Query(ctx context.Context, vector []float32, topK int, filter domain.Filter) ([]domain.QueryMatch, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(vector) != idx.dimensions {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, index has %d",
			domain.ErrInvalidInput, len(vector), idx.dimensions)
	}

	matches := make([]domain.QueryMatch, 0, len(idx.records))
	for _, record := range idx.records {
		if filter != nil && !filter.Matches(record.Metadata) {
			continue
		}
		// Clone on the way out too; handing out the stored record
		// would let callers mutate index state through its map and
		// slice fields
		matches = append(matches, domain.QueryMatch{
			ID:    record.ID,
			Score: cosine(vector, record.Embedding),
			Chunk: cloneRecord(record),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// DeleteByDocument removes every chunk belonging to the source
// document. Unknown ids delete nothing and succeed.
func (idx *Index) DeleteByDocument(ctx context.Context, sourceDocID string) (domain.DeleteResult, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	kept := idx.records[:0]
	deleted := 0
	for _, record := range idx.records {
		if record.SourceDocID == sourceDocID {
			deleted++
			continue
		}
		kept = append(kept, record)
	}
	idx.records = kept

	idx.byID = make(map[string]int, len(idx.records))
	for pos, record := range idx.records {
		idx.byID[record.ID] = pos
	}

	return domain.DeleteResult{DeletedCount: deleted}, nil
}

// Reset drops every stored record
func (idx *Index) Reset(ctx context.Context) (domain.DeleteResult, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	deleted := len(idx.records)
	idx.records = nil
	idx.byID = make(map[string]int)
	idx.logger.Info("index reset", "vectors_dropped", deleted)
	return domain.DeleteResult{DeletedCount: deleted}, nil
}

// Stats reports the current contents of the index
func (idx *Index) Stats(ctx context.Context) (domain.KnowledgeBaseStats, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	stats := domain.KnowledgeBaseStats{
		VectorCount:       len(idx.records),
		CategoryBreakdown: make(map[string]int),
	}

	docs := make(map[string]struct{})
	var last time.Time
	for _, record := range idx.records {
		docs[record.SourceDocID] = struct{}{}
		stats.CategoryBreakdown[string(record.FileType)]++
		if record.CreatedAt.After(last) {
			last = record.CreatedAt
		}
	}
	stats.DocumentCount = len(docs)
	stats.LastUpdated = last

	return stats, nil
}

// Dimensions returns the embedding dimension the index accepts
func (idx *Index) Dimensions() int {
	return idx.dimensions
}

// HealthCheck always succeeds for the in-memory backend
func (idx *Index) HealthCheck(ctx context.Context) error {
	return nil
}

// Close releases nothing but satisfies the port
func (idx *Index) Close() error {
	return nil
}

// cloneRecord copies the record so callers cannot mutate stored state
func cloneRecord(record domain.ChunkRecord) domain.ChunkRecord {
	stored := record
	stored.Embedding = make([]float32, len(record.Embedding))
	copy(stored.Embedding, record.Embedding)
	if record.Metadata != nil {
		stored.Metadata = make(map[string]any, len(record.Metadata))
		for k, v := range record.Metadata {
			stored.Metadata[k] = v
		}
	}
	return stored
}

// cosine computes cosine similarity, 0 when either vector has zero norm
func cosine(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
