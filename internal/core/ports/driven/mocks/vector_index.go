package mocks

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/leohan123123/blueprint-core/internal/core/domain"
)

// MockVectorIndex is a functional in-memory fake of VectorIndex.
// It keeps insertion order and scores with real cosine similarity so
// service tests exercise realistic ranking without a backend.
type MockVectorIndex struct {
	mu         sync.RWMutex
	dimensions int
	records    []domain.ChunkRecord
	byID       map[string]int

	failUpsert error
	failQuery  error
	failReset  error
	closed     bool
}

// NewMockVectorIndex creates a new MockVectorIndex with dimension dim
func NewMockVectorIndex(dim int) *MockVectorIndex {
	return &MockVectorIndex{
		dimensions: dim,
		byID:       make(map[string]int),
	}
}

func (m *MockVectorIndex) Upsert(ctx context.Context, records []domain.ChunkRecord) (domain.UpsertResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failUpsert != nil {
		err := m.failUpsert
		m.failUpsert = nil
		return domain.UpsertResult{}, err
	}

	var result domain.UpsertResult
	for _, record := range records {
		if len(record.Embedding) != m.dimensions || record.ID == "" {
			result.Rejected++
			continue
		}
		if idx, ok := m.byID[record.ID]; ok {
			m.records[idx] = record
		} else {
			m.byID[record.ID] = len(m.records)
			m.records = append(m.records, record)
		}
		result.Accepted++
	}
	return result, nil
}

func (m *MockVectorIndex) Query(ctx context.Context, vector []float32, topK int, filter domain.Filter) ([]domain.QueryMatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.failQuery != nil {
		err := m.failQuery
		m.failQuery = nil
		return nil, err
	}
	if len(vector) != m.dimensions {
		return nil, domain.ErrInvalidInput
	}

	var matches []domain.QueryMatch
	for _, record := range m.records {
		if filter != nil && !filter.Matches(record.Metadata) {
			continue
		}
		matches = append(matches, domain.QueryMatch{
			ID:    record.ID,
			Score: cosine(vector, record.Embedding),
			Chunk: record,
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

func (m *MockVectorIndex) DeleteByDocument(ctx context.Context, sourceDocID string) (domain.DeleteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.records[:0]
	deleted := 0
	for _, record := range m.records {
		if record.SourceDocID == sourceDocID {
			deleted++
			continue
		}
		kept = append(kept, record)
	}
	m.records = kept
	m.byID = make(map[string]int, len(m.records))
	for i, record := range m.records {
		m.byID[record.ID] = i
	}
	return domain.DeleteResult{DeletedCount: deleted}, nil
}

func (m *MockVectorIndex) Reset(ctx context.Context) (domain.DeleteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failReset != nil {
		err := m.failReset
		m.failReset = nil
		return domain.DeleteResult{}, err
	}

	deleted := len(m.records)
	m.records = nil
	m.byID = make(map[string]int)
	return domain.DeleteResult{DeletedCount: deleted}, nil
}

func (m *MockVectorIndex) Stats(ctx context.Context) (domain.KnowledgeBaseStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := make(map[string]struct{})
	breakdown := make(map[string]int)
	var last time.Time
	for _, record := range m.records {
		docs[record.SourceDocID] = struct{}{}
		breakdown[string(record.FileType)]++
		if record.CreatedAt.After(last) {
			last = record.CreatedAt
		}
	}
	return domain.KnowledgeBaseStats{
		VectorCount:       len(m.records),
		DocumentCount:     len(docs),
		CategoryBreakdown: breakdown,
		LastUpdated:       last,
	}, nil
}

func (m *MockVectorIndex) Dimensions() int {
	return m.dimensions
}

func (m *MockVectorIndex) HealthCheck(ctx context.Context) error {
	return nil
}

func (m *MockVectorIndex) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Helper methods for testing

func (m *MockVectorIndex) SetFailUpsert(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failUpsert = err
}

func (m *MockVectorIndex) SetFailQuery(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failQuery = err
}

func (m *MockVectorIndex) SetFailReset(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failReset = err
}

func (m *MockVectorIndex) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// Count returns how many records the index holds
func (m *MockVectorIndex) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

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
