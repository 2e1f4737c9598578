package mocks

import (
	"context"
	"hash/fnv"
	"sync"
)

// MockEmbeddingProvider is a mock implementation of EmbeddingProvider for testing.
// Safe for concurrent use; the ingestion pool embeds chunks in parallel.
type MockEmbeddingProvider struct {
	mu         sync.Mutex
	dimensions int
	strategy   string
	failNext   bool
	calls      int
	closed     bool
}

// NewMockEmbeddingProvider creates a new MockEmbeddingProvider
func NewMockEmbeddingProvider() *MockEmbeddingProvider {
	return &MockEmbeddingProvider{
		dimensions: 384,
		strategy:   "mock",
	}
}

func (m *MockEmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	if m.failNext {
		m.failNext = false
		m.mu.Unlock()
		return nil, context.DeadlineExceeded
	}
	dim := m.dimensions
	m.mu.Unlock()
	return generateEmbedding(text, dim), nil
}

func (m *MockEmbeddingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.calls++
	if m.failNext {
		m.failNext = false
		m.mu.Unlock()
		return nil, context.DeadlineExceeded
	}
	dim := m.dimensions
	m.mu.Unlock()

	result := make([][]float32, len(texts))
	for i, text := range texts {
		result[i] = generateEmbedding(text, dim)
	}
	return result, nil
}

func (m *MockEmbeddingProvider) Dimensions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dimensions
}

func (m *MockEmbeddingProvider) Strategy() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.strategy
}

func (m *MockEmbeddingProvider) HealthCheck(ctx context.Context) error {
	return nil
}

func (m *MockEmbeddingProvider) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// generateEmbedding generates a deterministic embedding based on text hash
func generateEmbedding(text string, dimensions int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	embedding := make([]float32, dimensions)
	for i := range embedding {
		// Generate deterministic pseudo-random values
		seed = seed*1103515245 + 12345
		embedding[i] = float32(seed%1000) / 1000.0
	}
	return embedding
}

// Helper methods for testing

func (m *MockEmbeddingProvider) SetFailNext(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = fail
}

func (m *MockEmbeddingProvider) SetDimensions(dim int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dimensions = dim
}

func (m *MockEmbeddingProvider) SetStrategy(strategy string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strategy = strategy
}

func (m *MockEmbeddingProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockEmbeddingProvider) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
