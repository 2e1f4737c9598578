package ai

import (
	"context"
	"encoding/binary"
	"math"
	"strings"
	"unicode"

	"golang.org/x/crypto/blake2b"

	"github.com/leohan123123/blueprint-core/internal/core/domain"
	"github.com/leohan123123/blueprint-core/internal/core/ports/driven"
)

// Ensure LocalEmbedding implements EmbeddingProvider
var _ driven.EmbeddingProvider = (*LocalEmbedding)(nil)

// LocalEmbedding implements EmbeddingProvider without any network or
// credential. Each token's BLAKE2b-256 hash seeds a linear
// congruential generator expanded to Dimensions values in [-1, 1);
// the per-token vectors are summed and L2-normalized to unit length.
// Identical input always yields a bit-identical vector; this strategy
// never fails.
//
// The vectors carry no deep semantics, but lexical overlap yields
// positive similarity: texts sharing words score high, disjoint texts
// score near zero. That keeps retrieval usable for local runs and
// tests without a real embedding service.
type LocalEmbedding struct {
	dimensions int
}

// LCG constants from Knuth's MMIX
const (
	lcgMultiplier = 6364136223846793005
	lcgIncrement  = 1442695040888963407
)

// NewLocalEmbedding creates a deterministic local embedding provider.
// dimensions <= 0 falls back to domain.DefaultEmbeddingDimensions.
func NewLocalEmbedding(dimensions int) *LocalEmbedding {
	if dimensions <= 0 {
		dimensions = domain.DefaultEmbeddingDimensions
	}
	return &LocalEmbedding{dimensions: dimensions}
}

// Embed generates a deterministic embedding for a single text
func (e *LocalEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.generate(text), nil
}

// EmbedBatch generates deterministic embeddings for multiple texts
func (e *LocalEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = e.generate(text)
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension size
func (e *LocalEmbedding) Dimensions() int {
	return e.dimensions
}

// Strategy returns the strategy name
func (e *LocalEmbedding) Strategy() string {
	return string(domain.AIProviderLocal)
}

// HealthCheck always succeeds; there is nothing to reach
func (e *LocalEmbedding) HealthCheck(ctx context.Context) error {
	return nil
}

// Close releases nothing; the provider holds no resources
func (e *LocalEmbedding) Close() error {
	return nil
}

// generate derives the unit-length vector for text by summing the
// hash-seeded vector of every token. Repeated tokens accumulate, so
// the result is a bag-of-words projection: shared vocabulary between
// two texts moves their vectors toward each other.
func (e *LocalEmbedding) generate(text string) []float32 {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		// Whitespace-only input still embeds; hash the raw text
		tokens = []string{text}
	}

	values := make([]float64, e.dimensions)
	for _, token := range tokens {
		e.accumulate(values, token)
	}

	var norm float64
	for _, v := range values {
		norm += v * v
	}
	if norm == 0 {
		values[0] = 1
		norm = 1
	}
	norm = math.Sqrt(norm)

	embedding := make([]float32, e.dimensions)
	for i, v := range values {
		embedding[i] = float32(v / norm)
	}
	return embedding
}

// accumulate adds the token's deterministic vector into values
func (e *LocalEmbedding) accumulate(values []float64, token string) {
	sum := blake2b.Sum256([]byte(token))
	state := binary.LittleEndian.Uint64(sum[:8])

	for i := range values {
		state = state*lcgMultiplier + lcgIncrement
		// Top 53 bits to [0,1), shifted to [-1,1)
		values[i] += 2*(float64(state>>11)/float64(1<<53)) - 1
	}
}

// tokenize lowercases and splits on anything that is not a letter or
// digit
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
