package memory

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/leohan123123/blueprint-core/internal/core/domain"
)

func testIndex(t *testing.T) *Index {
	t.Helper()
	return NewIndex(Config{Dimensions: 4})
}

func record(id, docID string, fileType domain.FileType, embedding []float32) domain.ChunkRecord {
	return domain.ChunkRecord{
		ID:          id,
		SourceDocID: docID,
		FileName:    docID + ".pdf",
		FileType:    fileType,
		Text:        "text for " + id,
		Embedding:   embedding,
		CreatedAt:   time.Now(),
	}
}

func TestNewIndex_DefaultDimensions(t *testing.T) {
	idx := NewIndex(Config{})
	if idx.Dimensions() != domain.DefaultEmbeddingDimensions {
		t.Errorf("expected %d dimensions, got %d", domain.DefaultEmbeddingDimensions, idx.Dimensions())
	}
}

func TestIndex_Upsert_AcceptAndReject(t *testing.T) {
	idx := testIndex(t)

	result, err := idx.Upsert(context.Background(), []domain.ChunkRecord{
		record("a-chunk-0", "a", domain.FileTypeDocument, []float32{1, 0, 0, 0}),
		record("", "a", domain.FileTypeDocument, []float32{1, 0, 0, 0}),
		record("a-chunk-2", "a", domain.FileTypeDocument, []float32{1, 0}),
		record("a-chunk-3", "a", domain.FileTypeDocument, []float32{0, 1, 0, 0}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Accepted != 2 || result.Rejected != 2 {
		t.Errorf("expected 2 accepted 2 rejected, got %+v", result)
	}

	stats, err := idx.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.VectorCount != 2 {
		t.Errorf("expected 2 stored vectors, got %d", stats.VectorCount)
	}
}

func TestIndex_Upsert_ReplacesByID(t *testing.T) {
	idx := testIndex(t)
	ctx := context.Background()

	first := record("a-chunk-0", "a", domain.FileTypeDocument, []float32{1, 0, 0, 0})
	if _, err := idx.Upsert(ctx, []domain.ChunkRecord{first}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := first
	second.Text = "replaced"
	second.Embedding = []float32{0, 1, 0, 0}
	if _, err := idx.Upsert(ctx, []domain.ChunkRecord{second}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats, _ := idx.Stats(ctx)
	if stats.VectorCount != 1 {
		t.Fatalf("expected 1 vector after replacement, got %d", stats.VectorCount)
	}

	matches, err := idx.Query(ctx, []float32{0, 1, 0, 0}, 1, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 || matches[0].Chunk.Text != "replaced" {
		t.Errorf("expected replaced record, got %+v", matches)
	}
}

func TestIndex_Query_RanksByCosine(t *testing.T) {
	idx := testIndex(t)
	ctx := context.Background()

	_, err := idx.Upsert(ctx, []domain.ChunkRecord{
		record("far", "d1", domain.FileTypeDocument, []float32{0, 1, 0, 0}),
		record("exact", "d1", domain.FileTypeDocument, []float32{1, 0, 0, 0}),
		record("close", "d1", domain.FileTypeDocument, []float32{1, 1, 0, 0}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	matches, err := idx.Query(ctx, []float32{1, 0, 0, 0}, 10, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(matches) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(matches))
	}
	if matches[0].ID != "exact" || matches[1].ID != "close" || matches[2].ID != "far" {
		t.Errorf("unexpected ranking: %s, %s, %s", matches[0].ID, matches[1].ID, matches[2].ID)
	}

	if math.Abs(float64(matches[0].Score)-1.0) > 1e-6 {
		t.Errorf("expected score 1.0 for exact match, got %f", matches[0].Score)
	}
	if math.Abs(float64(matches[1].Score)-1.0/math.Sqrt2) > 1e-6 {
		t.Errorf("expected score %f for diagonal, got %f", 1.0/math.Sqrt2, matches[1].Score)
	}
}

func TestIndex_Query_TopKLimits(t *testing.T) {
	idx := testIndex(t)
	ctx := context.Background()

	_, _ = idx.Upsert(ctx, []domain.ChunkRecord{
		record("a", "d1", domain.FileTypeDocument, []float32{1, 0, 0, 0}),
		record("b", "d1", domain.FileTypeDocument, []float32{0.9, 0.1, 0, 0}),
		record("c", "d1", domain.FileTypeDocument, []float32{0.8, 0.2, 0, 0}),
	})

	matches, err := idx.Query(ctx, []float32{1, 0, 0, 0}, 2, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("expected topK to cap matches at 2, got %d", len(matches))
	}

	// Non-positive topK returns everything
	matches, err = idx.Query(ctx, []float32{1, 0, 0, 0}, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 3 {
		t.Errorf("expected all matches for topK 0, got %d", len(matches))
	}
}

func TestIndex_Query_DimensionMismatch(t *testing.T) {
	idx := testIndex(t)

	_, err := idx.Query(context.Background(), []float32{1, 0}, 5, nil)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestIndex_Query_Filter(t *testing.T) {
	idx := testIndex(t)
	ctx := context.Background()

	drawing := record("dw", "d1", domain.FileTypeDrawing, []float32{1, 0, 0, 0})
	drawing.Metadata = map[string]any{"file_type": "drawing"}
	report := record("rp", "d2", domain.FileTypeDocument, []float32{1, 0, 0, 0})
	report.Metadata = map[string]any{"file_type": "document"}

	if _, err := idx.Upsert(ctx, []domain.ChunkRecord{drawing, report}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	matches, err := idx.Query(ctx, []float32{1, 0, 0, 0}, 10, domain.Equals("file_type", "drawing"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "dw" {
		t.Errorf("expected only the drawing chunk, got %+v", matches)
	}
}

func TestIndex_Query_StableTies(t *testing.T) {
	idx := testIndex(t)
	ctx := context.Background()

	// Identical embeddings tie exactly, insertion order must hold
	_, _ = idx.Upsert(ctx, []domain.ChunkRecord{
		record("first", "d1", domain.FileTypeDocument, []float32{1, 1, 0, 0}),
		record("second", "d1", domain.FileTypeDocument, []float32{1, 1, 0, 0}),
		record("third", "d1", domain.FileTypeDocument, []float32{1, 1, 0, 0}),
	})

	matches, err := idx.Query(ctx, []float32{1, 0, 0, 0}, 10, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if matches[0].ID != "first" || matches[1].ID != "second" || matches[2].ID != "third" {
		t.Errorf("tie order not stable: %s, %s, %s", matches[0].ID, matches[1].ID, matches[2].ID)
	}
}

func TestIndex_Query_ZeroNormScoresZero(t *testing.T) {
	idx := testIndex(t)
	ctx := context.Background()

	_, _ = idx.Upsert(ctx, []domain.ChunkRecord{
		record("zero", "d1", domain.FileTypeDocument, []float32{0, 0, 0, 0}),
	})

	matches, err := idx.Query(ctx, []float32{1, 0, 0, 0}, 10, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 || matches[0].Score != 0 {
		t.Errorf("expected zero-norm record to score 0, got %+v", matches)
	}
}

func TestIndex_DeleteByDocument(t *testing.T) {
	idx := testIndex(t)
	ctx := context.Background()

	_, _ = idx.Upsert(ctx, []domain.ChunkRecord{
		record("a-chunk-0", "a", domain.FileTypeDocument, []float32{1, 0, 0, 0}),
		record("a-chunk-1", "a", domain.FileTypeDocument, []float32{0, 1, 0, 0}),
		record("b-chunk-0", "b", domain.FileTypeModel, []float32{0, 0, 1, 0}),
	})

	result, err := idx.DeleteByDocument(ctx, "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.DeletedCount != 2 {
		t.Errorf("expected 2 deleted, got %d", result.DeletedCount)
	}

	stats, _ := idx.Stats(ctx)
	if stats.VectorCount != 1 || stats.DocumentCount != 1 {
		t.Errorf("expected 1 vector from 1 document, got %+v", stats)
	}

	// Remaining record still queryable after rebuild
	matches, err := idx.Query(ctx, []float32{0, 0, 1, 0}, 1, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "b-chunk-0" {
		t.Errorf("expected surviving chunk, got %+v", matches)
	}

	// Unknown document deletes nothing and succeeds
	result, err = idx.DeleteByDocument(ctx, "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.DeletedCount != 0 {
		t.Errorf("expected 0 deleted for unknown document, got %d", result.DeletedCount)
	}
}

func TestIndex_Reset(t *testing.T) {
	idx := testIndex(t)
	ctx := context.Background()

	_, _ = idx.Upsert(ctx, []domain.ChunkRecord{
		record("a-chunk-0", "a", domain.FileTypeDocument, []float32{1, 0, 0, 0}),
		record("b-chunk-0", "b", domain.FileTypeModel, []float32{0, 1, 0, 0}),
	})

	result, err := idx.Reset(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.DeletedCount != 2 {
		t.Errorf("expected 2 dropped, got %d", result.DeletedCount)
	}

	stats, _ := idx.Stats(ctx)
	if stats.VectorCount != 0 {
		t.Errorf("expected empty index after reset, got %d vectors", stats.VectorCount)
	}

	// Index stays usable after a reset
	upserted, err := idx.Upsert(ctx, []domain.ChunkRecord{
		record("c-chunk-0", "c", domain.FileTypeDocument, []float32{0, 0, 1, 0}),
	})
	if err != nil || upserted.Accepted != 1 {
		t.Errorf("expected upsert after reset to succeed, got %+v, %v", upserted, err)
	}
}

func TestIndex_Stats(t *testing.T) {
	idx := testIndex(t)
	ctx := context.Background()

	stats, err := idx.Stats(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.VectorCount != 0 || stats.DocumentCount != 0 {
		t.Errorf("expected empty stats, got %+v", stats)
	}

	_, _ = idx.Upsert(ctx, []domain.ChunkRecord{
		record("a-chunk-0", "a", domain.FileTypeDocument, []float32{1, 0, 0, 0}),
		record("a-chunk-1", "a", domain.FileTypeDocument, []float32{0, 1, 0, 0}),
		record("b-chunk-0", "b", domain.FileTypeModel, []float32{0, 0, 1, 0}),
	})

	stats, err = idx.Stats(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.VectorCount != 3 || stats.DocumentCount != 2 {
		t.Errorf("expected 3 vectors from 2 documents, got %+v", stats)
	}
	if stats.CategoryBreakdown["document"] != 2 || stats.CategoryBreakdown["model"] != 1 {
		t.Errorf("unexpected breakdown: %v", stats.CategoryBreakdown)
	}
	if stats.LastUpdated.IsZero() {
		t.Error("expected LastUpdated to be set")
	}
}

func TestIndex_ClonesStoredRecords(t *testing.T) {
	idx := testIndex(t)
	ctx := context.Background()

	embedding := []float32{1, 0, 0, 0}
	rec := record("a-chunk-0", "a", domain.FileTypeDocument, embedding)
	rec.Metadata = map[string]any{"file_type": "document"}

	if _, err := idx.Upsert(ctx, []domain.ChunkRecord{rec}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Mutating caller state must not affect stored records
	embedding[0] = 0
	embedding[1] = 1
	rec.Metadata["file_type"] = "drawing"

	matches, err := idx.Query(ctx, []float32{1, 0, 0, 0}, 1, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if math.Abs(float64(matches[0].Score)-1.0) > 1e-6 {
		t.Errorf("stored embedding changed under the caller's mutation, score %f", matches[0].Score)
	}
	if matches[0].Chunk.Metadata["file_type"] != "document" {
		t.Errorf("stored metadata changed under the caller's mutation: %v", matches[0].Chunk.Metadata)
	}

	// Query results are clones too: mutating them must not reach the index
	matches[0].Chunk.Metadata["file_type"] = "drawing"
	matches[0].Chunk.Embedding[0] = 0

	again, err := idx.Query(ctx, []float32{1, 0, 0, 0}, 1, domain.Equals("file_type", "document"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(again) != 1 {
		t.Fatalf("expected the stored record to survive result mutation, got %d matches", len(again))
	}
	if math.Abs(float64(again[0].Score)-1.0) > 1e-6 {
		t.Errorf("stored embedding changed under result mutation, score %f", again[0].Score)
	}
}

func TestIndex_HealthCheckAndClose(t *testing.T) {
	idx := testIndex(t)

	if err := idx.HealthCheck(context.Background()); err != nil {
		t.Errorf("expected healthy, got %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Errorf("expected no error from Close, got %v", err)
	}
}
