package pinecone

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/leohan123123/blueprint-core/internal/core/domain"
)

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:    baseURL,
		APIKey:     "pc-test",
		Dimensions: 4,
	}
}

func TestNewIndex_Validation(t *testing.T) {
	if _, err := NewIndex(Config{APIKey: "pc-test"}); !errors.Is(err, domain.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured for missing base URL, got %v", err)
	}
	if _, err := NewIndex(Config{BaseURL: "http://localhost:9999"}); !errors.Is(err, domain.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured for missing API key, got %v", err)
	}
}

func TestNewIndex_DefaultDimensions(t *testing.T) {
	idx, err := NewIndex(Config{BaseURL: "http://localhost:9999", APIKey: "pc-test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.Dimensions() != domain.DefaultEmbeddingDimensions {
		t.Errorf("expected %d dimensions, got %d", domain.DefaultEmbeddingDimensions, idx.Dimensions())
	}
}

func TestIndex_Upsert(t *testing.T) {
	var gotReq upsertRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vectors/upsert" {
			t.Errorf("expected /vectors/upsert, got %s", r.URL.Path)
		}
		if r.Header.Get("Api-Key") != "pc-test" {
			t.Error("expected Api-Key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"upsertedCount": 1}`))
	}))
	defer server.Close()

	idx, err := NewIndex(testConfig(server.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	created := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	result, err := idx.Upsert(context.Background(), []domain.ChunkRecord{
		{
			ID:          "plan-chunk-0",
			SourceDocID: "plan",
			FileName:    "plan.pdf",
			FileType:    domain.FileTypeDrawing,
			Text:        "ground floor plan",
			Embedding:   []float32{1, 0, 0, 0},
			Metadata:    map[string]any{"project": "tower-a"},
			CreatedAt:   created,
		},
		{ID: "bad-dims", Embedding: []float32{1, 0}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Accepted != 1 || result.Rejected != 1 {
		t.Errorf("expected 1 accepted 1 rejected, got %+v", result)
	}

	if len(gotReq.Vectors) != 1 {
		t.Fatalf("expected 1 vector sent, got %d", len(gotReq.Vectors))
	}
	vec := gotReq.Vectors[0]
	if vec.ID != "plan-chunk-0" {
		t.Errorf("unexpected vector id %s", vec.ID)
	}
	if vec.Metadata[metaSourceDocID] != "plan" || vec.Metadata[metaFileType] != "drawing" {
		t.Errorf("reserved metadata missing: %v", vec.Metadata)
	}
	if vec.Metadata[metaText] != "ground floor plan" {
		t.Errorf("chunk text not packed: %v", vec.Metadata)
	}
	if vec.Metadata["project"] != "tower-a" {
		t.Errorf("user metadata not carried: %v", vec.Metadata)
	}
	if vec.Metadata[metaCreatedAt] != "2026-03-14T09:30:00Z" {
		t.Errorf("created timestamp not packed: %v", vec.Metadata[metaCreatedAt])
	}
}

func TestIndex_Upsert_AllRejected(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	idx, err := NewIndex(testConfig(server.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := idx.Upsert(context.Background(), []domain.ChunkRecord{
		{ID: "", Embedding: []float32{1, 0, 0, 0}},
		{ID: "short", Embedding: []float32{1}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Accepted != 0 || result.Rejected != 2 {
		t.Errorf("expected 0 accepted 2 rejected, got %+v", result)
	}
	if calls != 0 {
		t.Errorf("expected no HTTP call for an all-rejected batch, got %d", calls)
	}
}

func TestIndex_Query(t *testing.T) {
	var gotReq queryRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query" {
			t.Errorf("expected /query, got %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"matches": [
			{"id": "plan-chunk-0", "score": 0.91, "metadata": {
				"sourceDocId": "plan", "fileName": "plan.pdf", "fileType": "drawing",
				"text": "ground floor plan", "createdAt": "2026-03-14T09:30:00Z",
				"project": "tower-a"}},
			{"id": "spec-chunk-2", "score": 0.74, "metadata": {
				"sourceDocId": "spec", "fileName": "spec.pdf", "fileType": "document",
				"text": "concrete class C30/37"}}
		]}`))
	}))
	defer server.Close()

	idx, err := NewIndex(testConfig(server.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	matches, err := idx.Query(context.Background(), []float32{1, 0, 0, 0}, 5, domain.Equals("project", "tower-a"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !gotReq.IncludeMetadata {
		t.Error("expected includeMetadata true")
	}
	if gotReq.TopK != 5 {
		t.Errorf("expected topK 5, got %d", gotReq.TopK)
	}
	wantFilter := map[string]any{"project": map[string]any{"$eq": "tower-a"}}
	if !reflect.DeepEqual(gotReq.Filter, wantFilter) {
		t.Errorf("unexpected filter: %v", gotReq.Filter)
	}

	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	first := matches[0]
	if first.ID != "plan-chunk-0" || first.Score != 0.91 {
		t.Errorf("unexpected first match: %+v", first)
	}
	if first.Chunk.SourceDocID != "plan" || first.Chunk.FileType != domain.FileTypeDrawing {
		t.Errorf("chunk not reconstructed: %+v", first.Chunk)
	}
	if first.Chunk.Text != "ground floor plan" {
		t.Errorf("chunk text not reconstructed: %q", first.Chunk.Text)
	}
	if first.Chunk.Metadata["project"] != "tower-a" {
		t.Errorf("user metadata not separated from reserved keys: %v", first.Chunk.Metadata)
	}
	if _, ok := first.Chunk.Metadata[metaText]; ok {
		t.Error("reserved key leaked into user metadata")
	}
	if first.Chunk.CreatedAt.IsZero() {
		t.Error("created timestamp not reconstructed")
	}
}

func TestIndex_Query_TopKDefault(t *testing.T) {
	var gotReq queryRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"matches": []}`))
	}))
	defer server.Close()

	idx, err := NewIndex(testConfig(server.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := idx.Query(context.Background(), []float32{1, 0, 0, 0}, 0, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotReq.TopK != maxTopK {
		t.Errorf("expected topK %d for non-positive input, got %d", maxTopK, gotReq.TopK)
	}
}

func TestIndex_Query_DimensionMismatch(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	idx, err := NewIndex(testConfig(server.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = idx.Query(context.Background(), []float32{1, 0}, 5, nil)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if calls != 0 {
		t.Errorf("expected mismatch caught before any HTTP call, got %d calls", calls)
	}
}

func TestIndex_DeleteByDocument(t *testing.T) {
	var gotReq deleteRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vectors/delete" {
			t.Errorf("expected /vectors/delete, got %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"deletedCount": 3}`))
	}))
	defer server.Close()

	idx, err := NewIndex(testConfig(server.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := idx.DeleteByDocument(context.Background(), "plan")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.DeletedCount != 3 {
		t.Errorf("expected 3 deleted, got %d", result.DeletedCount)
	}

	wantFilter := map[string]any{metaSourceDocID: map[string]any{"$eq": "plan"}}
	if !reflect.DeepEqual(gotReq.Filter, wantFilter) {
		t.Errorf("unexpected delete filter: %v", gotReq.Filter)
	}
}

func TestIndex_DeleteByDocument_NoCountReported(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	idx, err := NewIndex(testConfig(server.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := idx.DeleteByDocument(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.DeletedCount != 0 {
		t.Errorf("expected 0 deleted when the service reports no count, got %d", result.DeletedCount)
	}
}

func TestIndex_Reset(t *testing.T) {
	var deleteBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/describe_index_stats":
			_, _ = w.Write([]byte(`{"totalVectorCount": 17}`))
		case "/vectors/delete":
			if err := json.NewDecoder(r.Body).Decode(&deleteBody); err != nil {
				t.Errorf("failed to decode request: %v", err)
			}
			_, _ = w.Write([]byte(`{}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	idx, err := NewIndex(testConfig(server.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := idx.Reset(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.DeletedCount != 17 {
		t.Errorf("expected 17 dropped from the pre-wipe stats, got %d", result.DeletedCount)
	}
	if deleteBody["deleteAll"] != true {
		t.Errorf("expected deleteAll request, got %v", deleteBody)
	}
}

func TestIndex_Stats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/describe_index_stats" {
			t.Errorf("expected /describe_index_stats, got %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"dimension": 4,
			"totalVectorCount": 42,
			"namespaces": {"": {"vectorCount": 2}, "document": {"vectorCount": 30}, "drawing": {"vectorCount": 10}},
			"documentCount": 3,
			"lastUpdated": "2026-03-14T09:30:00Z"
		}`))
	}))
	defer server.Close()

	idx, err := NewIndex(testConfig(server.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats, err := idx.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.VectorCount != 42 || stats.DocumentCount != 3 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.CategoryBreakdown["document"] != 30 || stats.CategoryBreakdown["drawing"] != 10 {
		t.Errorf("unexpected breakdown: %v", stats.CategoryBreakdown)
	}
	if _, ok := stats.CategoryBreakdown[""]; ok {
		t.Error("default namespace must not appear in the breakdown")
	}
	if stats.LastUpdated.IsZero() {
		t.Error("expected LastUpdated parsed")
	}
}

func TestIndex_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	}))
	defer server.Close()

	idx, err := NewIndex(testConfig(server.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = idx.Stats(context.Background())
	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Errorf("expected ErrProviderFailure, got %v", err)
	}
}

func TestIndex_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	idx, err := NewIndex(testConfig(server.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := idx.HealthCheck(context.Background()); !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Errorf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestCompileFilter(t *testing.T) {
	testCases := []struct {
		name   string
		filter domain.Filter
		want   map[string]any
	}{
		{
			name:   "nil filter",
			filter: nil,
			want:   nil,
		},
		{
			name:   "equals",
			filter: domain.Equals("fileType", "drawing"),
			want:   map[string]any{"fileType": map[string]any{"$eq": "drawing"}},
		},
		{
			name:   "one of",
			filter: domain.OneOf("fileType", "drawing", "model"),
			want:   map[string]any{"fileType": map[string]any{"$in": []any{"drawing", "model"}}},
		},
		{
			name:   "empty and matches everything",
			filter: domain.And(),
			want:   nil,
		},
		{
			name:   "single child and unwraps",
			filter: domain.And(domain.Equals("project", "tower-a")),
			want:   map[string]any{"project": map[string]any{"$eq": "tower-a"}},
		},
		{
			name: "nested and",
			filter: domain.And(
				domain.Equals("project", "tower-a"),
				domain.OneOf("fileType", "drawing", "model"),
			),
			want: map[string]any{"$and": []map[string]any{
				{"project": map[string]any{"$eq": "tower-a"}},
				{"fileType": map[string]any{"$in": []any{"drawing", "model"}}},
			}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := compileFilter(tc.filter)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("compileFilter mismatch\n got: %#v\nwant: %#v", got, tc.want)
			}
		})
	}
}
