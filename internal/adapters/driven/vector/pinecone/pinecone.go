package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/leohan123123/blueprint-core/internal/core/domain"
	"github.com/leohan123123/blueprint-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VectorIndex = (*Index)(nil)

// maxTopK stands in for "all matches" since the wire protocol has no
// unbounded query
const maxTopK = 100

// Metadata keys the adapter reserves for chunk reconstruction.
// User metadata under the same keys is overwritten on write.
const (
	metaSourceDocID = "sourceDocId"
	metaFileName    = "fileName"
	metaFileType    = "fileType"
	metaText        = "text"
	metaCreatedAt   = "createdAt"
)

// Index implements driven.VectorIndex against a Pinecone style
// HTTP vector service. Scoring happens server side.
type Index struct {
	baseURL    string
	apiKey     string
	dimensions int
	httpClient *http.Client
}

// Config holds connection configuration for the remote index
type Config struct {
	// BaseURL is the index endpoint (e.g. https://myindex-abc123.svc.pinecone.io)
	BaseURL string

	// APIKey is sent as the Api-Key header
	APIKey string

	// Dimensions the index was created with
	Dimensions int

	// Timeout for HTTP requests
	Timeout time.Duration
}

// NewIndex creates a new remote VectorIndex client
func NewIndex(cfg Config) (*Index, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: remote vector index requires a base URL", domain.ErrNotConfigured)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: remote vector index requires an API key", domain.ErrNotConfigured)
	}

	dimensions := cfg.Dimensions
	if dimensions <= 0 {
		dimensions = domain.DefaultEmbeddingDimensions
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Index{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		dimensions: dimensions,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// upsertVector is one vector in the upsert envelope
type upsertVector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type upsertRequest struct {
	Vectors []upsertVector `json:"vectors"`
}

type upsertResponse struct {
	UpsertedCount int `json:"upsertedCount"`
}

type queryRequest struct {
	Vector          []float32      `json:"vector"`
	TopK            int            `json:"topK"`
	Filter          map[string]any `json:"filter,omitempty"`
	IncludeMetadata bool           `json:"includeMetadata"`
}

type queryResponse struct {
	Matches []struct {
		ID       string         `json:"id"`
		Score    float32        `json:"score"`
		Metadata map[string]any `json:"metadata"`
	} `json:"matches"`
}

type deleteRequest struct {
	Filter map[string]any `json:"filter"`
}

type deleteResponse struct {
	DeletedCount int `json:"deletedCount"`
}

type describeStatsResponse struct {
	Dimension        int `json:"dimension"`
	TotalVectorCount int `json:"totalVectorCount"`
	Namespaces       map[string]struct {
		VectorCount int `json:"vectorCount"`
	} `json:"namespaces"`
	DocumentCount int    `json:"documentCount"`
	LastUpdated   string `json:"lastUpdated"`
}

// Upsert validates records locally, then sends the survivors in one
// call. The full chunk travels in vector metadata so Query can
// reconstruct it without a second store.
func (idx *Index) Upsert(ctx context.Context, records []domain.ChunkRecord) (domain.UpsertResult, error) {
	var result domain.UpsertResult

	vectors := make([]upsertVector, 0, len(records))
	for _, record := range records {
		if record.ID == "" || len(record.Embedding) != idx.dimensions {
			result.Rejected++
			continue
		}
		vectors = append(vectors, upsertVector{
			ID:       record.ID,
			Values:   record.Embedding,
			Metadata: packMetadata(record),
		})
	}

	if len(vectors) == 0 {
		return result, nil
	}

	var resp upsertResponse
	if err := idx.doRequest(ctx, "/vectors/upsert", upsertRequest{Vectors: vectors}, &resp); err != nil {
		return domain.UpsertResult{}, err
	}

	result.Accepted = len(vectors)
	return result, nil
}

// Query retrieves the topK nearest matches from the remote index
func (idx *Index) Query(ctx context.Context, vector []float32, topK int, filter domain.Filter) ([]domain.QueryMatch, error) {
	if len(vector) != idx.dimensions {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, index has %d",
			domain.ErrInvalidInput, len(vector), idx.dimensions)
	}

	compiled, err := compileFilter(filter)
	if err != nil {
		return nil, err
	}

	req := queryRequest{
		Vector:          vector,
		TopK:            topK,
		Filter:          compiled,
		IncludeMetadata: true,
	}
	if req.TopK <= 0 {
		req.TopK = maxTopK
	}

	var resp queryResponse
	if err := idx.doRequest(ctx, "/query", req, &resp); err != nil {
		return nil, err
	}

	matches := make([]domain.QueryMatch, 0, len(resp.Matches))
	for _, match := range resp.Matches {
		matches = append(matches, domain.QueryMatch{
			ID:    match.ID,
			Score: match.Score,
			Chunk: unpackMetadata(match.ID, match.Metadata),
		})
	}
	return matches, nil
}

// DeleteByDocument removes every vector tagged with the source
// document id. Services that do not report a delete count yield 0,
// which still satisfies the idempotent contract.
func (idx *Index) DeleteByDocument(ctx context.Context, sourceDocID string) (domain.DeleteResult, error) {
	req := deleteRequest{
		Filter: map[string]any{
			metaSourceDocID: map[string]any{"$eq": sourceDocID},
		},
	}

	var resp deleteResponse
	if err := idx.doRequest(ctx, "/vectors/delete", req, &resp); err != nil {
		return domain.DeleteResult{}, err
	}

	return domain.DeleteResult{DeletedCount: resp.DeletedCount}, nil
}

// Reset drops every vector in the index. The count falls back to a
// stats call right before the wipe when the service does not report
// one, best effort under concurrent writes.
func (idx *Index) Reset(ctx context.Context) (domain.DeleteResult, error) {
	stats, err := idx.Stats(ctx)
	if err != nil {
		return domain.DeleteResult{}, err
	}

	var resp deleteResponse
	if err := idx.doRequest(ctx, "/vectors/delete", map[string]any{"deleteAll": true}, &resp); err != nil {
		return domain.DeleteResult{}, err
	}
	if resp.DeletedCount > 0 {
		return domain.DeleteResult{DeletedCount: resp.DeletedCount}, nil
	}
	return domain.DeleteResult{DeletedCount: stats.VectorCount}, nil
}

// Stats reports what the remote service exposes. Vector totals are
// always present, document counts only when the service provides them.
func (idx *Index) Stats(ctx context.Context) (domain.KnowledgeBaseStats, error) {
	var resp describeStatsResponse
	if err := idx.doRequest(ctx, "/describe_index_stats", struct{}{}, &resp); err != nil {
		return domain.KnowledgeBaseStats{}, err
	}

	stats := domain.KnowledgeBaseStats{
		VectorCount:   resp.TotalVectorCount,
		DocumentCount: resp.DocumentCount,
	}
	if len(resp.Namespaces) > 0 {
		stats.CategoryBreakdown = make(map[string]int, len(resp.Namespaces))
		for name, ns := range resp.Namespaces {
			if name == "" {
				continue
			}
			stats.CategoryBreakdown[name] = ns.VectorCount
		}
	}
	if resp.LastUpdated != "" {
		if ts, err := time.Parse(time.RFC3339, resp.LastUpdated); err == nil {
			stats.LastUpdated = ts
		}
	}
	return stats, nil
}

// Dimensions returns the embedding dimension the index accepts
func (idx *Index) Dimensions() int {
	return idx.dimensions
}

// HealthCheck verifies the index is reachable with the configured key
func (idx *Index) HealthCheck(ctx context.Context) error {
	var resp describeStatsResponse
	return idx.doRequest(ctx, "/describe_index_stats", struct{}{}, &resp)
}

// Close releases idle connections
func (idx *Index) Close() error {
	idx.httpClient.CloseIdleConnections()
	return nil
}

// doRequest posts a JSON body and decodes the JSON response
func (idx *Index) doRequest(ctx context.Context, path string, reqBody any, out any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, idx.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", idx.apiKey)

	resp, err := idx.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: vector service status %d: %s",
			domain.ErrProviderFailure, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	return nil
}

// packMetadata merges user metadata with the reserved chunk fields
func packMetadata(record domain.ChunkRecord) map[string]any {
	metadata := make(map[string]any, len(record.Metadata)+5)
	for k, v := range record.Metadata {
		metadata[k] = v
	}
	metadata[metaSourceDocID] = record.SourceDocID
	metadata[metaFileName] = record.FileName
	metadata[metaFileType] = string(record.FileType)
	metadata[metaText] = record.Text
	metadata[metaCreatedAt] = record.CreatedAt.UTC().Format(time.RFC3339)
	return metadata
}

// unpackMetadata rebuilds a chunk record from match metadata
func unpackMetadata(id string, metadata map[string]any) domain.ChunkRecord {
	record := domain.ChunkRecord{ID: id}
	if metadata == nil {
		return record
	}

	record.SourceDocID, _ = metadata[metaSourceDocID].(string)
	record.FileName, _ = metadata[metaFileName].(string)
	if fileType, ok := metadata[metaFileType].(string); ok {
		record.FileType = domain.FileType(fileType)
	}
	record.Text, _ = metadata[metaText].(string)
	if raw, ok := metadata[metaCreatedAt].(string); ok {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			record.CreatedAt = ts
		}
	}

	rest := make(map[string]any)
	for k, v := range metadata {
		switch k {
		case metaSourceDocID, metaFileName, metaFileType, metaText, metaCreatedAt:
		default:
			rest[k] = v
		}
	}
	if len(rest) > 0 {
		record.Metadata = rest
	}
	return record
}

// compileFilter lowers a domain filter to the service's JSON predicate
func compileFilter(filter domain.Filter) (map[string]any, error) {
	switch f := filter.(type) {
	case nil:
		return nil, nil
	case domain.EqualsFilter:
		return map[string]any{f.Field: map[string]any{"$eq": f.Value}}, nil
	case domain.OneOfFilter:
		return map[string]any{f.Field: map[string]any{"$in": f.Values}}, nil
	case domain.AndFilter:
		clauses := make([]map[string]any, 0, len(f.Filters))
		for _, child := range f.Filters {
			if child == nil {
				continue
			}
			compiled, err := compileFilter(child)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, compiled)
		}
		switch len(clauses) {
		case 0:
			return nil, nil
		case 1:
			return clauses[0], nil
		default:
			return map[string]any{"$and": clauses}, nil
		}
	default:
		return nil, fmt.Errorf("%w: unsupported filter type %T", domain.ErrInvalidInput, filter)
	}
}
