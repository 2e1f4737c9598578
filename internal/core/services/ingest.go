package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/leohan123123/blueprint-core/internal/chunker"
	"github.com/leohan123123/blueprint-core/internal/core/domain"
	"github.com/leohan123123/blueprint-core/internal/core/ports/driving"
	"github.com/leohan123123/blueprint-core/internal/runtime"
	"github.com/leohan123123/blueprint-core/internal/worker"
)

// Ensure ingestService implements IngestService
var _ driving.IngestService = (*ingestService)(nil)

// ingestService implements the chunk → embed → store pipeline.
// Embedding runs per chunk on a bounded worker pool; a single chunk's
// failure is logged and counted, never fatal to the document.
type ingestService struct {
	services     *runtime.Services
	pool         *worker.Pool
	maxChunkSize int
	logger       *slog.Logger
}

// IngestConfig holds dependencies for the ingestion service.
type IngestConfig struct {
	Services     *runtime.Services
	MaxChunkSize int // <= 0 falls back to chunker.DefaultMaxChunkSize
	PoolSize     int // <= 0 falls back to worker.DefaultPoolSize
	Logger       *slog.Logger
}

// NewIngestService creates a new IngestService.
// Embedding and index backends are resolved per call via
// runtime.Services, so settings changes apply to the next ingest.
func NewIngestService(cfg IngestConfig) driving.IngestService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	maxChunkSize := cfg.MaxChunkSize
	if maxChunkSize <= 0 {
		maxChunkSize = chunker.DefaultMaxChunkSize
	}

	return &ingestService{
		services:     cfg.Services,
		pool:         worker.NewPool(cfg.PoolSize),
		maxChunkSize: maxChunkSize,
		logger:       logger.With("component", "ingest"),
	}
}

// Ingest chunks, embeds and stores one document's extracted text
func (s *ingestService) Ingest(ctx context.Context, req driving.IngestRequest) (*driving.IngestResult, error) {
	if strings.TrimSpace(req.SourceDocID) == "" {
		return nil, fmt.Errorf("%w: source document id is empty", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("%w: document text is empty", domain.ErrInvalidInput)
	}
	if req.FileType != "" && !req.FileType.IsValid() {
		return nil, fmt.Errorf("%w: unknown file type %q", domain.ErrInvalidInput, req.FileType)
	}

	embedder := s.services.Embedder()
	index := s.services.Index()
	if embedder == nil || index == nil {
		return nil, fmt.Errorf("%w: AI services are not initialised", domain.ErrNotConfigured)
	}

	chunks := chunker.Split(req.Text, s.maxChunkSize)

	s.logger.Info("ingesting document",
		"source_doc_id", req.SourceDocID,
		"file_name", req.FileName,
		"chunks", len(chunks),
		"strategy", embedder.Strategy())

	// Embed chunks in parallel. The pool reports errors per index, so
	// records keep their document order regardless of completion order.
	embeddings := make([][]float32, len(chunks))
	errs := s.pool.Run(ctx, len(chunks), func(ctx context.Context, i int) error {
		vec, err := embedder.Embed(ctx, chunks[i])
		if err != nil {
			return err
		}
		embeddings[i] = vec
		return nil
	})

	// Structural fields join the caller's metadata so filters can
	// address them uniformly
	metadata := make(map[string]any, len(req.Metadata)+2)
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	metadata["file_type"] = string(req.FileType)
	metadata["file_name"] = req.FileName

	now := time.Now().UTC()
	records := make([]domain.ChunkRecord, 0, len(chunks))
	failed := 0
	for i, text := range chunks {
		if errs[i] != nil {
			failed++
			s.logger.Warn("chunk embedding failed, skipping",
				"source_doc_id", req.SourceDocID,
				"chunk", i,
				"error", errs[i])
			continue
		}
		records = append(records, domain.ChunkRecord{
			ID:          domain.ChunkID(req.SourceDocID, i),
			SourceDocID: req.SourceDocID,
			FileName:    req.FileName,
			FileType:    req.FileType,
			Text:        text,
			Embedding:   embeddings[i],
			Metadata:    metadata,
			CreatedAt:   now,
		})
	}

	result := &driving.IngestResult{
		SourceDocID:  req.SourceDocID,
		ChunksFailed: failed,
	}

	if len(records) > 0 {
		upserted, err := index.Upsert(ctx, records)
		if err != nil {
			return nil, fmt.Errorf("failed to store chunks: %w", err)
		}
		result.ChunksStored = upserted.Accepted
		result.ChunksFailed += upserted.Rejected
	}

	s.logger.Info("document ingested",
		"source_doc_id", req.SourceDocID,
		"chunks_stored", result.ChunksStored,
		"chunks_failed", result.ChunksFailed)

	return result, nil
}
