package driving

import (
	"context"

	"github.com/leohan123123/blueprint-core/internal/core/domain"
)

// IngestRequest carries the extraction service's output for one file
type IngestRequest struct {
	SourceDocID string          `json:"source_doc_id"`
	FileName    string          `json:"file_name"`
	FileType    domain.FileType `json:"file_type"`
	Text        string          `json:"text"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
}

// IngestResult reports how much of a document made it into the index.
// ChunksFailed > 0 signals partial ingestion, not failure.
type IngestResult struct {
	SourceDocID  string `json:"source_doc_id"`
	ChunksStored int    `json:"chunks_stored"`
	ChunksFailed int    `json:"chunks_failed"`
}

// IngestService turns extracted document text into indexed chunks
type IngestService interface {
	// Ingest chunks, embeds and stores one document's text.
	// A single chunk's embedding failure is logged and counted, never
	// fatal to the document.
	Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error)
}
