package domain

import (
	"fmt"
	"time"
)

// FileType categorizes the uploaded file a chunk came from
type FileType string

const (
	FileTypeDocument FileType = "document" // Reports, specifications, PDFs
	FileTypeModel    FileType = "model"    // IFC building models
	FileTypeDrawing  FileType = "drawing"  // DXF/CAD drawings
)

// IsValid returns true if this is a known file type
func (t FileType) IsValid() bool {
	switch t {
	case FileTypeDocument, FileTypeModel, FileTypeDrawing:
		return true
	default:
		return false
	}
}

// ChunkRecord is the unit of embedding and retrieval.
// Created during ingestion, immutable thereafter, destroyed only by
// an explicit per-document delete.
type ChunkRecord struct {
	ID          string         `json:"id"`
	SourceDocID string         `json:"source_doc_id"`
	FileName    string         `json:"file_name"`
	FileType    FileType       `json:"file_type"`
	Text        string         `json:"text"`
	Embedding   []float32      `json:"embedding,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ChunkID derives the stable chunk identifier from its document and position
func ChunkID(sourceDocID string, ordinal int) string {
	return fmt.Sprintf("%s-chunk-%d", sourceDocID, ordinal)
}

// QueryMatch is a scored retrieval result.
// Score is cosine similarity in [-1, 1].
type QueryMatch struct {
	ID    string      `json:"id"`
	Score float32     `json:"score"`
	Chunk ChunkRecord `json:"chunk"`
}

// UpsertResult reports per-record acceptance of an upsert call
type UpsertResult struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

// DeleteResult reports how many chunks a document delete removed
type DeleteResult struct {
	DeletedCount int `json:"deleted_count"`
}
