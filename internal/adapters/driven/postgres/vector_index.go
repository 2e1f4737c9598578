package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/leohan123123/blueprint-core/internal/core/domain"
	"github.com/leohan123123/blueprint-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex implements driven.VectorIndex on postgres with the
// pgvector extension. Similarity is 1 minus the cosine distance the
// `<=>` operator computes.
type VectorIndex struct {
	db         *DB
	dimensions int
	logger     *slog.Logger
}

// VectorIndexConfig holds settings for the pgvector index
type VectorIndexConfig struct {
	Dimensions int
	Logger     *slog.Logger
}

// NewVectorIndex creates a VectorIndex over an open database.
// The schema must have been initialized for the same dimension.
func NewVectorIndex(db *DB, cfg VectorIndexConfig) *VectorIndex {
	dimensions := cfg.Dimensions
	if dimensions <= 0 {
		dimensions = domain.DefaultEmbeddingDimensions
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &VectorIndex{
		db:         db,
		dimensions: dimensions,
		logger:     logger.With("component", "pgvector_index"),
	}
}

// Upsert stores chunk records in one transaction, replacing records
// with the same id. Records with an empty id or a mismatched embedding
// dimension are counted as rejected without failing the call.
func (idx *VectorIndex) Upsert(ctx context.Context, records []domain.ChunkRecord) (domain.UpsertResult, error) {
	var result domain.UpsertResult

	valid := make([]domain.ChunkRecord, 0, len(records))
	for _, record := range records {
		if record.ID == "" || len(record.Embedding) != idx.dimensions {
			idx.logger.Warn("rejecting chunk record",
				"id", record.ID,
				"embedding_len", len(record.Embedding),
				"want_dimensions", idx.dimensions)
			result.Rejected++
			continue
		}
		valid = append(valid, record)
	}
	if len(valid) == 0 {
		return result, nil
	}

	err := idx.db.Transaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO chunks (id, source_doc_id, file_name, file_type, content, metadata, embedding, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET
				source_doc_id = EXCLUDED.source_doc_id,
				file_name = EXCLUDED.file_name,
				file_type = EXCLUDED.file_type,
				content = EXCLUDED.content,
				metadata = EXCLUDED.metadata,
				embedding = EXCLUDED.embedding
		`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, record := range valid {
			metadata := []byte("{}")
			if len(record.Metadata) > 0 {
				metadata, err = json.Marshal(record.Metadata)
				if err != nil {
					return fmt.Errorf("failed to marshal metadata for %s: %w", record.ID, err)
				}
			}

			createdAt := record.CreatedAt
			if createdAt.IsZero() {
				createdAt = time.Now()
			}

			_, err = stmt.ExecContext(ctx,
				record.ID,
				record.SourceDocID,
				record.FileName,
				string(record.FileType),
				record.Text,
				metadata,
				pgvector.NewVector(record.Embedding),
				createdAt,
			)
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return domain.UpsertResult{}, fmt.Errorf("failed to upsert chunks: %w", err)
	}

	result.Accepted = len(valid)
	return result, nil
}

// Query returns the topK nearest chunks by cosine similarity.
// A non-positive topK returns all matching rows.
func (idx *VectorIndex) Query(ctx context.Context, vector []float32, topK int, filter domain.Filter) ([]domain.QueryMatch, error) {
	if len(vector) != idx.dimensions {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, index has %d",
			domain.ErrInvalidInput, len(vector), idx.dimensions)
	}

	args := []any{pgvector.NewVector(vector)}
	where, args, err := compileFilter(filter, args)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, source_doc_id, file_name, file_type, content, metadata, created_at,
		       1 - (embedding <=> $1) AS similarity
		FROM chunks`
	if where != "" {
		query += "\n\t\tWHERE " + where
	}
	query += "\n\t\tORDER BY embedding <=> $1"
	if topK > 0 {
		args = append(args, topK)
		query += fmt.Sprintf("\n\t\tLIMIT $%d", len(args))
	}

	rows, err := idx.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var matches []domain.QueryMatch
	for rows.Next() {
		var (
			record   domain.ChunkRecord
			fileType string
			metadata []byte
			score    float32
		)
		err := rows.Scan(
			&record.ID,
			&record.SourceDocID,
			&record.FileName,
			&fileType,
			&record.Text,
			&metadata,
			&record.CreatedAt,
			&score,
		)
		if err != nil {
			return nil, err
		}

		record.FileType = domain.FileType(fileType)
		if len(metadata) > 0 {
			var parsed map[string]any
			if err := json.Unmarshal(metadata, &parsed); err == nil && len(parsed) > 0 {
				record.Metadata = parsed
			}
		}

		matches = append(matches, domain.QueryMatch{
			ID:    record.ID,
			Score: score,
			Chunk: record,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return matches, nil
}

// DeleteByDocument removes every chunk of a source document.
// Unknown ids delete nothing and succeed.
func (idx *VectorIndex) DeleteByDocument(ctx context.Context, sourceDocID string) (domain.DeleteResult, error) {
	result, err := idx.db.ExecContext(ctx, `DELETE FROM chunks WHERE source_doc_id = $1`, sourceDocID)
	if err != nil {
		return domain.DeleteResult{}, fmt.Errorf("failed to delete chunks: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return domain.DeleteResult{}, err
	}
	return domain.DeleteResult{DeletedCount: int(deleted)}, nil
}

// Reset drops every stored chunk
func (idx *VectorIndex) Reset(ctx context.Context) (domain.DeleteResult, error) {
	var count int
	if err := idx.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count); err != nil {
		return domain.DeleteResult{}, fmt.Errorf("failed to count chunks: %w", err)
	}

	if _, err := idx.db.ExecContext(ctx, `TRUNCATE chunks`); err != nil {
		return domain.DeleteResult{}, fmt.Errorf("failed to truncate chunks: %w", err)
	}

	idx.logger.Info("index reset", "vectors_dropped", count)
	return domain.DeleteResult{DeletedCount: count}, nil
}

// Stats reports the aggregate view of the knowledge base
func (idx *VectorIndex) Stats(ctx context.Context) (domain.KnowledgeBaseStats, error) {
	var stats domain.KnowledgeBaseStats
	var last sql.NullTime

	err := idx.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT source_doc_id), MAX(created_at) FROM chunks`,
	).Scan(&stats.VectorCount, &stats.DocumentCount, &last)
	if err != nil {
		return domain.KnowledgeBaseStats{}, fmt.Errorf("failed to read stats: %w", err)
	}
	if last.Valid {
		stats.LastUpdated = last.Time
	}

	rows, err := idx.db.QueryContext(ctx, `SELECT file_type, COUNT(*) FROM chunks GROUP BY file_type`)
	if err != nil {
		return domain.KnowledgeBaseStats{}, fmt.Errorf("failed to read breakdown: %w", err)
	}
	defer rows.Close()

	stats.CategoryBreakdown = make(map[string]int)
	for rows.Next() {
		var fileType string
		var count int
		if err := rows.Scan(&fileType, &count); err != nil {
			return domain.KnowledgeBaseStats{}, err
		}
		stats.CategoryBreakdown[fileType] = count
	}
	if err := rows.Err(); err != nil {
		return domain.KnowledgeBaseStats{}, err
	}

	return stats, nil
}

// Dimensions returns the embedding dimension the index accepts
func (idx *VectorIndex) Dimensions() int {
	return idx.dimensions
}

// HealthCheck verifies the database is reachable
func (idx *VectorIndex) HealthCheck(ctx context.Context) error {
	return idx.db.Ping(ctx)
}

// Close is a no-op, the connection pool belongs to whoever opened it
func (idx *VectorIndex) Close() error {
	return nil
}

// compileFilter lowers a domain filter to a WHERE clause over the
// metadata column. Equality against a list-valued field means
// membership, so each equality checks scalar and single-element array
// containment. Appends its bind values to args.
func compileFilter(filter domain.Filter, args []any) (string, []any, error) {
	switch f := filter.(type) {
	case nil:
		return "", args, nil
	case domain.EqualsFilter:
		scalar, err := json.Marshal(map[string]any{f.Field: f.Value})
		if err != nil {
			return "", nil, fmt.Errorf("failed to marshal filter value: %w", err)
		}
		list, err := json.Marshal(map[string]any{f.Field: []any{f.Value}})
		if err != nil {
			return "", nil, fmt.Errorf("failed to marshal filter value: %w", err)
		}
		args = append(args, string(scalar), string(list))
		n := len(args)
		return fmt.Sprintf("(metadata @> $%d::jsonb OR metadata @> $%d::jsonb)", n-1, n), args, nil
	case domain.OneOfFilter:
		if len(f.Values) == 0 {
			return "FALSE", args, nil
		}
		clauses := make([]string, 0, len(f.Values))
		for _, value := range f.Values {
			var clause string
			var err error
			clause, args, err = compileFilter(domain.Equals(f.Field, value), args)
			if err != nil {
				return "", nil, err
			}
			clauses = append(clauses, clause)
		}
		return "(" + strings.Join(clauses, " OR ") + ")", args, nil
	case domain.AndFilter:
		clauses := make([]string, 0, len(f.Filters))
		for _, child := range f.Filters {
			if child == nil {
				continue
			}
			var clause string
			var err error
			clause, args, err = compileFilter(child, args)
			if err != nil {
				return "", nil, err
			}
			if clause != "" {
				clauses = append(clauses, clause)
			}
		}
		if len(clauses) == 0 {
			return "", args, nil
		}
		return "(" + strings.Join(clauses, " AND ") + ")", args, nil
	default:
		return "", nil, fmt.Errorf("%w: unsupported filter type %T", domain.ErrInvalidInput, filter)
	}
}
