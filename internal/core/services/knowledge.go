package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leohan123123/blueprint-core/internal/core/domain"
	"github.com/leohan123123/blueprint-core/internal/core/ports/driving"
	"github.com/leohan123123/blueprint-core/internal/runtime"
)

// Ensure knowledgeService implements KnowledgeService
var _ driving.KnowledgeService = (*knowledgeService)(nil)

// knowledgeService implements knowledge-base lifecycle operations
type knowledgeService struct {
	services *runtime.Services
	logger   *slog.Logger
}

// NewKnowledgeService creates a new KnowledgeService
func NewKnowledgeService(services *runtime.Services, logger *slog.Logger) driving.KnowledgeService {
	if logger == nil {
		logger = slog.Default()
	}
	return &knowledgeService{
		services: services,
		logger:   logger.With("component", "knowledge"),
	}
}

// Remove deletes every chunk of a source document from the index
func (s *knowledgeService) Remove(ctx context.Context, sourceDocID string) (*domain.DeleteResult, error) {
	if strings.TrimSpace(sourceDocID) == "" {
		return nil, fmt.Errorf("%w: source document id is empty", domain.ErrInvalidInput)
	}

	index := s.services.Index()
	if index == nil {
		return nil, fmt.Errorf("%w: vector index is not initialised", domain.ErrNotConfigured)
	}

	result, err := index.DeleteByDocument(ctx, sourceDocID)
	if err != nil {
		return nil, fmt.Errorf("failed to remove document: %w", err)
	}

	s.logger.Info("document removed",
		"source_doc_id", sourceDocID,
		"chunks_deleted", result.DeletedCount)

	return &result, nil
}

// Status reports the aggregate index stats with a readable summary
func (s *knowledgeService) Status(ctx context.Context) (*driving.StatusReport, error) {
	index := s.services.Index()
	if index == nil {
		return nil, fmt.Errorf("%w: vector index is not initialised", domain.ErrNotConfigured)
	}

	stats, err := index.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}

	return &driving.StatusReport{
		Stats:   stats,
		Summary: stats.Summary(),
	}, nil
}
