package driving

import (
	"context"

	"github.com/leohan123123/blueprint-core/internal/core/domain"
)

// StatusReport is the knowledge-base status surface consumed by the UI
type StatusReport struct {
	Stats   domain.KnowledgeBaseStats `json:"stats"`
	Summary string                    `json:"summary"`
}

// KnowledgeService manages knowledge-base lifecycle
type KnowledgeService interface {
	// Remove deletes every chunk of a source document.
	// Removing an unknown document reports zero deletions, not an error.
	Remove(ctx context.Context, sourceDocID string) (*domain.DeleteResult, error)

	// Status reports aggregate stats plus a human-readable summary
	Status(ctx context.Context) (*StatusReport, error)
}
