package driving

import (
	"context"

	"github.com/leohan123123/blueprint-core/internal/core/domain"
)

// Default retrieval parameters applied when a request omits them
const (
	DefaultTopK         = 5
	DefaultMinRelevance = 0.7
)

// AskRequest is a question against the knowledge base.
// MinRelevance is a pointer so an explicit zero threshold stays
// distinguishable from an omitted one (nil applies the default).
type AskRequest struct {
	Question     string                    `json:"question"`
	ProviderID   string                    `json:"provider_id,omitempty"`
	History      []domain.ConversationTurn `json:"history,omitempty"`
	TopK         int                       `json:"top_k,omitempty"`
	MinRelevance *float32                  `json:"min_relevance,omitempty"`
	Filter       domain.Filter             `json:"-"`
}

// AnswerService answers questions grounded in the knowledge base.
// When retrieval finds nothing relevant (or fails), it degrades to an
// ungrounded answer with empty sources instead of failing.
type AnswerService interface {
	// Ask embeds the question, retrieves relevant chunks and generates
	// an answer. A generation failure is surfaced verbatim; a retrieval
	// failure is not.
	Ask(ctx context.Context, req AskRequest) (*domain.RAGAnswer, error)
}
