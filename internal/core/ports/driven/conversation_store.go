package driven

import (
	"context"

	"github.com/leohan123123/blueprint-core/internal/core/domain"
)

// ConversationStore persists per-session conversation history so the
// HTTP surface can carry multi-turn chats across requests.
type ConversationStore interface {
	// Append adds turns to a session, creating it if needed
	Append(ctx context.Context, sessionID string, turns ...domain.ConversationTurn) error

	// History retrieves a session's turns, oldest first.
	// Unknown sessions fail with domain.ErrSessionNotFound.
	History(ctx context.Context, sessionID string) (*domain.ConversationSession, error)

	// Delete removes a session and its history
	Delete(ctx context.Context, sessionID string) error

	// Close releases resources held by the store
	Close() error
}
