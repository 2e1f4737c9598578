// Package memstore provides in-memory driven adapters for running
// without external infrastructure.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/leohan123123/blueprint-core/internal/core/domain"
	"github.com/leohan123123/blueprint-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ConversationStore = (*ConversationStore)(nil)

// ConversationStore keeps conversation sessions in process memory.
// Intended for local runs and tests where Redis is not available.
// Sessions idle longer than the ttl are dropped lazily on access.
type ConversationStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*domain.ConversationSession
}

// NewConversationStore creates an in-memory ConversationStore.
// A non-positive ttl disables expiry.
func NewConversationStore(ttl time.Duration) *ConversationStore {
	return &ConversationStore{
		ttl:      ttl,
		sessions: make(map[string]*domain.ConversationSession),
	}
}

// Append adds turns to a session, creating it on first use
func (s *ConversationStore) Append(ctx context.Context, sessionID string, turns ...domain.ConversationTurn) error {
	if sessionID == "" {
		return domain.ErrInvalidInput
	}
	if len(turns) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	session, ok := s.sessions[sessionID]
	if !ok || s.expired(session, now) {
		session = &domain.ConversationSession{ID: sessionID, CreatedAt: now}
		s.sessions[sessionID] = session
	}
	session.Turns = append(session.Turns, turns...)
	session.UpdatedAt = now

	return nil
}

// History retrieves a copy of a session's turns, oldest first
func (s *ConversationStore) History(ctx context.Context, sessionID string) (*domain.ConversationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if s.expired(session, time.Now()) {
		delete(s.sessions, sessionID)
		return nil, domain.ErrSessionNotFound
	}

	// Copy so callers can never mutate the stored session
	copied := *session
	copied.Turns = make([]domain.ConversationTurn, len(session.Turns))
	copy(copied.Turns, session.Turns)
	return &copied, nil
}

// Delete removes a session.
// Unknown sessions delete nothing and succeed.
func (s *ConversationStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Close is a no-op for the in-memory store
func (s *ConversationStore) Close() error {
	return nil
}

func (s *ConversationStore) expired(session *domain.ConversationSession, now time.Time) bool {
	if s.ttl <= 0 {
		return false
	}
	return now.Sub(session.UpdatedAt) > s.ttl
}
