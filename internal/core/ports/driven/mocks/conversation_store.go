package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/leohan123123/blueprint-core/internal/core/domain"
)

// MockConversationStore is a mock implementation of ConversationStore for testing
type MockConversationStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.ConversationSession
}

// NewMockConversationStore creates a new MockConversationStore
func NewMockConversationStore() *MockConversationStore {
	return &MockConversationStore{
		sessions: make(map[string]*domain.ConversationSession),
	}
}

func (m *MockConversationStore) Append(ctx context.Context, sessionID string, turns ...domain.ConversationTurn) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	session, ok := m.sessions[sessionID]
	if !ok {
		session = &domain.ConversationSession{ID: sessionID, CreatedAt: now}
		m.sessions[sessionID] = session
	}
	session.Turns = append(session.Turns, turns...)
	session.UpdatedAt = now
	return nil
}

func (m *MockConversationStore) History(ctx context.Context, sessionID string) (*domain.ConversationSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	copied := *session
	copied.Turns = make([]domain.ConversationTurn, len(session.Turns))
	copy(copied.Turns, session.Turns)
	return &copied, nil
}

func (m *MockConversationStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

func (m *MockConversationStore) Close() error {
	return nil
}
