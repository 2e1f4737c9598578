package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/leohan123123/blueprint-core/internal/core/domain"
	"github.com/leohan123123/blueprint-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ConversationStore = (*ConversationStore)(nil)

const (
	// Key prefixes for Redis
	conversationPrefix     = "conversation:"
	conversationMetaPrefix = "conversation:meta:"

	// Fields of the per-session metadata hash
	metaCreatedAt = "created_at"
	metaUpdatedAt = "updated_at"
)

// DefaultTTL is how long an idle session survives before Redis drops it.
// Every Append refreshes the clock.
const DefaultTTL = 24 * time.Hour

// ConversationStore implements driven.ConversationStore using Redis.
// Turns live in a list keyed by session id, session timestamps in a
// sibling hash, both under the same TTL so they expire together.
type ConversationStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewConversationStore creates a Redis-backed ConversationStore.
// A non-positive ttl falls back to DefaultTTL.
func NewConversationStore(client *redis.Client, ttl time.Duration) *ConversationStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ConversationStore{client: client, ttl: ttl}
}

// Append adds turns to a session, creating it on first use.
// The session TTL restarts on every append.
func (s *ConversationStore) Append(ctx context.Context, sessionID string, turns ...domain.ConversationTurn) error {
	if sessionID == "" {
		return fmt.Errorf("%w: session id is empty", domain.ErrInvalidInput)
	}
	if len(turns) == 0 {
		return nil
	}

	encoded := make([]any, 0, len(turns))
	for _, turn := range turns {
		data, err := json.Marshal(turn)
		if err != nil {
			return fmt.Errorf("failed to marshal turn: %w", err)
		}
		encoded = append(encoded, data)
	}

	key := conversationPrefix + sessionID
	metaKey := conversationMetaPrefix + sessionID
	now := time.Now().Format(time.RFC3339Nano)

	// Use pipeline for atomic operations
	pipe := s.client.Pipeline()
	pipe.RPush(ctx, key, encoded...)
	pipe.HSetNX(ctx, metaKey, metaCreatedAt, now)
	pipe.HSet(ctx, metaKey, metaUpdatedAt, now)
	pipe.Expire(ctx, key, s.ttl)
	pipe.Expire(ctx, metaKey, s.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append turns: %w", err)
	}

	return nil
}

// History retrieves a session's turns, oldest first
func (s *ConversationStore) History(ctx context.Context, sessionID string) (*domain.ConversationSession, error) {
	values, err := s.client.LRange(ctx, conversationPrefix+sessionID, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session turns: %w", err)
	}
	if len(values) == 0 {
		// A session always holds at least one turn, an empty list
		// means the key never existed or expired
		return nil, domain.ErrSessionNotFound
	}

	session := &domain.ConversationSession{
		ID:    sessionID,
		Turns: make([]domain.ConversationTurn, 0, len(values)),
	}
	for _, value := range values {
		var turn domain.ConversationTurn
		if err := json.Unmarshal([]byte(value), &turn); err != nil {
			return nil, fmt.Errorf("failed to unmarshal turn: %w", err)
		}
		session.Turns = append(session.Turns, turn)
	}

	meta, err := s.client.HGetAll(ctx, conversationMetaPrefix+sessionID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session metadata: %w", err)
	}
	if raw, ok := meta[metaCreatedAt]; ok {
		if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			session.CreatedAt = parsed
		}
	}
	if raw, ok := meta[metaUpdatedAt]; ok {
		if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			session.UpdatedAt = parsed
		}
	}

	return session, nil
}

// Delete removes a session and its history.
// Unknown sessions delete nothing and succeed.
func (s *ConversationStore) Delete(ctx context.Context, sessionID string) error {
	err := s.client.Del(ctx, conversationPrefix+sessionID, conversationMetaPrefix+sessionID).Err()
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Close releases the underlying Redis client
func (s *ConversationStore) Close() error {
	return s.client.Close()
}
