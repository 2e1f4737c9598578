package domain

import "time"

// Role identifies the author of a conversation turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid returns true if this is a known role
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAssistant
}

// DefaultHistoryTurns bounds how much conversation history reaches the model
const DefaultHistoryTurns = 6

// ConversationTurn is one message in a conversation, ordered most-recent-last
type ConversationTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// TailTurns returns at most the last n turns.
// The original slice is never modified.
func TailTurns(turns []ConversationTurn, n int) []ConversationTurn {
	if n <= 0 || len(turns) == 0 {
		return nil
	}
	if len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}

// ConversationSession holds the server-side history for a chat session
type ConversationSession struct {
	ID        string             `json:"id"`
	Turns     []ConversationTurn `json:"turns"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}
