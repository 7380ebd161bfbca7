package history

import (
	"context"
	"time"
)

// Message roles as they appear in the chat log and API payloads.
const (
	RoleUser      = "user"
	RoleUserVoice = "user_voice"
	RoleAI        = "ai"
)

// Message is one immutable chat log entry.
type Message struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Role      string    `json:"type"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"timestamp"`
}

// Store is the per-user bounded chat log. Append trims the oldest entries
// once a user's log exceeds the configured cap; List returns entries in
// insertion order; Clear is idempotent.
type Store interface {
	Append(ctx context.Context, userID, role, content string) (Message, error)
	List(ctx context.Context, userID string) ([]Message, error)
	Clear(ctx context.Context, userID string) error
	Close() error
}
