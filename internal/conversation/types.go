// Package conversation persists and reads the bounded per-user chat history.
package conversation

import "time"

// Turn role constants. Stored turns alternate user/assistant per exchange.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is a single persisted conversation entry.
type Turn struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
