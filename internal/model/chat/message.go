package chat

import "time"

// Roles a turn can carry. History never holds anything else.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message persists individual turns for transcript rendering. Immutable
// once appended to a session history.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
