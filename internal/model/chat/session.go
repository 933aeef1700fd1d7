package chat

import "time"

// Session captures a transient anonymous conversation. The upstream
// conversation handle stays empty until the first answered turn.
type Session struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId,omitempty"`
	VectorStoreID  string    `json:"vectorStoreId,omitempty"`
	APIKey         string    `json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
}

// SessionOverrides carries per-session configuration supplied by the client
// at session creation, taking precedence over environment defaults.
type SessionOverrides struct {
	APIKey        string `json:"apiKey,omitempty"`
	VectorStoreID string `json:"vectorStoreId,omitempty"`
}
