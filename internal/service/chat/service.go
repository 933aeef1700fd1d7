package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sabia-project/sabia/internal/model/chat"
)

var (
	ErrMissingCredentials = errors.New("api key and vector store id are required")
	ErrSessionNotFound    = errors.New("session not found")
)

// Service encapsulates conversation state management: the session registry,
// the upstream conversation handle each session holds, and the transcript.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]chat.Session
	messages map[string][]chat.Message
}

// NewService bootstraps the in-memory chat service suitable for early iterations.
func NewService() *Service {
	return &Service{
		sessions: make(map[string]chat.Session),
		messages: make(map[string][]chat.Message),
	}
}

// CreateSession provisions an anonymous session carrying its effective
// upstream credentials. The conversation handle stays empty until the first
// answered turn attaches one.
func (s *Service) CreateSession(_ context.Context, apiKey, vectorStoreID string) (chat.Session, error) {
	if apiKey == "" || vectorStoreID == "" {
		return chat.Session{}, ErrMissingCredentials
	}

	session := chat.Session{
		ID:            uuid.NewString(),
		VectorStoreID: vectorStoreID,
		APIKey:        apiKey,
		CreatedAt:     time.Now().UTC(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.messages[session.ID] = make([]chat.Message, 0, 16)
	s.mu.Unlock()

	return session, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return session, nil
}

// AttachConversation stores the upstream conversation handle for a session.
// A session keeps at most one handle: if one is already present it wins and
// is returned unchanged.
func (s *Service) AttachConversation(_ context.Context, sessionID, conversationID string) (chat.Session, error) {
	if conversationID == "" {
		return chat.Session{}, errors.New("conversation id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}

	if session.ConversationID != "" {
		return session, nil
	}

	session.ConversationID = conversationID
	s.sessions[sessionID] = session
	return session, nil
}

// SaveMessage appends a message to the session history and returns the stored
// copy with its assigned identifier and timestamp.
func (s *Service) SaveMessage(_ context.Context, message chat.Message) (chat.Message, error) {
	if message.SessionID == "" {
		return chat.Message{}, ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[message.SessionID]; !ok {
		return chat.Message{}, ErrSessionNotFound
	}

	message.ID = uuid.NewString()
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	s.messages[message.SessionID] = append(s.messages[message.SessionID], message)
	return message, nil
}

// LoadTranscript returns stored messages for the provided session.
func (s *Service) LoadTranscript(_ context.Context, sessionID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.messages[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}

// Reset discards the conversation handle and the transcript in one critical
// section. The upstream conversation is abandoned, not deleted; the next
// turn attaches a brand-new handle.
func (s *Service) Reset(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}

	session.ConversationID = ""
	s.sessions[sessionID] = session
	s.messages[sessionID] = make([]chat.Message, 0, 16)
	return session, nil
}

// DeleteSession removes a session and its transcript.
func (s *Service) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}

	delete(s.sessions, sessionID)
	delete(s.messages, sessionID)
	return nil
}
