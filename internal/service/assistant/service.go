package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sabia-project/sabia/internal/config"
	chatmodel "github.com/sabia-project/sabia/internal/model/chat"
	"github.com/sabia-project/sabia/internal/openai"
	chatservice "github.com/sabia-project/sabia/internal/service/chat"
)

// errorAnswerPrefix marks assistant turns that carry an upstream failure
// instead of a real answer.
const errorAnswerPrefix = "Erro ao chamar a API: "

var ErrEmptyQuestion = errors.New("question must not be empty")

// Upstream is the slice of the platform client the pipeline consumes.
type Upstream interface {
	CreateConversation(ctx context.Context, metadata map[string]string) (string, error)
	SearchVectorStore(ctx context.Context, vectorStoreID, query string, maxResults int) ([]openai.SearchResult, error)
	CreateResponse(ctx context.Context, request openai.ResponseRequest) (*openai.Response, error)
}

// ClientFactory builds an upstream client bound to one API key. Sessions may
// carry their own key, so the pipeline cannot hold a single shared client.
type ClientFactory func(apiKey string) Upstream

// Result is one completed turn of the pipeline. Context carries the joined
// grounding passages in search mode; tool mode delegates retrieval upstream
// and leaves it empty.
type Result struct {
	Reply          chatmodel.Message
	ConversationID string
	Context        string
	Degraded       bool
}

// Service runs the retrieval-grounded answer pipeline: ensure a conversation
// handle, gather grounding context, compose the prompt, call the generation
// endpoint, and record both turns in the transcript.
type Service struct {
	chatSvc *chatservice.Service
	clients ClientFactory
	cfg     config.OpenAIConfig
	logger  zerolog.Logger
}

// NewService wires the pipeline onto the chat store and the upstream platform.
func NewService(chatSvc *chatservice.Service, clients ClientFactory, cfg config.OpenAIConfig, logger zerolog.Logger) *Service {
	return &Service{
		chatSvc: chatSvc,
		clients: clients,
		cfg:     cfg,
		logger:  logger,
	}
}

// RetrievalMode reports the strategy this process runs with.
func (s *Service) RetrievalMode() config.RetrievalMode {
	return s.cfg.RetrievalMode
}

// Ask runs one full turn for the session. Only the generation call is
// guarded: its failures degrade into a visible error answer and the session
// keeps going. Conversation creation and explicit retrieval failures abort
// the turn, leaving the already-appended user message in the transcript.
func (s *Service) Ask(ctx context.Context, sessionID, question string) (Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Result{}, ErrEmptyQuestion
	}

	session, err := s.chatSvc.GetSession(ctx, sessionID)
	if err != nil {
		return Result{}, err
	}

	client := s.clients(session.APIKey)

	if err := s.saveUserTurn(ctx, sessionID, question); err != nil {
		return Result{}, err
	}

	session, err = s.ensureConversation(ctx, client, session)
	if err != nil {
		return Result{}, err
	}

	var request openai.ResponseRequest
	var contextText string
	switch s.cfg.RetrievalMode {
	case config.RetrievalModeTool:
		request = openai.ResponseRequest{
			Model:        s.cfg.Model,
			Conversation: session.ConversationID,
			Input:        question,
			Instructions: SystemInstructions(),
			Tools:        []openai.Tool{openai.FileSearchTool(session.VectorStoreID, s.cfg.SearchTopK)},
		}
	default:
		contextText, err = s.retrieveContext(ctx, client, session.VectorStoreID, question)
		if err != nil {
			return Result{}, fmt.Errorf("retrieve context: %w", err)
		}
		request = openai.ResponseRequest{
			Model:        s.cfg.Model,
			Conversation: session.ConversationID,
			Input:        BuildPrompt(contextText, question),
		}
	}

	answer, degraded := s.generate(ctx, client, request)

	reply, err := s.chatSvc.SaveMessage(ctx, chatmodel.Message{
		SessionID: sessionID,
		Role:      chatmodel.RoleAssistant,
		Content:   answer,
	})
	if err != nil {
		return Result{}, err
	}

	return Result{
		Reply:          reply,
		ConversationID: session.ConversationID,
		Context:        contextText,
		Degraded:       degraded,
	}, nil
}

// Reset clears the session's conversation handle and transcript. The
// upstream conversation is abandoned rather than deleted, so the discarded
// handle is logged for traceability.
func (s *Service) Reset(ctx context.Context, sessionID string) (chatmodel.Session, error) {
	session, err := s.chatSvc.GetSession(ctx, sessionID)
	if err != nil {
		return chatmodel.Session{}, err
	}

	if session.ConversationID != "" {
		s.logger.Debug().
			Str("session_id", sessionID).
			Str("conversation_id", session.ConversationID).
			Msg("abandoning upstream conversation on reset")
	}

	return s.chatSvc.Reset(ctx, sessionID)
}

// saveUserTurn appends the question to the transcript. A resubmission of the
// question already sitting at the tail is not appended again.
func (s *Service) saveUserTurn(ctx context.Context, sessionID, question string) error {
	transcript, err := s.chatSvc.LoadTranscript(ctx, sessionID)
	if err != nil {
		return err
	}

	if n := len(transcript); n > 0 {
		last := transcript[n-1]
		if last.Role == chatmodel.RoleUser && last.Content == question {
			return nil
		}
	}

	_, err = s.chatSvc.SaveMessage(ctx, chatmodel.Message{
		SessionID: sessionID,
		Role:      chatmodel.RoleUser,
		Content:   question,
	})
	return err
}

// ensureConversation creates the upstream conversation on the session's
// first turn and reuses the stored handle afterwards.
func (s *Service) ensureConversation(ctx context.Context, client Upstream, session chatmodel.Session) (chatmodel.Session, error) {
	if session.ConversationID != "" {
		return session, nil
	}

	conversationID, err := client.CreateConversation(ctx, map[string]string{"session_id": session.ID})
	if err != nil {
		return chatmodel.Session{}, fmt.Errorf("ensure conversation: %w", err)
	}

	updated, err := s.chatSvc.AttachConversation(ctx, session.ID, conversationID)
	if err != nil {
		return chatmodel.Session{}, err
	}
	if updated.ConversationID != conversationID {
		// A concurrent turn attached first; the fresh handle is abandoned.
		s.logger.Debug().
			Str("session_id", session.ID).
			Str("conversation_id", conversationID).
			Msg("conversation already attached, dropping fresh handle")
	}
	return updated, nil
}

// retrieveContext runs the explicit similarity search and folds the hits
// into a single grounding string. Failures propagate; an empty result is a
// valid empty context.
func (s *Service) retrieveContext(ctx context.Context, client Upstream, vectorStoreID, query string) (string, error) {
	hits, err := client.SearchVectorStore(ctx, vectorStoreID, query, s.cfg.SearchTopK)
	if err != nil {
		return "", err
	}
	return joinDocuments(hits), nil
}

// generate calls the generation endpoint. This is the only guarded call in
// the pipeline: failures are folded into the answer text.
func (s *Service) generate(ctx context.Context, client Upstream, request openai.ResponseRequest) (string, bool) {
	response, err := client.CreateResponse(ctx, request)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("conversation_id", request.Conversation).
			Msg("generation failed, degrading to error answer")
		return errorAnswerPrefix + err.Error(), true
	}
	return strings.TrimSpace(response.OutputText()), false
}

// joinDocuments concatenates the non-empty hit texts with a blank line,
// preserving the service's relevance order.
func joinDocuments(hits []openai.SearchResult) string {
	parts := make([]string, 0, len(hits))
	for _, hit := range hits {
		text := strings.TrimSpace(hit.DocumentText())
		if text == "" {
			continue
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n")
}
