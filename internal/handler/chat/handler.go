package chat

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sabia-project/sabia/internal/config"
	"github.com/sabia-project/sabia/internal/model/chat"
	assistantService "github.com/sabia-project/sabia/internal/service/assistant"
	chatService "github.com/sabia-project/sabia/internal/service/chat"
)

// Handler exposes session lifecycle and message endpoints.
type Handler struct {
	chatSvc   *chatService.Service
	assistant *assistantService.Service
	openAICfg config.OpenAIConfig
}

// New creates a chat handler.
func New(chatSvc *chatService.Service, assistant *assistantService.Service, openAICfg config.OpenAIConfig) *Handler {
	return &Handler{
		chatSvc:   chatSvc,
		assistant: assistant,
		openAICfg: openAICfg,
	}
}

// RegisterRoutes registers session and message routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleCreateSession)
	r.Get("/sessions/{sessionID}", h.handleGetSession)
	r.Delete("/sessions/{sessionID}", h.handleDeleteSession)
	r.Post("/sessions/{sessionID}/reset", h.handleResetSession)
	r.Get("/sessions/{sessionID}/messages", h.handleListMessages)
	r.Post("/sessions/{sessionID}/messages", h.handleSendMessage)
}

// handleCreateSession opens a session, resolving credentials from the
// request body overrides falling back to the server configuration.
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload chat.SessionOverrides
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	creds, missing := h.openAICfg.Resolve(payload.APIKey, payload.VectorStoreID)
	if len(missing) > 0 {
		respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   "missing credentials",
			"missing": missing,
		})
		return
	}

	session, err := h.chatSvc.CreateSession(r.Context(), creds.APIKey, creds.VectorStoreID)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

// handleGetSession returns the current session state.
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}

	respondJSON(w, http.StatusOK, session)
}

// handleDeleteSession discards the session and its history.
func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.chatSvc.DeleteSession(r.Context(), sessionID); err != nil {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleResetSession clears the conversation handle and history, keeping
// the session alive for the next question.
func (h *Handler) handleResetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.assistant.Reset(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}

	respondJSON(w, http.StatusOK, session)
}

// handleListMessages returns the ordered transcript.
func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	messages, err := h.chatSvc.LoadTranscript(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

// handleSendMessage runs a full question turn through the assistant
// pipeline. Generation failures still answer 200 with the degraded reply;
// only conversation or retrieval failures surface as 502.
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload struct {
		Content string `json:"content"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.assistant.Ask(r.Context(), sessionID, payload.Content)
	if err != nil {
		switch {
		case errors.Is(err, assistantService.ErrEmptyQuestion):
			respondError(w, http.StatusBadRequest, "content is required")
		case errors.Is(err, chatService.ErrSessionNotFound):
			respondError(w, http.StatusNotFound, "session not found")
		default:
			respondError(w, http.StatusBadGateway, err.Error())
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"reply":          result.Reply,
		"conversationId": result.ConversationID,
	})
}

// respondJSON writes a JSON response body.
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// respondError writes a JSON error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
