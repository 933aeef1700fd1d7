package stream

import (
	"context"
	"errors"
	"net/http"

	"github.com/sabia-project/sabia/internal/service/assistant"
	"github.com/sabia-project/sabia/pkg/utils"
)

var errStreamingUnsupported = errors.New("streaming unsupported")

// Handler streams question turns over Server-Sent Events.
type Handler struct {
	assistant *assistant.Service
}

// New creates a stream handler.
func New(assistantSvc *assistant.Service) *Handler {
	return &Handler{assistant: assistantSvc}
}

// StreamResponse is one event frame on the stream.
type StreamResponse struct {
	Event          string `json:"event"`
	Content        string `json:"content,omitempty"`
	SessionID      string `json:"sessionId,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
	Finished       bool   `json:"finished,omitempty"`
	Error          string `json:"error,omitempty"`
}

// HandleStreamRequest runs one question turn and reports its lifecycle as
// start, message and end events. The upstream does not stream tokens back,
// so the whole answer rides in a single message event; pipeline failures
// become an error event on the already-open stream.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID string, userMessage string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return errStreamingUnsupported
	}

	utils.SetupSSEHeaders(w)

	utils.SendSSEChunk(w, flusher, StreamResponse{
		Event:     "start",
		SessionID: sessionID,
	})

	result, err := h.assistant.Ask(ctx, sessionID, userMessage)
	if err != nil {
		utils.SendSSEChunk(w, flusher, StreamResponse{
			Event:     "error",
			SessionID: sessionID,
			Error:     err.Error(),
		})
		return err
	}

	utils.SendSSEChunk(w, flusher, StreamResponse{
		Event:          "message",
		SessionID:      sessionID,
		ConversationID: result.ConversationID,
		Content:        result.Reply.Content,
	})

	utils.SendSSEChunk(w, flusher, StreamResponse{
		Event:          "end",
		SessionID:      sessionID,
		ConversationID: result.ConversationID,
		Finished:       true,
	})

	return nil
}
