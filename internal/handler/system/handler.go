package system

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sabia-project/sabia/internal/config"
	"github.com/sabia-project/sabia/pkg/utils"
)

// Handler serves liveness and configuration inspection endpoints.
type Handler struct {
	openAICfg config.OpenAIConfig
}

// New creates a system handler.
func New(openAICfg config.OpenAIConfig) *Handler {
	return &Handler{openAICfg: openAICfg}
}

// RegisterRoutes registers the configuration endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/config", h.handleConfig)
}

// HandleHealth answers the liveness probe.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleConfig reports whether the environment carries the upstream
// credentials, without echoing their values.
func (h *Handler) handleConfig(w http.ResponseWriter, r *http.Request) {
	missing := h.openAICfg.Missing()
	if missing == nil {
		missing = []string{}
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"configured":    h.openAICfg.Configured(),
		"missing":       missing,
		"model":         h.openAICfg.Model,
		"retrievalMode": h.openAICfg.RetrievalMode,
	})
}
