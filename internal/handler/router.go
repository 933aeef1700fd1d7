package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/sabia-project/sabia/internal/config"
	"github.com/sabia-project/sabia/internal/handler/chat"
	"github.com/sabia-project/sabia/internal/handler/stream"
	"github.com/sabia-project/sabia/internal/handler/system"
	"github.com/sabia-project/sabia/internal/handler/ws"
	middlewarePkg "github.com/sabia-project/sabia/internal/middleware"
	assistantService "github.com/sabia-project/sabia/internal/service/assistant"
	chatService "github.com/sabia-project/sabia/internal/service/chat"
	"github.com/sabia-project/sabia/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(cfg *config.Config, chatSvc *chatService.Service, assistantSvc *assistantService.Service, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(cfg.Server.AllowedOrigin))

	chatHandler := chat.New(chatSvc, assistantSvc, cfg.OpenAI)
	systemHandler := system.New(cfg.OpenAI)
	streamHandler := stream.New(assistantSvc)
	wsHandler := ws.New(chatSvc, assistantSvc, logger)

	r.Get("/health", systemHandler.HandleHealth)

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)
		systemHandler.RegisterRoutes(api)
		wsHandler.RegisterRoutes(api)

		// One question turn per request; the transports share the pipeline,
		// this endpoint only renders it as an event stream.
		api.Get("/stream/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
			sessionID := chi.URLParam(r, "sessionID")
			userMessage := r.URL.Query().Get("message")

			if userMessage == "" {
				utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
				return
			}

			if err := streamHandler.HandleStreamRequest(r.Context(), w, sessionID, userMessage); err != nil {
				logger.Error().Err(err).Str("session_id", sessionID).Msg("stream request failed")
			}
		})
	})

	return r
}
