package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sabia-project/sabia/internal/config"
	"github.com/sabia-project/sabia/internal/handler"
	"github.com/sabia-project/sabia/internal/openai"
	"github.com/sabia-project/sabia/internal/service/assistant"
	"github.com/sabia-project/sabia/internal/service/chat"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(config.LogConfig{Level: "info"})

	// .env is optional; the system environment alone is fine.
	if err := godotenv.Load(); err != nil {
		logger.Debug().Err(err).Msg("no .env file loaded, using system environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger = newLogger(cfg.Log)
	log.Logger = logger

	if !cfg.OpenAI.Configured() {
		logger.Warn().
			Strs("missing", cfg.OpenAI.Missing()).
			Msg("upstream credentials not configured, sessions must supply their own")
	}

	// Per-session API keys share one HTTP client; only the bearer differs.
	httpClient := &http.Client{Timeout: cfg.OpenAI.Timeout}
	clientLogger := logger.With().Str("component", "openai").Logger()
	clients := func(apiKey string) assistant.Upstream {
		return openai.NewClient(openai.Config{
			APIKey:     apiKey,
			BaseURL:    cfg.OpenAI.BaseURL,
			HTTPClient: httpClient,
		}, clientLogger)
	}

	chatSvc := chat.NewService()
	assistantSvc := assistant.NewService(chatSvc, clients, cfg.OpenAI, logger.With().Str("component", "assistant").Logger())

	router := handler.NewRouter(cfg, chatSvc, assistantSvc, logger)

	logger.Info().
		Str("model", cfg.OpenAI.Model).
		Str("retrieval_mode", string(cfg.OpenAI.RetrievalMode)).
		Msg("assistant pipeline ready")

	startServer(ctx, cfg.Server, router, logger)
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var out io.Writer = os.Stdout
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger zerolog.Logger) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info().Str("addr", serverCfg.Addr).Msg("sabia backend listening")
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
	logger.Info().Msg("server stopped")
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
