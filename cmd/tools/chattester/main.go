package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/sabia-project/sabia/internal/config"
	"github.com/sabia-project/sabia/internal/openai"
	"github.com/sabia-project/sabia/internal/service/assistant"
	"github.com/sabia-project/sabia/internal/service/chat"
)

// chattester asks one grounded question against the real upstream service,
// without going through the HTTP server.
func main() {
	question := flag.String("question", "", "question to ask")
	apiKey := flag.String("api-key", "", "API key override (default OPENAI_API_KEY)")
	store := flag.String("store", "", "vector store id override (default VECTOR_STORE_ID)")
	model := flag.String("model", "", "model override (default OPENAI_MODEL)")
	mode := flag.String("mode", "", "retrieval mode: search or tool (default RETRIEVAL_MODE)")
	topK := flag.Int("top-k", 0, "number of passages to retrieve")
	timeout := flag.Duration("timeout", 0, "upstream request timeout")
	verbose := flag.Bool("verbose", false, "log pipeline details and the retrieved context")

	flag.Parse()

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil {
		logger.Debug().Err(err).Msg("no .env file loaded, using system environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	openAICfg := cfg.OpenAI
	if *model != "" {
		openAICfg.Model = *model
	}
	if *mode != "" {
		parsed, err := config.ParseRetrievalMode(*mode)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid -mode")
		}
		openAICfg.RetrievalMode = parsed
	}
	if *topK > 0 {
		openAICfg.SearchTopK = *topK
	}
	if *timeout > 0 {
		openAICfg.Timeout = *timeout
	}

	if strings.TrimSpace(*question) == "" {
		flag.Usage()
		logger.Fatal().Msg("a question is required, pass -question")
	}

	creds, missing := openAICfg.Resolve(*apiKey, *store)
	if len(missing) > 0 {
		logger.Fatal().
			Strs("missing", missing).
			Msg("missing credentials, pass -api-key/-store or set the environment")
	}

	httpClient := &http.Client{Timeout: openAICfg.Timeout}
	clients := func(key string) assistant.Upstream {
		return openai.NewClient(openai.Config{
			APIKey:     key,
			BaseURL:    openAICfg.BaseURL,
			HTTPClient: httpClient,
		}, logger)
	}

	chatSvc := chat.NewService()
	assistantSvc := assistant.NewService(chatSvc, clients, openAICfg, logger)

	ctx, cancel := context.WithTimeout(context.Background(), openAICfg.Timeout)
	defer cancel()

	session, err := chatSvc.CreateSession(ctx, creds.APIKey, creds.VectorStoreID)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create session")
	}

	logger.Debug().
		Str("model", openAICfg.Model).
		Str("retrieval_mode", string(openAICfg.RetrievalMode)).
		Int("top_k", openAICfg.SearchTopK).
		Msg("asking")

	result, err := assistantSvc.Ask(ctx, session.ID, *question)
	if err != nil {
		logger.Fatal().Err(err).Msg("turn failed")
	}

	if *verbose {
		logger.Info().Str("conversation_id", result.ConversationID).Msg("turn completed")
		if result.Context != "" {
			fmt.Fprintf(os.Stderr, "--- contexto ---\n%s\n--- fim do contexto ---\n", result.Context)
		}
	}

	fmt.Println(result.Reply.Content)

	if result.Degraded {
		os.Exit(1)
	}
}
