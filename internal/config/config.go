package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates all service configuration.
type Config struct {
	Server ServerConfig
	OpenAI OpenAIConfig
	Log    LogConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	openai, err := loadOpenAIConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, OpenAI: openai, Log: logCfg}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr          string
	AllowedOrigin string
}

func loadServerConfig() (ServerConfig, error) {
	origin := getEnvOrDefault("ALLOWED_ORIGIN", "*")

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" as-is.
		return ServerConfig{Addr: port, AllowedOrigin: origin}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AllowedOrigin: origin}, nil
}

// RetrievalMode selects how grounding context reaches the model: an explicit
// vector-store search before the generation call, or a file-search tool the
// upstream service runs during generation. One mode is active per process.
type RetrievalMode string

const (
	RetrievalModeSearch RetrievalMode = "search"
	RetrievalModeTool   RetrievalMode = "tool"
)

// ParseRetrievalMode normalizes and validates a retrieval mode value.
func ParseRetrievalMode(raw string) (RetrievalMode, error) {
	switch RetrievalMode(strings.ToLower(strings.TrimSpace(raw))) {
	case RetrievalModeSearch:
		return RetrievalModeSearch, nil
	case RetrievalModeTool:
		return RetrievalModeTool, nil
	default:
		return "", fmt.Errorf("invalid retrieval mode %q: want %q or %q", raw, RetrievalModeSearch, RetrievalModeTool)
	}
}

// OpenAIConfig describes the upstream generation/retrieval service.
type OpenAIConfig struct {
	APIKey        string
	VectorStoreID string
	Model         string
	BaseURL       string
	Timeout       time.Duration
	RetrievalMode RetrievalMode
	SearchTopK    int
}

// Credentials are the effective upstream values for one session, after
// per-session overrides are applied.
type Credentials struct {
	APIKey        string
	VectorStoreID string
}

// Resolve applies per-session overrides on top of the environment values and
// reports which required values remain missing, using the JSON field names
// the UI understands.
func (c OpenAIConfig) Resolve(apiKeyOverride, vectorStoreOverride string) (Credentials, []string) {
	creds := Credentials{
		APIKey:        strings.TrimSpace(apiKeyOverride),
		VectorStoreID: strings.TrimSpace(vectorStoreOverride),
	}
	if creds.APIKey == "" {
		creds.APIKey = c.APIKey
	}
	if creds.VectorStoreID == "" {
		creds.VectorStoreID = c.VectorStoreID
	}

	var missing []string
	if creds.APIKey == "" {
		missing = append(missing, "apiKey")
	}
	if creds.VectorStoreID == "" {
		missing = append(missing, "vectorStoreId")
	}
	return creds, missing
}

// Missing lists the required values the environment alone does not provide.
func (c OpenAIConfig) Missing() []string {
	_, missing := c.Resolve("", "")
	return missing
}

// Configured reports whether the environment alone provides both required values.
func (c OpenAIConfig) Configured() bool {
	return len(c.Missing()) == 0
}

func loadOpenAIConfig() (OpenAIConfig, error) {
	topK := 5
	if override, err := parseOptionalIntEnv("SEARCH_TOP_K"); err != nil {
		return OpenAIConfig{}, err
	} else if override != nil {
		if *override < 1 {
			topK = 1
		} else {
			topK = *override
		}
	}

	timeoutSeconds := 60
	if override, err := parseOptionalIntEnv("OPENAI_TIMEOUT_SECONDS"); err != nil {
		return OpenAIConfig{}, err
	} else if override != nil && *override > 0 {
		timeoutSeconds = *override
	}

	mode, err := ParseRetrievalMode(getEnvOrDefault("RETRIEVAL_MODE", string(RetrievalModeSearch)))
	if err != nil {
		return OpenAIConfig{}, err
	}

	return OpenAIConfig{
		APIKey:        strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		VectorStoreID: strings.TrimSpace(os.Getenv("VECTOR_STORE_ID")),
		Model:         getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		BaseURL:       getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		Timeout:       time.Duration(timeoutSeconds) * time.Second,
		RetrievalMode: mode,
		SearchTopK:    topK,
	}, nil
}

// LogConfig describes structured logging output.
type LogConfig struct {
	Level  string
	Pretty bool
}

func loadLogConfig() (LogConfig, error) {
	pretty, err := parseBoolEnv("LOG_PRETTY", false)
	if err != nil {
		return LogConfig{}, err
	}

	return LogConfig{
		Level:  getEnvOrDefault("LOG_LEVEL", "info"),
		Pretty: pretty,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
