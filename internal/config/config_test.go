package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "ALLOWED_ORIGIN",
		"OPENAI_API_KEY", "VECTOR_STORE_ID", "OPENAI_MODEL", "OPENAI_BASE_URL",
		"OPENAI_TIMEOUT_SECONDS", "RETRIEVAL_MODE", "SEARCH_TOP_K",
		"LOG_LEVEL", "LOG_PRETTY",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if cfg.Server.AllowedOrigin != "*" {
		t.Fatalf("unexpected origin: %s", cfg.Server.AllowedOrigin)
	}
	if cfg.OpenAI.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected model: %s", cfg.OpenAI.Model)
	}
	if cfg.OpenAI.BaseURL != "https://api.openai.com/v1" {
		t.Fatalf("unexpected base url: %s", cfg.OpenAI.BaseURL)
	}
	if cfg.OpenAI.Timeout != 60*time.Second {
		t.Fatalf("unexpected timeout: %s", cfg.OpenAI.Timeout)
	}
	if cfg.OpenAI.RetrievalMode != RetrievalModeSearch {
		t.Fatalf("unexpected mode: %s", cfg.OpenAI.RetrievalMode)
	}
	if cfg.OpenAI.SearchTopK != 5 {
		t.Fatalf("unexpected top-k: %d", cfg.OpenAI.SearchTopK)
	}
	if cfg.OpenAI.Configured() {
		t.Fatal("expected unconfigured without credentials")
	}
	if cfg.Log.Level != "info" || cfg.Log.Pretty {
		t.Fatalf("unexpected log config: %+v", cfg.Log)
	}
}

func TestLoadPortVariants(t *testing.T) {
	clearEnv(t)

	t.Setenv("PORT", "9090")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}

	t.Setenv("PORT", "127.0.0.1:7070")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:7070" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}

	t.Setenv("PORT", "80 80")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for PORT with spaces")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)

	t.Setenv("SEARCH_TOP_K", "many")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric SEARCH_TOP_K")
	}
	t.Setenv("SEARCH_TOP_K", "")

	t.Setenv("RETRIEVAL_MODE", "both")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown RETRIEVAL_MODE")
	}
	t.Setenv("RETRIEVAL_MODE", "")

	t.Setenv("LOG_PRETTY", "sim")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-boolean LOG_PRETTY")
	}
}

func TestParseRetrievalMode(t *testing.T) {
	mode, err := ParseRetrievalMode(" Tool ")
	if err != nil {
		t.Fatalf("ParseRetrievalMode err: %v", err)
	}
	if mode != RetrievalModeTool {
		t.Fatalf("unexpected mode: %s", mode)
	}

	if _, err := ParseRetrievalMode("hybrid"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestResolveOverrides(t *testing.T) {
	cfg := OpenAIConfig{APIKey: "env-key"}

	creds, missing := cfg.Resolve("", "vs_override")
	if len(missing) != 0 {
		t.Fatalf("unexpected missing: %v", missing)
	}
	if creds.APIKey != "env-key" || creds.VectorStoreID != "vs_override" {
		t.Fatalf("unexpected credentials: %+v", creds)
	}

	creds, missing = cfg.Resolve("sk-session", "")
	if creds.APIKey != "sk-session" {
		t.Fatalf("override should win, got %s", creds.APIKey)
	}
	if len(missing) != 1 || missing[0] != "vectorStoreId" {
		t.Fatalf("unexpected missing: %v", missing)
	}

	_, missing = OpenAIConfig{}.Resolve("", "")
	if len(missing) != 2 || missing[0] != "apiKey" || missing[1] != "vectorStoreId" {
		t.Fatalf("unexpected missing: %v", missing)
	}
}
