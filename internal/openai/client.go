package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 60 * time.Second
)

// APIError is a non-2xx answer from the upstream service.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("openai: %s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("openai: request failed with status %d", e.StatusCode)
}

// Config configures the upstream client.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	// HTTPClient, when set, is used instead of a fresh client so per-session
	// clients can share one connection pool. Timeout is ignored in that case.
	HTTPClient *http.Client
}

// Client talks to an OpenAI-style platform: conversations, vector-store
// search, and the responses endpoint. Calls are single-shot; failures are
// the caller's policy decision.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  zerolog.Logger
}

// NewClient creates an upstream client from the provided configuration.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: base,
		apiKey:  cfg.APIKey,
		client:  httpClient,
		logger:  logger,
	}
}

// CreateConversation opens a new upstream conversation and returns its handle.
func (c *Client) CreateConversation(ctx context.Context, metadata map[string]string) (string, error) {
	var conv Conversation
	if err := c.post(ctx, "/conversations", conversationCreateRequest{Metadata: metadata}, &conv); err != nil {
		return "", fmt.Errorf("create conversation: %w", err)
	}
	if conv.ID == "" {
		return "", errors.New("create conversation: empty id in response")
	}

	c.logger.Debug().Str("conversation_id", conv.ID).Msg("upstream conversation created")
	return conv.ID, nil
}

// SearchVectorStore runs a similarity search against the named vector store
// and returns the hits in the service's relevance order.
func (c *Client) SearchVectorStore(ctx context.Context, vectorStoreID, query string, maxResults int) ([]SearchResult, error) {
	if vectorStoreID == "" {
		return nil, errors.New("search vector store: vector store id is required")
	}

	body := vectorStoreSearchRequest{Query: query, MaxNumResults: maxResults}
	var page searchResultsPage
	path := "/vector_stores/" + url.PathEscape(vectorStoreID) + "/search"
	if err := c.post(ctx, path, body, &page); err != nil {
		return nil, fmt.Errorf("search vector store: %w", err)
	}

	c.logger.Debug().Str("vector_store_id", vectorStoreID).Int("hits", len(page.Data)).Msg("vector store searched")
	return page.Data, nil
}

// CreateResponse invokes the generation endpoint with the composed request.
func (c *Client) CreateResponse(ctx context.Context, request ResponseRequest) (*Response, error) {
	var response Response
	if err := c.post(ctx, "/responses", request, &response); err != nil {
		return nil, fmt.Errorf("create response: %w", err)
	}
	return &response, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return apiErr
	}

	var wrapped struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &wrapped) == nil {
		apiErr.Message = wrapped.Error.Message
		apiErr.Type = wrapped.Error.Type
	}
	return apiErr
}
