package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func newTestClient(url string) *Client {
	return NewClient(Config{APIKey: "test-key", BaseURL: url}, zerolog.Nop())
}

func TestCreateConversation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/conversations" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", got)
		}

		var payload struct {
			Metadata map[string]string `json:"metadata"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if payload.Metadata["session_id"] != "sess-1" {
			t.Errorf("unexpected metadata: %v", payload.Metadata)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"id": "conv_123", "created_at": 1})
	}))
	defer srv.Close()

	id, err := newTestClient(srv.URL).CreateConversation(context.Background(), map[string]string{"session_id": "sess-1"})
	if err != nil {
		t.Fatalf("CreateConversation err: %v", err)
	}
	if id != "conv_123" {
		t.Fatalf("unexpected conversation id: %s", id)
	}
}

func TestCreateConversationAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "Incorrect API key provided", "type": "invalid_request_error"},
		})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateConversation(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error for 401 response")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", apiErr.StatusCode)
	}
	if apiErr.Message != "Incorrect API key provided" {
		t.Fatalf("unexpected message: %s", apiErr.Message)
	}
}

func TestSearchVectorStore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vector_stores/vs_abc/search" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var payload struct {
			Query         string `json:"query"`
			MaxNumResults int    `json:"max_num_results"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if payload.Query != "dragões" || payload.MaxNumResults != 3 {
			t.Errorf("unexpected payload: %+v", payload)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"object": "vector_store.search_results.page",
			"data": []map[string]any{
				{
					"file_id": "file-1", "filename": "bestiario.md", "score": 0.91,
					"content": []map[string]string{{"type": "text", "text": "Dragões cospem fogo."}},
				},
				{
					"file_id": "file-2", "filename": "regras.md", "score": 0.64,
					"content": []map[string]string{{"type": "text", "text": "Teste de coragem."}},
				},
			},
			"has_more": false,
		})
	}))
	defer srv.Close()

	hits, err := newTestClient(srv.URL).SearchVectorStore(context.Background(), "vs_abc", "dragões", 3)
	if err != nil {
		t.Fatalf("SearchVectorStore err: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].DocumentText() != "Dragões cospem fogo." {
		t.Fatalf("unexpected first hit text: %q", hits[0].DocumentText())
	}
	if hits[1].FileID != "file-2" {
		t.Fatalf("hits out of order: %+v", hits)
	}
}

func TestSearchVectorStoreRequiresID(t *testing.T) {
	if _, err := newTestClient("http://unused").SearchVectorStore(context.Background(), "", "q", 5); err == nil {
		t.Fatal("expected error for empty vector store id")
	}
}

func TestCreateResponseOutputText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/responses" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req ResponseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "gpt-4o-mini" || req.Conversation != "conv_9" {
			t.Errorf("unexpected request: %+v", req)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id": "resp_1", "status": "completed",
			"output": []map[string]any{
				{"type": "reasoning", "id": "rs_1"},
				{
					"type": "message", "id": "msg_1", "role": "assistant",
					"content": []map[string]string{
						{"type": "output_text", "text": "Dragões "},
						{"type": "output_text", "text": "cospem fogo."},
					},
				},
			},
		})
	}))
	defer srv.Close()

	resp, err := newTestClient(srv.URL).CreateResponse(context.Background(), ResponseRequest{
		Model:        "gpt-4o-mini",
		Conversation: "conv_9",
		Input:        "pergunta",
	})
	if err != nil {
		t.Fatalf("CreateResponse err: %v", err)
	}
	if got := resp.OutputText(); got != "Dragões cospem fogo." {
		t.Fatalf("unexpected output text: %q", got)
	}
}

func TestDocumentText(t *testing.T) {
	cases := []struct {
		name   string
		result SearchResult
		want   string
	}{
		{
			name: "text parts joined",
			result: SearchResult{Content: []SearchContent{
				{Type: "text", Text: "um"},
				{Type: "text", Text: " dois"},
			}},
			want: "um dois",
		},
		{
			name: "non-text parts skipped",
			result: SearchResult{Content: []SearchContent{
				{Type: "image", Text: "ignored"},
				{Type: "text", Text: "mantido"},
			}},
			want: "mantido",
		},
		{
			name:   "no content",
			result: SearchResult{},
			want:   "",
		},
	}

	for _, tc := range cases {
		if got := tc.result.DocumentText(); got != tc.want {
			t.Fatalf("%s: DocumentText() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestFileSearchTool(t *testing.T) {
	tool := FileSearchTool("vs_1", 5)
	if tool.Type != "file_search" {
		t.Fatalf("unexpected tool type: %s", tool.Type)
	}
	if len(tool.VectorStoreIDs) != 1 || tool.VectorStoreIDs[0] != "vs_1" {
		t.Fatalf("unexpected store ids: %v", tool.VectorStoreIDs)
	}
	if tool.MaxNumResults != 5 {
		t.Fatalf("unexpected max results: %d", tool.MaxNumResults)
	}
}
