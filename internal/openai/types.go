package openai

import "strings"

// Conversation is the upstream conversation object. Only the handle is used
// locally; the dialogue state behind it stays server-side.
type Conversation struct {
	ID        string `json:"id"`
	CreatedAt int64  `json:"created_at"`
}

type conversationCreateRequest struct {
	Metadata map[string]string `json:"metadata,omitempty"`
}

type vectorStoreSearchRequest struct {
	Query         string `json:"query"`
	MaxNumResults int    `json:"max_num_results,omitempty"`
}

// SearchResult is one similarity-search hit. The upstream service returns
// hits in relevance order.
type SearchResult struct {
	FileID   string          `json:"file_id"`
	Filename string          `json:"filename"`
	Score    float64         `json:"score"`
	Content  []SearchContent `json:"content"`
}

// SearchContent is a single content part of a search hit.
type SearchContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// DocumentText concatenates the textual content parts of the hit.
func (r SearchResult) DocumentText() string {
	var b strings.Builder
	for _, part := range r.Content {
		if part.Type != "" && part.Type != "text" {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}

type searchResultsPage struct {
	Object  string         `json:"object"`
	Data    []SearchResult `json:"data"`
	HasMore bool           `json:"has_more"`
}

// Tool declares a capability the generation endpoint may invoke on its own.
type Tool struct {
	Type           string   `json:"type"`
	VectorStoreIDs []string `json:"vector_store_ids,omitempty"`
	MaxNumResults  int      `json:"max_num_results,omitempty"`
}

// FileSearchTool builds the retrieval tool declaration for one vector store.
func FileSearchTool(vectorStoreID string, maxResults int) Tool {
	return Tool{
		Type:           "file_search",
		VectorStoreIDs: []string{vectorStoreID},
		MaxNumResults:  maxResults,
	}
}

// ResponseRequest is the generation endpoint payload. Search mode sends the
// fully composed prompt as Input; tool mode sends the bare question as Input
// plus Instructions and a file_search tool entry.
type ResponseRequest struct {
	Model        string `json:"model"`
	Conversation string `json:"conversation,omitempty"`
	Input        string `json:"input"`
	Instructions string `json:"instructions,omitempty"`
	Tools        []Tool `json:"tools,omitempty"`
}

// Response is the generation result.
type Response struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Model  string       `json:"model"`
	Output []OutputItem `json:"output"`
}

// OutputItem is one entry of the response output array.
type OutputItem struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Role    string          `json:"role,omitempty"`
	Content []OutputContent `json:"content,omitempty"`
}

// OutputContent is one content part of a message output item.
type OutputContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// OutputText concatenates the output_text parts of all message items,
// mirroring the upstream SDK convenience accessor.
func (r *Response) OutputText() string {
	var b strings.Builder
	for _, item := range r.Output {
		if item.Type != "message" {
			continue
		}
		for _, part := range item.Content {
			if part.Type != "output_text" {
				continue
			}
			b.WriteString(part.Text)
		}
	}
	return b.String()
}
