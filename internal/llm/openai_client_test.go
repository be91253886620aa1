package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type recordedRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newTestClient(t *testing.T, content string, recorded *recordedRequest) Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want bearer key", got)
		}
		if err := json.NewDecoder(r.Body).Decode(recorded); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{
				{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]any{"role": "assistant", "content": content},
				},
			},
		})
	}))
	t.Cleanup(server.Close)

	client, err := New(Config{
		APIKey:     "test-key",
		Model:      "gpt-4o-mini",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestKeywordsRoundTrip(t *testing.T) {
	var recorded recordedRequest
	client := newTestClient(t, `["large language model","transformer basics"]`, &recorded)

	keywords, err := client.Keywords(context.Background(), "what is an llm?")
	if err != nil {
		t.Fatalf("Keywords: %v", err)
	}
	if len(keywords) != 2 || keywords[0] != "large language model" {
		t.Fatalf("keywords = %v", keywords)
	}
	if recorded.Model != "gpt-4o-mini" {
		t.Fatalf("model = %q", recorded.Model)
	}
	if len(recorded.Messages) != 2 || recorded.Messages[0].Role != "system" {
		t.Fatalf("messages = %+v, want system then user", recorded.Messages)
	}
	if !strings.Contains(recorded.Messages[1].Content, "what is an llm?") {
		t.Fatalf("user prompt missing question: %q", recorded.Messages[1].Content)
	}
}

func TestExplainRoundTrip(t *testing.T) {
	var recorded recordedRequest
	client := newTestClient(t, "Attention weighs input tokens against each other.", &recorded)

	explanation, err := client.Explain(context.Background(), "what is attention?", "[Source 1] https://example.com\n\nSome text.")
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if explanation != "Attention weighs input tokens against each other." {
		t.Fatalf("explanation = %q", explanation)
	}
	if !strings.Contains(recorded.Messages[1].Content, "Some text.") {
		t.Fatalf("user prompt missing corpus: %q", recorded.Messages[1].Content)
	}
}

func TestSummarizeRejectsEmpty(t *testing.T) {
	var recorded recordedRequest
	client := newTestClient(t, "unused", &recorded)

	if _, err := client.Summarize(context.Background(), "   "); err == nil {
		t.Fatal("expected error for blank explanation")
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error when api key missing")
	}
}

func TestMockClient(t *testing.T) {
	mock := Mock{KeywordsResult: []string{"llm"}, Explanation: "long", Summary: "short"}

	keywords, err := mock.Keywords(context.Background(), "q")
	if err != nil || len(keywords) != 1 {
		t.Fatalf("Keywords = %v, %v", keywords, err)
	}
	if s, _ := mock.Summarize(context.Background(), "x"); s != "short" {
		t.Fatalf("Summarize = %q", s)
	}

	broken := Mock{Err: context.DeadlineExceeded}
	if _, err := broken.Explain(context.Background(), "q", ""); err == nil {
		t.Fatal("expected configured error")
	}
}
