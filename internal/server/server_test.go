package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sageterm/sage/internal/llm"
	"github.com/sageterm/sage/internal/search"
	"github.com/sageterm/sage/internal/webpage"
)

type stubSearcher struct {
	results  []search.Result
	err      error
	gotQuery string
	gotMax   int
}

func (s *stubSearcher) Search(ctx context.Context, query string, max int) ([]search.Result, error) {
	s.gotQuery = query
	s.gotMax = max
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

// stubFetcher serves canned pages keyed by URL. Reads only, so the /chat
// fan-out can hit it from several goroutines.
type stubFetcher struct {
	pages map[string]*webpage.Page
	errs  map[string]error
}

func (f *stubFetcher) Fetch(ctx context.Context, rawURL string) (*webpage.Page, error) {
	if err, ok := f.errs[rawURL]; ok {
		return nil, err
	}
	if page, ok := f.pages[rawURL]; ok {
		return page, nil
	}
	return nil, fmt.Errorf("no stub page for %s", rawURL)
}

func htmlPage(pageURL, title, body string) *webpage.Page {
	doc := fmt.Sprintf(`<html><head><title>%s</title></head><body><p>%s</p></body></html>`, title, body)
	return &webpage.Page{URL: pageURL, ContentType: "text/html; charset=utf-8", Body: []byte(doc)}
}

func newTestServer(t *testing.T, deps Deps) *httptest.Server {
	t.Helper()
	deps.Logger = zerolog.Nop()
	ts := httptest.NewServer(New(deps).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postChat(t *testing.T, ts *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+"/chat", "application/json", bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("POST /chat: %v", err)
	}
	return resp
}

func decodeChat(t *testing.T, resp *http.Response) chatAnswer {
	t.Helper()
	defer resp.Body.Close()
	var payload chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode /chat response: %v", err)
	}
	return payload.MyResponse
}

func TestChatAnswersQuestion(t *testing.T) {
	searcher := &stubSearcher{results: []search.Result{
		{URL: "https://example.com/a", Title: "A"},
		{URL: "https://example.com/b", Title: "B"},
		{URL: "https://example.com/c", Title: "C"},
	}}
	fetcher := &stubFetcher{
		pages: map[string]*webpage.Page{
			"https://example.com/a": htmlPage("https://example.com/a", "A", "Shorter wavelengths scatter more."),
			"https://example.com/c": htmlPage("https://example.com/c", "C", "Rayleigh worked this out in 1871."),
		},
		errs: map[string]error{
			"https://example.com/b": errors.New("connection refused"),
		},
	}
	ts := newTestServer(t, Deps{
		LLM: llm.Mock{
			KeywordsResult: []string{"sky", "blue", "scattering"},
			Explanation:    "Sunlight scatters off air molecules, and blue scatters most.",
			Summary:        "Rayleigh scattering.",
		},
		Search:     searcher,
		Fetcher:    fetcher,
		MaxSources: 3,
	})

	resp := postChat(t, ts, `{"input_message": "why is the sky blue?"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("unexpected content type: %q", ct)
	}
	answer := decodeChat(t, resp)

	if answer.Summary != "Rayleigh scattering." {
		t.Errorf("unexpected summary: %q", answer.Summary)
	}
	if answer.FullExplanation == "" {
		t.Error("expected a full explanation")
	}
	want := []string{"https://example.com/a", "https://example.com/c"}
	if len(answer.RelevantSources) != len(want) {
		t.Fatalf("unexpected sources: %v", answer.RelevantSources)
	}
	for i, url := range want {
		if answer.RelevantSources[i] != url {
			t.Errorf("source %d: got %q, want %q", i, answer.RelevantSources[i], url)
		}
	}

	if searcher.gotQuery != "sky blue scattering" {
		t.Errorf("search query: got %q", searcher.gotQuery)
	}
	if searcher.gotMax != 3 {
		t.Errorf("search max: got %d", searcher.gotMax)
	}
}

func TestChatSkipsDisallowedSourceURLs(t *testing.T) {
	searcher := &stubSearcher{results: []search.Result{
		{URL: "http://localhost:7/loopback"},
		{URL: "https://example.com/ok"},
	}}
	fetcher := &stubFetcher{pages: map[string]*webpage.Page{
		"https://example.com/ok": htmlPage("https://example.com/ok", "OK", "Readable text."),
	}}
	ts := newTestServer(t, Deps{LLM: llm.Mock{Summary: "s", Explanation: "e"}, Search: searcher, Fetcher: fetcher})

	answer := decodeChat(t, postChat(t, ts, `{"input_message": "q"}`))
	if len(answer.RelevantSources) != 1 || answer.RelevantSources[0] != "https://example.com/ok" {
		t.Errorf("unexpected sources: %v", answer.RelevantSources)
	}
}

func TestChatAnswersWithNoScrapableSources(t *testing.T) {
	searcher := &stubSearcher{results: []search.Result{{URL: "https://example.com/down"}}}
	fetcher := &stubFetcher{errs: map[string]error{"https://example.com/down": errors.New("timeout")}}
	ts := newTestServer(t, Deps{
		LLM:     llm.Mock{Explanation: "From general knowledge.", Summary: "Short."},
		Search:  searcher,
		Fetcher: fetcher,
	})

	resp := postChat(t, ts, `{"input_message": "anything"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	answer := decodeChat(t, resp)
	if answer.RelevantSources == nil {
		t.Error("relevant_sources must be an empty list, not null")
	}
	if len(answer.RelevantSources) != 0 {
		t.Errorf("unexpected sources: %v", answer.RelevantSources)
	}
}

func TestChatRejectsEmptyInput(t *testing.T) {
	ts := newTestServer(t, Deps{LLM: llm.Mock{}, Search: &stubSearcher{}, Fetcher: &stubFetcher{}})

	for name, body := range map[string]string{
		"blank":    `{"input_message": "   "}`,
		"missing":  `{}`,
		"not json": `not json at all`,
	} {
		resp := postChat(t, ts, body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s body: expected 400, got %d", name, resp.StatusCode)
		}
	}
}

func TestChatReportsLLMFailure(t *testing.T) {
	ts := newTestServer(t, Deps{
		LLM:     llm.Mock{Err: errors.New("model unavailable")},
		Search:  &stubSearcher{},
		Fetcher: &stubFetcher{},
	})

	resp := postChat(t, ts, `{"input_message": "q"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	var payload map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if payload["error"] == "" {
		t.Error("expected an error message in the body")
	}
}

func TestChatReportsSearchFailure(t *testing.T) {
	ts := newTestServer(t, Deps{
		LLM:     llm.Mock{},
		Search:  &stubSearcher{err: errors.New("rate limited")},
		Fetcher: &stubFetcher{},
	})

	resp := postChat(t, ts, `{"input_message": "q"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
}

func TestPreviewExtractsMetadata(t *testing.T) {
	page := &webpage.Page{
		URL:         "https://example.com/article",
		ContentType: "text/html",
		Body: []byte(`<html><head>
			<title>Fallback title</title>
			<meta property="og:title" content="Why the sky is blue" />
			<meta property="og:description" content="A short tour of Rayleigh scattering." />
		</head><body><p>text</p></body></html>`),
	}
	fetcher := &stubFetcher{pages: map[string]*webpage.Page{"https://example.com/article": page}}
	ts := newTestServer(t, Deps{LLM: llm.Mock{}, Search: &stubSearcher{}, Fetcher: fetcher})

	resp, err := http.Get(ts.URL + "/preview?url=" + "https%3A%2F%2Fexample.com%2Farticle")
	if err != nil {
		t.Fatalf("GET /preview: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var payload previewResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode /preview response: %v", err)
	}
	if payload.Title != "Why the sky is blue" {
		t.Errorf("unexpected title: %q", payload.Title)
	}
	if payload.Description != "A short tour of Rayleigh scattering." {
		t.Errorf("unexpected description: %q", payload.Description)
	}
}

func TestPreviewOmitsEmptyFields(t *testing.T) {
	page := &webpage.Page{
		URL:         "https://example.com/bare",
		ContentType: "text/html",
		Body:        []byte(`<html><body><p>nothing to see</p></body></html>`),
	}
	fetcher := &stubFetcher{pages: map[string]*webpage.Page{"https://example.com/bare": page}}
	ts := newTestServer(t, Deps{LLM: llm.Mock{}, Search: &stubSearcher{}, Fetcher: fetcher})

	resp, err := http.Get(ts.URL + "/preview?url=https%3A%2F%2Fexample.com%2Fbare")
	if err != nil {
		t.Fatalf("GET /preview: %v", err)
	}
	defer resp.Body.Close()
	var payload map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode /preview response: %v", err)
	}
	if _, ok := payload["title"]; ok {
		t.Error("empty title must be omitted")
	}
	if _, ok := payload["description"]; ok {
		t.Error("empty description must be omitted")
	}
}

func TestPreviewValidatesURL(t *testing.T) {
	ts := newTestServer(t, Deps{LLM: llm.Mock{}, Search: &stubSearcher{}, Fetcher: &stubFetcher{}})

	for name, target := range map[string]string{
		"missing":    "/preview",
		"loopback":   "/preview?url=http%3A%2F%2Flocalhost%3A9%2Fx",
		"bad scheme": "/preview?url=ftp%3A%2F%2Fexample.com%2Fa",
	} {
		resp, err := http.Get(ts.URL + target)
		if err != nil {
			t.Fatalf("%s: GET: %v", name, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", name, resp.StatusCode)
		}
	}
}

func TestPreviewReportsFetchFailure(t *testing.T) {
	fetcher := &stubFetcher{errs: map[string]error{"https://example.com/gone": errors.New("HTTP 404")}}
	ts := newTestServer(t, Deps{LLM: llm.Mock{}, Search: &stubSearcher{}, Fetcher: fetcher})

	resp, err := http.Get(ts.URL + "/preview?url=https%3A%2F%2Fexample.com%2Fgone")
	if err != nil {
		t.Fatalf("GET /preview: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", resp.StatusCode)
	}
}

func TestPreviewRejectsNonHTML(t *testing.T) {
	page := &webpage.Page{URL: "https://example.com/doc.pdf", ContentType: "application/pdf", Body: []byte("%PDF-")}
	fetcher := &stubFetcher{pages: map[string]*webpage.Page{"https://example.com/doc.pdf": page}}
	ts := newTestServer(t, Deps{LLM: llm.Mock{}, Search: &stubSearcher{}, Fetcher: fetcher})

	resp, err := http.Get(ts.URL + "/preview?url=https%3A%2F%2Fexample.com%2Fdoc.pdf")
	if err != nil {
		t.Fatalf("GET /preview: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", resp.StatusCode)
	}
}

func TestRootGreeting(t *testing.T) {
	ts := newTestServer(t, Deps{LLM: llm.Mock{}, Search: &stubSearcher{}, Fetcher: &stubFetcher{}})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()
	var payload map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode root response: %v", err)
	}
	if payload["message"] != "what's up!" {
		t.Errorf("unexpected greeting: %q", payload["message"])
	}
}

func TestCORSAllowsAnyOrigin(t *testing.T) {
	ts := newTestServer(t, Deps{LLM: llm.Mock{}, Search: &stubSearcher{}, Fetcher: &stubFetcher{}})

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/chat", nil)
	req.Header.Set("Origin", "http://elsewhere.test")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS /chat: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("preflight: expected 204, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("preflight allow-origin: got %q", got)
	}

	getResp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	getResp.Body.Close()
	if got := getResp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("GET allow-origin: got %q", got)
	}
}
