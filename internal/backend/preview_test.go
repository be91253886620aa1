package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchPreviewsKeepsOrderAndIsolatesFailures(t *testing.T) {
	// Slow down the first URL so completion order is the reverse of input
	// order; results must still come back in input order.
	delays := map[string]time.Duration{
		"https://example.com/slow": 60 * time.Millisecond,
		"https://example.com/bad":  30 * time.Millisecond,
		"https://example.com/fast": 0,
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/preview" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		target := r.URL.Query().Get("url")
		time.Sleep(delays[target])
		if target == "https://example.com/bad" {
			http.Error(w, "fetch failed", http.StatusBadGateway)
			return
		}
		fmt.Fprintf(w, `{"title": "Title for %s", "description": "desc"}`, target)
	}))
	defer server.Close()

	client := newTestClient(server)
	urls := []string{
		"https://example.com/slow",
		"https://example.com/bad",
		"https://example.com/fast",
	}
	results := client.FetchPreviews(context.Background(), urls)

	if len(results) != len(urls) {
		t.Fatalf("expected %d results, got %d", len(urls), len(results))
	}
	for i, r := range results {
		if r.URL != urls[i] {
			t.Errorf("result %d out of order: got %s, want %s", i, r.URL, urls[i])
		}
	}
	if results[0].Status != StatusLoaded || results[0].Title != "Title for https://example.com/slow" {
		t.Errorf("unexpected slow result: %+v", results[0])
	}
	if results[1].Status != StatusFailed {
		t.Errorf("expected bad URL to fail, got %+v", results[1])
	}
	if results[2].Status != StatusLoaded {
		t.Errorf("unexpected fast result: %+v", results[2])
	}
}

func TestFetchPreviewsMalformedBodyFailsEntry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	client := newTestClient(server)
	results := client.FetchPreviews(context.Background(), []string{"https://example.com/page"})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Status != StatusFailed {
		t.Errorf("expected failed entry, got %+v", results[0])
	}
	if results[0].URL != "https://example.com/page" {
		t.Errorf("failed entry lost its URL: %+v", results[0])
	}
}

func TestFetchPreviewsEmptyInput(t *testing.T) {
	client := New(Config{BaseURL: "http://localhost:0"})
	results := client.FetchPreviews(context.Background(), nil)
	if results == nil {
		t.Fatal("expected non-nil result slice")
	}
	if len(results) != 0 {
		t.Fatalf("expected empty results, got %d", len(results))
	}
}

func TestPendingPreviews(t *testing.T) {
	urls := []string{"https://a.test", "https://b.test"}
	results := PendingPreviews(urls)
	if len(results) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(results))
	}
	for i, r := range results {
		if r.Status != StatusPending {
			t.Errorf("entry %d not pending: %+v", i, r)
		}
		if r.URL != urls[i] {
			t.Errorf("entry %d wrong URL: %+v", i, r)
		}
	}
}

func TestDisplayTitle(t *testing.T) {
	cases := []struct {
		name   string
		result PreviewResult
		want   string
	}{
		{
			name:   "loaded with title",
			result: PreviewResult{URL: "https://a.test", Status: StatusLoaded, Title: "A Page"},
			want:   "A Page",
		},
		{
			name:   "loaded without title falls back to URL",
			result: PreviewResult{URL: "https://a.test", Status: StatusLoaded},
			want:   "https://a.test",
		},
		{
			name:   "failed falls back to URL",
			result: PreviewResult{URL: "https://a.test", Status: StatusFailed},
			want:   "https://a.test",
		},
		{
			name:   "pending falls back to URL",
			result: PreviewResult{URL: "https://a.test", Status: StatusPending},
			want:   "https://a.test",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.result.DisplayTitle(); got != tc.want {
				t.Errorf("DisplayTitle() = %q, want %q", got, tc.want)
			}
		})
	}
}
