// Package search finds candidate source pages for a question using the
// DuckDuckGo instant answer API. The API keys most answers off related
// topics rather than ranked links, so results come from flattening the
// topic tree in order.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://api.duckduckgo.com"
	defaultTimeout = 10 * time.Second
)

// Config describes how to build a Client.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client queries the instant answer API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// New builds a search client. An empty BaseURL selects the public API.
func New(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient, logger: cfg.Logger}
}

// Result is one candidate source page.
type Result struct {
	Title   string
	URL     string
	Snippet string
}

type apiResponse struct {
	Abstract      string     `json:"Abstract"`
	AbstractText  string     `json:"AbstractText"`
	AbstractURL   string     `json:"AbstractURL"`
	Heading       string     `json:"Heading"`
	RelatedTopics []apiTopic `json:"RelatedTopics"`
}

type apiTopic struct {
	Text     string     `json:"Text"`
	FirstURL string     `json:"FirstURL"`
	Topics   []apiTopic `json:"Topics"`
}

// Search returns up to max result pages for the query, in API order. The
// abstract source, when present, comes first. Only https links are kept;
// an answer with no usable links yields an empty slice, not an error.
func (c *Client) Search(ctx context.Context, query string, max int) ([]Result, error) {
	if max <= 0 {
		max = 5
	}
	endpoint := fmt.Sprintf("%s/?q=%s&format=json&no_html=1&skip_disambig=1", c.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search %q: HTTP %d: %s", query, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	results := collectResults(&parsed, max)
	c.logger.Debug().Str("query", query).Int("results", len(results)).Msg("search completed")
	return results, nil
}

func collectResults(parsed *apiResponse, max int) []Result {
	results := make([]Result, 0, max)
	seen := make(map[string]bool)

	add := func(title, link, snippet string) {
		if len(results) >= max || !usableLink(link) || seen[link] {
			return
		}
		seen[link] = true
		results = append(results, Result{Title: title, URL: link, Snippet: snippet})
	}

	if parsed.AbstractURL != "" {
		add(parsed.Heading, parsed.AbstractURL, firstNonEmpty(parsed.AbstractText, parsed.Abstract))
	}
	var walk func(topics []apiTopic)
	walk = func(topics []apiTopic) {
		for _, topic := range topics {
			if len(results) >= max {
				return
			}
			if topic.FirstURL != "" {
				title, snippet := splitTopicText(topic.Text)
				add(title, topic.FirstURL, snippet)
			}
			if len(topic.Topics) > 0 {
				walk(topic.Topics)
			}
		}
	}
	walk(parsed.RelatedTopics)
	return results
}

// splitTopicText separates a topic's "Title - snippet" text. Topics without
// the separator use the whole text as the title.
func splitTopicText(text string) (title, snippet string) {
	parts := strings.SplitN(text, " - ", 2)
	if len(parts) == 2 {
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}
	return strings.TrimSpace(text), ""
}

func usableLink(link string) bool {
	return strings.HasPrefix(link, "https://")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
