package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// PreviewStatus tracks a single source preview through its lifetime.
type PreviewStatus string

const (
	StatusPending PreviewStatus = "pending"
	StatusLoaded  PreviewStatus = "loaded"
	StatusFailed  PreviewStatus = "failed"
)

// PreviewResult is the enrichment outcome for one source URL. A failed or
// pending preview keeps the URL so the source stays renderable.
type PreviewResult struct {
	URL         string
	Status      PreviewStatus
	Title       string
	Description string
}

// DisplayTitle is the text a list of sources should show for this entry:
// the fetched title when there is one, otherwise the raw URL.
func (p PreviewResult) DisplayTitle() string {
	if p.Status == StatusLoaded && p.Title != "" {
		return p.Title
	}
	return p.URL
}

// PendingPreviews builds the interim result set shown while previews load,
// one pending entry per source URL, in the order the answer listed them.
func PendingPreviews(urls []string) []PreviewResult {
	results := make([]PreviewResult, len(urls))
	for i, u := range urls {
		results[i] = PreviewResult{URL: u, Status: StatusPending}
	}
	return results
}

// FetchPreviews resolves every source URL concurrently and returns one
// result per URL in input order. Individual fetch failures degrade that
// entry to StatusFailed; the call itself never fails.
func (c *Client) FetchPreviews(ctx context.Context, urls []string) []PreviewResult {
	results := PendingPreviews(urls)
	if len(urls) == 0 {
		return results
	}

	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			results[i] = c.fetchPreview(ctx, u)
		}(i, u)
	}
	wg.Wait()

	loaded := 0
	for _, r := range results {
		if r.Status == StatusLoaded {
			loaded++
		}
	}
	c.logger.Debug().Int("loaded", loaded).Int("total", len(results)).Msg("previews resolved")
	return results
}

func (c *Client) fetchPreview(ctx context.Context, sourceURL string) PreviewResult {
	failed := PreviewResult{URL: sourceURL, Status: StatusFailed}

	endpoint := c.baseURL + "/preview?url=" + url.QueryEscape(sourceURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return failed
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug().Str("url", sourceURL).Err(err).Msg("preview fetch failed")
		return failed
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debug().Str("url", sourceURL).Str("status", resp.Status).Msg("preview fetch failed")
		return failed
	}

	var parsed struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		c.logger.Debug().Str("url", sourceURL).Err(err).Msg("preview decode failed")
		return failed
	}

	return PreviewResult{
		URL:         sourceURL,
		Status:      StatusLoaded,
		Title:       strings.TrimSpace(parsed.Title),
		Description: strings.TrimSpace(parsed.Description),
	}
}
