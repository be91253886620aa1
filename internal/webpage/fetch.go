// Package webpage fetches remote pages and extracts the bits sage needs
// from them: a title/description preview for the source list, and plain
// paragraph text for the answer corpus.
package webpage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultFetchTimeout = 5 * time.Second
	defaultMaxPageBytes = 2 << 20 // 2 MiB
	maxRedirects        = 5

	// Some sites serve bot-hostile pages to unknown agents; a browser-ish
	// UA keeps the extraction rate usable.
	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Config describes how to build a Fetcher.
type Config struct {
	Timeout      time.Duration
	MaxPageBytes int64
	HTTPClient   *http.Client
	Logger       zerolog.Logger
}

// Fetcher downloads pages with a byte cap and a redirect cap.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
	logger   zerolog.Logger
}

// NewFetcher builds a Fetcher, filling unset limits with defaults.
func NewFetcher(cfg Config) *Fetcher {
	maxBytes := cfg.MaxPageBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxPageBytes
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultFetchTimeout
		}
		client = &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		}
	}
	return &Fetcher{client: client, maxBytes: maxBytes, logger: cfg.Logger}
}

// Page is one downloaded document, capped at the configured byte limit.
type Page struct {
	URL         string
	ContentType string
	Body        []byte
}

// IsHTML reports whether the page can be parsed as an HTML document.
func (p *Page) IsHTML() bool {
	return strings.Contains(p.ContentType, "text/html") ||
		strings.Contains(p.ContentType, "application/xhtml")
}

// IsPDF reports whether the page is a PDF document.
func (p *Page) IsPDF() bool {
	return strings.Contains(p.ContentType, "application/pdf")
}

// AllowedURL reports whether rawURL is something the service should fetch
// on a caller's behalf: http or https, and not obviously pointed at the
// host itself or a private network.
func AllowedURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" || host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return false
	}
	if strings.HasPrefix(host, "10.") || strings.HasPrefix(host, "192.168.") || strings.HasPrefix(host, "172.") {
		return false
	}
	return true
}

// Fetch downloads one page. Non-2xx statuses are errors; the body is read
// through a limit reader so a huge page cannot exhaust memory.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: HTTP %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	f.logger.Debug().Str("url", rawURL).Str("content_type", contentType).Int("bytes", len(body)).Msg("page fetched")

	return &Page{URL: rawURL, ContentType: contentType, Body: body}, nil
}
