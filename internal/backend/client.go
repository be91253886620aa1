// Package backend is the HTTP client for the sage answer service: the
// single-shot answer request and the per-source preview fan-out.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultHTTPTimeout = 60 * time.Second

// Config describes how to build a backend client.
type Config struct {
	// BaseURL is the backend origin, eg. http://localhost:8000.
	BaseURL    string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client talks to the answer and preview endpoints.
type Client struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// New builds a Client for the given backend origin.
func New(cfg Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  pickHTTPClient(cfg.HTTPClient),
		logger:  cfg.Logger,
	}
}

func pickHTTPClient(custom *http.Client) *http.Client {
	if custom != nil {
		return custom
	}
	// The answer endpoint runs an LLM pipeline; allow generous
	// server-side time and rely on the caller's context beyond that.
	return &http.Client{Timeout: defaultHTTPTimeout}
}

// Answer is the parsed result of one answer request.
type Answer struct {
	Summary         string
	FullExplanation string
	Sources         []string
}

// RequestError reports a failed answer request: transport errors, non-2xx
// statuses, and undecodable bodies all land here.
type RequestError struct {
	Op     string
	Status int
	Err    error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Op, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Ask submits the query to the answer endpoint and parses the structured
// response. Exactly one outbound call, no retries: any failure is returned
// as a *RequestError for the caller to surface.
func (c *Client) Ask(ctx context.Context, query string) (*Answer, error) {
	payload := struct {
		InputMessage string `json:"input_message"`
	}{InputMessage: query}
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, &RequestError{Op: "chat", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(buf))
	if err != nil {
		return nil, &RequestError{Op: "chat", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &RequestError{Op: "chat", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &RequestError{
			Op:     "chat",
			Status: resp.StatusCode,
			Err:    fmt.Errorf("backend returned %s (%s)", resp.Status, strings.TrimSpace(string(body))),
		}
	}

	var parsed struct {
		MyResponse struct {
			Summary         string   `json:"summary"`
			FullExplanation string   `json:"full_explanation"`
			RelevantSources []string `json:"relevant_sources"`
		} `json:"my_response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &RequestError{Op: "chat", Err: fmt.Errorf("decode response: %w", err)}
	}

	answer := &Answer{
		Summary:         strings.TrimSpace(parsed.MyResponse.Summary),
		FullExplanation: parsed.MyResponse.FullExplanation,
		Sources:         parsed.MyResponse.RelevantSources,
	}
	c.logger.Debug().Int("sources", len(answer.Sources)).Msg("answer received")
	return answer, nil
}
