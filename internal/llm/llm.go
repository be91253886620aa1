// Package llm wraps the language model calls behind sage's answer
// pipeline: deriving search keywords from a question, explaining the
// question against fetched source material, and compressing the
// explanation into a short summary.
package llm

import (
	"context"
	"errors"
	"net/http"
)

// DefaultModel is used when the configuration names no model.
const DefaultModel = "gpt-4o-mini"

// Client is implemented by anything that can run the three pipeline calls.
type Client interface {
	// Keywords derives a handful of web search keywords for the question.
	Keywords(ctx context.Context, question string) ([]string, error)
	// Explain answers the question as markdown, grounded in the corpus
	// text when one is given.
	Explain(ctx context.Context, question, corpus string) (string, error)
	// Summarize compresses a full explanation into a couple of sentences.
	Summarize(ctx context.Context, explanation string) (string, error)
	// Name identifies the provider and model for logs.
	Name() string
}

// Config holds provider settings.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	// HTTPClient overrides the SDK's default transport; tests point it at
	// a local server.
	HTTPClient *http.Client
}

// New builds the OpenAI-backed client.
func New(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm: api key not configured")
	}
	return newOpenAIClient(cfg), nil
}
