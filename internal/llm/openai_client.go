package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type openAIClient struct {
	api   openai.Client
	model string
}

func newOpenAIClient(cfg Config) *openAIClient {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	return &openAIClient{api: openai.NewClient(opts...), model: model}
}

func (c *openAIClient) Name() string {
	return fmt.Sprintf("OpenAI (%s)", c.model)
}

func (c *openAIClient) Keywords(ctx context.Context, question string) ([]string, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("question cannot be empty")
	}
	raw, err := c.chat(ctx, systemPrompt, buildKeywordsPrompt(question))
	if err != nil {
		return nil, err
	}
	return parseKeywords(raw)
}

func (c *openAIClient) Explain(ctx context.Context, question, corpus string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("question cannot be empty")
	}
	return c.chat(ctx, systemPrompt, buildExplainPrompt(question, clipText(corpus, maxCorpusChars)))
}

func (c *openAIClient) Summarize(ctx context.Context, explanation string) (string, error) {
	if strings.TrimSpace(explanation) == "" {
		return "", fmt.Errorf("explanation empty; nothing to summarize")
	}
	return c.chat(ctx, systemPrompt, buildSummaryPrompt(clipText(explanation, maxExplanationChars)))
}

func (c *openAIClient) chat(ctx context.Context, system, user string) (string, error) {
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
