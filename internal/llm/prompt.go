package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Character clipping keeps prompts comfortably inside the model's context
// window even when the corpus builder is configured generously.
const (
	maxCorpusChars      = 48_000
	maxExplanationChars = 24_000
	maxKeywords         = 6
)

const systemPrompt = "You are a patient tutor. You explain concepts simply and accurately, " +
	"grounding your answers in the source material you are given."

var whitespaceRe = regexp.MustCompile(`\s+`)

func clipText(text string, limit int) string {
	text = strings.TrimSpace(text)
	if limit <= 0 || len(text) <= limit {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

func buildKeywordsPrompt(question string) string {
	return "Derive web search keywords that would surface good reference pages for answering the question below.\n" +
		fmt.Sprintf("Return ONLY a JSON array of 2 to %d short keyword strings, such as [\"keyword one\",\"keyword two\"].\n\n", maxKeywords) +
		"Question: " + strings.TrimSpace(question)
}

func buildExplainPrompt(question, corpus string) string {
	var b strings.Builder
	b.WriteString("Answer the question below with a thorough explanation in markdown.\n")
	b.WriteString("Use short paragraphs, headings where they help, and examples where they clarify.\n")
	if corpus != "" {
		b.WriteString("Ground the explanation in the sourced material; when the material is silent, say so and fall back on general knowledge.\n\n")
		b.WriteString("Sourced material:\n")
		b.WriteString(corpus)
		b.WriteString("\n\n")
	} else {
		b.WriteString("No source material was found, so answer from general knowledge.\n\n")
	}
	b.WriteString("Question: " + strings.TrimSpace(question))
	return b.String()
}

func buildSummaryPrompt(explanation string) string {
	return "Condense the explanation below into at most two plain sentences. " +
		"No markdown, no preamble, just the gist.\n\n" +
		"Explanation:\n" + explanation
}

// parseKeywords accepts the model's keyword payload with some slack: a bare
// JSON array, an array buried in prose or a code fence, or a {"keywords":[]}
// wrapper object.
func parseKeywords(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty keywords response")
	}

	candidates := []string{raw}
	if start := strings.Index(raw, "["); start >= 0 {
		if end := strings.LastIndex(raw, "]"); end > start {
			candidates = append(candidates, raw[start:end+1])
		}
	}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			candidates = append(candidates, raw[start:end+1])
		}
	}

	for _, candidate := range candidates {
		var arr []string
		if err := json.Unmarshal([]byte(candidate), &arr); err == nil {
			if clean := sanitizeKeywords(arr); len(clean) > 0 {
				return clean, nil
			}
			continue
		}
		var wrapper struct {
			Keywords []string `json:"keywords"`
		}
		if err := json.Unmarshal([]byte(candidate), &wrapper); err == nil {
			if clean := sanitizeKeywords(wrapper.Keywords); len(clean) > 0 {
				return clean, nil
			}
		}
	}
	return nil, fmt.Errorf("unable to parse keywords payload")
}

func sanitizeKeywords(items []string) []string {
	var cleaned []string
	seen := map[string]bool{}
	for _, item := range items {
		item = whitespaceRe.ReplaceAllString(strings.TrimSpace(item), " ")
		if item == "" || seen[strings.ToLower(item)] {
			continue
		}
		seen[strings.ToLower(item)] = true
		cleaned = append(cleaned, item)
		if len(cleaned) == maxKeywords {
			break
		}
	}
	return cleaned
}
