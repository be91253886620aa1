// Package corpus assembles the text of fetched source pages into a single
// attributed block for the explanation prompt: paragraphs are cleaned of
// web boilerplate, deduplicated across pages, and clipped to a token
// budget.
package corpus

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Page is the extracted text of one fetched source.
type Page struct {
	URL  string
	Text string
}

// TokenCounter reports how many model tokens a piece of text costs.
type TokenCounter interface {
	Count(text string) int
}

// CounterFunc adapts a plain function to the TokenCounter interface.
type CounterFunc func(text string) int

// Count calls f.
func (f CounterFunc) Count(text string) int { return f(text) }

// DefaultTokenBudget bounds the corpus when no budget is configured.
const DefaultTokenBudget = 6000

// Builder cleans and clips page text into a prompt-ready corpus.
type Builder struct {
	budget  int
	counter TokenCounter
}

var paragraphSplit = regexp.MustCompile(`\n{2,}`)

// NewBuilder returns a Builder with the given token budget. A nil counter
// falls back to the usual four-characters-per-token estimate.
func NewBuilder(budget int, counter TokenCounter) *Builder {
	if budget <= 0 {
		budget = DefaultTokenBudget
	}
	if counter == nil {
		counter = CounterFunc(approximateTokens)
	}
	return &Builder{budget: budget, counter: counter}
}

// Build emits the corpus: every contributing page gets a numbered source
// header followed by its surviving paragraphs. Blocks are added whole until
// the next one would overflow the budget. Separator overhead between blocks
// is not counted; the budget is a soft bound backed by hard prompt clipping
// downstream.
func (b *Builder) Build(pages []Page) string {
	seen := map[string]bool{}
	var blocks []string
	remaining := b.budget
	source := 0

	appendBlock := func(block string) bool {
		cost := b.counter.Count(block)
		if cost > remaining {
			return false
		}
		blocks = append(blocks, block)
		remaining -= cost
		return true
	}

	for _, page := range pages {
		paragraphs := cleanParagraphs(page.Text, seen)
		if len(paragraphs) == 0 {
			continue
		}
		source++
		if !appendBlock(fmt.Sprintf("[Source %d] %s", source, page.URL)) {
			source--
			break
		}
		for _, paragraph := range paragraphs {
			if !appendBlock(paragraph) {
				break
			}
		}
	}
	return strings.Join(blocks, "\n\n")
}

func cleanParagraphs(text string, seen map[string]bool) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var kept []string
	for _, paragraph := range paragraphSplit.Split(text, -1) {
		trimmed := strings.TrimSpace(paragraph)
		if trimmed == "" || isBoilerplate(trimmed) {
			continue
		}
		hash := hashParagraph(canonicalParagraph(trimmed))
		if seen[hash] {
			continue
		}
		seen[hash] = true
		kept = append(kept, trimmed)
	}
	return kept
}

var whitespaceSanity = regexp.MustCompile(`\s+`)

func canonicalParagraph(text string) string {
	return strings.ToLower(whitespaceSanity.ReplaceAllString(strings.TrimSpace(text), " "))
}

func hashParagraph(text string) string {
	sum := sha1.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// isBoilerplate flags the paragraph cruft scraped web pages carry: consent
// banners, subscription prompts, navigation labels, and legal footers.
func isBoilerplate(paragraph string) bool {
	lower := strings.ToLower(strings.TrimSpace(paragraph))
	if lower == "" {
		return true
	}
	switch {
	case strings.Contains(lower, "cookie"):
		return true
	case strings.Contains(lower, "subscribe"):
		return true
	case strings.Contains(lower, "newsletter"):
		return true
	case strings.Contains(lower, "sign in"), strings.Contains(lower, "log in"):
		return true
	case strings.Contains(lower, "javascript"):
		return true
	case strings.Contains(lower, "advertisement"):
		return true
	case strings.Contains(lower, "all rights reserved"):
		return true
	case strings.Contains(lower, "privacy policy"), strings.Contains(lower, "terms of service"):
		return true
	}
	if len(lower) <= 12 && !strings.Contains(lower, " ") {
		return true
	}
	alpha := 0
	for _, r := range lower {
		if unicode.IsLetter(r) {
			alpha++
		}
	}
	return alpha*5 < len(lower)
}

func approximateTokens(text string) int {
	return (len([]rune(text)) + 3) / 4
}
