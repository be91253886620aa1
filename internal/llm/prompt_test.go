package llm

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseKeywords(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "bare array",
			raw:  `["large language model","transformer"]`,
			want: []string{"large language model", "transformer"},
		},
		{
			name: "fenced array",
			raw:  "Here you go:\n```json\n[\"llm basics\", \"attention\"]\n```",
			want: []string{"llm basics", "attention"},
		},
		{
			name: "wrapper object",
			raw:  `{"keywords": ["neural network", "gpt"]}`,
			want: []string{"neural network", "gpt"},
		},
		{
			name: "dedupes and trims",
			raw:  `[" llm ", "llm", "", "LLM", "tokens"]`,
			want: []string{"llm", "tokens"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseKeywords(tc.raw)
			if err != nil {
				t.Fatalf("parseKeywords: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestParseKeywordsCapsCount(t *testing.T) {
	got, err := parseKeywords(`["a1","a2","a3","a4","a5","a6","a7","a8"]`)
	if err != nil {
		t.Fatalf("parseKeywords: %v", err)
	}
	if len(got) != maxKeywords {
		t.Fatalf("got %d keywords, want %d", len(got), maxKeywords)
	}
}

func TestParseKeywordsRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "no json here", `{"other": true}`, `[]`} {
		if _, err := parseKeywords(raw); err == nil {
			t.Errorf("parseKeywords(%q) succeeded, want error", raw)
		}
	}
}

func TestBuildExplainPromptWithCorpus(t *testing.T) {
	prompt := buildExplainPrompt("What is attention?", "[Source 1] https://example.com\n\nAttention weighs tokens.")
	if !strings.Contains(prompt, "Sourced material:") {
		t.Fatalf("prompt missing corpus section:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Attention weighs tokens.") {
		t.Fatalf("prompt missing corpus text:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Question: What is attention?") {
		t.Fatalf("prompt missing question:\n%s", prompt)
	}
}

func TestBuildExplainPromptWithoutCorpus(t *testing.T) {
	prompt := buildExplainPrompt("What is attention?", "")
	if strings.Contains(prompt, "Sourced material:") {
		t.Fatalf("prompt should not carry an empty corpus section:\n%s", prompt)
	}
	if !strings.Contains(prompt, "general knowledge") {
		t.Fatalf("prompt should flag the missing sources:\n%s", prompt)
	}
}

func TestClipText(t *testing.T) {
	if got := clipText("  hello  ", 100); got != "hello" {
		t.Fatalf("clipText trims, got %q", got)
	}
	long := strings.Repeat("é", 50)
	if got := clipText(long, 10); len([]rune(got)) != 10 {
		t.Fatalf("clipText rune clip, got %d runes", len([]rune(got)))
	}
	if got := clipText("short", 0); got != "short" {
		t.Fatalf("limit 0 disables clipping, got %q", got)
	}
}
