package followup

import (
	"fmt"
	"strings"
)

// Suggestion is one follow-up action offered once a turn settles.
type Suggestion struct {
	Title       string
	Description string
}

// Metadata carries just enough about the settled turn to personalize the
// suggestions.
type Metadata struct {
	Query         string
	SourceCount   int
	FailedSources int
	Errored       bool
}

// Build returns the follow-up prompts shown under a settled answer.
func Build(meta Metadata) []Suggestion {
	displayQuery := strings.TrimSpace(meta.Query)
	if displayQuery == "" {
		displayQuery = "your question"
	}

	if meta.Errored {
		return []Suggestion{
			{
				Title:       "Check the backend",
				Description: "The answer service did not respond. Make sure it is running and reachable at the configured address, then submit again.",
			},
			{
				Title:       "Ask again",
				Description: fmt.Sprintf("Nothing was kept from the failed attempt, so resubmitting %q starts a clean turn.", displayQuery),
			},
		}
	}

	suggestions := []Suggestion{
		{
			Title:       "Go deeper",
			Description: fmt.Sprintf("Ask how or why the key claim holds, or request a concrete example for %q.", displayQuery),
		},
		{
			Title:       "Stress the answer",
			Description: "Ask for limitations, counterexamples, or the conditions under which the explanation stops applying.",
		},
	}

	if meta.SourceCount > 0 {
		desc := fmt.Sprintf("The answer cites %d source(s); open the ones whose previews look relevant before trusting a detail.", meta.SourceCount)
		if meta.FailedSources > 0 {
			desc += fmt.Sprintf(" %d of them did not resolve to a preview, so judge those by their URL.", meta.FailedSources)
		}
		suggestions = append(suggestions, Suggestion{Title: "Chase the sources", Description: desc})
	}

	suggestions = append(suggestions, Suggestion{
		Title:       "Reframe it",
		Description: "Rephrase the question at a different level: simpler terms for an overview, or narrower scope for specifics.",
	})
	return suggestions
}
