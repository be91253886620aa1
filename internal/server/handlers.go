package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/sageterm/sage/internal/corpus"
	"github.com/sageterm/sage/internal/search"
	"github.com/sageterm/sage/internal/webpage"
)

type chatRequest struct {
	InputMessage string `json:"input_message"`
}

type chatAnswer struct {
	Summary         string   `json:"summary"`
	FullExplanation string   `json:"full_explanation"`
	RelevantSources []string `json:"relevant_sources"`
}

type chatResponse struct {
	MyResponse chatAnswer `json:"my_response"`
}

type previewResponse struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// handleChat runs the full answer pipeline for one question: derive search
// keywords, find source pages, scrape them, then explain and summarize
// against the scraped corpus.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "body must be JSON with an input_message field")
		return
	}
	question := strings.TrimSpace(req.InputMessage)
	if question == "" {
		writeError(w, http.StatusBadRequest, "input_message must not be empty")
		return
	}

	ctx := r.Context()
	logger := s.logger.With().Str("question", clip(question, 80)).Logger()

	keywords, err := s.llm.Keywords(ctx, question)
	if err != nil {
		logger.Error().Err(err).Msg("keyword derivation failed")
		writeError(w, http.StatusBadGateway, "deriving search keywords failed")
		return
	}

	results, err := s.search.Search(ctx, strings.Join(keywords, " "), s.maxSources)
	if err != nil {
		logger.Error().Err(err).Msg("source search failed")
		writeError(w, http.StatusBadGateway, "searching for sources failed")
		return
	}

	sources, pages := s.scrapeSources(ctx, results)
	logger.Debug().
		Int("results", len(results)).
		Int("scraped", len(pages)).
		Msg("sources scraped")

	explanation, err := s.llm.Explain(ctx, question, s.corpus.Build(pages))
	if err != nil {
		logger.Error().Err(err).Msg("explanation failed")
		writeError(w, http.StatusBadGateway, "generating the explanation failed")
		return
	}
	summary, err := s.llm.Summarize(ctx, explanation)
	if err != nil {
		logger.Error().Err(err).Msg("summary failed")
		writeError(w, http.StatusBadGateway, "summarizing the explanation failed")
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{MyResponse: chatAnswer{
		Summary:         summary,
		FullExplanation: explanation,
		RelevantSources: sources,
	}})
}

// scrapeSources downloads every search result concurrently and extracts its
// readable text. A page that cannot be fetched or parsed is dropped; the
// survivors keep their search order. The same fan-out shape the client uses
// for previews: one goroutine per URL writing its own slot.
func (s *Server) scrapeSources(ctx context.Context, results []search.Result) ([]string, []corpus.Page) {
	scraped := make([]*corpus.Page, len(results))
	var wg sync.WaitGroup
	for i, result := range results {
		if !webpage.AllowedURL(result.URL) {
			s.logger.Debug().Str("url", result.URL).Msg("source skipped: url not allowed")
			continue
		}
		wg.Add(1)
		go func(i int, pageURL string) {
			defer wg.Done()
			fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
			defer cancel()
			page, err := s.fetcher.Fetch(fetchCtx, pageURL)
			if err != nil {
				s.logger.Debug().Str("url", pageURL).Err(err).Msg("source fetch failed")
				return
			}
			text, err := webpage.ExtractText(page)
			if err != nil {
				s.logger.Debug().Str("url", pageURL).Err(err).Msg("source text extraction failed")
				return
			}
			scraped[i] = &corpus.Page{URL: pageURL, Text: text}
		}(i, result.URL)
	}
	wg.Wait()

	sources := make([]string, 0, len(results))
	pages := make([]corpus.Page, 0, len(results))
	for _, page := range scraped {
		if page == nil {
			continue
		}
		sources = append(sources, page.URL)
		pages = append(pages, *page)
	}
	return sources, pages
}

// handlePreview fetches one cited source and returns its title and
// description. Failures are plain non-2xx statuses; the client renders a
// fallback for them.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		writeError(w, http.StatusBadRequest, "url query parameter is required")
		return
	}
	if !webpage.AllowedURL(target) {
		writeError(w, http.StatusBadRequest, "url is not fetchable")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.fetchTimeout)
	defer cancel()
	page, err := s.fetcher.Fetch(ctx, target)
	if err != nil {
		s.logger.Debug().Str("url", target).Err(err).Msg("preview fetch failed")
		writeError(w, http.StatusBadGateway, "fetching the page failed")
		return
	}
	if !page.IsHTML() {
		writeError(w, http.StatusBadGateway, "page is not html")
		return
	}

	preview := webpage.ExtractPreview(page)
	writeJSON(w, http.StatusOK, previewResponse{
		Title:       preview.Title,
		Description: preview.Description,
	})
}

func clip(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}
