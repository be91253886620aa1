// Package server implements the saged HTTP service: the /chat answer
// pipeline (keywords → web search → scrape → explain → summarize) and the
// /preview endpoint the client fans out against.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/sageterm/sage/internal/corpus"
	"github.com/sageterm/sage/internal/llm"
	"github.com/sageterm/sage/internal/search"
	"github.com/sageterm/sage/internal/webpage"
)

// Searcher finds candidate source pages for a keyword query.
type Searcher interface {
	Search(ctx context.Context, query string, max int) ([]search.Result, error)
}

// PageFetcher downloads one page.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*webpage.Page, error)
}

// Deps are the collaborators a Server needs. LLM, Search, and Fetcher are
// required; the rest default sensibly.
type Deps struct {
	LLM     llm.Client
	Search  Searcher
	Fetcher PageFetcher
	Corpus  *corpus.Builder
	// MaxSources caps how many search results /chat scrapes. Zero means 5.
	MaxSources int
	// FetchTimeout bounds each page download. Zero means 5s.
	FetchTimeout time.Duration
	Logger       zerolog.Logger
}

// Server routes the two public endpoints onto the answer pipeline.
type Server struct {
	llm          llm.Client
	search       Searcher
	fetcher      PageFetcher
	corpus       *corpus.Builder
	maxSources   int
	fetchTimeout time.Duration
	logger       zerolog.Logger
}

// New wires a Server from its dependencies.
func New(deps Deps) *Server {
	maxSources := deps.MaxSources
	if maxSources <= 0 {
		maxSources = 5
	}
	fetchTimeout := deps.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = 5 * time.Second
	}
	builder := deps.Corpus
	if builder == nil {
		builder = corpus.NewBuilder(0, nil)
	}
	return &Server{
		llm:          deps.LLM,
		search:       deps.Search,
		fetcher:      deps.Fetcher,
		corpus:       builder,
		maxSources:   maxSources,
		fetchTimeout: fetchTimeout,
		logger:       deps.Logger,
	}
}

// Handler builds the chi router with the service middleware stack.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))
	r.Use(allowAllCORS)

	r.Get("/", s.handleRoot)
	r.Get("/healthz", s.handleHealthz)
	r.Post("/chat", s.handleChat)
	r.Get("/preview", s.handlePreview)
	return r
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "what's up!"})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
