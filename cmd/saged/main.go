package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/sageterm/sage/internal/corpus"
	"github.com/sageterm/sage/internal/llm"
	"github.com/sageterm/sage/internal/search"
	"github.com/sageterm/sage/internal/server"
	"github.com/sageterm/sage/internal/webpage"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	debug := flag.Bool("debug", false, "log at debug level")
	flag.Parse()

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath); err != nil {
		logger.Error().Err(err).Msg("saged failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, logger zerolog.Logger, configPath string) error {
	cfg, err := server.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.OpenAI.APIKey == "" {
		return errors.New("an OpenAI API key is required: set SAGED_OPENAI_API_KEY or openai.api_key in the config file")
	}

	llmClient, err := llm.New(llm.Config{
		APIKey:  cfg.OpenAI.APIKey,
		Model:   cfg.OpenAI.Model,
		BaseURL: cfg.OpenAI.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("llm: %w", err)
	}

	var counter corpus.TokenCounter
	if tk, err := corpus.NewTiktokenCounter(cfg.OpenAI.Model); err != nil {
		logger.Warn().Err(err).Msg("tokenizer unavailable, using the approximate counter")
	} else {
		counter = tk
	}

	srv := server.New(server.Deps{
		LLM: llmClient,
		Search: search.New(search.Config{
			BaseURL: cfg.Search.BaseURL,
			Logger:  logger.With().Str("component", "search").Logger(),
		}),
		Fetcher: webpage.NewFetcher(webpage.Config{
			Timeout:      cfg.Fetch.Timeout,
			MaxPageBytes: cfg.Fetch.MaxPageBytes,
			Logger:       logger.With().Str("component", "fetch").Logger(),
		}),
		Corpus:       corpus.NewBuilder(cfg.Corpus.TokenBudget, counter),
		MaxSources:   cfg.Search.MaxSources,
		FetchTimeout: cfg.Fetch.Timeout,
		Logger:       logger,
	})

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// /chat holds the connection through several model calls plus the
		// scrape fan-out, so the write timeout is generous.
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Listen).Str("model", llmClient.Name()).Msg("saged listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info().Msg("stopped")
	return nil
}
