package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/sageterm/sage/internal/backend"
	"github.com/sageterm/sage/internal/tui"
)

const defaultBackendURL = "http://localhost:8000"

func main() {
	backendURL := flag.String("backend", "", "base URL of the answer backend (default $SAGE_BACKEND or "+defaultBackendURL+")")
	noAltScreen := flag.Bool("no-alt-screen", false, "disable the alternate screen buffer")
	debugLog := flag.String("debug-log", "", "append debug logs to this file")
	flag.Parse()

	base := *backendURL
	if base == "" {
		base = os.Getenv("SAGE_BACKEND")
	}
	if base == "" {
		base = defaultBackendURL
	}

	// Logs stay off unless routed to a file; writing to stderr would garble
	// the display.
	logger := zerolog.Nop()
	if *debugLog != "" {
		logFile, err := os.OpenFile(*debugLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Println("failed to open debug log:", err)
			os.Exit(1)
		}
		defer logFile.Close()
		logger = zerolog.New(logFile).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	}

	client := backend.New(backend.Config{
		BaseURL: base,
		Logger:  logger.With().Str("component", "backend").Logger(),
	})

	opts := []tea.ProgramOption{}
	if !*noAltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	program := tea.NewProgram(
		tui.New(tui.Config{
			Backend: client,
			Logger:  logger,
		}),
		opts...,
	)

	if _, err := program.Run(); err != nil {
		fmt.Println("program error:", err)
		os.Exit(1)
	}
}
