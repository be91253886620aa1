package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/sageterm/sage/internal/backend"
)

func askJob(client *backend.Client, turnID uuid.UUID, query string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, 2*time.Minute)
		defer cancel()
		answer, err := client.Ask(ctx, query)
		if err != nil {
			return answerMsg{turnID: turnID, err: err}, err
		}
		return answerMsg{turnID: turnID, answer: answer}, nil
	}
}

func previewsJob(client *backend.Client, turnID uuid.UUID, urls []string) jobRunner {
	toFetch := append([]string(nil), urls...)
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, 30*time.Second)
		defer cancel()
		results := client.FetchPreviews(ctx, toFetch)
		return previewsMsg{turnID: turnID, results: results}, nil
	}
}
