package tui

import (
	"github.com/google/uuid"

	"github.com/sageterm/sage/internal/backend"
)

// answerMsg reports the outcome of an ask job, tagged with the turn that
// started it so results for superseded turns can be dropped.
type answerMsg struct {
	turnID uuid.UUID
	answer *backend.Answer
	err    error
}

// previewsMsg carries the resolved preview set for one turn.
type previewsMsg struct {
	turnID  uuid.UUID
	results []backend.PreviewResult
}

const heroTagline = "Ask anything. Sage answers with sources."

const (
	minViewportWidth          = 40
	viewportHorizontalPadding = 4
	jobLogLimit               = 4
)

const composerPlaceholder = "What do you want to understand?"
