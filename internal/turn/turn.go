// Package turn models a single question-and-answer exchange as an explicit
// state machine. Every transition takes a State value and returns a fresh
// one; nothing here performs IO, so the whole lifecycle is testable without
// a backend.
package turn

import (
	"strings"

	"github.com/google/uuid"

	"github.com/sageterm/sage/internal/backend"
)

// Phase is where a turn currently sits in its lifecycle.
type Phase string

const (
	// PhaseIdle means no query has been submitted yet, or the state was reset.
	PhaseIdle Phase = "idle"
	// PhaseAwaitingAnswer means the answer request is in flight.
	PhaseAwaitingAnswer Phase = "awaiting_answer"
	// PhaseEnrichingPreviews means the answer arrived and source previews
	// are being resolved.
	PhaseEnrichingPreviews Phase = "enriching_previews"
	// PhaseSettled means the turn finished, successfully or not, and a new
	// query may be submitted.
	PhaseSettled Phase = "settled"
)

// State is the complete description of one turn. It is replaced wholesale
// on every transition; callers never mutate it in place.
type State struct {
	// ID distinguishes this turn from earlier ones so results that arrive
	// late can be recognised and dropped.
	ID       uuid.UUID
	Phase    Phase
	Query    string
	Answer   *backend.Answer
	Previews []backend.PreviewResult
	// Err records why the turn settled without an answer.
	Err error
}

// NewState returns the idle state a session starts in.
func NewState() State {
	return State{Phase: PhaseIdle}
}

// Busy reports whether a request is outstanding. While busy, submissions
// are rejected rather than cancelling the in-flight work.
func (s State) Busy() bool {
	return s.Phase == PhaseAwaitingAnswer || s.Phase == PhaseEnrichingPreviews
}

// Submit starts a new turn for query. It reports false, returning the
// state unchanged, when the query is blank or a turn is already running.
func (s State) Submit(query string) (State, bool) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" || s.Busy() {
		return s, false
	}
	return State{
		ID:    uuid.New(),
		Phase: PhaseAwaitingAnswer,
		Query: trimmed,
	}, true
}

// ApplyAnswer records the backend answer for the turn identified by id.
// With sources to enrich, the turn moves to PhaseEnrichingPreviews and the
// previews are seeded in source order as pending placeholders; without
// any, it settles immediately. Results for a different turn, or arriving
// in the wrong phase, are ignored.
func (s State) ApplyAnswer(id uuid.UUID, answer *backend.Answer) (State, bool) {
	if s.Phase != PhaseAwaitingAnswer || s.ID != id || answer == nil {
		return s, false
	}
	next := s
	next.Answer = answer
	if len(answer.Sources) == 0 {
		next.Phase = PhaseSettled
		next.Previews = []backend.PreviewResult{}
		return next, true
	}
	next.Phase = PhaseEnrichingPreviews
	next.Previews = backend.PendingPreviews(answer.Sources)
	return next, true
}

// ApplyAnswerFailure settles the turn identified by id with err and no
// answer. Stale or out-of-phase failures are ignored.
func (s State) ApplyAnswerFailure(id uuid.UUID, err error) (State, bool) {
	if s.Phase != PhaseAwaitingAnswer || s.ID != id {
		return s, false
	}
	next := s
	next.Phase = PhaseSettled
	next.Err = err
	next.Previews = []backend.PreviewResult{}
	return next, true
}

// ApplyPreviews settles the turn identified by id with the resolved
// preview set. The results replace the pending placeholders wholesale.
func (s State) ApplyPreviews(id uuid.UUID, results []backend.PreviewResult) (State, bool) {
	if s.Phase != PhaseEnrichingPreviews || s.ID != id {
		return s, false
	}
	next := s
	next.Phase = PhaseSettled
	next.Previews = results
	return next, true
}

// Reset abandons whatever is on screen and returns to the idle state.
func (s State) Reset() State {
	return NewState()
}
