package tui

import (
	"fmt"
	"strings"

	"github.com/muesli/reflow/wordwrap"

	"github.com/sageterm/sage/internal/backend"
	"github.com/sageterm/sage/internal/mdterm"
	"github.com/sageterm/sage/internal/turn"
)

type pageLayout struct {
	windowWidth    int
	windowHeight   int
	viewportWidth  int
	viewportHeight int
	composerWidth  int
}

func newPageLayout() pageLayout {
	return pageLayout{
		viewportWidth:  80,
		viewportHeight: 20,
		composerWidth:  70,
	}
}

func (l *pageLayout) Update(width, height int) {
	l.windowWidth = width
	l.windowHeight = height
	innerWidth := width - viewportHorizontalPadding
	if innerWidth < minViewportWidth {
		innerWidth = minViewportWidth
	}
	l.viewportWidth = innerWidth
	l.composerWidth = innerWidth - 4
	if l.composerWidth < 20 {
		l.composerWidth = 20
	}
	// Everything around the viewport: hero block, separators, status line,
	// composer panel, footer.
	const chrome = 16
	usable := height - chrome
	if usable < 8 {
		usable = 8
	}
	l.viewportHeight = usable
}

type contentBuilder struct {
	builder strings.Builder
	lines   int
}

func (cb *contentBuilder) WriteString(s string) {
	cb.builder.WriteString(s)
	cb.lines += strings.Count(s, "\n")
}

func (cb *contentBuilder) WriteRune(r rune) {
	cb.builder.WriteRune(r)
	if r == '\n' {
		cb.lines++
	}
}

func (cb *contentBuilder) String() string {
	return cb.builder.String()
}

func (cb *contentBuilder) Line() int {
	return cb.lines
}

// buildTurnContent renders the current turn into the viewport body and
// reports the line count for scroll clamping.
func (m *model) buildTurnContent() (string, int) {
	cb := &contentBuilder{}
	wrap := m.wrapWidth(4)

	if m.turn.Phase == turn.PhaseIdle {
		cb.WriteString(sectionHeaderStyle.Render("Ask Anything"))
		cb.WriteRune('\n')
		cb.WriteString(helperStyle.Render("Type a question below and press Enter."))
		cb.WriteRune('\n')
		cb.WriteString(helperStyle.Render("Sage asks the backend, then fetches a preview for every source it cites."))
		cb.WriteRune('\n')
		return cb.String(), cb.Line()
	}

	cb.WriteString(sectionHeaderStyle.Render("Question"))
	cb.WriteRune('\n')
	cb.WriteString(indentMultiline(wordwrap.String(m.turn.Query, wrap), "  "))
	cb.WriteRune('\n')

	if m.turn.Phase == turn.PhaseAwaitingAnswer {
		return cb.String(), cb.Line()
	}

	if m.turn.Err != nil {
		cb.WriteRune('\n')
		cb.WriteString(errorStyle.Render("The answer request failed."))
		cb.WriteRune('\n')
		cb.WriteString(indentMultiline(wordwrap.String(m.turn.Err.Error(), wrap), "  "))
		cb.WriteRune('\n')
	}

	if m.turn.Answer != nil {
		cb.WriteRune('\n')
		cb.WriteString(sectionHeaderStyle.Render("Summary"))
		cb.WriteRune('\n')
		cb.WriteString(indentMultiline(wordwrap.String(m.turn.Answer.Summary, wrap), "  "))
		cb.WriteRune('\n')

		if strings.TrimSpace(m.turn.Answer.FullExplanation) != "" {
			cb.WriteRune('\n')
			cb.WriteString(sectionHeaderStyle.Render("Explanation"))
			cb.WriteRune('\n')
			cb.WriteString(mdterm.Render(m.turn.Answer.FullExplanation, wrap))
			cb.WriteRune('\n')
		}
	}

	if len(m.turn.Previews) > 0 {
		cb.WriteRune('\n')
		cb.WriteString(sectionHeaderStyle.Render("Sources"))
		cb.WriteRune('\n')
		for idx, preview := range m.turn.Previews {
			m.writeSource(cb, idx+1, preview, wrap)
		}
	}

	if len(m.followups) > 0 {
		cb.WriteRune('\n')
		cb.WriteString(sectionHeaderStyle.Render("Where To Go Next"))
		cb.WriteRune('\n')
		for _, suggestion := range m.followups {
			cb.WriteString(" • ")
			cb.WriteString(suggestion.Title)
			cb.WriteRune('\n')
			cb.WriteString(helperStyle.Render(indentMultiline(wordwrap.String(suggestion.Description, wrap), "   ")))
			cb.WriteRune('\n')
		}
	}

	return cb.String(), cb.Line()
}

func (m *model) writeSource(cb *contentBuilder, index int, preview backend.PreviewResult, wrap int) {
	cb.WriteString(fmt.Sprintf(" %d) %s", index, preview.DisplayTitle()))
	cb.WriteRune('\n')
	switch preview.Status {
	case backend.StatusPending:
		cb.WriteString(helperStyle.Render("     fetching preview" + m.dots.View()))
		cb.WriteRune('\n')
	case backend.StatusLoaded:
		if preview.Description != "" {
			cb.WriteString(indentMultiline(wordwrap.String(preview.Description, wrap), "     "))
			cb.WriteRune('\n')
		}
		if preview.Title != "" {
			cb.WriteString(helperStyle.Render("     ↳ " + preview.URL))
			cb.WriteRune('\n')
		}
	case backend.StatusFailed:
		cb.WriteString(helperStyle.Render("     no preview available"))
		cb.WriteRune('\n')
	}
}

func indentMultiline(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

func (m *model) wrapWidth(padding int) int {
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}
	if padding < 0 {
		padding = 0
	}
	available := width - padding
	if available < 20 {
		available = 20
	}
	return available
}

func previewText(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}
