package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/sageterm/sage/internal/backend"
	"github.com/sageterm/sage/internal/turn"
)

func (m *model) View() string {
	m.refreshViewportIfDirty()
	parts := []string{
		m.heroView(),
		m.viewport.View(),
	}
	if busy := m.busyLine(); busy != "" {
		parts = append(parts, busy)
	}
	if m.errorMessage != "" {
		parts = append(parts, errorStyle.Render(m.errorMessage))
	}
	if m.infoMessage != "" {
		parts = append(parts, helperStyle.Render(m.infoMessage))
	}
	parts = append(parts, m.composerPanel(), m.footerView())
	if m.helpVisible {
		parts = append(parts, m.keyLegendView(), m.helpView())
	}
	return joinNonEmpty(parts)
}

func (m *model) busyLine() string {
	switch m.turn.Phase {
	case turn.PhaseAwaitingAnswer:
		return helperStyle.Render("Thinking") + m.dots.View()
	case turn.PhaseEnrichingPreviews:
		return helperStyle.Render("Fetching source previews") + m.dots.View()
	default:
		return ""
	}
}

func (m *model) heroView() string {
	logo := renderLogo()
	if m.turn.Query == "" {
		return lipgloss.JoinVertical(
			lipgloss.Left,
			logo,
			taglineStyle.Render(heroTagline),
		)
	}

	question := heroTitleStyle.Render(wordwrap.String(previewText(m.turn.Query, 120), 48))
	meta := []string{helperStyle.Render(phaseLabel(m.turn.Phase))}
	if total := len(m.turn.Previews); total > 0 {
		meta = append(meta, helperStyle.Render(fmt.Sprintf("Sources: %d of %d loaded", m.loadedPreviews(), total)))
	}
	content := strings.Join(append([]string{question}, meta...), "\n")
	box := heroBoxStyle.Render(content)
	panel := lipgloss.JoinHorizontal(lipgloss.Top, logo, heroQuestionStyle.Render(box))
	return lipgloss.JoinVertical(lipgloss.Left, panel, taglineStyle.Render(heroTagline))
}

func (m *model) composerPanel() string {
	return joinNonEmpty([]string{
		sectionHeaderStyle.Render("Ask"),
		m.composer.View(),
		helperStyle.Render("Enter: ask • Ctrl+R: reset • Ctrl+O: help • Esc: clear"),
	})
}

func (m *model) footerView() string {
	stats := []string{fmt.Sprintf("Phase %s", phaseLabel(m.turn.Phase))}
	if total := len(m.turn.Previews); total > 0 {
		stats = append(stats, fmt.Sprintf("Sources %d/%d", m.loadedPreviews(), total))
	}
	stats = append(stats, m.jobStatusBadges()...)
	return statusBarStyle.Render(strings.Join(stats, "  •  "))
}

func (m *model) jobStatusBadges() []string {
	badges := make([]string, 0, len(m.jobLog))
	for _, job := range m.jobLog {
		switch job.Status {
		case jobStatusRunning:
			badges = append(badges, fmt.Sprintf("%s running", job.Kind))
		case jobStatusFailed:
			badges = append(badges, fmt.Sprintf("%s failed", job.Kind))
		default:
			badges = append(badges, fmt.Sprintf("%s %s", job.Kind, job.Duration.Round(time.Millisecond)))
		}
	}
	return badges
}

func (m *model) loadedPreviews() int {
	count := 0
	for _, preview := range m.turn.Previews {
		if preview.Status == backend.StatusLoaded {
			count++
		}
	}
	return count
}

func phaseLabel(phase turn.Phase) string {
	switch phase {
	case turn.PhaseAwaitingAnswer:
		return "Awaiting answer"
	case turn.PhaseEnrichingPreviews:
		return "Enriching previews"
	case turn.PhaseSettled:
		return "Settled"
	default:
		return "Idle"
	}
}

func joinNonEmpty(parts []string) string {
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		filtered = append(filtered, part)
	}
	return strings.Join(filtered, "\n\n")
}

type keyHint struct {
	Key         string
	Description string
}

func (m *model) keyLegendView() string {
	hints := []keyHint{
		{"Enter", "Ask"},
		{"↑/↓", "Scroll"},
		{"PgUp/PgDn", "Page"},
		{"Esc", "Clear / close help"},
		{"Ctrl+R", "Reset session"},
		{"Ctrl+O", "Toggle help"},
		{"Ctrl+C", "Quit"},
		{"?", "Help (empty composer)"},
	}
	rows := []string{sectionHeaderStyle.Render("Key Cheatsheet")}
	const columns = 3
	for i := 0; i < len(hints); i += columns {
		end := i + columns
		if end > len(hints) {
			end = len(hints)
		}
		var cells []string
		for _, hint := range hints[i:end] {
			key := keyStyle.Render(hint.Key)
			desc := keyDescStyle.Render(" " + hint.Description)
			cells = append(cells, lipgloss.JoinHorizontal(lipgloss.Top, key, desc))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return legendBoxStyle.Render(strings.Join(rows, "\n"))
}

func (m *model) helpView() string {
	lines := []string{
		sectionHeaderStyle.Render("How It Works"),
		helperStyle.Render("• type a question and press Enter; Sage asks the backend and renders the answer above."),
		helperStyle.Render("• every source the answer cites gets a preview fetch; failed ones show as 'no preview available'."),
		helperStyle.Render("• scroll with ↑/↓ or PgUp/PgDn; the pane keeps your place while content arrives."),
		helperStyle.Render("• follow-up ideas appear under the answer once the turn settles."),
		helperStyle.Render("• Ctrl+R clears the session, Esc clears the composer or closes this help, Ctrl+C quits."),
	}
	return helpBoxStyle.Render(strings.Join(lines, "\n"))
}

func renderLogo() string {
	if len(logoArtLines) == 0 {
		return ""
	}
	width := 0
	lineRunes := make([][]rune, len(logoArtLines))
	for i, line := range logoArtLines {
		runes := []rune(line)
		lineRunes[i] = runes
		if len(runes) > width {
			width = len(runes)
		}
	}
	width += 1
	height := len(logoArtLines) + 1

	type cell struct {
		r     rune
		style lipgloss.Style
	}

	grid := make([][]cell, height)
	for i := range grid {
		grid[i] = make([]cell, width)
	}

	// shadow offset down/right, face drawn on top
	for y, runes := range lineRunes {
		for x, r := range runes {
			if r == ' ' {
				continue
			}
			if y+1 < height && x+1 < width {
				grid[y+1][x+1] = cell{r: r, style: logoShadowStyle}
			}
		}
	}

	for y, runes := range lineRunes {
		for x, r := range runes {
			if r == ' ' {
				continue
			}
			grid[y][x] = cell{r: r, style: logoFaceStyle}
		}
	}

	lines := make([]string, height)
	for y, row := range grid {
		var b strings.Builder
		for _, c := range row {
			if c.r == 0 {
				b.WriteRune(' ')
				continue
			}
			b.WriteString(c.style.Render(string(c.r)))
		}
		lines[y] = b.String()
	}
	return logoContainerStyle.Render(strings.Join(lines, "\n"))
}
