package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/sageterm/sage/internal/backend"
	"github.com/sageterm/sage/internal/followup"
	"github.com/sageterm/sage/internal/turn"
)

// Config wires runtime options into the TUI program.
type Config struct {
	Backend *backend.Client
	Logger  zerolog.Logger
}

// New returns a tea.Model ready to be mounted into a Program.
func New(config Config) tea.Model {
	composer := textinput.New()
	composer.Placeholder = composerPlaceholder
	composer.Focus()
	composer.CharLimit = 400
	composer.Width = 70

	vp := viewport.New(80, 20)
	vp.MouseWheelEnabled = true

	return &model{
		config:        config,
		turn:          turn.NewState(),
		composer:      composer,
		dots:          newDotsSpinner(),
		viewport:      vp,
		layout:        newPageLayout(),
		jobs:          newJobBus(config.Logger),
		viewportDirty: true,
		infoMessage:   "Ask anything to begin.",
	}
}

// newDotsSpinner returns the trailing-dots loader parked on its empty frame.
// Swapping in a fresh one restarts the cycle, and ticks addressed to the old
// loader are dropped by their ID.
func newDotsSpinner() spinner.Model {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{"", ".", "..", "..."},
		FPS:    500 * time.Millisecond,
	}
	s.Style = dotsStyle
	return s
}

type model struct {
	config Config

	turn     turn.State
	composer textinput.Model
	dots     spinner.Model
	viewport viewport.Model
	layout   pageLayout

	followups []followup.Suggestion

	viewportContent string
	lineCount       int
	viewportDirty   bool

	infoMessage  string
	errorMessage string
	helpVisible  bool

	jobs   *jobBus
	jobLog []jobSnapshot
}

func (m *model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.turn.Busy() {
			var cmd tea.Cmd
			m.dots, cmd = m.dots.Update(msg)
			if m.turn.Phase == turn.PhaseEnrichingPreviews {
				// pending source rows render the dots inside the viewport
				m.markViewportDirty()
			}
			return m, cmd
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		m.layout.Update(msg.Width, msg.Height)
		m.viewport.Width = m.layout.viewportWidth
		m.viewport.Height = m.layout.viewportHeight
		m.composer.Width = m.layout.composerWidth
		m.markViewportDirty()
		return m, nil
	case jobSignalMsg:
		m.recordJob(msg.Snapshot)
		return m, nil
	case jobResultEnvelope:
		m.recordJob(msg.Snapshot)
		if msg.Payload != nil {
			return m.Update(msg.Payload)
		}
		return m, nil
	case answerMsg:
		return m.handleAnswer(msg)
	case previewsMsg:
		return m.handlePreviews(msg)
	}
	return m, nil
}

func (m *model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		if m.helpVisible {
			m.helpVisible = false
			m.infoMessage = "Help hidden."
			return m, nil
		}
		m.composer.SetValue("")
		return m, nil
	case tea.KeyEnter:
		return m.submitComposer()
	case tea.KeyCtrlR:
		return m.resetTurn()
	case tea.KeyCtrlO:
		return m.toggleHelp()
	case tea.KeyUp, tea.KeyDown, tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(key)
		return m, cmd
	}
	if key.String() == "?" && strings.TrimSpace(m.composer.Value()) == "" {
		return m.toggleHelp()
	}
	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(key)
	return m, cmd
}

func (m *model) submitComposer() (tea.Model, tea.Cmd) {
	next, ok := m.turn.Submit(m.composer.Value())
	if !ok {
		if m.turn.Busy() {
			m.infoMessage = "Still working on the current question…"
		} else {
			m.infoMessage = "Type a question first."
		}
		return m, nil
	}
	m.turn = next
	m.composer.SetValue("")
	m.followups = nil
	m.errorMessage = ""
	m.infoMessage = "Asking the backend…"
	m.helpVisible = false
	m.dots = newDotsSpinner()
	m.viewport.SetYOffset(0)
	m.markViewportDirty()
	return m, tea.Batch(
		m.dots.Tick,
		m.jobs.Start(jobKindAsk, askJob(m.config.Backend, m.turn.ID, m.turn.Query)),
	)
}

func (m *model) handleAnswer(msg answerMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		next, ok := m.turn.ApplyAnswerFailure(msg.turnID, msg.err)
		if !ok {
			return m, nil
		}
		m.turn = next
		m.dots = newDotsSpinner()
		m.errorMessage = msg.err.Error()
		m.infoMessage = "The backend did not answer. Ctrl+R clears the session."
		m.followups = m.buildFollowups()
		m.markViewportDirty()
		return m, nil
	}

	next, ok := m.turn.ApplyAnswer(msg.turnID, msg.answer)
	if !ok {
		return m, nil
	}
	m.turn = next
	m.errorMessage = ""
	m.markViewportDirty()
	if m.turn.Phase == turn.PhaseEnrichingPreviews {
		m.infoMessage = "Answer received. Fetching source previews…"
		urls := append([]string(nil), m.turn.Answer.Sources...)
		return m, m.jobs.Start(jobKindPreviews, previewsJob(m.config.Backend, m.turn.ID, urls))
	}
	m.dots = newDotsSpinner()
	m.infoMessage = "Answered without sources."
	m.followups = m.buildFollowups()
	return m, nil
}

func (m *model) handlePreviews(msg previewsMsg) (tea.Model, tea.Cmd) {
	next, ok := m.turn.ApplyPreviews(msg.turnID, msg.results)
	if !ok {
		return m, nil
	}
	m.turn = next
	m.dots = newDotsSpinner()
	m.infoMessage = "Answer ready."
	m.followups = m.buildFollowups()
	m.markViewportDirty()
	return m, nil
}

func (m *model) resetTurn() (tea.Model, tea.Cmd) {
	m.turn = m.turn.Reset()
	m.dots = newDotsSpinner()
	m.followups = nil
	m.errorMessage = ""
	m.infoMessage = "Session cleared. Ask anything."
	m.composer.SetValue("")
	m.helpVisible = false
	m.viewport.SetYOffset(0)
	m.markViewportDirty()
	return m, nil
}

func (m *model) toggleHelp() (tea.Model, tea.Cmd) {
	m.helpVisible = !m.helpVisible
	if m.helpVisible {
		m.infoMessage = "Help open. Press Ctrl+O to hide."
	} else {
		m.infoMessage = "Help hidden."
	}
	return m, nil
}

func (m *model) buildFollowups() []followup.Suggestion {
	failed := 0
	for _, preview := range m.turn.Previews {
		if preview.Status == backend.StatusFailed {
			failed++
		}
	}
	return followup.Build(followup.Metadata{
		Query:         m.turn.Query,
		SourceCount:   len(m.turn.Previews),
		FailedSources: failed,
		Errored:       m.turn.Err != nil,
	})
}

func (m *model) recordJob(snapshot jobSnapshot) {
	for i := range m.jobLog {
		if m.jobLog[i].ID == snapshot.ID {
			m.jobLog[i] = snapshot
			return
		}
	}
	m.jobLog = append(m.jobLog, snapshot)
	if len(m.jobLog) > jobLogLimit {
		m.jobLog = m.jobLog[len(m.jobLog)-jobLogLimit:]
	}
}

func (m *model) markViewportDirty() {
	m.viewportDirty = true
}

func (m *model) refreshViewportIfDirty() {
	if m.viewportDirty {
		m.refreshViewport()
	}
}

func (m *model) refreshViewport() {
	m.viewportDirty = false
	prevYOffset := m.viewport.YOffset
	content, lines := m.buildTurnContent()
	m.viewportContent = content
	m.lineCount = lines
	m.viewport.SetContent(content)
	m.viewport.SetYOffset(m.clampYOffset(prevYOffset))
}

func (m *model) clampYOffset(offset int) int {
	maxOffset := m.lineCount - m.viewport.Height
	if m.viewport.Height <= 0 {
		maxOffset = m.lineCount - 1
	}
	if maxOffset < 0 {
		maxOffset = 0
	}
	if offset < 0 {
		return 0
	}
	if offset > maxOffset {
		return maxOffset
	}
	return offset
}

var (
	sectionHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("114"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helperStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	heroAccentColor        = lipgloss.Color("#7fb069")
	heroMossColor          = lipgloss.Color("#10210f")
	heroTextColor          = lipgloss.Color("#eef7e9")
	heroSecondaryTextColor = lipgloss.Color("#a7c957")

	heroTitleStyle     = lipgloss.NewStyle().Bold(true).Foreground(heroAccentColor)
	heroBoxStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(heroAccentColor).Foreground(heroTextColor).Background(heroMossColor).Padding(1, 2)
	heroQuestionStyle  = lipgloss.NewStyle().PaddingLeft(2)
	taglineStyle       = lipgloss.NewStyle().Foreground(heroSecondaryTextColor).Italic(true)
	statusBarStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#a7c957")).Padding(0, 1)
	keyStyle           = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#d4e09b")).Padding(0, 1)
	keyDescStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0e4dd"))
	legendBoxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#556b52")).Padding(1, 2)
	helpBoxStyle       = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color("#588157")).Padding(1, 2)
	dotsStyle          = lipgloss.NewStyle().Bold(true).Foreground(heroAccentColor)
	logoFaceStyle      = lipgloss.NewStyle().Bold(true).Foreground(heroTextColor).Background(heroMossColor)
	logoShadowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#04100a"))
	logoContainerStyle = lipgloss.NewStyle().Padding(0, 1)
	logoArtLines       = []string{
		"███████╗   █████╗    ██████╗   ███████╗",
		"██╔════╝  ██╔══██╗  ██╔════╝   ██╔════╝",
		"███████╗  ███████║  ██║  ███╗  █████╗  ",
		"╚════██║  ██╔══██║  ██║   ██║  ██╔══╝  ",
		"███████║  ██║  ██║  ╚██████╔╝  ███████╗",
		"╚══════╝  ╚═╝  ╚═╝   ╚═════╝   ╚══════╝",
	}
)
