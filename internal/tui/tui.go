// Package tui provides a Bubble Tea terminal user interface for kona.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/handiism/kona-downloader/internal/app"
	"github.com/handiism/kona-downloader/internal/config"
	"github.com/handiism/kona-downloader/internal/model"
	"github.com/handiism/kona-downloader/internal/pipeline"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))
)

const (
	maxLogs  = 10
	nameCols = 28
)

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateDiscovering
	StateRunning
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   pipeline.ProgressLevel
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	settings  *config.Settings
	app       *app.App
	logs      []LogEntry
	entries   []model.Entry
	page      string
	links     int
	savedPath string
	err       error

	// Run context
	ctx    context.Context
	cancel context.CancelFunc
	parent context.Context

	events chan pipeline.ProgressEvent

	// Run progress
	downloadedFiles int32
	totalFiles      int32
	receivedBytes   int64

	verbose bool

	width  int
	height int
}

// NewModel creates a new TUI model. ctx carries the logger and bounds every
// run started from the UI.
func NewModel(ctx context.Context, settings *config.Settings) Model {
	ti := textinput.New()
	ti.Placeholder = "https://lms.example.edu/courses/42/files"
	ti.Focus()
	ti.CharLimit = 2000
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 30

	if settings == nil {
		settings = config.DefaultSettings()
	}

	events := make(chan pipeline.ProgressEvent, 64)
	a := app.New(settings, app.Options{
		OnProgress: func(e pipeline.ProgressEvent) {
			// Drop events rather than stall the run when the UI lags.
			select {
			case events <- e:
			default:
			}
		},
	})

	runCtx, cancel := context.WithCancel(ctx)

	return Model{
		state:     StateInput,
		textInput: ti,
		spinner:   sp,
		progress:  prog,
		settings:  settings,
		app:       a,
		logs:      make([]LogEntry, 0),
		ctx:       runCtx,
		cancel:    cancel,
		parent:    ctx,
		events:    events,
		verbose:   settings.Verbose,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// DiscoverDoneMsg is sent when link discovery completes.
	DiscoverDoneMsg struct {
		Links []model.Link
		Err   error
	}

	// RunDoneMsg is sent when the run has finished and the archive was saved.
	RunDoneMsg struct {
		Path string
		Err  error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = msg.Width - nameCols - 16
		if m.progress.Width > 50 {
			m.progress.Width = 50
		}
		if m.progress.Width < 10 {
			m.progress.Width = 10
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				return m, tea.Quit
			}
			if m.state == StateDiscovering || m.state == StateRunning {
				m.cancel()
			}

		case "enter":
			if m.state == StateInput && strings.TrimSpace(m.textInput.Value()) != "" {
				m.page = strings.TrimSpace(m.textInput.Value())
				return m.start()
			}

		case "tab":
			if m.state == StateInput {
				m.verbose = !m.verbose
				return m, nil
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if (m.state == StateComplete || m.state == StateError) && m.page != "" {
				return m.start()
			}

		case "n":
			if m.state == StateComplete || m.state == StateError {
				m.reset()
				m.state = StateInput
				m.textInput.SetValue("")
				m.textInput.Focus()
				return m, textinput.Blink
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case DiscoverDoneMsg:
		if m.state != StateDiscovering {
			return m, nil
		}
		if msg.Err != nil {
			m.fail(msg.Err)
			break
		}
		m.links = len(msg.Links)
		m.totalFiles = int32(len(msg.Links))
		m.state = StateRunning
		cmds = append(cmds, m.runDownload(msg.Links), m.tickProgress())

	case RunDoneMsg:
		m.refresh()
		if msg.Err != nil {
			m.fail(msg.Err)
			break
		}
		m.savedPath = msg.Path
		m.state = StateComplete

	case TickMsg:
		if m.state == StateRunning {
			m.refresh()
			cmds = append(cmds, m.tickProgress())
		}
	}

	// Update text input
	if m.state == StateInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// start begins a run for m.page.
func (m Model) start() (tea.Model, tea.Cmd) {
	m.reset()
	m.state = StateDiscovering
	m.textInput.Blur()
	return m, tea.Batch(m.discover(m.page), m.spinner.Tick)
}

func (m *Model) reset() {
	m.cancel()
	m.ctx, m.cancel = context.WithCancel(m.parent)
	m.logs = nil
	m.entries = nil
	m.err = nil
	m.links = 0
	m.savedPath = ""
	m.downloadedFiles = 0
	m.totalFiles = 0
	m.receivedBytes = 0
	m.drainEvents()
}

func (m *Model) fail(err error) {
	m.state = StateError
	m.err = err
}

// refresh pulls the latest run state from the manager.
func (m *Model) refresh() {
	m.drainEvents()
	m.entries = m.app.Manager.Tracker().Snapshot()
	m.receivedBytes, m.downloadedFiles, m.totalFiles = m.app.Manager.GetProgress()
}

func (m *Model) drainEvents() {
	for {
		select {
		case e := <-m.events:
			if e.Level == pipeline.LevelVerbose && !m.verbose {
				continue
			}
			m.logs = append(m.logs, LogEntry{Message: e.Message, Level: e.Level})
			if len(m.logs) > maxLogs {
				m.logs = m.logs[len(m.logs)-maxLogs:]
			}
		default:
			return
		}
	}
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// discover loads the page and finds its links.
func (m Model) discover(page string) tea.Cmd {
	ctx, a := m.ctx, m.app
	return func() tea.Msg {
		links, err := a.Discover(ctx, page, "")
		return DiscoverDoneMsg{Links: links, Err: err}
	}
}

// runDownload runs the pipeline in the background.
func (m Model) runDownload(links []model.Link) tea.Cmd {
	ctx, a := m.ctx, m.app
	return func() tea.Msg {
		path, err := a.Download(ctx, links)
		return RunDoneMsg{Path: path, Err: err}
	}
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	// Header
	b.WriteString(titleStyle.Render("📦 Kona Downloader"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Download every attachment of a page as one zip"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateDiscovering:
		b.WriteString(m.viewDiscovering())
	case StateRunning:
		b.WriteString(m.viewRunning())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	// Footer
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.helpText()))

	return b.String()
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Enter page URL or saved HTML file:"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	verboseCheck := "[ ]"
	if m.verbose {
		verboseCheck = "[×]"
	}

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s Verbose output (tab)\n", verboseCheck))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Save to: %s", m.settings.ArchivePath())))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewDiscovering() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Looking for files..."))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewRunning() string {
	var b strings.Builder

	b.WriteString(successStyle.Render(fmt.Sprintf("Found %d file(s)", m.links)))
	b.WriteString("\n\n")
	b.WriteString(m.renderEntries())
	b.WriteString("\n")

	b.WriteString(infoStyle.Render(fmt.Sprintf(
		"Files: %d/%d | Downloaded: %.2f MB",
		m.downloadedFiles,
		m.totalFiles,
		float64(m.receivedBytes)/1024/1024,
	)))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	var b strings.Builder

	box := boxStyle.Render(fmt.Sprintf(
		"✨ Download Complete!\n\n"+
			"Files: %d\n"+
			"Size: %.2f MB\n"+
			"Saved: %s",
		m.downloadedFiles,
		float64(m.receivedBytes)/1024/1024,
		m.savedPath,
	))
	b.WriteString(box)
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("Download failed: " + pipeline.UserMessage(m.err)))
	b.WriteString("\n\n")
	if m.err != nil && !errors.Is(m.err, context.Canceled) {
		b.WriteString(dimStyle.Render("  " + m.err.Error()))
		b.WriteString("\n\n")
	}

	// Entries keep their last state after a failure.
	b.WriteString(m.renderEntries())

	return b.String()
}

func (m Model) renderEntries() string {
	var b strings.Builder

	for _, e := range m.entries {
		if !e.Visible {
			continue
		}
		name := e.Name
		if len(name) > nameCols {
			name = name[:nameCols-1] + "…"
		}
		b.WriteString(nameStyle.Render(fmt.Sprintf("  %-*s ", nameCols, name)))
		b.WriteString(m.progress.ViewAs(float64(e.Percent) / 100))
		b.WriteString(" ")
		if e.Done {
			b.WriteString(successStyle.Render(e.Label()))
		} else {
			b.WriteString(dimStyle.Render(e.Label()))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case pipeline.LevelError:
			style = errorStyle
			prefix = "✗"
		case pipeline.LevelWarning:
			style = warningStyle
			prefix = "!"
		case pipeline.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case pipeline.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) helpText() string {
	switch m.state {
	case StateInput:
		return "enter: start • tab: verbose • esc: quit"
	case StateDiscovering, StateRunning:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: run again • n: new page • q: quit"
	}
	return ""
}

// Run starts the TUI application.
func Run(ctx context.Context, settings *config.Settings) error {
	p := tea.NewProgram(NewModel(ctx, settings), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
