// Package tui provides a Bubble Tea terminal user interface for thucloud-downloader.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/handiism/thucloud-downloader/internal/config"
	"github.com/handiism/thucloud-downloader/internal/download"
	"github.com/handiism/thucloud-downloader/internal/model"
	"github.com/handiism/thucloud-downloader/internal/units"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#A5307E")).
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

	shareStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))
)

const (
	maxLogs     = 10
	maxJobBars  = 5
	jobBarWidth = 24
	jobNameSize = 36
	eventBuffer = 256
)

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateInitializing
	StateDownloading
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state    State
	urlInput textinput.Model
	extInput textinput.Model
	focus    int
	spinner  spinner.Model
	progress progress.Model
	jobBar   progress.Model
	settings *config.Settings
	log      *slog.Logger
	logs     []LogEntry
	status   string
	err      error

	// Download context
	ctx    context.Context
	cancel context.CancelFunc

	// Download manager reference
	manager *download.Manager
	events  chan download.ProgressEvent
	share   model.ShareContext

	// Download progress
	snapshot   download.Snapshot
	totalFiles int
	report     *download.EngineReport

	// Options
	verbose bool

	width  int
	height int
}

// NewModel creates a new TUI model.
func NewModel(settings *config.Settings, log *slog.Logger) Model {
	if settings == nil {
		settings = config.DefaultSettings()
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	urlInput := textinput.New()
	urlInput.Placeholder = "https://cloud.tsinghua.edu.cn/d/0123456789abcdef0123/"
	urlInput.Focus()
	urlInput.CharLimit = 500
	urlInput.Width = 60

	extInput := textinput.New()
	extInput.Placeholder = "mp4,mkv"
	extInput.CharLimit = 200
	extInput.Width = 60
	extInput.SetValue(strings.Join(settings.ExcludeExtensions, ","))

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#A5307E"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	jobBar := progress.New(progress.WithSolidFill("#4ECDC4"), progress.WithWidth(jobBarWidth))

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:    StateInput,
		urlInput: urlInput,
		extInput: extInput,
		spinner:  sp,
		progress: prog,
		jobBar:   jobBar,
		settings: settings,
		log:      log,
		logs:     make([]LogEntry, 0),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// ProgressMsg is sent when download progress updates.
	ProgressMsg struct {
		Event download.ProgressEvent
	}

	// InitDoneMsg is sent when initialization completes.
	InitDoneMsg struct {
		Share   model.ShareContext
		Files   int
		Manager *download.Manager
		Err     error
	}

	// DownloadDoneMsg is sent when all downloads complete.
	DownloadDoneMsg struct {
		Report *download.EngineReport
		Err    error
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
		m.progress.Width = msg.Width - 20
		if m.progress.Width > 80 {
			m.progress.Width = 80
		}
		if m.progress.Width < 20 {
			m.progress.Width = 20
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
			if m.state == StateDownloading || m.state == StateInitializing {
				m.cancel()
				m.state = StateError
				m.err = errors.New("cancelled by user")
			}

		case "tab", "shift+tab":
			if m.state == StateInput {
				m.toggleFocus()
				return m, nil
			}

		case "ctrl+o":
			if m.state == StateInput {
				m.verbose = !m.verbose
				return m, nil
			}

		case "enter":
			if m.state == StateInput && strings.TrimSpace(m.urlInput.Value()) != "" {
				m.state = StateInitializing
				m.events = make(chan download.ProgressEvent, eventBuffer)
				return m, tea.Batch(m.initializeDownload(), m.listenEvents(), m.spinner.Tick)
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				// Reset for new download
				m.cancel()
				m.state = StateInput
				m.logs = nil
				m.status = ""
				m.err = nil
				m.snapshot = download.Snapshot{}
				m.totalFiles = 0
				m.report = nil
				m.manager = nil
				m.events = nil
				m.share = model.ShareContext{}
				m.ctx, m.cancel = context.WithCancel(context.Background())
				m.urlInput.SetValue("")
				m.focus = 1
				m.toggleFocus()
				return m, nil
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		cmds = append(cmds, m.listenEvents())
		if msg.Event.Level == download.LevelStatus {
			m.status = msg.Event.Message
			break
		}
		// Filter verbose messages if not in verbose mode
		if msg.Event.Level == download.LevelVerbose && !m.verbose {
			break
		}
		m.logs = append(m.logs, LogEntry{
			Message: msg.Event.Message,
			Level:   msg.Event.Level,
		})
		if len(m.logs) > maxLogs {
			m.logs = m.logs[len(m.logs)-maxLogs:]
		}

	case InitDoneMsg:
		if m.state != StateInitializing {
			break
		}
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
		} else {
			m.share = msg.Share
			m.totalFiles = msg.Files
			m.manager = msg.Manager
			m.state = StateDownloading
			// Start the actual download and tick for progress updates
			cmds = append(cmds, m.startDownload(), m.tickProgress())
		}

	case DownloadDoneMsg:
		if m.manager != nil {
			m.snapshot = m.manager.Snapshot()
		}
		m.report = msg.Report
		switch {
		case m.ctx.Err() != nil:
			m.state = StateError
			m.err = errors.New("cancelled by user")
		case msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
		default:
			m.state = StateComplete
		}

	case TickMsg:
		// Update progress from manager
		if m.manager != nil && m.state == StateDownloading {
			m.snapshot = m.manager.Snapshot()
			progressCmd := m.progress.SetPercent(fraction(m.snapshot.Aggregate, m.snapshot.Total))
			cmds = append(cmds, progressCmd, m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	// Update text inputs
	if m.state == StateInput {
		var cmd tea.Cmd
		if m.focus == 0 {
			m.urlInput, cmd = m.urlInput.Update(msg)
		} else {
			m.extInput, cmd = m.extInput.Update(msg)
		}
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) toggleFocus() {
	if m.focus == 0 {
		m.focus = 1
		m.urlInput.Blur()
		m.extInput.Focus()
		return
	}
	m.focus = 0
	m.extInput.Blur()
	m.urlInput.Focus()
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// listenEvents waits for the next manager event.
func (m Model) listenEvents() tea.Cmd {
	events := m.events
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return nil
		}
		return ProgressMsg{Event: event}
	}
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	// Header
	b.WriteString(titleStyle.Render("Tsinghua Cloud Downloader"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Download shared folders from cloud.tsinghua.edu.cn"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateInitializing:
		b.WriteString(m.viewInitializing())
	case StateDownloading:
		b.WriteString(m.viewDownloading())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	// Footer
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Share link:"))
	b.WriteString("\n")
	b.WriteString(m.urlInput.View())
	b.WriteString("\n\n")
	b.WriteString(subtitleStyle.Render("Skip extensions (comma-separated):"))
	b.WriteString("\n")
	b.WriteString(m.extInput.View())
	b.WriteString("\n\n")

	verboseCheck := "[ ]"
	if m.verbose {
		verboseCheck = "[×]"
	}

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s Verbose/debug output (ctrl+o)\n", verboseCheck))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Download path: %s | Workers: %d", m.settings.DownloadsPath, m.settings.MaxConcurrentDownloads)))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewInitializing() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Listing shared folder..."))
	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(dimStyle.Render("  " + m.status))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	// Show logs
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewDownloading() string {
	var b strings.Builder

	b.WriteString(shareStyle.Render(fmt.Sprintf("%s (%d files)", m.share.RootName, m.totalFiles)))
	b.WriteString("\n\n")

	// Aggregate progress bar
	b.WriteString(m.progress.View())
	b.WriteString("\n")

	b.WriteString(infoStyle.Render(fmt.Sprintf(
		"Files: %d/%d | Downloaded: %s of %s",
		m.snapshot.Finished+m.snapshot.Failed,
		m.totalFiles,
		units.FormatSize(m.snapshot.Aggregate),
		units.FormatSize(m.snapshot.Total),
	)))
	b.WriteString("\n\n")

	// Per-job bars
	b.WriteString(m.renderJobs())
	b.WriteString("\n")

	// Logs
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) renderJobs() string {
	var b strings.Builder

	for i, job := range m.snapshot.Active {
		if i == maxJobBars {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  … and %d more", len(m.snapshot.Active)-maxJobBars)))
			b.WriteString("\n")
			break
		}
		name := runewidth.Truncate(job.Path, jobNameSize, "…")
		name = runewidth.FillRight(name, jobNameSize)
		b.WriteString(fmt.Sprintf("  %s %s %s\n",
			dimStyle.Render(name),
			m.jobBar.ViewAs(fraction(job.Written, job.Size)),
			units.FormatSize(job.Written),
		))
	}

	return b.String()
}

func (m Model) viewComplete() string {
	var b strings.Builder

	var summary string
	if m.report != nil {
		summary = fmt.Sprintf(
			"Download Complete!\n\n"+
				"Folder: %s\n"+
				"Files: %d/%d\n"+
				"Size: %s\n"+
				"Time: %s",
			m.share.RootName,
			m.report.Succeeded,
			len(m.report.Outcomes),
			units.FormatSize(m.report.Bytes),
			m.report.Duration.Round(time.Millisecond),
		)
	}
	b.WriteString(boxStyle.Render(summary))
	b.WriteString("\n")

	if m.report != nil {
		if failed := m.report.Failed(); len(failed) > 0 {
			b.WriteString("\n")
			b.WriteString(errorStyle.Render(fmt.Sprintf("%d files failed, re-run to retry them:", len(failed))))
			b.WriteString("\n")
			for i, o := range failed {
				if i == maxLogs {
					b.WriteString(dimStyle.Render(fmt.Sprintf("  … and %d more", len(failed)-maxLogs)))
					b.WriteString("\n")
					break
				}
				b.WriteString(fmt.Sprintf("  %s\n", o.Entry.LocalPath))
			}
		}
	}

	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case download.LevelError:
			style = errorStyle
			prefix = "✗"
		case download.LevelWarning:
			style = warningStyle
			prefix = "!"
		case download.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case download.LevelInfo:
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

func (m Model) getHelpText() string {
	switch m.state {
	case StateInput:
		return "enter: start • tab: switch field • ctrl+o: verbose • esc: quit"
	case StateInitializing, StateDownloading:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: new download • q: quit"
	}
	return ""
}

// initializeDownload resolves the share, lists it and creates the manager.
func (m *Model) initializeDownload() tea.Cmd {
	input := strings.TrimSpace(m.urlInput.Value())
	settings := *m.settings
	settings.ExcludeExtensions = model.ParseExtensionList(m.extInput.Value()).Slice()
	ctx := m.ctx
	events := m.events
	log := m.log

	return func() tea.Msg {
		manager := download.NewManager(&settings, log, func(event download.ProgressEvent) {
			select {
			case events <- event:
			default:
				// dropped while the UI is behind
			}
		})

		if err := manager.Initialize(ctx, input); err != nil {
			return InitDoneMsg{Err: err}
		}

		return InitDoneMsg{
			Share:   manager.Share(),
			Files:   manager.Manifest().Len(),
			Manager: manager,
		}
	}
}

// startDownload starts the actual download in background.
func (m *Model) startDownload() tea.Cmd {
	manager := m.manager
	ctx := m.ctx

	return func() tea.Msg {
		if manager == nil {
			return DownloadDoneMsg{Err: errors.New("no manager")}
		}

		report, err := manager.StartDownloads(ctx)
		return DownloadDoneMsg{Report: report, Err: err}
	}
}

func fraction(done, total int64) float64 {
	if total <= 0 {
		return 0
	}
	f := float64(done) / float64(total)
	if f > 1 {
		return 1
	}
	return f
}

// Run starts the TUI application.
func Run(settings *config.Settings, log *slog.Logger) error {
	p := tea.NewProgram(NewModel(settings, log), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
