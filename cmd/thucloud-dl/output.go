package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"

	"github.com/handiism/thucloud-downloader/internal/download"
	"github.com/handiism/thucloud-downloader/internal/model"
	"github.com/handiism/thucloud-downloader/internal/units"
)

const (
	refreshInterval = 200 * time.Millisecond
	barWidth        = 30
	nameWidth       = 40
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#A5307E"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#95E1A3"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFE66D"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#A8DADC"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C757D"))
)

// printer writes progress events and, on a terminal, a live progress line.
type printer struct {
	w       io.Writer
	verbose bool
	tty     bool

	mu       sync.Mutex
	lineOpen bool
}

func newPrinter(w io.Writer, verbose bool) *printer {
	return &printer{w: w, verbose: verbose, tty: isTerminal(w)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *printer) style(s lipgloss.Style, text string) string {
	if !p.tty {
		return text
	}
	return s.Render(text)
}

func (p *printer) header() {
	fmt.Fprintln(p.w, p.style(titleStyle, "Tsinghua Cloud Downloader"))
	fmt.Fprintln(p.w, strings.Repeat("━", 40))
	fmt.Fprintln(p.w)
}

func (p *printer) event(event download.ProgressEvent) {
	if event.Level == download.LevelStatus {
		p.status(event.Message)
		return
	}
	if event.Level == download.LevelVerbose && !p.verbose {
		return
	}

	var line string
	switch event.Level {
	case download.LevelError:
		line = p.style(errorStyle, "✗ "+event.Message)
	case download.LevelWarning:
		line = p.style(warningStyle, "! "+event.Message)
	case download.LevelSuccess:
		line = p.style(successStyle, "✓ "+event.Message)
	case download.LevelInfo:
		line = p.style(infoStyle, "› "+event.Message)
	default:
		line = p.style(dimStyle, "  "+event.Message)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearLine()
	fmt.Fprintln(p.w, line)
}

// status replaces the live line with message on a terminal. Elsewhere it
// is printed as a plain line in verbose mode only.
func (p *printer) status(message string) {
	if !p.tty {
		if p.verbose {
			fmt.Fprintln(p.w, "  "+message)
		}
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprint(p.w, "\r\033[K"+dimStyle.Render("  "+message))
	p.lineOpen = true
}

func (p *printer) manifest(m *model.Manifest) {
	fmt.Fprintf(p.w, "\n%s\n", p.style(titleStyle, m.Root))
	for _, f := range m.Files {
		fmt.Fprintf(p.w, "  %-10s %s\n", units.FormatSize(f.Size), f.LocalPath)
	}
	fmt.Fprintf(p.w, "\n%d files in %d folders, %s\n", m.Len(), len(m.Dirs), units.FormatSize(m.TotalSize()))
}

func (p *printer) summary(report *download.EngineReport, manager *download.Manager, cancelled bool) {
	received, total, filesReceived, filesTotal := manager.GetProgress()
	failed := report.Failed()

	headline := "Complete!"
	switch {
	case cancelled:
		headline = "Cancelled."
	case len(failed) > 0:
		headline = "Finished with errors."
	}

	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, strings.Repeat("━", 40))
	fmt.Fprintf(p.w, "%s Downloaded %d/%d files (%s) in %s\n",
		headline, filesReceived, filesTotal, units.FormatSize(received), report.Duration.Round(time.Millisecond))
	if total > 0 && received < total {
		fmt.Fprintf(p.w, "   (%s expected)\n", units.FormatSize(total))
	}

	if len(failed) == 0 {
		return
	}
	fmt.Fprintln(p.w, p.style(errorStyle, fmt.Sprintf("%d files failed, re-run to retry them:", len(failed))))
	for _, o := range failed {
		fmt.Fprintf(p.w, "  %s: %v\n", o.Entry.LocalPath, o.Err)
	}
}

// progress draws the aggregate progress line until the returned func is
// called. It does nothing unless the output is a terminal.
func (p *printer) progress(manager *download.Manager) (stop func()) {
	if !p.tty {
		return func() {}
	}

	bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth))
	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p.drawLine(bar, manager.Snapshot())
			}
		}
	}()

	return func() {
		close(done)
		<-finished
		p.mu.Lock()
		p.clearLine()
		p.mu.Unlock()
	}
}

func (p *printer) drawLine(bar progress.Model, snap download.Snapshot) {
	line := fmt.Sprintf("%s %s/%s  %d done",
		bar.ViewAs(percent(snap.Aggregate, snap.Total)),
		units.FormatSize(snap.Aggregate),
		units.FormatSize(snap.Total),
		snap.Finished+snap.Failed,
	)
	if len(snap.Active) > 0 {
		line += "  " + dimStyle.Render(truncateName(snap.Active[0].Path, nameWidth))
		if more := len(snap.Active) - 1; more > 0 {
			line += dimStyle.Render(fmt.Sprintf(" +%d", more))
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprint(p.w, "\r\033[K"+line)
	p.lineOpen = true
}

// clearLine erases the progress line. The caller holds p.mu.
func (p *printer) clearLine() {
	if p.lineOpen {
		fmt.Fprint(p.w, "\r\033[K")
		p.lineOpen = false
	}
}

func percent(done, total int64) float64 {
	if total <= 0 {
		return 0
	}
	f := float64(done) / float64(total)
	if f > 1 {
		return 1
	}
	return f
}

// truncateName shortens name to width terminal cells, keeping its end.
func truncateName(name string, width int) string {
	if runewidth.StringWidth(name) <= width {
		return name
	}
	runes := []rune(name)
	w := 1 // the ellipsis
	i := len(runes)
	for i > 0 {
		rw := runewidth.RuneWidth(runes[i-1])
		if w+rw > width {
			break
		}
		w += rw
		i--
	}
	return "…" + string(runes[i:])
}
