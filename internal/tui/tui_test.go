package tui

import (
	"errors"
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/thucloud-downloader/internal/config"
	"github.com/handiism/thucloud-downloader/internal/download"
	"github.com/handiism/thucloud-downloader/internal/model"
)

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	return update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func TestNewModelUsesSettings(t *testing.T) {
	settings := config.DefaultSettings()
	settings.ExcludeExtensions = []string{"mkv", "mp4"}

	m := NewModel(settings, nil)
	assert.Equal(t, StateInput, m.state)
	assert.Equal(t, "mkv,mp4", m.extInput.Value())
	assert.Contains(t, m.View(), "Share link:")
}

func TestInputFocusAndEnter(t *testing.T) {
	m := NewModel(nil, nil)

	// enter with an empty link does nothing
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, StateInput, m.state)

	m = typeText(t, m, "https://cloud.tsinghua.edu.cn/d/abc/")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(t, m, "mp4")

	assert.Equal(t, "https://cloud.tsinghua.edu.cn/d/abc/", m.urlInput.Value())
	assert.Equal(t, "mp4", m.extInput.Value())

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})
	assert.True(t, m.verbose)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, StateInitializing, m.state)
	assert.NotNil(t, m.events)
	m.cancel()
}

func TestInitFailure(t *testing.T) {
	m := NewModel(nil, nil)
	m.state = StateInitializing

	m = update(t, m, InitDoneMsg{Err: errors.New("share page has no title")})
	assert.Equal(t, StateError, m.state)
	assert.Contains(t, m.View(), "share page has no title")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	assert.Equal(t, StateInput, m.state)
	assert.Nil(t, m.err)
}

func TestProgressMessages(t *testing.T) {
	m := NewModel(nil, nil)
	m.state = StateInitializing

	m = update(t, m, ProgressMsg{Event: download.ProgressEvent{Message: "Fetching share info", Level: download.LevelVerbose}})
	assert.Empty(t, m.logs)

	m = update(t, m, ProgressMsg{Event: download.ProgressEvent{Message: "Found 2 files (512.00B)", Level: download.LevelStatus}})
	m = update(t, m, ProgressMsg{Event: download.ProgressEvent{Message: "Found 3 files (1.00KB)", Level: download.LevelStatus}})
	assert.Empty(t, m.logs)
	assert.Equal(t, "Found 3 files (1.00KB)", m.status)
	assert.Contains(t, m.View(), "Found 3 files (1.00KB)")
	assert.NotContains(t, m.View(), "Found 2 files")

	for i := 0; i < maxLogs+5; i++ {
		m = update(t, m, ProgressMsg{Event: download.ProgressEvent{Message: fmt.Sprintf("event %d", i), Level: download.LevelInfo}})
	}
	require.Len(t, m.logs, maxLogs)
	assert.Equal(t, fmt.Sprintf("event %d", maxLogs+4), m.logs[maxLogs-1].Message)
}

func TestDownloadComplete(t *testing.T) {
	m := NewModel(nil, nil)
	m.state = StateDownloading
	m.share = model.ShareContext{ID: "abc", RootName: "Course"}
	m.totalFiles = 2

	report := &download.EngineReport{
		Outcomes: []download.TransferOutcome{
			{Entry: model.FileEntry{LocalPath: "Course/a.txt"}},
			{Entry: model.FileEntry{LocalPath: "Course/b.txt"}, Err: errors.New("boom")},
		},
		Succeeded: 1,
		Bytes:     2048,
	}
	m = update(t, m, DownloadDoneMsg{Report: report})

	assert.Equal(t, StateComplete, m.state)
	view := m.View()
	assert.Contains(t, view, "Download Complete!")
	assert.Contains(t, view, "Files: 1/2")
	assert.Contains(t, view, "Course/b.txt")
}

func TestRenderJobs(t *testing.T) {
	m := NewModel(nil, nil)
	for i := 0; i < maxJobBars+2; i++ {
		m.snapshot.Active = append(m.snapshot.Active, download.SlotState{
			Path:    fmt.Sprintf("Course/file-%d.bin", i),
			Size:    100,
			Written: 50,
		})
	}

	out := m.renderJobs()
	assert.Contains(t, out, "Course/file-0.bin")
	assert.NotContains(t, out, fmt.Sprintf("Course/file-%d.bin", maxJobBars))
	assert.Contains(t, out, "and 2 more")
}

func TestFraction(t *testing.T) {
	assert.Equal(t, 0.0, fraction(5, 0))
	assert.Equal(t, 0.5, fraction(5, 10))
	assert.Equal(t, 1.0, fraction(15, 10))
}
