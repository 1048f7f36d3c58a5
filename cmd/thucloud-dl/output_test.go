package main

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"

	"github.com/handiism/thucloud-downloader/internal/config"
	"github.com/handiism/thucloud-downloader/internal/download"
)

func TestPrinterStatusOnTerminal(t *testing.T) {
	var buf bytes.Buffer
	p := &printer{w: &buf, tty: true}

	p.event(download.ProgressEvent{Message: "Found 1 files (10.00B)", Level: download.LevelStatus})
	p.event(download.ProgressEvent{Message: "Found 2 files (20.00B)", Level: download.LevelStatus})
	assert.True(t, p.lineOpen)
	assert.Contains(t, buf.String(), "\r\033[K")
	assert.Contains(t, buf.String(), "Found 2 files (20.00B)")
	assert.NotContains(t, buf.String(), "\n")

	p.event(download.ProgressEvent{Message: "Found 2 files in 1 folders", Level: download.LevelInfo})
	assert.False(t, p.lineOpen)
	assert.Contains(t, buf.String(), "Found 2 files in 1 folders\n")
}

func TestPrinterStatusOffTerminal(t *testing.T) {
	var quiet, verbose bytes.Buffer

	newPrinter(&quiet, false).event(download.ProgressEvent{Message: "Found 1 files (10.00B)", Level: download.LevelStatus})
	assert.Empty(t, quiet.String())

	newPrinter(&verbose, true).event(download.ProgressEvent{Message: "Found 1 files (10.00B)", Level: download.LevelStatus})
	assert.Equal(t, "  Found 1 files (10.00B)\n", verbose.String())
}

func TestSummaryCancelled(t *testing.T) {
	var buf bytes.Buffer
	manager := download.NewManagerFs(config.DefaultSettings(), afero.NewMemMapFs(), nil, nil)

	newPrinter(&buf, false).summary(&download.EngineReport{}, manager, true)
	assert.Contains(t, buf.String(), "Cancelled. Downloaded 0/0 files")
	assert.NotContains(t, buf.String(), "Complete!")
}
