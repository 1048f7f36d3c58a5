package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/handiism/thucloud-downloader/internal/config"
	"github.com/handiism/thucloud-downloader/internal/http"
	"github.com/handiism/thucloud-downloader/internal/model"
	"github.com/handiism/thucloud-downloader/internal/thucloud"
	"github.com/handiism/thucloud-downloader/internal/units"
)

// ErrNotInitialized is returned when downloads start before Initialize.
var ErrNotInitialized = errors.New("download: manager not initialized")

var bareShareID = regexp.MustCompile(`^[0-9A-Za-z]+$`)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess

	// LevelStatus carries a running total that replaces the previous one.
	LevelStatus
)

// ProgressEvent represents a download progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// Manager coordinates one share download: resolve the share, discover its
// tree, then run the engine over the manifest.
type Manager struct {
	settings   *config.Settings
	httpClient *http.Client
	discoverer *thucloud.Discoverer
	engine     *Engine
	fs         afero.Fs
	log        *slog.Logger

	mu       sync.RWMutex
	share    model.ShareContext
	manifest *model.Manifest

	onProgress func(ProgressEvent)
}

// NewManager creates a new download Manager.
//
// Files are written below settings.DownloadsPath on the OS filesystem.
func NewManager(settings *config.Settings, log *slog.Logger, onProgress func(ProgressEvent)) *Manager {
	fs := afero.NewOsFs()
	if settings.DownloadsPath != "" && settings.DownloadsPath != "." {
		fs = afero.NewBasePathFs(fs, settings.DownloadsPath)
	}
	return NewManagerFs(settings, fs, log, onProgress)
}

// NewManagerFs creates a Manager writing to fs instead of DownloadsPath.
func NewManagerFs(settings *config.Settings, fs afero.Fs, log *slog.Logger, onProgress func(ProgressEvent)) *Manager {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	client := http.NewClient(settings.ToHTTPOptions(log))
	m := &Manager{
		settings:   settings,
		httpClient: client,
		discoverer: thucloud.NewDiscoverer(client, log),
		fs:         fs,
		log:        log.With(slog.String("item", "Manager")),
		onProgress: onProgress,
	}
	m.engine = NewEngine(client, fs, EngineOptions{
		MaxWorkers: settings.MaxConcurrentDownloads,
		ChunkSize:  settings.ChunkSize,
		JobTimeout: settings.JobTimeoutDuration(),
		OnOutcome:  m.reportOutcome,
	}, log)

	return m
}

// Initialize resolves the share behind input and discovers its files.
//
// input is a share link, or a bare share ID looked up on settings.BaseURL.
// Errors are *thucloud.ConfigurationError or *thucloud.DiscoveryError.
func (m *Manager) Initialize(ctx context.Context, input string) error {
	shareURL := m.shareURL(input)

	m.progress(ProgressEvent{Message: fmt.Sprintf("Fetching share info: %s", shareURL), Level: LevelVerbose})
	share, err := thucloud.Resolve(ctx, m.httpClient, shareURL)
	if err != nil {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error resolving %s: %v", shareURL, err), Level: LevelError})
		return err
	}
	m.progress(ProgressEvent{Message: fmt.Sprintf("Found share: %s (%s)", share.RootName, share.ID), Level: LevelInfo})

	manifest, err := m.discoverer.Discover(ctx, share, thucloud.DiscoverOptions{
		Exclude:  m.settings.Exclusions(),
		MaxDepth: m.settings.MaxDepth,
		OnProgress: func(p thucloud.DiscoveryProgress) {
			m.progress(ProgressEvent{
				Message: fmt.Sprintf("Found %d files (%s)", p.Files, units.FormatSize(p.Bytes)),
				Level:   LevelStatus,
			})
		},
	})
	if err != nil {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error listing %s: %v", share.RootName, err), Level: LevelError})
		return err
	}

	m.mu.Lock()
	m.share = share
	m.manifest = manifest
	m.mu.Unlock()

	m.progress(ProgressEvent{
		Message: fmt.Sprintf("Found %d files in %d folders, %s in total", manifest.Len(), len(manifest.Dirs), units.FormatSize(manifest.TotalSize())),
		Level:   LevelInfo,
	})
	return nil
}

// StartDownloads downloads every file of the initialized manifest.
//
// The error covers setup only (no manifest, directory creation). Failed
// transfers are listed by EngineReport.Failed.
func (m *Manager) StartDownloads(ctx context.Context) (*EngineReport, error) {
	manifest := m.Manifest()
	if manifest == nil {
		return nil, ErrNotInitialized
	}

	report, err := m.engine.Run(ctx, manifest)
	if err != nil {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error creating directories: %v", err), Level: LevelError})
		return nil, err
	}

	if failed := len(report.Failed()); failed == 0 {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Successfully downloaded %s: %s", manifest.Root, report), Level: LevelSuccess})
	} else {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Finished %s, %d files failed: %s", manifest.Root, failed, report), Level: LevelWarning})
	}

	return report, nil
}

// GetProgress returns current download progress.
func (m *Manager) GetProgress() (received, total int64, filesReceived, filesTotal int32) {
	tracker := m.engine.Tracker()
	if tracker == nil {
		if manifest := m.Manifest(); manifest != nil {
			return 0, manifest.TotalSize(), 0, int32(manifest.Len())
		}
		return 0, 0, 0, 0
	}

	snap := tracker.Snapshot()
	if manifest := m.Manifest(); manifest != nil {
		filesTotal = int32(manifest.Len())
	}
	return snap.Aggregate, snap.Total, int32(snap.Finished), filesTotal
}

// Snapshot returns the tracker state of the current run. It is the zero
// Snapshot before downloads start.
func (m *Manager) Snapshot() Snapshot {
	tracker := m.engine.Tracker()
	if tracker == nil {
		return Snapshot{}
	}
	return tracker.Snapshot()
}

// Manifest returns the discovered manifest, or nil before Initialize.
func (m *Manager) Manifest() *model.Manifest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.manifest
}

// Share returns the resolved share.
func (m *Manager) Share() model.ShareContext {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.share
}

func (m *Manager) shareURL(input string) string {
	input = strings.TrimSpace(input)
	if bareShareID.MatchString(input) {
		return strings.TrimSuffix(m.settings.BaseURL, "/") + "/d/" + input + "/"
	}
	return input
}

func (m *Manager) reportOutcome(o TransferOutcome) {
	if o.OK() {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Downloaded: %s", o.Entry.LocalPath), Level: LevelVerbose})
		return
	}
	m.progress(ProgressEvent{Message: fmt.Sprintf("Error downloading %s: %v", o.Entry.LocalPath, o.Err), Level: LevelError})
}

func (m *Manager) progress(event ProgressEvent) {
	if m.onProgress != nil {
		m.onProgress(event)
	}
}
