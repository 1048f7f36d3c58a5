package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	ioutils "github.com/handiism/thucloud-downloader/internal/io"
	"github.com/handiism/thucloud-downloader/internal/model"
	"github.com/handiism/thucloud-downloader/internal/units"
)

// DefaultMaxWorkers is the number of concurrent transfers when none is set.
const DefaultMaxWorkers = 5

// EngineOptions configures an Engine.
type EngineOptions struct {
	// MaxWorkers bounds concurrent transfers. Zero means DefaultMaxWorkers.
	MaxWorkers int

	// ChunkSize is the read size for download streams. Zero means DefaultChunkSize.
	ChunkSize int

	// JobTimeout bounds a single transfer. Zero disables it.
	JobTimeout time.Duration

	// OnStart is called once the tracker of a run exists, before any job starts.
	OnStart func(*Tracker)

	// OnOutcome is called from the worker goroutine as each job finishes.
	OnOutcome func(TransferOutcome)
}

// EngineReport summarizes one engine run.
type EngineReport struct {
	// Outcomes holds one entry per manifest file, in manifest order.
	Outcomes  []TransferOutcome
	Succeeded int
	Bytes     int64
	Duration  time.Duration
}

// Failed returns the outcomes of failed transfers.
func (r *EngineReport) Failed() []TransferOutcome {
	var failed []TransferOutcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			failed = append(failed, o)
		}
	}
	return failed
}

// Engine executes a manifest with a bounded pool of transfer jobs.
//
// A failed job never cancels its siblings: Run returns only after every
// job reached a terminal state and every progress slot was released.
type Engine struct {
	client Opener
	fs     afero.Fs
	opts   EngineOptions
	log    *slog.Logger

	mu      sync.RWMutex
	tracker *Tracker
}

// NewEngine creates an Engine writing to fs.
func NewEngine(client Opener, fs afero.Fs, opts EngineOptions, log *slog.Logger) *Engine {
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = DefaultMaxWorkers
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Engine{
		client: client,
		fs:     fs,
		opts:   opts,
		log:    log.With(slog.String("item", "DownloadEngine")),
	}
}

// Tracker returns the tracker of the current or last run, or nil before
// the first run.
func (e *Engine) Tracker() *Tracker {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tracker
}

// Run creates the manifest's directories and then transfers every file.
//
// The returned error covers directory creation only. Transfer failures are
// reported per file in the EngineReport. Cancelling ctx makes pending and
// running jobs fail fast; Run still waits for all of them.
func (e *Engine) Run(ctx context.Context, manifest *model.Manifest) (*EngineReport, error) {
	start := time.Now()

	if err := ioutils.EnsureDirs(e.fs, manifest.Dirs); err != nil {
		return nil, err
	}

	tracker := NewTracker(manifest.TotalSize())
	e.mu.Lock()
	e.tracker = tracker
	e.mu.Unlock()
	if e.opts.OnStart != nil {
		e.opts.OnStart(tracker)
	}

	runLog := e.log.With(slog.String("run", uuid.NewString()))
	runLog.Info("Starting downloads",
		slog.Int("files", manifest.Len()),
		slog.String("size", units.FormatSize(tracker.Total())),
		slog.Int("workers", e.opts.MaxWorkers),
	)

	outcomes := make([]TransferOutcome, len(manifest.Files))

	var g errgroup.Group
	g.SetLimit(e.opts.MaxWorkers)

	for i, entry := range manifest.Files {
		job := &Job{
			ID:        uuid.New(),
			Entry:     entry,
			client:    e.client,
			fs:        e.fs,
			tracker:   tracker,
			chunkSize: e.opts.ChunkSize,
			timeout:   e.opts.JobTimeout,
			log:       runLog,
		}

		g.Go(func() error {
			outcome := job.Run(ctx)
			outcomes[i] = outcome

			if outcome.OK() {
				runLog.Debug("Downloaded",
					slog.String("job", job.ID.String()),
					slog.String("path", entry.LocalPath),
					slog.Int64("bytes", outcome.Written),
				)
			} else {
				runLog.Error("Download failed",
					slog.String("job", job.ID.String()),
					slog.String("path", entry.LocalPath),
					slog.Any("error", outcome.Err),
				)
			}
			if e.opts.OnOutcome != nil {
				e.opts.OnOutcome(outcome)
			}

			// Failures stay in the outcome so siblings keep running.
			return nil
		})
	}

	_ = g.Wait()
	tracker.Wait()

	report := &EngineReport{
		Outcomes: outcomes,
		Bytes:    tracker.Aggregate(),
		Duration: time.Since(start),
	}
	for _, o := range outcomes {
		if o.OK() {
			report.Succeeded++
		}
	}

	runLog.Info("Downloads finished",
		slog.Int("succeeded", report.Succeeded),
		slog.Int("failed", len(outcomes)-report.Succeeded),
		slog.String("received", units.FormatSize(report.Bytes)),
		slog.Duration("duration", report.Duration),
	)

	return report, nil
}

// String returns a one-line summary such as "9/10 files, 1.50MB".
func (r *EngineReport) String() string {
	return fmt.Sprintf("%d/%d files, %s", r.Succeeded, len(r.Outcomes), units.FormatSize(r.Bytes))
}
