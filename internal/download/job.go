package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/handiism/thucloud-downloader/internal/http"
	ioutils "github.com/handiism/thucloud-downloader/internal/io"
	"github.com/handiism/thucloud-downloader/internal/model"
)

// DefaultChunkSize is the size of a single read from a download stream.
const DefaultChunkSize = 512 * 1024

// ErrShortBody is returned when a stream ends before its announced length.
var ErrShortBody = errors.New("download: stream ended early")

// Opener starts streaming downloads. *http.Client implements it.
type Opener interface {
	Open(ctx context.Context, url string) (*http.Stream, error)
}

// TransferError reports a failed file transfer.
type TransferError struct {
	Path string
	Err  error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer %s: %v", e.Path, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// TransferOutcome is the terminal state of one Job.
type TransferOutcome struct {
	JobID    uuid.UUID
	Entry    model.FileEntry
	Written  int64
	Duration time.Duration

	// Err is nil on success, otherwise a *TransferError.
	Err error
}

// OK reports whether the transfer succeeded.
func (o TransferOutcome) OK() bool {
	return o.Err == nil
}

// Job transfers one manifest file to the local filesystem.
type Job struct {
	ID    uuid.UUID
	Entry model.FileEntry

	client    Opener
	fs        afero.Fs
	tracker   *Tracker
	chunkSize int
	timeout   time.Duration
	log       *slog.Logger
}

// Run streams the file, overwriting any existing local copy.
//
// Every chunk is written to disk and then added to the job's progress slot
// and the aggregate. Run never panics on transfer errors and always
// releases its slot and file handle. A file created by a failed transfer
// is removed. A local copy is left untouched when the transfer fails before
// the file is created.
func (j *Job) Run(ctx context.Context) (outcome TransferOutcome) {
	start := time.Now()
	slot := j.tracker.Start(j.ID, j.Entry.LocalPath, j.Entry.Size)

	outcome = TransferOutcome{JobID: j.ID, Entry: j.Entry}
	defer func() {
		outcome.Written = slot.Written()
		outcome.Duration = time.Since(start)
		j.tracker.Remove(slot, outcome.OK())
	}()

	if err := j.transfer(ctx, slot); err != nil {
		outcome.Err = &TransferError{Path: j.Entry.LocalPath, Err: err}
		return outcome
	}

	return outcome
}

func (j *Job) transfer(ctx context.Context, slot *Slot) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	stream, err := j.client.Open(ctx, j.Entry.URL)
	if err != nil {
		return err
	}
	defer stream.Body.Close()

	file, err := ioutils.CreateFile(j.fs, j.Entry.LocalPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rmErr := ioutils.RemoveFile(j.fs, j.Entry.LocalPath); rmErr != nil {
			j.log.Warn("Could not remove partial file",
				slog.String("path", j.Entry.LocalPath),
				slog.Any("error", rmErr),
			)
		}
	}()

	pw := &http.ProgressWriter{
		Writer: file,
		OnUpdate: func(n, _ int64) {
			slot.Add(n)
		},
	}

	copyErr := copyChunks(ctx, pw, stream.Body, j.chunkSize)
	closeErr := file.Close()
	if copyErr != nil {
		return copyErr
	}
	if closeErr != nil {
		return fmt.Errorf("close file: %w", closeErr)
	}

	if stream.ContentLength >= 0 && pw.Written != stream.ContentLength {
		return fmt.Errorf("%w: got %d of %d bytes", ErrShortBody, pw.Written, stream.ContentLength)
	}

	return nil
}

// copyChunks copies src to dst one read of at most chunkSize bytes at a time.
func copyChunks(ctx context.Context, dst io.Writer, src io.Reader, chunkSize int) error {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	buf := make([]byte, chunkSize)

	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return fmt.Errorf("write: %w", werr)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("read: %w", err)
		}
	}
}
