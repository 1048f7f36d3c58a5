package download

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/thucloud-downloader/internal/http"
	"github.com/handiism/thucloud-downloader/internal/model"
	"github.com/handiism/thucloud-downloader/internal/testutils"
)

type recordingWriter struct {
	bytes.Buffer
	writes []int
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	w.writes = append(w.writes, len(p))
	return w.Buffer.Write(p)
}

func TestCopyChunksUsesChunkSize(t *testing.T) {
	data := testutils.Pattern(DefaultChunkSize*2 + 1000)
	w := &recordingWriter{}

	require.NoError(t, copyChunks(context.Background(), w, bytes.NewReader(data), DefaultChunkSize))

	assert.Equal(t, []int{DefaultChunkSize, DefaultChunkSize, 1000}, w.writes)
	assert.Equal(t, data, w.Bytes())
}

func TestCopyChunksSmallFile(t *testing.T) {
	w := &recordingWriter{}
	require.NoError(t, copyChunks(context.Background(), w, strings.NewReader("tiny"), DefaultChunkSize))
	assert.Equal(t, []int{4}, w.writes)
}

// staticOpener serves a fixed body for every URL.
type staticOpener struct {
	body          []byte
	contentLength int64
	err           error
}

func (o staticOpener) Open(ctx context.Context, url string) (*http.Stream, error) {
	if o.err != nil {
		return nil, o.err
	}
	return &http.Stream{
		Body:          io.NopCloser(bytes.NewReader(o.body)),
		ContentLength: o.contentLength,
	}, nil
}

func newTestJob(fs afero.Fs, tr *Tracker, opener Opener, size int64) *Job {
	return &Job{
		ID: uuid.New(),
		Entry: model.FileEntry{
			URL:       "http://example.invalid/d/x/files/?p=%2Fa.bin&dl=1",
			LocalPath: "Root/a.bin",
			Size:      size,
		},
		client:    opener,
		fs:        fs,
		tracker:   tr,
		chunkSize: DefaultChunkSize,
		log:       discardLogger(),
	}
}

func TestJobRunOverwrites(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "Root/a.bin", []byte("stale content that is longer"), 0644))

	data := testutils.Pattern(1500)
	tr := NewTracker(1500)
	job := newTestJob(fs, tr, staticOpener{body: data, contentLength: 1500}, 1500)

	outcome := job.Run(context.Background())
	require.True(t, outcome.OK(), "unexpected error: %v", outcome.Err)
	assert.Equal(t, int64(1500), outcome.Written)
	assert.Equal(t, job.ID, outcome.JobID)

	got, err := afero.ReadFile(fs, "Root/a.bin")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	assert.Equal(t, 0, tr.Active())
	assert.Equal(t, int64(1500), tr.Aggregate())
}

func TestJobShortBody(t *testing.T) {
	fs := afero.NewMemMapFs()
	tr := NewTracker(100)
	job := newTestJob(fs, tr, staticOpener{body: make([]byte, 50), contentLength: 100}, 100)

	outcome := job.Run(context.Background())
	require.False(t, outcome.OK())
	assert.ErrorIs(t, outcome.Err, ErrShortBody)

	var terr *TransferError
	require.ErrorAs(t, outcome.Err, &terr)
	assert.Equal(t, "Root/a.bin", terr.Path)

	exists, err := afero.Exists(fs, "Root/a.bin")
	require.NoError(t, err)
	assert.False(t, exists, "partial file must be removed")

	snap := tr.Snapshot()
	assert.Empty(t, snap.Active)
	assert.Equal(t, 1, snap.Failed)
}

func TestJobOpenFailure(t *testing.T) {
	openErr := errors.New("connection refused")
	tr := NewTracker(10)
	job := newTestJob(afero.NewMemMapFs(), tr, staticOpener{err: openErr}, 10)

	outcome := job.Run(context.Background())
	assert.ErrorIs(t, outcome.Err, openErr)
	assert.Zero(t, outcome.Written)
	assert.Equal(t, 0, tr.Active())
}

func TestJobCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := NewTracker(10)
	job := newTestJob(afero.NewMemMapFs(), tr, staticOpener{body: []byte("0123456789"), contentLength: 10}, 10)

	outcome := job.Run(ctx)
	assert.ErrorIs(t, outcome.Err, context.Canceled)
	assert.Equal(t, 0, tr.Active())
}

func TestJobOpenFailureKeepsExistingFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	previous := []byte("complete copy from an earlier run")
	require.NoError(t, afero.WriteFile(fs, "Root/a.bin", previous, 0644))

	tr := NewTracker(int64(len(previous)))
	job := newTestJob(fs, tr, staticOpener{err: errors.New("connection refused")}, int64(len(previous)))

	outcome := job.Run(context.Background())
	require.False(t, outcome.OK())

	got, err := afero.ReadFile(fs, "Root/a.bin")
	require.NoError(t, err, "existing file must survive a failed open")
	assert.Equal(t, previous, got)
}

func TestJobCancelledKeepsExistingFile(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "Root/a.bin", []byte("0123456789"), 0644))

	tr := NewTracker(10)
	job := newTestJob(fs, tr, staticOpener{body: []byte("abcdefghij"), contentLength: 10}, 10)

	outcome := job.Run(ctx)
	assert.ErrorIs(t, outcome.Err, context.Canceled)

	got, err := afero.ReadFile(fs, "Root/a.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte("0123456789"), got)
}

func TestJobCreateFailureKeepsExistingFile(t *testing.T) {
	base := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(base, "Root/a.bin", []byte("keep"), 0644))
	fs := afero.NewReadOnlyFs(base)

	tr := NewTracker(4)
	job := newTestJob(fs, tr, staticOpener{body: []byte("next"), contentLength: 4}, 4)

	outcome := job.Run(context.Background())
	require.False(t, outcome.OK())

	got, err := afero.ReadFile(base, "Root/a.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte("keep"), got)
}
