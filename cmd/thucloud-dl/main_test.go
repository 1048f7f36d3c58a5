package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/thucloud-downloader/internal/testutils"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	// keep a stray .env in the working directory out of the test
	t.Chdir(t.TempDir())

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunUsage(t *testing.T) {
	code, _, stderr := runCLI(t)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "thucloud-dl download <share URL>")

	code, stdout, _ := runCLI(t, "help")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "-exclude-exts")
	assert.Contains(t, stdout, "-max-workers")

	code, _, stderr = runCLI(t, "upload")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, `Unknown command "upload"`)
}

func TestParseDownloadArgs(t *testing.T) {
	var sink bytes.Buffer

	url, flags, err := parseDownloadArgs([]string{"-max-workers", "2", "https://x/d/abc/", "-exclude-exts", "mp4,mkv", "-dry-run"}, &sink)
	require.NoError(t, err)
	assert.Equal(t, "https://x/d/abc/", url)
	assert.Equal(t, 2, flags.maxWorkers)
	assert.Equal(t, "mp4,mkv", flags.excludeExts)
	assert.True(t, flags.dryRun)

	_, _, err = parseDownloadArgs([]string{"-verbose"}, &sink)
	assert.EqualError(t, err, "missing share URL")

	_, _, err = parseDownloadArgs([]string{"https://x/d/abc/", "extra"}, &sink)
	assert.Error(t, err)

	_, _, err = parseDownloadArgs([]string{"-bogus", "https://x/d/abc/"}, &sink)
	assert.Error(t, err)
}

func TestRunInvalidArguments(t *testing.T) {
	code, _, _ := runCLI(t, "download")
	assert.Equal(t, exitUsage, code)

	code, _, _ = runCLI(t, "download", "https://cloud.tsinghua.edu.cn/d/abc/", "-max-workers", "-1")
	assert.Equal(t, exitUsage, code)

	code, _, stderr := runCLI(t, "download", "https://cloud.tsinghua.edu.cn/f/abc/")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "Invalid share")
}

func TestRunDryRun(t *testing.T) {
	fake := testutils.NewFakeShare(t, "Course", []testutils.FakeFile{
		{Path: "/a/x.mp4", Data: testutils.Pattern(500)},
		{Path: "/y.txt", Data: testutils.Pattern(10)},
	})

	code, stdout, _ := runCLI(t, "download", fake.URL(), "-exclude-exts", "mp4", "-dry-run")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "Course/y.txt")
	assert.NotContains(t, stdout, "x.mp4")
	assert.Contains(t, stdout, "1 files in 2 folders, 10.00B")
	assert.Contains(t, stdout, "[Dry run - not downloading]")
	assert.Zero(t, fake.DownloadRequests.Load())
}

func TestRunDownload(t *testing.T) {
	fake := testutils.NewFakeShare(t, "Course", []testutils.FakeFile{
		{Path: "/a/b.txt", Data: []byte("bee")},
		{Path: "/c.txt", Data: []byte("sea")},
	})
	out := t.TempDir()

	code, stdout, _ := runCLI(t, "download", fake.URL(), "-output", out, "-max-workers", "1")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "Complete! Downloaded 2/2 files")

	got, err := os.ReadFile(filepath.Join(out, "Course", "a", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "bee", string(got))
}

func TestRunTransferFailure(t *testing.T) {
	fake := testutils.NewFakeShare(t, "Course", []testutils.FakeFile{
		{Path: "/ok.txt", Data: []byte("ok")},
		{Path: "/bad.bin", Data: testutils.Pattern(4096), Abort: true},
	})

	code, stdout, _ := runCLI(t, "download", fake.URL(), "-output", t.TempDir())
	assert.Equal(t, exitTransfers, code)
	assert.Contains(t, stdout, "Finished with errors. Downloaded 1/2 files")
	assert.NotContains(t, stdout, "Complete!")
	assert.Contains(t, stdout, "1 files failed")
	assert.Contains(t, stdout, "Course/bad.bin")
}

func TestRunDiscoveryFailure(t *testing.T) {
	fake := testutils.NewFakeShare(t, "Course", []testutils.FakeFile{
		{Path: "/sub/file.txt", Data: []byte("x")},
	})
	fake.FailListing("/sub/", 502)

	code, _, stderr := runCLI(t, "download", fake.URL(), "-output", t.TempDir())
	assert.Equal(t, exitDiscovery, code)
	assert.Contains(t, stderr, "Listing failed")
}

func TestTruncateName(t *testing.T) {
	assert.Equal(t, "short.txt", truncateName("short.txt", 20))
	assert.Equal(t, "…/b/c.txt", truncateName("Root/a/b/c.txt", 9))
	// wide runes take two cells each
	assert.Equal(t, "…资料", truncateName("课程资料", 6))
}
