package model

import (
	"fmt"
	"path"
	"strings"
)

// FileEntry describes one file transfer: where to fetch it from and where to
// write it locally.
//
// A FileEntry is immutable after discovery; its LocalPath uniquely
// identifies the transfer within a manifest.
type FileEntry struct {
	// URL is the direct download URL.
	URL string

	// LocalPath is the destination path, always under the share root directory.
	LocalPath string

	// RemotePath is the server-relative path the entry was listed under.
	RemotePath string

	// Size is the expected size in bytes as reported by the listing API.
	Size int64
}

// Manifest is the complete result of one discovery pass.
//
// Dirs holds local directory paths that must exist before downloads begin,
// in the order they were discovered; the first entry is the root directory.
// Files holds every non-excluded file, also in discovery order.
//
// Every file's parent directory is present in Dirs (see Validate).
type Manifest struct {
	Root  string
	Dirs  []string
	Files []FileEntry
}

// NewManifest returns an empty manifest whose directory list already
// contains the root directory.
func NewManifest(share ShareContext) *Manifest {
	return &Manifest{
		Root: share.RootDir(),
		Dirs: []string{share.RootDir()},
	}
}

// AddDir appends a directory to the manifest.
func (m *Manifest) AddDir(localPath string) {
	m.Dirs = append(m.Dirs, localPath)
}

// AddFile appends a file to the manifest.
func (m *Manifest) AddFile(f FileEntry) {
	m.Files = append(m.Files, f)
}

// Len returns the number of files in the manifest.
func (m *Manifest) Len() int {
	return len(m.Files)
}

// TotalSize returns the sum of all expected file sizes.
func (m *Manifest) TotalSize() int64 {
	var total int64
	for _, f := range m.Files {
		total += f.Size
	}
	return total
}

// Validate checks that every file lives under the root directory and that
// its containing directory is part of the manifest.
func (m *Manifest) Validate() error {
	dirs := make(map[string]struct{}, len(m.Dirs))
	for _, d := range m.Dirs {
		dirs[normalizeDir(d)] = struct{}{}
	}

	root := normalizeDir(m.Root)
	for _, f := range m.Files {
		if !strings.HasPrefix(f.LocalPath, root+"/") {
			return fmt.Errorf("file %q is outside root %q", f.LocalPath, m.Root)
		}
		parent := path.Dir(f.LocalPath)
		if _, ok := dirs[parent]; !ok {
			return fmt.Errorf("file %q has no directory entry for %q", f.LocalPath, parent)
		}
	}
	return nil
}

func normalizeDir(p string) string {
	if p == "/" {
		return p
	}
	return strings.TrimSuffix(p, "/")
}
