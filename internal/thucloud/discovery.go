package thucloud

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/handiism/thucloud-downloader/internal/model"
	"github.com/handiism/thucloud-downloader/internal/thucloud/dto"
)

// DiscoveryProgress is reported after every file accepted into the manifest.
type DiscoveryProgress struct {
	Dirs  int
	Files int
	Bytes int64

	// Path is the local path of the file just added.
	Path string
}

// DiscoverOptions controls one discovery pass.
type DiscoverOptions struct {
	// Exclude lists file extensions that are left out of the manifest.
	Exclude model.ExtensionSet

	// MaxDepth bounds how deep directories may nest below the root.
	// Zero means unbounded.
	MaxDepth int

	// OnProgress, if set, receives running totals as files are found.
	OnProgress func(DiscoveryProgress)
}

// Discoverer walks a share's directory tree through the listing API and
// builds a Manifest.
//
// The walk is depth-first and sequential: one listing request per directory,
// entries handled in the order the server returns them, and a subdirectory
// is fully walked before the entries that follow it.
//
// Example:
//
//	d := thucloud.NewDiscoverer(client, log)
//	manifest, err := d.Discover(ctx, share, thucloud.DiscoverOptions{
//	    Exclude: model.ParseExtensionList("mp4"),
//	})
type Discoverer struct {
	client Fetcher
	log    *slog.Logger
}

// NewDiscoverer creates a Discoverer using client for listing requests.
func NewDiscoverer(client Fetcher, log *slog.Logger) *Discoverer {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Discoverer{
		client: client,
		log:    log.With(slog.String("item", "Discoverer")),
	}
}

// frame is one directory being walked: its listing and a cursor into it.
type frame struct {
	entries []dto.Dirent
	next    int
	depth   int
}

// Discover lists the whole share starting at "/" and returns the manifest.
//
// Any failed or malformed listing, at any depth, aborts the pass with a
// *DiscoveryError and a nil manifest.
func (d *Discoverer) Discover(ctx context.Context, share model.ShareContext, opts DiscoverOptions) (*model.Manifest, error) {
	manifest := model.NewManifest(share)
	visited := map[string]struct{}{"/": {}}

	entries, err := d.list(ctx, share, "/")
	if err != nil {
		return nil, err
	}

	stack := []*frame{{entries: entries}}
	var totalBytes int64

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next >= len(top.entries) {
			stack = stack[:len(stack)-1]
			continue
		}
		entry := top.entries[top.next]
		top.next++

		if !entry.IsDir {
			localPath := share.LocalPath(entry.FilePath)
			if opts.Exclude.Excludes(localPath) {
				d.log.Debug("Skipping excluded file", slog.String("path", entry.FilePath))
				continue
			}

			manifest.AddFile(model.FileEntry{
				URL:        DownloadURL(share, entry.FilePath),
				LocalPath:  localPath,
				RemotePath: entry.FilePath,
				Size:       entry.Size,
			})
			totalBytes += entry.Size

			if opts.OnProgress != nil {
				opts.OnProgress(DiscoveryProgress{
					Dirs:  len(manifest.Dirs),
					Files: len(manifest.Files),
					Bytes: totalBytes,
					Path:  localPath,
				})
			}
			continue
		}

		dirPath := entry.FolderPath
		if !strings.HasSuffix(dirPath, "/") {
			dirPath += "/"
		}
		depth := top.depth + 1
		if opts.MaxDepth > 0 && depth > opts.MaxDepth {
			return nil, &DiscoveryError{Path: dirPath, Err: ErrTooDeep}
		}
		if _, seen := visited[dirPath]; seen {
			return nil, &DiscoveryError{Path: dirPath, Err: ErrPathRevisited}
		}
		visited[dirPath] = struct{}{}

		manifest.AddDir(share.LocalPath(entry.FolderPath))

		children, err := d.list(ctx, share, entry.FolderPath)
		if err != nil {
			return nil, err
		}
		stack = append(stack, &frame{entries: children, depth: depth})
	}

	d.log.Info("Discovery finished",
		slog.String("share", share.ID),
		slog.Int("dirs", len(manifest.Dirs)),
		slog.Int("files", len(manifest.Files)),
		slog.Int64("bytes", totalBytes),
	)

	return manifest, nil
}

func (d *Discoverer) list(ctx context.Context, share model.ShareContext, dirPath string) ([]dto.Dirent, error) {
	if err := ctx.Err(); err != nil {
		return nil, &DiscoveryError{Path: dirPath, Err: err}
	}

	d.log.Debug("Listing directory", slog.String("path", dirPath))

	var listing dto.DirentList
	if err := d.client.GetJSON(ctx, ListURL(share, dirPath), &listing); err != nil {
		return nil, &DiscoveryError{Path: dirPath, Err: err}
	}
	if err := listing.Validate(); err != nil {
		return nil, &DiscoveryError{Path: dirPath, Err: err}
	}

	return listing.Dirents, nil
}
