package dto

import (
	"errors"
	"fmt"
	"strings"
)

// Dirent is one record of the share-link directory listing.
//
// Directories carry FolderPath/FolderName, files carry FilePath/FileName and
// Size. Server paths are absolute within the share; directory paths end in "/".
type Dirent struct {
	IsDir        bool   `json:"is_dir"`
	FilePath     string `json:"file_path,omitempty"`
	FileName     string `json:"file_name,omitempty"`
	FolderPath   string `json:"folder_path,omitempty"`
	FolderName   string `json:"folder_name,omitempty"`
	Size         int64  `json:"size,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
}

// RemotePath returns the server-relative path of the entry.
func (d Dirent) RemotePath() string {
	if d.IsDir {
		return d.FolderPath
	}
	return d.FilePath
}

// Name returns the display name of the entry.
func (d Dirent) Name() string {
	if d.IsDir {
		return d.FolderName
	}
	return d.FileName
}

// DirentList is the body returned by the listing endpoint.
type DirentList struct {
	Dirents  []Dirent `json:"dirent_list"`
	ErrorMsg string   `json:"error_msg,omitempty"`
}

// Validate rejects bodies that carry an error message, lack the entry list,
// or contain entries without a usable path.
func (l *DirentList) Validate() error {
	if l.ErrorMsg != "" {
		return fmt.Errorf("listing failed: %s", l.ErrorMsg)
	}
	if l.Dirents == nil {
		return errors.New("listing response has no dirent_list")
	}
	for i, d := range l.Dirents {
		if !strings.HasPrefix(d.RemotePath(), "/") {
			return fmt.Errorf("entry %d (%q) has no absolute path", i, d.Name())
		}
		if hasDotSegment(d.RemotePath()) {
			return fmt.Errorf("entry %d (%q) has a . or .. path segment", i, d.RemotePath())
		}
		if !d.IsDir && d.Size < 0 {
			return fmt.Errorf("entry %d (%q) has negative size", i, d.FilePath)
		}
	}
	return nil
}

func hasDotSegment(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}
