// Package testutils provides a fake share server for tests.
package testutils

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/handiism/thucloud-downloader/internal/thucloud/dto"
)

// ShareID is the identifier every FakeShare answers to.
const ShareID = "0123456789abcdef0123"

// FakeFile is one entry of a fake share.
//
// A Path ending in "/" declares an (empty) directory. Files serve Data; Size
// overrides the size announced in listings when non-zero.
type FakeFile struct {
	Path string
	Data []byte
	Size int64

	// Abort makes the server drop the connection after sending half the data.
	Abort bool

	// Delay holds the response body back for the given duration.
	Delay time.Duration
}

// FakeShare is an httptest server speaking the share-link listing and
// download endpoints.
type FakeShare struct {
	Server *httptest.Server
	Title  string

	mu       sync.Mutex
	dirs     map[string][]dto.Dirent
	files    map[string]FakeFile
	failList map[string]int

	ListRequests     atomic.Int32
	DownloadRequests atomic.Int32
}

// NewFakeShare starts a fake share with the given title and entries. Parent
// directories are created implicitly; entries are listed in the order given.
func NewFakeShare(t *testing.T, title string, entries []FakeFile) *FakeShare {
	t.Helper()

	fs := &FakeShare{
		Title:    title,
		dirs:     map[string][]dto.Dirent{"/": {}},
		files:    make(map[string]FakeFile),
		failList: make(map[string]int),
	}
	for _, e := range entries {
		fs.add(e)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /d/{id}/{$}", fs.handlePage)
	mux.HandleFunc("GET /d/{id}/files/{$}", fs.handleDownload)
	mux.HandleFunc("GET /api/v2.1/share-links/{id}/dirents/{$}", fs.handleList)

	fs.Server = httptest.NewServer(mux)
	t.Cleanup(fs.Server.Close)

	return fs
}

// URL returns the share link.
func (fs *FakeShare) URL() string {
	return fs.Server.URL + "/d/" + ShareID + "/"
}

// FailListing makes listing dirPath answer with the given status code.
func (fs *FakeShare) FailListing(dirPath string, status int) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.failList[dirPath] = status
}

func (fs *FakeShare) add(e FakeFile) {
	if strings.HasSuffix(e.Path, "/") {
		fs.ensureDir(e.Path)
		return
	}

	parent := path.Dir(e.Path)
	if parent != "/" {
		parent += "/"
	}
	fs.ensureDir(parent)

	size := e.Size
	if size == 0 {
		size = int64(len(e.Data))
	}
	fs.dirs[parent] = append(fs.dirs[parent], dto.Dirent{
		IsDir:    false,
		FilePath: e.Path,
		FileName: path.Base(e.Path),
		Size:     size,
	})
	fs.files[e.Path] = e
}

func (fs *FakeShare) ensureDir(dirPath string) {
	if _, ok := fs.dirs[dirPath]; ok {
		return
	}

	parent := path.Dir(strings.TrimSuffix(dirPath, "/"))
	if parent != "/" {
		parent += "/"
	}
	fs.ensureDir(parent)

	fs.dirs[dirPath] = []dto.Dirent{}
	fs.dirs[parent] = append(fs.dirs[parent], dto.Dirent{
		IsDir:      true,
		FolderPath: dirPath,
		FolderName: path.Base(strings.TrimSuffix(dirPath, "/")),
	})
}

func (fs *FakeShare) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("id") != ShareID {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if fs.Title == "" {
		fmt.Fprint(w, "<html><head></head><body>no title</body></html>")
		return
	}
	fmt.Fprintf(w, "<html><head>\n<meta property=\"og:title\" content=\"%s\" />\n</head><body></body></html>",
		html.EscapeString(fs.Title))
}

func (fs *FakeShare) handleList(w http.ResponseWriter, r *http.Request) {
	fs.ListRequests.Add(1)
	dirPath := r.URL.Query().Get("path")

	fs.mu.Lock()
	status, failing := fs.failList[dirPath]
	entries, ok := fs.dirs[dirPath]
	fs.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.PathValue("id") != ShareID:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error_msg":"Share link not found."}`)
	case failing:
		w.WriteHeader(status)
		fmt.Fprint(w, `{"error_msg":"Internal Server Error"}`)
	case !ok:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error_msg":"Folder not found."}`)
	default:
		json.NewEncoder(w).Encode(dto.DirentList{Dirents: entries})
	}
}

func (fs *FakeShare) handleDownload(w http.ResponseWriter, r *http.Request) {
	fs.DownloadRequests.Add(1)

	file, ok := fs.files[r.URL.Query().Get("p")]
	if !ok || r.PathValue("id") != ShareID || r.URL.Query().Get("dl") != "1" {
		http.NotFound(w, r)
		return
	}

	if file.Delay > 0 {
		select {
		case <-time.After(file.Delay):
		case <-r.Context().Done():
			return
		}
	}

	w.Header().Set("Content-Length", fmt.Sprint(len(file.Data)))
	if file.Abort {
		w.Write(file.Data[:len(file.Data)/2])
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		panic(http.ErrAbortHandler)
	}
	w.Write(file.Data)
}

// Pattern returns deterministic test data of the given size.
func Pattern(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}
