package model

// ShareContext identifies one shared remote directory tree.
//
// A ShareContext is resolved once at startup from the share URL and the
// landing page, and is never modified afterwards. Every listing request and
// every download URL is derived from it.
//
// Example:
//
//	share := model.ShareContext{
//	    ID:       "0123456789abcdef0123",
//	    RootName: "Lecture Notes",
//	    BaseURL:  "https://cloud.tsinghua.edu.cn",
//	}
//	// Files end up under "Lecture Notes/..."
type ShareContext struct {
	// ID is the opaque share token taken from the share URL.
	ID string

	// RootName is the local root directory name, taken from the share title.
	RootName string

	// BaseURL is the scheme and host serving the share, without a trailing slash.
	BaseURL string
}

// RootDir returns the local directory that mirrors the share root ("/").
func (s ShareContext) RootDir() string {
	return s.RootName + "/"
}

// LocalPath maps a server-relative path (always starting with "/") to its
// local destination under the root directory.
func (s ShareContext) LocalPath(remotePath string) string {
	return s.RootName + remotePath
}
