package thucloud

import (
	"errors"
	"fmt"
)

var (
	ErrShareIDNotFound = errors.New("share URL does not contain a share identifier")
	ErrTitleNotFound   = errors.New("share page has no title")
	ErrTooDeep         = errors.New("directory tree exceeds the maximum depth")
	ErrPathRevisited   = errors.New("directory listed more than once")
)

// ConfigurationError is returned when the share cannot be resolved from the
// input URL. It is fatal and happens before any discovery request.
type ConfigurationError struct {
	URL string
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("resolve share %s: %v", e.URL, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// DiscoveryError is returned when listing a directory fails at any depth.
// No partial manifest accompanies it.
type DiscoveryError struct {
	Path string
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("list %q: %v", e.Path, e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}
