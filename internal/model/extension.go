package model

import (
	"path"
	"sort"
	"strings"
)

// Extension returns the extension of name without its leading dot.
//
// Leading dots of the base name never start an extension, so ".bashrc" has
// no extension while "archive.tar.gz" has "gz". Matching is case-sensitive:
// "clip.MP4" has extension "MP4".
func Extension(name string) string {
	base := path.Base(name)
	if base == "/" || base == "." {
		return ""
	}

	trimmed := strings.TrimLeft(base, ".")
	idx := strings.LastIndex(trimmed, ".")
	if idx == -1 {
		return ""
	}
	return trimmed[idx+1:]
}

// ExtensionSet is a set of file extensions excluded from a download.
//
// Entries are compared exactly, without case folding and without a leading
// dot. The empty string is a valid entry and matches extensionless files.
type ExtensionSet map[string]struct{}

// NewExtensionSet builds an ExtensionSet from the given extensions.
func NewExtensionSet(exts ...string) ExtensionSet {
	set := make(ExtensionSet, len(exts))
	for _, ext := range exts {
		set[ext] = struct{}{}
	}
	return set
}

// ParseExtensionList parses a comma-separated list such as "mp4,mp3".
//
// Surrounding whitespace is trimmed and blank items are dropped, so an empty
// list excludes nothing.
func ParseExtensionList(list string) ExtensionSet {
	set := make(ExtensionSet)
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		set[item] = struct{}{}
	}
	return set
}

// Contains reports whether ext is excluded.
func (s ExtensionSet) Contains(ext string) bool {
	_, ok := s[ext]
	return ok
}

// Excludes reports whether the file at name is excluded by its extension.
func (s ExtensionSet) Excludes(name string) bool {
	if len(s) == 0 {
		return false
	}
	return s.Contains(Extension(name))
}

// Slice returns the set members in sorted order.
func (s ExtensionSet) Slice() []string {
	out := make([]string, 0, len(s))
	for ext := range s {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}
