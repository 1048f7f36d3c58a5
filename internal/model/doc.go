// Package model defines the core data structures shared by discovery,
// downloading and the front ends.
//
// # ShareContext
//
// ShareContext identifies a remote shared tree and maps server-relative
// paths to local ones:
//
//	share := model.ShareContext{ID: id, RootName: "Notes", BaseURL: base}
//	share.LocalPath("/a/x.pdf") // "Notes/a/x.pdf"
//
// # Manifest
//
// A Manifest is produced by one discovery pass. It lists the directories to
// create and the files to download, both in discovery order:
//
//	m := model.NewManifest(share) // Dirs = ["Notes/"]
//	m.AddDir(share.LocalPath("/a/"))
//	m.AddFile(model.FileEntry{URL: u, LocalPath: share.LocalPath("/a/x.pdf"), Size: 42})
//	m.TotalSize() // 42
//
// # Extension filtering
//
// ExtensionSet holds excluded extensions. Matching is exact and
// case-sensitive:
//
//	set := model.ParseExtensionList("mp4,mp3")
//	set.Excludes("Notes/clip.mp4") // true
//	set.Excludes("Notes/clip.MP4") // false
package model
