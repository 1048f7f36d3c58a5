// Package ioutils provides file system utilities.
//
// # Directories
//
//	fs := afero.NewOsFs()
//	err := ioutils.EnsureDirs(fs, manifest.Dirs) // safe to call twice
//
// # Output Files
//
//	f, err := ioutils.CreateFile(fs, "Notes/a/x.pdf") // truncates existing files
//	defer f.Close()
//
//	// after a failed transfer
//	ioutils.RemoveFile(fs, "Notes/a/x.pdf")
//
// # Filename Sanitization
//
// Use SanitizeFileName to turn a share title into a directory name:
//
//	safe := ioutils.SanitizeFileName("Slides: Part 1/2") // Returns "Slides_ Part 1_2"
package ioutils
