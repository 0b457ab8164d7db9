package nh

import "io/fs"

// Filesystem provides the filesystem operations the clean pipeline needs.
// None of the methods follow a final symlink unless stated otherwise: profiles,
// generations and GC roots are all symlinks and must be inspected as such.
type Filesystem interface {
	// ReadDir lists a directory, sorted by filename.
	ReadDir(dir string) ([]fs.DirEntry, error)

	// Lstat returns file info for the path itself, not its target.
	Lstat(path string) (fs.FileInfo, error)

	// Readlink returns the target of a symlink, one level deep.
	Readlink(path string) (string, error)

	// WalkDir walks the tree rooted at root without following symlinks.
	WalkDir(root string, fn fs.WalkDirFunc) error

	// Access reports whether the process may both read and write path.
	// The check applies to the path itself, never to a symlink's target.
	Access(path string) error

	// Remove unlinks a single file or symlink.
	Remove(path string) error
}
