package fs

import (
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"

	"nh-go/internal/nh"
)

// OSFilesystem is the real filesystem implementation of nh.Filesystem.
// It performs actual filesystem operations using the os package.
type OSFilesystem struct{}

// NewOSFilesystem creates a filesystem that operates on the real filesystem.
func NewOSFilesystem() *OSFilesystem {
	return &OSFilesystem{}
}

// ReadDir lists a directory, sorted by filename.
func (m *OSFilesystem) ReadDir(dir string) ([]iofs.DirEntry, error) {
	return os.ReadDir(dir)
}

// Lstat returns file info for the path itself.
func (m *OSFilesystem) Lstat(path string) (iofs.FileInfo, error) {
	return os.Lstat(path)
}

// Readlink returns a symlink's target without resolving it further.
func (m *OSFilesystem) Readlink(path string) (string, error) {
	return os.Readlink(path)
}

// WalkDir walks root without following symlinks.
func (m *OSFilesystem) WalkDir(root string, fn iofs.WalkDirFunc) error {
	return filepath.WalkDir(root, fn)
}

// Remove unlinks a single path. Directories are refused so that a clean can
// never recurse into something it did not plan for.
func (m *OSFilesystem) Remove(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("refusing to remove directory %s", path)
	}
	return os.Remove(path)
}

// Compile-time check that OSFilesystem implements nh.Filesystem interface
var _ nh.Filesystem = (*OSFilesystem)(nil)
