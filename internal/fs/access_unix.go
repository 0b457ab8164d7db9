//go:build unix

package fs

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Access checks read and write permission on path itself. AT_SYMLINK_NOFOLLOW
// makes the check apply to a symlink rather than the store path behind it.
func (m *OSFilesystem) Access(path string) error {
	if err := unix.Faccessat(unix.AT_FDCWD, path, unix.R_OK|unix.W_OK, unix.AT_SYMLINK_NOFOLLOW); err != nil {
		return fmt.Errorf("access %s: %w", path, err)
	}
	return nil
}
