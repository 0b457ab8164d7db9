package testutil

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

// Symlink creates link pointing at target and sets the link's own
// modification time. Parent directories of link are created as needed.
func Symlink(t *testing.T, target, link string, modified time.Time) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(link), 0755); err != nil {
		t.Fatalf("creating parent of %s: %v", link, err)
	}
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("creating symlink %s: %v", link, err)
	}
	SetLinkTime(t, link, modified)
}

// SetLinkTime sets the access and modification time of a symlink itself.
func SetLinkTime(t *testing.T, link string, modified time.Time) {
	t.Helper()

	tv := unix.NsecToTimeval(modified.UnixNano())
	if err := unix.Lutimes(link, []unix.Timeval{tv, tv}); err != nil {
		t.Fatalf("setting times on %s: %v", link, err)
	}
}

// ProfileFixture lays out a Nix-style profile in a temporary directory:
// numbered <name>-<n>-link generation links plus the <name> profile link.
// Generation links point at nonexistent store paths, which is enough for
// everything that only looks at the links themselves.
type ProfileFixture struct {
	t    *testing.T
	Dir  string
	Name string
}

// NewProfileFixture creates an empty profile called name in a new temp dir.
func NewProfileFixture(t *testing.T, name string) *ProfileFixture {
	t.Helper()
	return NewProfileFixtureIn(t, t.TempDir(), name)
}

// NewProfileFixtureIn creates an empty profile called name inside dir.
func NewProfileFixtureIn(t *testing.T, dir, name string) *ProfileFixture {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("creating profile dir: %v", err)
	}
	return &ProfileFixture{t: t, Dir: dir, Name: name}
}

// Path returns the profile link path.
func (f *ProfileFixture) Path() string {
	return filepath.Join(f.Dir, f.Name)
}

// GenerationPath returns the path of generation n.
func (f *ProfileFixture) GenerationPath(n uint64) string {
	return filepath.Join(f.Dir, f.linkName(n))
}

func (f *ProfileFixture) linkName(n uint64) string {
	return f.Name + "-" + strconv.FormatUint(n, 10) + "-link"
}

// AddGeneration creates generation n with the given link modification time.
func (f *ProfileFixture) AddGeneration(n uint64, modified time.Time) string {
	f.t.Helper()
	path := f.GenerationPath(n)
	Symlink(f.t, "/nix/store/fixture-"+f.Name+"-"+strconv.FormatUint(n, 10), path, modified)
	return path
}

// SetCurrent points the profile at generation n with a relative link, the
// way nix-env does.
func (f *ProfileFixture) SetCurrent(n uint64) {
	f.t.Helper()
	path := f.Path()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		f.t.Fatalf("replacing profile link: %v", err)
	}
	if err := os.Symlink(f.linkName(n), path); err != nil {
		f.t.Fatalf("creating profile link: %v", err)
	}
}

// Exists reports whether generation n is still present.
func (f *ProfileFixture) Exists(n uint64) bool {
	_, err := os.Lstat(f.GenerationPath(n))
	return err == nil
}
