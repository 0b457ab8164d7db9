package fs

import (
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestOSFilesystem_Symlinks(t *testing.T) {
	dir := t.TempDir()
	m := NewOSFilesystem()

	link := filepath.Join(dir, "system")
	if err := os.Symlink("system-3-link", link); err != nil {
		t.Fatal(err)
	}

	target, err := m.Readlink(link)
	if err != nil {
		t.Fatalf("Readlink() error = %v", err)
	}
	if target != "system-3-link" {
		t.Errorf("Readlink() = %q, want relative target unchanged", target)
	}

	info, err := m.Lstat(link)
	if err != nil {
		t.Fatalf("Lstat() error = %v", err)
	}
	if info.Mode()&iofs.ModeSymlink == 0 {
		t.Errorf("Lstat() mode = %v, want symlink", info.Mode())
	}

	entries, err := m.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Type()&iofs.ModeSymlink == 0 {
		t.Errorf("ReadDir() = %v, want one symlink", entries)
	}
}

func TestOSFilesystem_WalkDirDoesNotFollowLinks(t *testing.T) {
	dir := t.TempDir()
	m := NewOSFilesystem()

	outside := t.TempDir()
	if err := os.WriteFile(filepath.Join(outside, "secret"), nil, 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "per-user", "alice"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(outside, filepath.Join(dir, "per-user", "alice", "link")); err != nil {
		t.Fatal(err)
	}

	var visited []string
	err := m.WalkDir(dir, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		visited = append(visited, path)
		return nil
	})
	if err != nil {
		t.Fatalf("WalkDir() error = %v", err)
	}

	for _, p := range visited {
		if filepath.Base(p) == "secret" {
			t.Errorf("WalkDir() followed a symlink into %s", p)
		}
	}
	if len(visited) != 4 {
		t.Errorf("WalkDir() visited %v, want root, per-user, alice and link", visited)
	}
}

func TestOSFilesystem_Remove(t *testing.T) {
	m := NewOSFilesystem()

	t.Run("removes symlink not target", func(t *testing.T) {
		dir := t.TempDir()
		target := filepath.Join(dir, "target")
		if err := os.WriteFile(target, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		link := filepath.Join(dir, "result")
		if err := os.Symlink(target, link); err != nil {
			t.Fatal(err)
		}

		if err := m.Remove(link); err != nil {
			t.Fatalf("Remove() error = %v", err)
		}
		if _, err := os.Lstat(link); !os.IsNotExist(err) {
			t.Error("link still exists")
		}
		if _, err := os.Stat(target); err != nil {
			t.Errorf("target was touched: %v", err)
		}
	})

	t.Run("refuses directories", func(t *testing.T) {
		dir := t.TempDir()
		sub := filepath.Join(dir, "sub")
		if err := os.Mkdir(sub, 0755); err != nil {
			t.Fatal(err)
		}
		if err := m.Remove(sub); err == nil {
			t.Error("Remove() expected error for directory")
		}
		if _, err := os.Stat(sub); err != nil {
			t.Errorf("directory removed: %v", err)
		}
	})

	t.Run("missing path", func(t *testing.T) {
		err := m.Remove(filepath.Join(t.TempDir(), "gone"))
		if !errors.Is(err, iofs.ErrNotExist) {
			t.Errorf("Remove() error = %v, want ErrNotExist", err)
		}
	})
}

func TestOSFilesystem_Access(t *testing.T) {
	dir := t.TempDir()
	m := NewOSFilesystem()

	own := filepath.Join(dir, "own")
	if err := os.WriteFile(own, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if err := m.Access(own); err != nil {
		t.Errorf("Access() on own file error = %v", err)
	}

	if err := m.Access(filepath.Join(dir, "missing")); err == nil {
		t.Error("Access() expected error for missing path")
	}

	if os.Geteuid() == 0 {
		t.Skip("root bypasses permission bits")
	}
	locked := filepath.Join(dir, "locked")
	if err := os.WriteFile(locked, nil, 0400); err != nil {
		t.Fatal(err)
	}
	if err := m.Access(locked); err == nil {
		t.Error("Access() expected error for read-only file")
	}
}
