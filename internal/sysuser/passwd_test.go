package sysuser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const samplePasswd = `# local accounts
root:x:0:0:System administrator:/root:/run/current-system/sw/bin/bash
nixbld1:x:30001:30000:Nix build user 1:/var/empty:/run/current-system/sw/bin/nologin

alice:x:1000:100:Alice:/home/alice:/run/current-system/sw/bin/zsh
+nisuser::::::
-baduser:x:1002:100::/home/baduser:/bin/sh
short:x:1001
  # indented comment
`

func TestParsePasswd(t *testing.T) {
	users, err := ParsePasswd(strings.NewReader(samplePasswd))
	if err != nil {
		t.Fatalf("ParsePasswd() error = %v", err)
	}

	if len(users) != 3 {
		t.Fatalf("ParsePasswd() returned %d users, want 3: %+v", len(users), users)
	}

	want := []struct {
		name string
		uid  uint32
		home string
	}{
		{"root", 0, "/root"},
		{"nixbld1", 30001, "/var/empty"},
		{"alice", 1000, "/home/alice"},
	}
	for i, w := range want {
		if users[i].Name != w.name || users[i].UID != w.uid || users[i].Home != w.home {
			t.Errorf("users[%d] = %+v, want %s/%d/%s", i, users[i], w.name, w.uid, w.home)
		}
	}
}

func TestReadPasswd(t *testing.T) {
	t.Run("reads file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "passwd")
		if err := os.WriteFile(path, []byte(samplePasswd), 0o644); err != nil {
			t.Fatal(err)
		}

		users, err := ReadPasswd(path)
		if err != nil {
			t.Fatalf("ReadPasswd() error = %v", err)
		}
		if len(users) != 3 {
			t.Errorf("ReadPasswd() returned %d users, want 3", len(users))
		}
	})

	t.Run("no accounts", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "passwd")
		if err := os.WriteFile(path, []byte("# empty\n\n"), 0o644); err != nil {
			t.Fatal(err)
		}

		users, err := ReadPasswd(path)
		if err != nil {
			t.Fatalf("ReadPasswd() error = %v", err)
		}
		if len(users) != 0 {
			t.Errorf("ReadPasswd() = %+v, want none", users)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadPasswd(filepath.Join(t.TempDir(), "nope"))
		if err == nil {
			t.Fatal("ReadPasswd() expected error for missing file")
		}
	})
}
