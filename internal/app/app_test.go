package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"nh-go/internal/config"
	"nh-go/internal/nh"
	"nh-go/internal/testutil"
)

func newTestApp(t *testing.T, out *bytes.Buffer, passwd string) *NHApp {
	t.Helper()

	cfg := config.NewConfig(t.TempDir())
	cfg.History.Type = "memory"
	cfg.Nix.GCCommand = []string{"true"}

	a, err := NewNHApp(cfg, Options{
		Stdin:      strings.NewReader(""),
		Stdout:     out,
		PasswdPath: passwd,
	})
	if err != nil {
		t.Fatalf("NewNHApp() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestNHApp_CleanProfile(t *testing.T) {
	var out bytes.Buffer
	a := newTestApp(t, &out, "")

	p := testutil.NewProfileFixture(t, "system")
	old := time.Now().Add(-72 * time.Hour)
	p.AddGeneration(1, old)
	p.AddGeneration(2, old)
	p.AddGeneration(3, old)
	p.SetCurrent(3)

	scope := nh.ProfileScope{Path: p.Path()}
	res, err := a.Resolve(scope)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.NeedsElevation {
		t.Fatal("profile scope must not need elevation")
	}

	result, err := a.Clean(context.Background(), res, nh.CleanRequest{Scope: scope, Policy: a.DefaultPolicy()})
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}

	if p.Exists(1) || p.Exists(2) || !p.Exists(3) {
		t.Error("clean did not keep exactly the newest generation")
	}
	if !result.GarbageCollected {
		t.Error("GarbageCollected = false, want true")
	}
	if !strings.Contains(out.String(), p.GenerationPath(1)) {
		t.Errorf("plan output does not name removed generation:\n%s", out.String())
	}

	runs, err := a.History(5)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(runs) != 1 || runs[0].RemovedCount != 2 {
		t.Errorf("History() = %+v, want one run with 2 removals", runs)
	}

	gens, err := a.Generations(p.Path())
	if err != nil {
		t.Fatalf("Generations() error = %v", err)
	}
	if len(gens) != 1 || !gens[0].Current {
		t.Errorf("Generations() = %+v, want only the current one", gens)
	}
}

func TestNHApp_Environment(t *testing.T) {
	passwd := filepath.Join(t.TempDir(), "passwd")
	content := "root:x:0:0::/root:/bin/sh\nalice:x:1000:100::/home/alice:/bin/sh\n"
	if err := os.WriteFile(passwd, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("XDG_STATE_HOME", "/tmp/state")

	var out bytes.Buffer
	a := newTestApp(t, &out, passwd)

	env, err := a.environment(nh.AllScope{})
	if err != nil {
		t.Fatalf("environment() error = %v", err)
	}
	if len(env.Users) != 2 {
		t.Errorf("Users = %+v, want 2 accounts", env.Users)
	}
	if env.XDGStateHome != "/tmp/state" {
		t.Errorf("XDGStateHome = %q", env.XDGStateHome)
	}
	if env.UIDMin != 1000 || env.UIDMax != 59999 {
		t.Errorf("UID range = %d-%d", env.UIDMin, env.UIDMax)
	}
	if env.EUID != os.Geteuid() {
		t.Errorf("EUID = %d, want %d", env.EUID, os.Geteuid())
	}

	env, err = a.environment(nh.UserScope{})
	if err != nil {
		t.Fatalf("environment() error = %v", err)
	}
	if len(env.Users) != 0 {
		t.Errorf("user scope read the account list: %+v", env.Users)
	}
}

func TestNewNHApp_BadPattern(t *testing.T) {
	cfg := config.NewConfig(t.TempDir())
	cfg.History.Type = "memory"
	cfg.Clean.GCRootPatterns = []config.GCRootPattern{{Name: "bad", Pattern: "("}}

	if _, err := NewNHApp(cfg, Options{}); err == nil {
		t.Error("NewNHApp() expected error for invalid gcroot pattern")
	}
}

func TestRootPatterns(t *testing.T) {
	if got := rootPatterns(nil); len(got) != len(nh.DefaultRootPatterns()) {
		t.Errorf("rootPatterns(nil) = %v, want defaults", got)
	}

	got := rootPatterns([]config.GCRootPattern{{Name: "build", Pattern: "/build$"}})
	if len(got) != 1 || got[0].Name != "build" || got[0].Pattern != "/build$" {
		t.Errorf("rootPatterns() = %v", got)
	}
}
