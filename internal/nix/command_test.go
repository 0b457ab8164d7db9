package nix

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"nh-go/internal/nh"
)

func newTestRunner() (*Runner, *bytes.Buffer) {
	var out bytes.Buffer
	r := NewRunner(nh.NewNopLogger())
	r.Stdin = strings.NewReader("")
	r.Stdout = &out
	r.Stderr = &out
	return r, &out
}

func TestRunner_Run(t *testing.T) {
	t.Run("streams output", func(t *testing.T) {
		r, out := newTestRunner()

		if err := r.Run(context.Background(), []string{"echo", "collected"}); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if got := strings.TrimSpace(out.String()); got != "collected" {
			t.Errorf("output = %q, want %q", got, "collected")
		}
	})

	t.Run("reports exit status", func(t *testing.T) {
		r, _ := newTestRunner()

		err := r.Run(context.Background(), []string{"sh", "-c", "exit 3"})
		var exitErr *ExitError
		if !errors.As(err, &exitErr) {
			t.Fatalf("Run() error = %v, want *ExitError", err)
		}
		if exitErr.Code != 3 {
			t.Errorf("Code = %d, want 3", exitErr.Code)
		}
		if !strings.Contains(exitErr.Error(), "status 3") {
			t.Errorf("Error() = %q, want it to mention status 3", exitErr.Error())
		}
	})

	t.Run("missing executable", func(t *testing.T) {
		r, _ := newTestRunner()

		err := r.Run(context.Background(), []string{"/nonexistent/nix-store", "--gc"})
		if err == nil {
			t.Fatal("Run() expected error for missing executable")
		}
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			t.Errorf("Run() error = %v, want a start failure rather than an exit status", err)
		}
	})

	t.Run("empty command", func(t *testing.T) {
		r, _ := newTestRunner()

		if err := r.Run(context.Background(), nil); err == nil {
			t.Error("Run() expected error for empty command")
		}
	})
}

func TestStoreCollector_CollectGarbage(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		r, _ := newTestRunner()
		c := NewStoreCollector(r, []string{"true"})

		if err := c.CollectGarbage(context.Background()); err != nil {
			t.Errorf("CollectGarbage() error = %v", err)
		}
	})

	t.Run("failure carries exit code", func(t *testing.T) {
		r, _ := newTestRunner()
		c := NewStoreCollector(r, []string{"sh", "-c", "exit 2"})

		err := c.CollectGarbage(context.Background())
		var exitErr *ExitError
		if !errors.As(err, &exitErr) {
			t.Fatalf("CollectGarbage() error = %v, want *ExitError", err)
		}
		if exitErr.Code != 2 {
			t.Errorf("Code = %d, want 2", exitErr.Code)
		}
	})
}

func TestElevator_Reexec(t *testing.T) {
	t.Run("propagates child exit code", func(t *testing.T) {
		r, _ := newTestRunner()
		// false ignores its arguments and exits 1, standing in for a failed elevated run.
		e := NewElevator(r, "false")

		code, err := e.Reexec(context.Background(), []string{"clean", "all"})
		if err != nil {
			t.Fatalf("Reexec() error = %v", err)
		}
		if code != 1 {
			t.Errorf("Reexec() code = %d, want 1", code)
		}
	})

	t.Run("passes the executable and arguments", func(t *testing.T) {
		r, out := newTestRunner()
		e := NewElevator(r, "echo")

		code, err := e.Reexec(context.Background(), []string{"clean", "all", "--dry"})
		if err != nil {
			t.Fatalf("Reexec() error = %v", err)
		}
		if code != 0 {
			t.Errorf("Reexec() code = %d, want 0", code)
		}
		if !strings.HasSuffix(strings.TrimSpace(out.String()), "clean all --dry") {
			t.Errorf("output = %q, want it to end with the original arguments", out.String())
		}
	})

	t.Run("missing elevation command", func(t *testing.T) {
		r, _ := newTestRunner()
		e := NewElevator(r, "/nonexistent/sudo")

		if _, err := e.Reexec(context.Background(), nil); err == nil {
			t.Error("Reexec() expected error for missing elevation command")
		}
	})
}
