package ui_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nh-go/internal/ui"
)

func TestPromptConfirmer_Confirm(t *testing.T) {
	tests := []struct {
		name  string
		input string
		def   bool
		want  bool
	}{
		{"yes", "y\n", false, true},
		{"full yes", "YES\n", false, true},
		{"no", "n\n", true, false},
		{"empty takes default no", "\n", false, false},
		{"empty takes default yes", "\n", true, true},
		{"eof takes default", "", false, false},
		{"reprompts on garbage", "maybe\ny\n", false, true},
		{"no trailing newline", "y", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out strings.Builder
			c := ui.NewPromptConfirmer(strings.NewReader(tt.input), &out)

			got, err := c.Confirm("Proceed?", tt.def)
			if err != nil {
				t.Fatalf("Confirm() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Confirm() = %v, want %v", got, tt.want)
			}
			if !strings.Contains(out.String(), "Proceed?") {
				t.Errorf("prompt = %q, want question", out.String())
			}
		})
	}
}

func TestPromptConfirmer_DefaultHint(t *testing.T) {
	tests := []struct {
		def  bool
		hint string
	}{
		{false, "[y/N]"},
		{true, "[Y/n]"},
	}

	for _, tt := range tests {
		var out strings.Builder
		c := ui.NewPromptConfirmer(strings.NewReader("\n"), &out)
		if _, err := c.Confirm("Go?", tt.def); err != nil {
			t.Fatalf("Confirm() error = %v", err)
		}
		if !strings.Contains(out.String(), tt.hint) {
			t.Errorf("prompt with default %v = %q, want %s", tt.def, out.String(), tt.hint)
		}
	}
}

func TestPromptConfirmer_NotTerminal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answers")
	if err := os.WriteFile(path, []byte("y\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	c := ui.NewPromptConfirmer(f, io.Discard)
	_, err = c.Confirm("Proceed?", false)
	if !errors.Is(err, ui.ErrNotInteractive) {
		t.Errorf("Confirm() error = %v, want ErrNotInteractive", err)
	}
}
