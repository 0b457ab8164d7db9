package ui

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"nh-go/internal/nh"
)

// ErrNotInteractive is returned when a confirmation is required but there is
// no terminal to ask on.
var ErrNotInteractive = errors.New("cannot ask for confirmation: input is not a terminal")

// PromptConfirmer asks yes/no questions with a huh confirm field.
type PromptConfirmer struct {
	in          io.Reader
	out         io.Writer
	interactive bool
	accessible  bool
}

// NewPromptConfirmer creates a confirmer reading answers from in. When in is a
// file that is not a terminal, every question fails with ErrNotInteractive
// rather than silently taking a default. Readers that are not files, and any
// input when ACCESSIBLE is set, get the line-oriented accessible prompt.
func NewPromptConfirmer(in io.Reader, out io.Writer) *PromptConfirmer {
	c := &PromptConfirmer{in: in, out: out, interactive: true, accessible: true}
	if f, ok := in.(*os.File); ok {
		c.interactive = term.IsTerminal(int(f.Fd()))
		c.accessible = os.Getenv("ACCESSIBLE") != ""
	}
	return c
}

// Confirm asks question with def preselected. Aborting the prompt with
// ctrl+c or esc counts as a no.
func (c *PromptConfirmer) Confirm(question string, def bool) (bool, error) {
	if !c.interactive {
		return false, ErrNotInteractive
	}

	confirm := def
	field := huh.NewConfirm().
		Title(question).
		Affirmative("Yes").
		Negative("No").
		Value(&confirm)

	var err error
	if c.accessible {
		err = field.RunAccessible(c.out, c.in)
	} else {
		err = field.Run()
	}
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("prompting: %w", err)
	}
	return confirm, nil
}

// Compile-time check that PromptConfirmer implements nh.Confirmer interface
var _ nh.Confirmer = (*PromptConfirmer)(nil)
