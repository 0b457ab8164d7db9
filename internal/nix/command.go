package nix

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"nh-go/internal/nh"
)

// ExitError reports an external command that ran but did not succeed.
type ExitError struct {
	Command string
	Code    int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Command, e.Code)
}

// Runner starts external commands, streaming their output to the given writers.
type Runner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	logger nh.Logger
}

// NewRunner creates a Runner wired to the process's standard streams.
func NewRunner(logger nh.Logger) *Runner {
	return &Runner{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		logger: logger,
	}
}

// Run executes argv and waits for it. A non-zero exit status is returned as
// an *ExitError carrying the code.
func (r *Runner) Run(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("empty command")
	}

	line := strings.Join(argv, " ")
	r.logger.Debug("running command", "command", line)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{Command: line, Code: exitErr.ExitCode()}
		}
		return fmt.Errorf("running %s: %w", line, err)
	}
	return nil
}
