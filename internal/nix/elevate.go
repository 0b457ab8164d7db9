package nix

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Elevator re-runs the current invocation with root privileges.
type Elevator struct {
	runner  *Runner
	command string
}

// NewElevator creates an Elevator using command, e.g. "sudo" or "doas".
func NewElevator(runner *Runner, command string) *Elevator {
	return &Elevator{runner: runner, command: command}
}

// Reexec runs this executable again under the elevation command with args
// (the original arguments, without the program name), waits for it and returns
// its exit code. The caller is expected to exit with that code.
func (e *Elevator) Reexec(ctx context.Context, args []string) (int, error) {
	self, err := os.Executable()
	if err != nil {
		return 1, fmt.Errorf("locating executable: %w", err)
	}

	argv := append([]string{e.command, self}, args...)
	if err := e.runner.Run(ctx, argv); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code, nil
		}
		return 1, fmt.Errorf("elevating with %s: %w", e.command, err)
	}
	return 0, nil
}
