package util

import (
	"context"
	"os/exec"
)

// Runner executes an external command and returns its combined output.
// Callers take one as a field so tests can substitute it.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs the command with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}
