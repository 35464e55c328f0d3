package doctor

import (
	"context"
	"fmt"
	"os/exec"
)

// ToolCheck verifies a local program is on PATH.
type ToolCheck struct {
	Binary     string
	Purpose    string // what vmprov uses it for
	Optional   bool   // a missing optional tool is a warning
	Suggestion string
	// LookPath defaults to exec.LookPath.
	LookPath func(file string) (string, error)
}

func (c *ToolCheck) Name() string     { return "tool_" + c.Binary }
func (c *ToolCheck) Category() string { return "TOOLS" }

func (c *ToolCheck) Run(ctx context.Context) CheckResult {
	lookPath := c.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	path, err := lookPath(c.Binary)
	if err != nil {
		status := StatusFail
		if c.Optional {
			status = StatusWarn
		}
		return CheckResult{
			Name:       c.Name(),
			Status:     status,
			Message:    fmt.Sprintf("%s not found (needed to %s)", c.Binary, c.Purpose),
			Suggestion: c.Suggestion,
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("%s: %s", c.Binary, path),
	}
}

func (c *ToolCheck) Fix(ctx context.Context) error {
	return nil
}
