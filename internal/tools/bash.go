package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// BashTimeout is the bash tool's hard timeout.
const BashTimeout = 5 * time.Minute

type bashArgs struct {
	Command string `json:"command" jsonschema:"required,description=The shell command to execute."`
}

// Bash runs command through /bin/sh -c, capturing stdout and stderr and
// appending an "[Exit code: N]" suffix when the process exits non-zero.
// Output order is stdout, then stderr, then the exit-code line.
func (tc ToolContext) Bash(ctx context.Context, command string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, BashTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command) //nolint:gosec // bash is an intentionally unrestricted agent tool.
	cmd.Dir = tc.WorkingDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	var parts []string
	if stdout.Len() > 0 {
		parts = append(parts, strings.TrimRight(stdout.String(), "\n"))
	}
	if stderr.Len() > 0 {
		parts = append(parts, strings.TrimRight(stderr.String(), "\n"))
	}
	exitCode := 0
	if exitErr, ok := asExitError(runErr); ok {
		exitCode = exitErr.ExitCode()
	} else if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("bash command timed out after %s", BashTimeout)
	} else if runErr != nil {
		return "", runErr
	}
	if exitCode != 0 {
		parts = append(parts, fmt.Sprintf("[Exit code: %d]", exitCode))
	}
	if len(parts) == 0 {
		return "[No output]", nil
	}
	return strings.Join(parts, "\n"), nil
}

func asExitError(err error) (*exec.ExitError, bool) {
	exitErr, ok := err.(*exec.ExitError)
	return exitErr, ok
}
