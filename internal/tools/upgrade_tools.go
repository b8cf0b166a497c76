package tools

import (
	"context"
	"fmt"

	"github.com/autofram-dev/autofram/internal/upgrade"
)

type bootstrapArgs struct {
	Branch string `json:"branch" jsonschema:"required,description=Git branch to clone/update and exec-replace the current process with."`
}

// Bootstrap implements the hop-scotch upgrade: touch the marker,
// clone-or-update the target branch, then replace the current process
// image. On success it never returns to its caller.
func (tc ToolContext) Bootstrap(ctx context.Context, branch string) error {
	if err := tc.Upgrade.TouchMarker(); err != nil {
		return fmt.Errorf("touch bootstrap marker: %w", err)
	}
	if err := upgrade.AppendLog(tc.Upgrade.LogPath(), upgrade.StatusBootstrapping, branch); err != nil {
		return fmt.Errorf("log bootstrap start: %w", err)
	}
	target, err := tc.Upgrade.CloneOrUpdate(ctx, branch)
	if err != nil {
		return fmt.Errorf("clone or update %s: %w", branch, err)
	}
	return tc.Upgrade.ExecReplace(target)
}

// Rollback is bootstrap("main"), the recovery path when the current
// branch is broken.
func (tc ToolContext) Rollback(ctx context.Context) error {
	return tc.Bootstrap(ctx, "main")
}
