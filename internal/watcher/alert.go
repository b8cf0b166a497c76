package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// commsName is the human<->agent task inbox at the main checkout's root.
const commsName = "COMMS.md"

// alertPM appends a timestamped WATCHER ALERT block to COMMS.md and
// commits and pushes it to origin/main so the human sees it even when
// not on the host. Every step is best-effort: a failed write or push is
// logged, never fatal. The write can race an in-flight Runner write to
// the same file; there is no locking and last writer wins.
func (w *Watcher) alertPM(ctx context.Context, message string) {
	w.Sink.Logger().Error("PM alert", "message", message)

	path := filepath.Join(w.MainDir, commsName)
	ts := w.now().Format("2006-01-02 15:04:05")
	block := fmt.Sprintf("\n\n---\n**WATCHER ALERT** (%s):\n%s\n", ts, message)

	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		w.Sink.Logger().Error("failed to read COMMS.md for alert", "err", err)
		return
	}
	if err := os.WriteFile(path, append(existing, block...), 0o644); err != nil { //nolint:gosec // COMMS.md is a world-readable repo file.
		w.Sink.Logger().Error("failed to write PM alert", "err", err)
		return
	}

	commitMsg := "WATCHER ALERT: " + truncate(message, 50)
	if err := w.commitAndPush(ctx, commsName, commitMsg); err != nil {
		w.Sink.Logger().Warn("failed to push PM alert", "err", err)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
