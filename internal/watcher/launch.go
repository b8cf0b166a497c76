package watcher

import (
	"context"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// terminateProcess asks pid to exit with SIGTERM, waits up to
// TerminateWait, then SIGKILLs whatever is left. The Runner is not our
// child, so the wait polls liveness instead of wait(2).
func terminateProcess(pid int) {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		_ = proc.Kill()
		return
	}
	deadline := time.Now().Add(TerminateWait)
	for time.Now().Before(deadline) {
		if proc.Signal(syscall.Signal(0)) != nil {
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	_ = proc.Kill()
}

// launchDetached starts RunnerCmd in MainDir in its own session so the
// Runner survives a Watcher restart, and releases the process handle
// immediately: the Watcher observes the Runner through /proc and the PID
// file, never through wait(2).
func (w *Watcher) launchDetached(_ context.Context) error {
	cmd := exec.Command(w.RunnerCmd[0], w.RunnerCmd[1:]...) //nolint:gosec // RunnerCmd is operator configuration, not request input.
	cmd.Dir = w.MainDir
	cmd.Env = os.Environ()
	cmd.SysProcAttr = detachAttr()
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}
