// Package upgrade implements the hop-scotch self-upgrade protocol: the
// bootstrap marker, the bootstrap log, and the Controller that performs
// clone-or-update followed by process replacement. POSIX hosts replace
// the process image in place with exec; other platforms spawn the
// successor and wait for it to report SUCCESS.
package upgrade

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/autofram-dev/autofram/internal/gitutil"
)

// MarkerName is the bootstrap-in-flight marker file under <main>/logs.
const MarkerName = "bootstrapping"

// LogName is the append-only bootstrap transcript under <main>/logs.
const LogName = "bootstrap.log"

// Status values written to the bootstrap log.
const (
	StatusBootstrapping = "BOOTSTRAPPING"
	StatusSuccess       = "SUCCESS"
)

// Controller performs the bootstrap/rollback protocol against one branch
// working copy tree.
type Controller struct {
	// AgentRoot is the parent of every per-branch checkout
	// (<AGENT_ROOT>/<branch>/autofram).
	AgentRoot string
	// MainDir is <AGENT_ROOT>/main/autofram, the copy the marker and log
	// live under regardless of which branch is being targeted.
	MainDir string
	// RemoteRepo is the git remote every clone targets.
	RemoteRepo string
}

// MarkerPath returns the bootstrap marker's path under the controller's
// main checkout.
func (c Controller) MarkerPath() string {
	return filepath.Join(c.MainDir, "logs", MarkerName)
}

// LogPath returns the bootstrap log's path under the controller's main
// checkout.
func (c Controller) LogPath() string {
	return filepath.Join(c.MainDir, "logs", LogName)
}

// TouchMarker creates the zero-byte bootstrap marker, creating the logs
// directory if needed. Must happen before clone-or-update so the Watcher
// never sees an upgrade window without the marker.
func (c Controller) TouchMarker() error {
	p := c.MarkerPath()
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return fmt.Errorf("create logs dir: %w", err)
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("touch bootstrap marker: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	// A marker left by an earlier upgrade keeps its old mtime unless it
	// is refreshed here, and the Watcher judges freshness by mtime.
	now := time.Now()
	return os.Chtimes(p, now, now)
}

// MarkerFresh reports whether the bootstrap marker exists with an mtime
// within grace of now.
func MarkerFresh(path string, now time.Time, grace time.Duration) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return now.Sub(info.ModTime()) < grace
}

// AppendLog appends a "<STATUS> <UTC-ISO8601> <branch>" line to the
// bootstrap log.
func AppendLog(path, status, branch string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create logs dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open bootstrap log: %w", err)
	}
	defer f.Close()
	line := fmt.Sprintf("%s %s %s\n", status, time.Now().UTC().Format("2006-01-02T15:04:05Z"), branch)
	_, err = f.WriteString(line)
	return err
}

// LastBootstrapSucceeded reports whether the most recent BOOTSTRAPPING
// entry in the log is followed by a SUCCESS entry. A log with no
// BOOTSTRAPPING entries at all is considered successful (nothing in
// flight to fail).
func LastBootstrapSucceeded(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return true
	}
	lines := splitLines(string(data))
	lastBootstrapping := -1
	for i, line := range lines {
		if hasPrefixStatus(line, StatusBootstrapping) {
			lastBootstrapping = i
		}
	}
	if lastBootstrapping == -1 {
		return true
	}
	for _, line := range lines[lastBootstrapping+1:] {
		if hasPrefixStatus(line, StatusSuccess) {
			return true
		}
	}
	return false
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

func hasPrefixStatus(line, status string) bool {
	return len(line) >= len(status) && line[:len(status)] == status
}

// targetDir returns <AGENT_ROOT>/<branch>/autofram.
func (c Controller) targetDir(branch string) string {
	return filepath.Join(c.AgentRoot, branch, "autofram")
}

// CloneOrUpdate implements step 2 of the bootstrap protocol: reset an
// existing checkout to origin/<branch>, or clone fresh if absent.
func (c Controller) CloneOrUpdate(ctx context.Context, branch string) (string, error) {
	target := c.targetDir(branch)
	if _, err := os.Stat(target); err == nil {
		if err := gitutil.ResetHardToOrigin(ctx, target, branch); err != nil {
			return "", fmt.Errorf("update existing checkout %s: %w", target, err)
		}
		return target, nil
	}
	if err := gitutil.CloneBranch(ctx, c.RemoteRepo, branch, target); err != nil {
		return "", fmt.Errorf("clone %s: %w", branch, err)
	}
	return target, nil
}

// BootstrapEntryPoint names the script ExecReplace runs after chdir'ing
// into the target checkout.
const BootstrapEntryPoint = "bootstrap.sh"
