// Package procscan locates the Runner and Watcher processes on the
// local host. The primary mechanism is the Runner's PID file under
// <main>/logs; scanning /proc command lines is kept as the fallback for
// a Runner that died before writing it or an operator-started process.
package procscan

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/autofram-dev/autofram/internal/pidfile"
)

// RunnerPIDFile is the Runner's PID file name under <main>/logs.
const RunnerPIDFile = "runner.pid"

// Process identifies one discovered OS process.
type Process struct {
	PID     int
	Cmdline string
}

// RunnerPIDPath returns the Runner's PID file path under mainDir.
func RunnerPIDPath(mainDir string) string {
	return filepath.Join(mainDir, "logs", RunnerPIDFile)
}

// FindRunner locates the live Runner process: first via the PID file,
// then by scanning /proc command lines for a runner that is not the
// watcher. Returns nil when no live Runner exists.
func FindRunner(mainDir string) *Process {
	if pid, err := pidfile.Read(RunnerPIDPath(mainDir)); err == nil && pidfile.Alive(pid) {
		return &Process{PID: pid, Cmdline: cmdline(pid)}
	}
	return ScanArgv("runner", "watcher")
}

// FindWatcher locates the Watcher process by argv scan.
func FindWatcher() *Process {
	return ScanArgv("watcher", "")
}

// ScanArgv walks /proc for a process whose command line contains token
// and, when exclude is non-empty, does not contain exclude. The calling
// process itself is never returned.
func ScanArgv(token, exclude string) *Process {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil
	}
	self := os.Getpid()
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil || pid == self {
			continue
		}
		cmd := cmdline(pid)
		if cmd == "" {
			continue
		}
		if MatchesCmdline(cmd, token, exclude) {
			return &Process{PID: pid, Cmdline: cmd}
		}
	}
	return nil
}

// MatchesCmdline reports whether one space-joined command line belongs
// to the process named by token: some argv element's basename contains
// token, and no element contains exclude.
func MatchesCmdline(cmd, token, exclude string) bool {
	matched := false
	for _, arg := range strings.Fields(cmd) {
		if exclude != "" && strings.Contains(arg, exclude) {
			return false
		}
		if strings.Contains(filepath.Base(arg), token) {
			matched = true
		}
	}
	return matched
}

// cmdline returns pid's space-joined command line, or "" when
// inaccessible.
func cmdline(pid int) string {
	raw, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "cmdline"))
	if err != nil || len(raw) == 0 {
		return ""
	}
	return strings.TrimSpace(strings.ReplaceAll(string(raw), "\x00", " "))
}
