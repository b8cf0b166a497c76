// Package watcher implements the supervision process: a poll loop that
// finds the Runner, checks its health, restarts it when it is missing or
// unhealthy, and alerts a human once the crash budget is exhausted. It
// runs as its own OS process, launched from the main branch's checkout,
// and observes the Runner only through the filesystem and /proc.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/autofram-dev/autofram/internal/gitutil"
	"github.com/autofram-dev/autofram/internal/logging"
	"github.com/autofram-dev/autofram/internal/procscan"
	"github.com/autofram-dev/autofram/internal/upgrade"
)

const (
	// CheckInterval is the poll period between supervision ticks.
	CheckInterval = 5 * time.Second
	// CPUThreshold is the CPU percentage at or above which a sample
	// counts toward runaway detection.
	CPUThreshold = 95.0
	// CPUDuration is how long CPU must stay at or above CPUThreshold
	// before the Runner is declared unhealthy.
	CPUDuration = 60 * time.Second
	// LogSizeLimit is the errors.log size above which the Runner is
	// declared unhealthy.
	LogSizeLimit = 1 * 1024 * 1024
	// CrashLimit is the number of crashes inside CrashWindow at which
	// the Watcher stops restarting and alerts instead.
	CrashLimit = 5
	// CrashWindow is the sliding window crashes are counted over.
	CrashWindow = time.Hour
	// PostLaunchDelay gives a freshly launched Runner time to start
	// before polling resumes.
	PostLaunchDelay = 10 * time.Second
	// PostCrashLimitDelay is the pause after the crash budget is
	// exhausted, so an alerted human has time to intervene.
	PostCrashLimitDelay = 300 * time.Second
	// BootstrapGrace is how long a fresh bootstrap marker suppresses
	// crash detection while an upgrade's exec-replace is in flight.
	BootstrapGrace = 60 * time.Second
	// TerminateWait is how long a SIGTERM'd Runner gets before SIGKILL.
	TerminateWait = 10 * time.Second
)

// Watcher supervises the Runner from its own OS process.
type Watcher struct {
	// MainDir is the main branch's checkout, where the logs, marker, and
	// COMMS.md the Watcher reads and writes live.
	MainDir string
	// Sink receives watcher.log output.
	Sink *logging.Sink
	// Budget is the sliding-window crash counter.
	Budget *CrashBudget
	// RunnerCmd is the argv the Watcher launches (detached, in MainDir)
	// to restart the Runner.
	RunnerCmd []string

	// Test seams; New fills in the real implementations.
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) bool
	findRunner func() *procscan.Process
	sampleCPU  func(ctx context.Context, pid int) (float64, error)
	terminate  func(pid int)
	launch     func(ctx context.Context) error
	// commitAndPush publishes one file from MainDir to origin/main.
	commitAndPush func(ctx context.Context, relPath, message string) error

	highCPUStart time.Time
}

// DefaultRunnerCmd is the Runner argv launched relative to MainDir.
var DefaultRunnerCmd = []string{filepath.Join("bin", "runner")}

// New returns a Watcher supervising the Runner from mainDir.
func New(mainDir string, sink *logging.Sink) *Watcher {
	w := &Watcher{
		MainDir:   mainDir,
		Sink:      sink,
		Budget:    NewCrashBudget(),
		RunnerCmd: DefaultRunnerCmd,
		now:       time.Now,
	}
	w.sleep = sleepOrDone
	w.findRunner = func() *procscan.Process { return procscan.FindRunner(mainDir) }
	w.sampleCPU = sampleCPUPercent
	w.terminate = terminateProcess
	w.launch = w.launchDetached
	w.commitAndPush = func(ctx context.Context, relPath, message string) error {
		return gitutil.CommitAndPushFile(ctx, mainDir, relPath, message)
	}
	return w
}

func (w *Watcher) logsDir() string     { return filepath.Join(w.MainDir, "logs") }
func (w *Watcher) markerPath() string  { return filepath.Join(w.logsDir(), upgrade.MarkerName) }
func (w *Watcher) bootLogPath() string { return filepath.Join(w.logsDir(), upgrade.LogName) }
func (w *Watcher) errorsPath() string  { return filepath.Join(w.logsDir(), "errors.log") }

// Run polls until ctx is canceled. The initial sleep gives a Runner
// started alongside the Watcher a moment to appear.
func (w *Watcher) Run(ctx context.Context) {
	w.Sink.Logger().Info("watcher starting", "main_dir", w.MainDir)
	if !w.sleep(ctx, CheckInterval) {
		return
	}
	for {
		w.Tick(ctx)
		if !w.sleep(ctx, CheckInterval) {
			w.Sink.Logger().Info("watcher shutting down")
			return
		}
	}
}

// Tick runs one supervision iteration: find the Runner, then either
// handle its absence or check its health.
func (w *Watcher) Tick(ctx context.Context) {
	proc := w.findRunner()
	if proc == nil {
		w.handleMissing(ctx)
		return
	}
	reason := w.healthCheck(ctx, proc.PID)
	if reason == "" {
		return
	}
	w.Sink.Logger().Warn("unhealthy runner", "pid", proc.PID, "reason", reason)
	w.terminate(proc.PID)
	w.crashAndRestart(ctx)
}

// handleMissing reacts to an absent Runner. A fresh bootstrap marker
// means an upgrade's exec-replace is in flight and absence is expected;
// anything else is a crash.
func (w *Watcher) handleMissing(ctx context.Context) {
	if upgrade.MarkerFresh(w.markerPath(), w.now(), BootstrapGrace) {
		w.Sink.Logger().Info("runner absent but bootstrap in flight, waiting")
		return
	}
	w.Sink.Logger().Warn("runner not found")
	if !upgrade.LastBootstrapSucceeded(w.bootLogPath()) {
		w.Sink.Logger().Warn("last bootstrap did not succeed, falling back to main")
	}
	w.crashAndRestart(ctx)
}

// crashAndRestart records a crash and either relaunches the Runner or,
// once the budget is exhausted, alerts the PM and pauses instead.
func (w *Watcher) crashAndRestart(ctx context.Context) {
	rec := w.Budget.Record(w.now())
	w.Sink.Logger().Warn("crash recorded", "crash_id", rec.ID.String(), "count", w.Budget.Len(), "window", w.Budget.Window.String())

	if w.Budget.Exhausted() {
		msg := fmt.Sprintf("Agent has crashed %d times in %d minutes. Manual intervention required.",
			w.Budget.Limit, int(w.Budget.Window.Minutes()))
		w.alertPM(ctx, msg)
		w.Sink.Logger().Error("crash limit reached, pausing restart attempts")
		w.sleep(ctx, PostCrashLimitDelay)
		return
	}

	w.launchRunner(ctx)
	w.sleep(ctx, PostLaunchDelay)
}

// launchRunner syncs the main checkout to origin and starts a detached
// Runner. Both steps are best-effort; failure leaves the next tick to
// try again.
func (w *Watcher) launchRunner(ctx context.Context) {
	w.highCPUStart = time.Time{}
	w.Sink.Logger().Info("launching runner from main")

	if err := gitutil.ResetHardToOrigin(ctx, w.MainDir, "main"); err != nil {
		w.Sink.Logger().Warn("git sync before launch failed", "err", err)
	}
	if err := os.MkdirAll(w.logsDir(), 0o750); err != nil {
		w.Sink.Logger().Warn("create logs dir failed", "err", err)
	}
	if err := w.launch(ctx); err != nil {
		w.Sink.Logger().Error("runner launch failed", "err", err)
		return
	}
	w.Sink.Logger().Info("runner launched")
}

// sleepOrDone sleeps for d, returning false if ctx is canceled first.
func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
