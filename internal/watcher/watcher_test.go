package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/autofram-dev/autofram/internal/logging"
	"github.com/autofram-dev/autofram/internal/procscan"
	"github.com/autofram-dev/autofram/internal/upgrade"
)

// testWatcher wraps a Watcher whose side effects (launch, terminate,
// push, sleep) are recorded instead of executed.
type testWatcher struct {
	*Watcher
	launches   int
	terminated []int
	pushes     []string
	slept      []time.Duration
	clock      time.Time
}

func newTestWatcher(t *testing.T) *testWatcher {
	t.Helper()
	mainDir := t.TempDir()
	sink, err := logging.NewWatcherSink(filepath.Join(mainDir, "logs"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = sink.Close() })

	tw := &testWatcher{Watcher: New(mainDir, sink), clock: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	tw.now = func() time.Time { return tw.clock }
	tw.sleep = func(_ context.Context, d time.Duration) bool {
		tw.slept = append(tw.slept, d)
		return true
	}
	tw.findRunner = func() *procscan.Process { return nil }
	tw.sampleCPU = func(_ context.Context, _ int) (float64, error) { return 0, nil }
	tw.terminate = func(pid int) { tw.terminated = append(tw.terminated, pid) }
	tw.launch = func(_ context.Context) error {
		tw.launches++
		return nil
	}
	tw.commitAndPush = func(_ context.Context, _, msg string) error {
		tw.pushes = append(tw.pushes, msg)
		return nil
	}
	return tw
}

func touchMarker(t *testing.T, w *Watcher) {
	t.Helper()
	if err := os.MkdirAll(w.logsDir(), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(w.markerPath(), nil, 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestMissingRunnerWithFreshMarkerSuppressesCrash(t *testing.T) {
	tw := newTestWatcher(t)
	touchMarker(t, tw.Watcher)
	// Marker mtime is "now"; pin the watcher clock 10s later, well
	// inside the grace period.
	tw.clock = time.Now().Add(10 * time.Second)

	tw.Tick(t.Context())

	if got := tw.Budget.Len(); got != 0 {
		t.Errorf("crash count = %d, want 0", got)
	}
	if tw.launches != 0 {
		t.Errorf("launches = %d, want 0", tw.launches)
	}
}

func TestMissingRunnerWithStaleMarkerRestarts(t *testing.T) {
	tw := newTestWatcher(t)
	touchMarker(t, tw.Watcher)
	stale := time.Now().Add(-2 * BootstrapGrace)
	if err := os.Chtimes(tw.markerPath(), stale, stale); err != nil {
		t.Fatal(err)
	}
	tw.clock = time.Now()

	tw.Tick(t.Context())

	if got := tw.Budget.Len(); got != 1 {
		t.Errorf("crash count = %d, want 1", got)
	}
	if tw.launches != 1 {
		t.Errorf("launches = %d, want 1", tw.launches)
	}
	if len(tw.slept) == 0 || tw.slept[len(tw.slept)-1] != PostLaunchDelay {
		t.Errorf("expected final sleep of %s after launch, got %v", PostLaunchDelay, tw.slept)
	}
}

func TestCrashBudgetExhaustionAlertsInsteadOfRestarting(t *testing.T) {
	tw := newTestWatcher(t)
	for range 4 {
		tw.Budget.Record(tw.clock)
	}

	tw.Tick(t.Context())

	if got := tw.Budget.Len(); got != 5 {
		t.Errorf("crash count = %d, want 5", got)
	}
	if tw.launches != 0 {
		t.Errorf("launches = %d, want 0 after budget exhaustion", tw.launches)
	}
	if len(tw.slept) == 0 || tw.slept[len(tw.slept)-1] != PostCrashLimitDelay {
		t.Errorf("expected %s pause after exhaustion, got %v", PostCrashLimitDelay, tw.slept)
	}

	comms, err := os.ReadFile(filepath.Join(tw.MainDir, commsName))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(comms), "**WATCHER ALERT**") {
		t.Errorf("COMMS.md missing alert block:\n%s", comms)
	}
	if len(tw.pushes) != 1 || !strings.HasPrefix(tw.pushes[0], "WATCHER ALERT: ") {
		t.Errorf("pushes = %v, want one WATCHER ALERT commit", tw.pushes)
	}
}

func TestAlertAppendsToExistingComms(t *testing.T) {
	tw := newTestWatcher(t)
	path := filepath.Join(tw.MainDir, commsName)
	if err := os.WriteFile(path, []byte("# Tasks\n\n- do things\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	tw.alertPM(t.Context(), "boom")

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(got), "# Tasks\n") {
		t.Errorf("existing COMMS.md content was not preserved:\n%s", got)
	}
	if !strings.Contains(string(got), "boom") {
		t.Errorf("alert message missing:\n%s", got)
	}
}

func TestUnhealthyRunnerTerminatedAndRestarted(t *testing.T) {
	tw := newTestWatcher(t)
	tw.findRunner = func() *procscan.Process { return &procscan.Process{PID: 4242, Cmdline: "bin/runner"} }
	// Log explosion: one byte over the limit.
	if err := os.MkdirAll(tw.logsDir(), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(tw.errorsPath(), make([]byte, LogSizeLimit+1), 0o600); err != nil {
		t.Fatal(err)
	}

	tw.Tick(t.Context())

	if len(tw.terminated) != 1 || tw.terminated[0] != 4242 {
		t.Errorf("terminated = %v, want [4242]", tw.terminated)
	}
	if got := tw.Budget.Len(); got != 1 {
		t.Errorf("crash count = %d, want 1", got)
	}
	if tw.launches != 1 {
		t.Errorf("launches = %d, want 1", tw.launches)
	}
}

func TestHealthCheckLogSizeBoundary(t *testing.T) {
	tw := newTestWatcher(t)
	if err := os.MkdirAll(tw.logsDir(), 0o750); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(tw.errorsPath(), make([]byte, LogSizeLimit), 0o600); err != nil {
		t.Fatal(err)
	}
	if reason := tw.healthCheck(t.Context(), 1); reason != "" {
		t.Errorf("errors.log at exactly the limit should be healthy, got %q", reason)
	}

	if err := os.WriteFile(tw.errorsPath(), make([]byte, LogSizeLimit+1), 0o600); err != nil {
		t.Fatal(err)
	}
	if reason := tw.healthCheck(t.Context(), 1); reason == "" {
		t.Error("errors.log one byte over the limit should be unhealthy")
	}
}

func TestCheckCPUSustainedThreshold(t *testing.T) {
	tw := newTestWatcher(t)

	if reason := tw.checkCPU(CPUThreshold); reason != "" {
		t.Errorf("first at-threshold sample should only start the clock, got %q", reason)
	}

	tw.clock = tw.clock.Add(CPUDuration - time.Second)
	if reason := tw.checkCPU(CPUThreshold); reason != "" {
		t.Errorf("sustained for less than the duration should be healthy, got %q", reason)
	}

	tw.clock = tw.clock.Add(time.Second)
	if reason := tw.checkCPU(CPUThreshold); reason == "" {
		t.Error("sustained for the full duration should be unhealthy")
	}
}

func TestCheckCPUResetsBelowThreshold(t *testing.T) {
	tw := newTestWatcher(t)

	tw.checkCPU(CPUThreshold)
	tw.clock = tw.clock.Add(CPUDuration / 2)
	if reason := tw.checkCPU(CPUThreshold - 1); reason != "" {
		t.Errorf("below-threshold sample should be healthy, got %q", reason)
	}

	// The clock restarted: a full duration must elapse again.
	tw.checkCPU(CPUThreshold)
	tw.clock = tw.clock.Add(CPUDuration - time.Second)
	if reason := tw.checkCPU(CPUThreshold); reason != "" {
		t.Errorf("clock should have reset on the dip, got %q", reason)
	}
}

func TestMissingRunnerLogsFailedBootstrap(t *testing.T) {
	tw := newTestWatcher(t)
	if err := upgrade.AppendLog(tw.bootLogPath(), upgrade.StatusBootstrapping, "feat"); err != nil {
		t.Fatal(err)
	}

	tw.Tick(t.Context())

	// A failed bootstrap still restarts from main.
	if tw.launches != 1 {
		t.Errorf("launches = %d, want 1", tw.launches)
	}
	logData, err := os.ReadFile(filepath.Join(tw.logsDir(), "watcher.log"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(logData), "last bootstrap did not succeed") {
		t.Errorf("watcher.log does not record the failed bootstrap:\n%s", logData)
	}
}
