package watcher

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/autofram-dev/autofram/internal/procscan"
)

// cpuSampleInterval is the window one CPU-percent sample is measured
// over.
const cpuSampleInterval = 1 * time.Second

// healthCheck probes the Runner for the two unhealthy conditions, CPU
// runaway and log explosion, and returns a human-readable reason or ""
// when healthy. The CPU sample blocks for a second, so the log-size stat
// runs concurrently with it.
func (w *Watcher) healthCheck(ctx context.Context, pid int) string {
	var cpuPct float64
	var logSize int64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pct, err := w.sampleCPU(gctx, pid)
		if err != nil {
			return fmt.Errorf("cpu sample: %w", err)
		}
		cpuPct = pct
		return nil
	})
	g.Go(func() error {
		info, err := os.Stat(w.errorsPath())
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return fmt.Errorf("stat errors.log: %w", err)
		}
		logSize = info.Size()
		return nil
	})
	if err := g.Wait(); err != nil {
		// A Runner that vanished mid-probe is handled as missing on the
		// next tick, not as unhealthy now.
		w.Sink.Logger().Warn("health probe incomplete", "pid", pid, "err", err)
		return ""
	}

	if reason := w.checkCPU(cpuPct); reason != "" {
		return reason
	}
	if logSize > LogSizeLimit {
		return fmt.Sprintf("log explosion detected (%d bytes)", logSize)
	}
	return ""
}

// checkCPU tracks sustained high CPU. The first at-threshold sample
// starts the clock; the Runner is unhealthy once the elapsed time
// reaches CPUDuration. Any sample below threshold resets the clock.
func (w *Watcher) checkCPU(cpuPct float64) string {
	if cpuPct < CPUThreshold {
		w.highCPUStart = time.Time{}
		return ""
	}
	now := w.now()
	if w.highCPUStart.IsZero() {
		w.highCPUStart = now
		return ""
	}
	if now.Sub(w.highCPUStart) >= CPUDuration {
		return fmt.Sprintf("CPU runaway detected (%.0f%% for %s)", cpuPct, CPUDuration)
	}
	return ""
}

// sampleCPUPercent measures pid's CPU usage over cpuSampleInterval as a
// percentage of one core.
func sampleCPUPercent(ctx context.Context, pid int) (float64, error) {
	before, err := procscan.CPUTime(pid)
	if err != nil {
		return 0, err
	}
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-time.After(cpuSampleInterval):
	}
	after, err := procscan.CPUTime(pid)
	if err != nil {
		return 0, err
	}
	return float64(after-before) / float64(cpuSampleInterval) * 100, nil
}
