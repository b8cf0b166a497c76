//go:build !linux

package procscan

import (
	"fmt"
	"time"
)

// State is unavailable off Linux; callers render "not accessible".
func State(int) string { return "" }

// CPUTime is unavailable off Linux, which disables CPU-runaway
// detection there.
func CPUTime(int) (time.Duration, error) {
	return 0, fmt.Errorf("process CPU time not available on this platform")
}

// StartTime is unavailable off Linux.
func StartTime(int) (time.Time, error) {
	return time.Time{}, fmt.Errorf("process start time not available on this platform")
}
