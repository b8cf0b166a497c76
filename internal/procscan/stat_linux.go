//go:build linux

package procscan

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// clockTicksPerSecond is the kernel's USER_HZ. Fixed at 100 on every
// mainstream Linux architecture.
const clockTicksPerSecond = 100

// statFields returns the post-comm fields of /proc/<pid>/stat. The comm
// field may itself contain spaces and parentheses, so parsing starts
// after the last ')'.
func statFields(pid int) ([]string, error) {
	raw, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return nil, err
	}
	s := string(raw)
	idx := strings.LastIndexByte(s, ')')
	if idx < 0 || idx+2 > len(s) {
		return nil, fmt.Errorf("malformed stat for pid %d", pid)
	}
	return strings.Fields(s[idx+2:]), nil
}

// State returns pid's one-letter kernel state (R, S, D, Z, ...), or ""
// when inaccessible.
func State(pid int) string {
	fields, err := statFields(pid)
	if err != nil || len(fields) < 1 {
		return ""
	}
	return fields[0]
}

// CPUTime returns pid's cumulative user+system CPU time.
func CPUTime(pid int) (time.Duration, error) {
	fields, err := statFields(pid)
	if err != nil {
		return 0, err
	}
	// fields[11] is utime, fields[12] is stime (fields start at the
	// state field, which is field 3 of the full line).
	if len(fields) < 13 {
		return 0, fmt.Errorf("short stat for pid %d", pid)
	}
	utime, err := strconv.ParseUint(fields[11], 10, 64)
	if err != nil {
		return 0, err
	}
	stime, err := strconv.ParseUint(fields[12], 10, 64)
	if err != nil {
		return 0, err
	}
	ticks := utime + stime
	return time.Duration(ticks) * time.Second / clockTicksPerSecond, nil
}

// StartTime returns the wall-clock instant pid started, derived from its
// starttime tick count and the boot time in /proc/stat.
func StartTime(pid int) (time.Time, error) {
	fields, err := statFields(pid)
	if err != nil {
		return time.Time{}, err
	}
	if len(fields) < 20 {
		return time.Time{}, fmt.Errorf("short stat for pid %d", pid)
	}
	startTicks, err := strconv.ParseUint(fields[19], 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	boot, err := bootTime()
	if err != nil {
		return time.Time{}, err
	}
	return boot.Add(time.Duration(startTicks) * time.Second / clockTicksPerSecond), nil
}

// bootTime reads the btime line of /proc/stat.
func bootTime() (time.Time, error) {
	raw, err := os.ReadFile("/proc/stat")
	if err != nil {
		return time.Time{}, err
	}
	for _, line := range strings.Split(string(raw), "\n") {
		if rest, ok := strings.CutPrefix(line, "btime "); ok {
			sec, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64)
			if err != nil {
				return time.Time{}, err
			}
			return time.Unix(sec, 0), nil
		}
	}
	return time.Time{}, fmt.Errorf("no btime in /proc/stat")
}
