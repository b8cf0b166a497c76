//go:build !windows

package watcher

import "syscall"

// detachAttr puts the launched Runner in a new session, detaching it
// from the Watcher's controlling terminal.
func detachAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
