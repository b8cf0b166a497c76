//go:build windows

package watcher

import "syscall"

// detachAttr detaches the launched Runner from the Watcher's console.
func detachAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: 0x00000008 | 0x00000200} // DETACHED_PROCESS | CREATE_NEW_PROCESS_GROUP
}
