//go:build linux

package logging

import (
	"os"
	"syscall"
)

// RedirectStderr points fd 2 at f so panics and stray writes from child
// processes land in errors.log, not the console.
func RedirectStderr(f *os.File) error {
	return syscall.Dup3(int(f.Fd()), int(os.Stderr.Fd()), 0)
}
