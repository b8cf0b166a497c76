//go:build !windows

package upgrade

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// ExecReplace chdirs into target and replaces the current process image
// with /bin/bash <target>/bootstrap.sh. On success this function never
// returns; the caller's deferred cleanup (pidfile removal, log flushing)
// never runs. The successor process inherits the same PID, so at no
// moment do two runners exist.
func (c Controller) ExecReplace(target string) error {
	if err := os.Chdir(target); err != nil {
		return fmt.Errorf("chdir %s: %w", target, err)
	}
	entry := filepath.Join(target, BootstrapEntryPoint)
	argv := []string{"/bin/bash", entry}
	env := os.Environ()
	return syscall.Exec("/bin/bash", argv, env)
}
