//go:build windows

package logging

import "os"

// RedirectStderr reassigns os.Stderr to f. Writes through the os.Stderr
// variable are captured; raw fd 2 writes are not.
func RedirectStderr(f *os.File) error {
	os.Stderr = f
	return nil
}
