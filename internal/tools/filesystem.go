package tools

import (
	"fmt"
	"os"
	"path/filepath"
)

// IsDirectoryError signals that a read_file call targeted a directory,
// which the Runner's sub-loop renders as a human-phrased hint rather
// than a generic error.
type IsDirectoryError struct{ Path string }

func (e *IsDirectoryError) Error() string {
	return fmt.Sprintf("%s is a directory, not a file; use `ls` to list its contents", e.Path)
}

// resolvePath: absolute paths pass through unchanged, relative paths
// resolve against base.
func resolvePath(path, base string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

type readFileArgs struct {
	Path string `json:"path" jsonschema:"required,description=Path to the file to read (relative to the working directory or absolute)."`
}

// ReadFile returns the full contents of the file at path, resolved
// against the working directory when relative.
func (tc ToolContext) ReadFile(path string) (string, error) {
	resolved := resolvePath(path, tc.WorkingDir)
	info, err := os.Stat(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("FileNotFoundError: %s", path)
		}
		return "", err
	}
	if info.IsDir() {
		return "", &IsDirectoryError{Path: path}
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type writeFileArgs struct {
	Path    string `json:"path" jsonschema:"required,description=Path to the file to write (relative to the working directory or absolute)."`
	Content string `json:"content" jsonschema:"required,description=Content to write to the file."`
}

// WriteFile writes content to path, creating parent directories as
// needed, and returns a "Successfully wrote N bytes to PATH"
// confirmation.
func (tc ToolContext) WriteFile(path, content string) (string, error) {
	resolved := resolvePath(path, tc.WorkingDir)
	if err := os.MkdirAll(filepath.Dir(resolved), 0o750); err != nil {
		return "", err
	}
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil { //nolint:gosec // repo-managed working tree, not sensitive credentials.
		return "", err
	}
	return fmt.Sprintf("Successfully wrote %d bytes to %s", len(content), path), nil
}
