package contracts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeRunner scripts the sub-agent's response per contract title.
type fakeRunner struct {
	fail   bool
	errMsg string
	ran    []string
}

func (f *fakeRunner) Run(_ context.Context, title, _ string) (string, error) {
	f.ran = append(f.ran, title)
	if f.fail {
		return "", fmt.Errorf("%s", f.errMsg)
	}
	return "did the thing", nil
}

func writeContract(t *testing.T, dir, name, content string) string {
	t.Helper()
	cdir := filepath.Join(dir, "contracts")
	if err := os.MkdirAll(cdir, 0o750); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(cdir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseTitle(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"heading", "# Fix the build\n\npending\n", "Fix the build"},
		{"heading later in file", "intro line\n# Real Title\n", "Real Title"},
		{"first non-blank line", "\n\njust a task\npending\n", "just a task"},
		{"empty file", "", "empty"},
		{"blank lines only", "\n\n\n", "empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseTitle(tt.text); got != tt.want {
				t.Errorf("parseTitle = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsPending(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"bare pending line", "# T\npending\n", true},
		{"pending with trailing spaces", "# T\npending   \n", true},
		{"pending mid-sentence does not count", "# T\nthis is pending review\n", false},
		{"prefixed word does not count", "# T\nspending\n", false},
		{"no marker", "# T\nall done\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isPending(tt.text); got != tt.want {
				t.Errorf("isPending = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExecuteAllMovesCompletedContracts(t *testing.T) {
	dir := t.TempDir()
	writeContract(t, dir, "001-task.md", "# First Task\n\npending\n")
	writeContract(t, dir, "002-skip.md", "# Not Ready\n\nno marker here\n")

	runner := &fakeRunner{}
	svc := NewService(dir, runner)

	out, err := svc.ExecuteAll(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Executed 1 contract(s)") {
		t.Errorf("out = %q", out)
	}
	if !strings.Contains(out, "completed: First Task") {
		t.Errorf("out = %q, want a completed line", out)
	}
	if len(runner.ran) != 1 || runner.ran[0] != "First Task" {
		t.Errorf("ran = %v", runner.ran)
	}

	if _, err := os.Stat(filepath.Join(dir, "contracts", "001-task.md")); !os.IsNotExist(err) {
		t.Error("completed contract still in contracts/")
	}
	if _, err := os.Stat(filepath.Join(dir, "contracts_completed", "001-task.md")); err != nil {
		t.Errorf("completed contract not moved: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "contracts", "002-skip.md")); err != nil {
		t.Errorf("non-pending contract should stay put: %v", err)
	}
}

func TestExecuteAllFailureLeavesContractInPlace(t *testing.T) {
	dir := t.TempDir()
	writeContract(t, dir, "001-task.md", "# Broken Task\n\npending\n")

	svc := NewService(dir, &fakeRunner{fail: true, errMsg: "model unavailable"})
	out, err := svc.ExecuteAll(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "failed: Broken Task") {
		t.Errorf("out = %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "contracts", "001-task.md")); err != nil {
		t.Errorf("failed contract must not move: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "TOKEN_EXPIRED.txt")); !os.IsNotExist(err) {
		t.Error("non-auth failure must not write TOKEN_EXPIRED.txt")
	}
}

func TestAuthFailureWritesTokenExpired(t *testing.T) {
	dir := t.TempDir()
	writeContract(t, dir, "001-task.md", "# Auth Task\n\npending\n")

	svc := NewService(dir, &fakeRunner{fail: true, errMsg: "API error 401: OAuth token has expired"})
	if _, err := svc.ExecuteAll(t.Context()); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "TOKEN_EXPIRED.txt"))
	if err != nil {
		t.Fatalf("TOKEN_EXPIRED.txt missing: %v", err)
	}
	if !strings.Contains(string(data), "Remediation") {
		t.Errorf("alert lacks remediation steps:\n%s", data)
	}
}

func TestExecuteAllNoPendingContracts(t *testing.T) {
	svc := NewService(t.TempDir(), &fakeRunner{})
	out, err := svc.ExecuteAll(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if out != "No pending contracts found." {
		t.Errorf("out = %q", out)
	}
}
