package upgrade

import (
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestTouchMarkerCreatesParentDirs(t *testing.T) {
	c := Controller{MainDir: filepath.Join(t.TempDir(), "main", "autofram")}
	if err := c.TouchMarker(); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(c.MarkerPath())
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 0 {
		t.Errorf("marker size = %d, want 0", info.Size())
	}
}

func TestMarkerFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bootstrapping")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	now := time.Now()

	if !MarkerFresh(path, now.Add(10*time.Second), time.Minute) {
		t.Error("marker 10s old with 60s grace should be fresh")
	}
	if MarkerFresh(path, now.Add(2*time.Minute), time.Minute) {
		t.Error("marker 2m old with 60s grace should be stale")
	}
	if MarkerFresh(filepath.Join(t.TempDir(), "absent"), now, time.Minute) {
		t.Error("absent marker should never be fresh")
	}
}

func TestAppendLogLineFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "bootstrap.log")
	if err := AppendLog(path, StatusBootstrapping, "feat"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	line := strings.TrimRight(string(data), "\n")
	re := regexp.MustCompile(`^BOOTSTRAPPING \d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z feat$`)
	if !re.MatchString(line) {
		t.Errorf("log line %q does not match <STATUS> <UTC-ISO8601> <branch>", line)
	}
}

func TestLastBootstrapSucceeded(t *testing.T) {
	write := func(t *testing.T, lines ...string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "bootstrap.log")
		if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		return path
	}

	t.Run("missing log counts as success", func(t *testing.T) {
		if !LastBootstrapSucceeded(filepath.Join(t.TempDir(), "none")) {
			t.Error("want true for a missing log")
		}
	})

	t.Run("bootstrapping without success fails", func(t *testing.T) {
		path := write(t, "BOOTSTRAPPING 2025-06-01T12:00:00Z feat")
		if LastBootstrapSucceeded(path) {
			t.Error("want false when no SUCCESS follows")
		}
	})

	t.Run("success after bootstrapping passes", func(t *testing.T) {
		path := write(t,
			"BOOTSTRAPPING 2025-06-01T12:00:00Z feat",
			"SUCCESS 2025-06-01T12:00:05Z feat")
		if !LastBootstrapSucceeded(path) {
			t.Error("want true when SUCCESS follows")
		}
	})

	t.Run("newer bootstrapping invalidates older success", func(t *testing.T) {
		path := write(t,
			"BOOTSTRAPPING 2025-06-01T12:00:00Z feat",
			"SUCCESS 2025-06-01T12:00:05Z feat",
			"BOOTSTRAPPING 2025-06-01T13:00:00Z broken")
		if LastBootstrapSucceeded(path) {
			t.Error("want false: the last BOOTSTRAPPING has no SUCCESS after it")
		}
	})
}

func TestCloneOrUpdateClonesFreshCheckout(t *testing.T) {
	root := t.TempDir()
	remote := initBareRepoWithBranch(t, filepath.Join(root, "remote.git"), "feat")
	c := Controller{
		AgentRoot:  filepath.Join(root, "agent"),
		MainDir:    filepath.Join(root, "agent", "main", "autofram"),
		RemoteRepo: remote,
	}

	target, err := c.CloneOrUpdate(t.Context(), "feat")
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(root, "agent", "feat", "autofram")
	if target != want {
		t.Errorf("target = %q, want %q", target, want)
	}
	if _, err := os.Stat(filepath.Join(target, ".git")); err != nil {
		t.Errorf("clone missing .git: %v", err)
	}
}

// initBareRepoWithBranch seeds a bare repository at bare with one commit
// on branch, via a throwaway working clone, and returns bare's path.
func initBareRepoWithBranch(t *testing.T, bare, branch string) string {
	t.Helper()
	work := filepath.Join(t.TempDir(), "seed")

	runGit(t, "", "init", "--bare", bare)
	runGit(t, "", "init", work)
	runGit(t, work, "config", "user.name", "Test")
	runGit(t, work, "config", "user.email", "test@test.com")
	runGit(t, work, "checkout", "-b", branch)

	if err := os.WriteFile(filepath.Join(work, "README.md"), []byte("hello\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	runGit(t, work, "add", ".")
	runGit(t, work, "commit", "-m", "init")
	runGit(t, work, "remote", "add", "origin", bare)
	runGit(t, work, "push", "-u", "origin", branch)
	return bare
}

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...) //nolint:gosec // test helper with controlled args
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
}
