// Package contracts implements the contract file lifecycle: discovering
// pending Markdown task files under contracts/, running each through a
// pluggable sub-agent, and moving completed ones to
// contracts_completed/.
//
// ContractRunner is an injectable interface rather than a concrete
// client. The real sub-agent is an external SDK this module does not
// vendor; deployments supply their own implementation.
package contracts

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var (
	titleRe   = regexp.MustCompile(`(?m)^#\s+(.+)$`)
	pendingRe = regexp.MustCompile(`(?m)^pending\s*$`)
)

// ContractRunner executes one contract's prompt against a sub-agent and
// returns its final textual response. title is a short human label used
// for logging; prompt is the full rendered contract content.
type ContractRunner interface {
	Run(ctx context.Context, title, prompt string) (string, error)
}

// Service discovers and executes contract files rooted at dir.
type Service struct {
	Dir    string
	Runner ContractRunner
}

// NewService returns a Service rooted at workingDir, using runner to
// execute each contract's prompt.
func NewService(workingDir string, runner ContractRunner) *Service {
	return &Service{Dir: workingDir, Runner: runner}
}

func (s *Service) contractsDir() string          { return filepath.Join(s.Dir, "contracts") }
func (s *Service) contractsCompletedDir() string { return filepath.Join(s.Dir, "contracts_completed") }

// parseTitle extracts the contract title: the first `# ...` heading,
// else the first non-blank line, else "empty".
func parseTitle(text string) string {
	if m := titleRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			return line
		}
	}
	return "empty"
}

func isPending(text string) bool {
	return pendingRe.MatchString(text)
}

// findPending returns the sorted paths of every *.md file under
// contracts/ whose content matches the pending marker.
func (s *Service) findPending() ([]string, error) {
	dir := s.contractsDir()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var pending []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if isPending(string(data)) {
			pending = append(pending, path)
		}
	}
	sort.Strings(pending)
	return pending, nil
}

// ExecuteOne runs the contract at path and, on success, moves it to
// contracts_completed/. The returned string matches the
// "completed: <title>\nsummary: <text>" / "failed: <title> - <err>"
// phrasing the contract's own caller (execute_contracts) surfaces to the
// model.
func (s *Service) ExecuteOne(ctx context.Context, path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Sprintf("failed: %s - %v", filepath.Base(path), err)
	}
	text := string(data)
	title := parseTitle(text)

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	prompt := fmt.Sprintf("Contract file: %s\n\n%s", abs, text)

	summary, err := s.Runner.Run(ctx, title, prompt)
	if err != nil {
		if reason := authFailureReason(err); reason != "" {
			_ = writeTokenExpired(s.Dir, reason)
		}
		return fmt.Sprintf("failed: %s - %v", title, err)
	}

	dest := s.contractsCompletedDir()
	if err := os.MkdirAll(dest, 0o750); err != nil {
		return fmt.Sprintf("failed: %s - move to completed: %v", title, err)
	}
	if err := os.Rename(path, filepath.Join(dest, filepath.Base(path))); err != nil {
		return fmt.Sprintf("failed: %s - move to completed: %v", title, err)
	}
	return fmt.Sprintf("completed: %s\nsummary: %s", title, summary)
}

// ExecuteAll runs every pending contract in filename order and returns a
// combined summary, matching execute_all's "Executed N contract(s)"
// report.
func (s *Service) ExecuteAll(ctx context.Context) (string, error) {
	pending, err := s.findPending()
	if err != nil {
		return "", err
	}
	if len(pending) == 0 {
		return "No pending contracts found.", nil
	}
	results := make([]string, 0, len(pending))
	for _, path := range pending {
		results = append(results, s.ExecuteOne(ctx, path))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Executed %d contract(s):\n", len(results))
	for _, r := range results {
		b.WriteString("- ")
		b.WriteString(r)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
