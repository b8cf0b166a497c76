package convo

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/autofram-dev/autofram/internal/gitutil"
)

// defaultSystemPrompt / defaultComms stand in for SYSTEM.md / COMMS.md
// when either file is missing from the working copy.
const (
	defaultSystemPrompt = "# Autofram Agent\n\nNo SYSTEM.md found.\n"
	defaultComms        = "No COMMS.md found.\n"
)

// SystemPromptPath and CommsPath return the well-known locations of the two
// prompt inputs under a branch working copy.
func SystemPromptPath(workingDir string) string {
	return filepath.Join(workingDir, "static", "prompts", "SYSTEM.md")
}

func CommsPath(workingDir string) string {
	return filepath.Join(workingDir, "COMMS.md")
}

func loadFileOrDefault(path, fallback string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return fallback
	}
	return string(data)
}

// BuildSystemPrompt assembles the system prompt for one cycle: SYSTEM.md
// (or its default), a rendered environment snapshot, and COMMS.md (or its
// default), separated by "\n\n---\n\n".
func BuildSystemPrompt(ctx context.Context, workingDir string) string {
	systemContent := loadFileOrDefault(SystemPromptPath(workingDir), defaultSystemPrompt)
	snapshot := environmentSnapshot(ctx, workingDir)
	commsContent := loadFileOrDefault(CommsPath(workingDir), defaultComms)
	return strings.Join([]string{systemContent, snapshot, commsContent}, "\n\n---\n\n")
}

// environmentSnapshot renders the working copy's pwd, current branch, and
// file listing. The listing walks the tree directly instead of shelling
// out to find.
func environmentSnapshot(ctx context.Context, workingDir string) string {
	branch := gitutil.CurrentBranch(ctx, workingDir)
	var b strings.Builder
	fmt.Fprintf(&b, "pwd: %s\nbranch: %s\n\nfiles:\n", workingDir, branch)
	_ = filepath.WalkDir(workingDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(workingDir, path)
		if relErr != nil {
			rel = path
		}
		fmt.Fprintf(&b, "./%s\n", rel)
		return nil
	})
	return strings.TrimRight(b.String(), "\n")
}
