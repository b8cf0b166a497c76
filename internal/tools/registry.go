package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/autofram-dev/autofram/internal/dispatcher"
)

// Builtins returns the seven built-in tools, each wired as a
// dispatcher.Tool against tc. search configures web_search; a nil search
// leaves it reporting itself unconfigured.
func Builtins(tc ToolContext, search SearchFunc) []dispatcher.Tool {
	return []dispatcher.Tool{
		{
			Name:        "read_file",
			Description: "Read the contents of a file.",
			Params:      &readFileArgs{},
			Handler: func(_ context.Context, argsJSON string) (string, error) {
				var a readFileArgs
				if err := json.Unmarshal([]byte(argsJSON), &a); err != nil {
					return "", fmt.Errorf("parse read_file args: %w", err)
				}
				return tc.ReadFile(a.Path)
			},
		},
		{
			Name:        "write_file",
			Description: "Write content to a file, creating directories if needed.",
			Params:      &writeFileArgs{},
			Handler: func(_ context.Context, argsJSON string) (string, error) {
				var a writeFileArgs
				if err := json.Unmarshal([]byte(argsJSON), &a); err != nil {
					return "", fmt.Errorf("parse write_file args: %w", err)
				}
				return tc.WriteFile(a.Path, a.Content)
			},
		},
		{
			Name:        "bash",
			Description: "Execute a shell command and return its combined stdout/stderr output.",
			Params:      &bashArgs{},
			Handler: func(ctx context.Context, argsJSON string) (string, error) {
				var a bashArgs
				if err := json.Unmarshal([]byte(argsJSON), &a); err != nil {
					return "", fmt.Errorf("parse bash args: %w", err)
				}
				return tc.Bash(ctx, a.Command)
			},
		},
		{
			Name:        "bootstrap",
			Description: "Clone/update the target branch and exec-replace this process with its runner (hop-scotch upgrade). Commit and push any pending work first; uncommitted changes are lost.",
			Params:      &bootstrapArgs{},
			Handler: func(ctx context.Context, argsJSON string) (string, error) {
				var a bootstrapArgs
				if err := json.Unmarshal([]byte(argsJSON), &a); err != nil {
					return "", fmt.Errorf("parse bootstrap args: %w", err)
				}
				if err := tc.Bootstrap(ctx, a.Branch); err != nil {
					return "", err
				}
				return "", nil
			},
		},
		{
			Name:        "rollback",
			Description: "Bootstrap back to main to recover from a broken branch.",
			Params:      nil,
			Handler: func(ctx context.Context, _ string) (string, error) {
				if err := tc.Rollback(ctx); err != nil {
					return "", err
				}
				return "", nil
			},
		},
		{
			Name:        "execute_contracts",
			Description: "Execute every pending contract file under contracts/ and move completed ones to contracts_completed/.",
			Params:      nil,
			Handler: func(ctx context.Context, _ string) (string, error) {
				if tc.Contracts == nil {
					return "", fmt.Errorf("contracts service is not configured")
				}
				return tc.Contracts.ExecuteAll(ctx)
			},
		},
		{
			Name:        "web_search",
			Description: "Search the web and return a summary of results.",
			Params:      &webSearchArgs{},
			Handler: func(_ context.Context, argsJSON string) (string, error) {
				var a webSearchArgs
				if err := json.Unmarshal([]byte(argsJSON), &a); err != nil {
					return "", fmt.Errorf("parse web_search args: %w", err)
				}
				return tc.WebSearch(search, a.Query)
			},
		},
	}
}
