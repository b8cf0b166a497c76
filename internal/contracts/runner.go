package contracts

import (
	"context"
	"fmt"
)

// NotConfiguredRunner is the default ContractRunner: it reports that no
// sub-agent is wired, rather than panicking or silently no-oping. Real
// deployments supply their own ContractRunner (for example, one backed
// by an SDK client) at Service construction time.
type NotConfiguredRunner struct{}

// Run always fails with a descriptive error.
func (NotConfiguredRunner) Run(_ context.Context, title, _ string) (string, error) {
	return "", fmt.Errorf("contracts sub-agent is not configured (contract %q)", title)
}

// SystemPromptFiles names the prompt fragments a configured
// ContractRunner is expected to concatenate with "\n\n---\n\n" to build
// its system prompt. A missing fragment contributes an empty string.
var SystemPromptFiles = []string{"CONTRACTOR.md", "CODING.md"}
