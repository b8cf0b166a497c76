// Package tools implements the built-in tool set every Runner registers:
// read_file, write_file, bash, bootstrap, rollback, execute_contracts,
// and web_search.
//
// Session state (working dir, upgrade controller, contracts service) is
// threaded into handlers through a single ToolContext value at
// registration time. Handlers never import the runner package.
package tools

import (
	"github.com/autofram-dev/autofram/internal/contracts"
	"github.com/autofram-dev/autofram/internal/upgrade"
)

// ToolContext carries everything a handler needs to know about the
// session it is running in.
type ToolContext struct {
	// WorkingDir is the branch checkout the Runner was launched from.
	WorkingDir string
	// Upgrade performs the bootstrap/rollback protocol.
	Upgrade upgrade.Controller
	// Branch is the branch this session is running.
	Branch string
	// Contracts executes pending contract files.
	Contracts *contracts.Service
}
