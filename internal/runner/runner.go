// Package runner drives the Runner process's main loop: one work cycle
// per wall-clock boundary, each cycle pulling the branch, assembling a
// system prompt, running the chat-completions tool-call loop to
// convergence, and sleeping until the next boundary.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/autofram-dev/autofram/internal/convo"
	"github.com/autofram-dev/autofram/internal/dispatcher"
	"github.com/autofram-dev/autofram/internal/gitutil"
	"github.com/autofram-dev/autofram/internal/llm"
	"github.com/autofram-dev/autofram/internal/logging"
)

// ChatCompleter is the subset of *llm.Client's surface RunCycle and
// toolLoop depend on, accepted as an interface so tests can substitute a
// scripted model instead of reaching the network.
type ChatCompleter interface {
	ChatCompletion(ctx context.Context, messages []convo.Message, tools []dispatcher.Schema) (convo.Message, error)
}

// RetryDelay is how long the main loop sleeps after a cycle fails with a
// transient error before trying again.
const RetryDelay = 60 * time.Second

// maxToolLoopIterations bounds the tool-call sub-loop against a
// misbehaving model that never stops calling tools.
const maxToolLoopIterations = 30

// Session is the mutable state one Runner process carries across
// cycles: the last COMMS.md digest seen, used to skip cycles whose
// instructions have not changed.
type Session struct {
	// LastCommsHash is the SHA-256 hex digest recorded at the end of the
	// most recent cycle that actually ran, or nil if no cycle has run
	// with COMMS.md present yet. A nil value never equals an absent
	// digest from CommsHash, so the very first cycle, and any cycle
	// following one where COMMS.md was itself absent, always runs.
	LastCommsHash *string
}

// Runner owns one work-cycle loop against a single branch checkout.
type Runner struct {
	WorkingDir   string
	Branch       string
	WorkInterval time.Duration
	Sink         *logging.Sink
	LLM          ChatCompleter
	Digest       *llm.DigestGenerator
	Registry     *dispatcher.Registry

	session Session
}

// New returns a Runner ready to drive cycles against workingDir. registry
// must already have every built-in tool registered (see tools.Builtins).
func New(workingDir, branch string, workInterval time.Duration, sink *logging.Sink, client ChatCompleter, digest *llm.DigestGenerator, registry *dispatcher.Registry) *Runner {
	return &Runner{
		WorkingDir:   workingDir,
		Branch:       branch,
		WorkInterval: workInterval,
		Sink:         sink,
		LLM:          client,
		Digest:       digest,
		Registry:     registry,
	}
}

// Run executes cycles until ctx is canceled, sleeping until the next
// wall-clock boundary between cycles and retrying past transient cycle
// errors after RetryDelay. A failed cycle is never retried in place; the
// next boundary drives re-entry.
func (r *Runner) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			r.Sink.Logger().Info("shutdown requested")
			return
		}

		if err := r.RunCycle(ctx); err != nil {
			// The cycle is not retried in place: after the back-off the
			// next boundary drives re-entry.
			r.Sink.Logger().Error("work cycle failed", "err", err)
			if !sleepOrDone(ctx, RetryDelay) {
				r.Sink.Logger().Info("shutdown requested")
				return
			}
		}

		boundary := nextBoundary(time.Now(), r.WorkInterval)
		d := sleepDuration(time.Now(), boundary)
		r.Sink.Logger().Info("sleeping until next boundary", "duration", d.String(), "boundary", boundary.Format(time.RFC3339))
		if !sleepOrDone(ctx, d) {
			r.Sink.Logger().Info("shutdown requested")
			return
		}
	}
}

// sleepOrDone sleeps for d, returning false immediately if ctx is
// canceled first.
func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// RunCycle executes one work cycle: pull, compute and compare the
// COMMS.md digest, assemble the prompt, run one chat-completion (entering
// the tool-call sub-loop if the model asked for tools), and record the
// digest for the next comparison.
func (r *Runner) RunCycle(ctx context.Context) error {
	if err := gitutil.Pull(ctx, r.WorkingDir); err != nil {
		r.Sink.Logger().Warn("git pull failed, continuing with current checkout", "err", err)
	}

	hash, ok := convo.CommsHash(r.WorkingDir)
	if ok && r.session.LastCommsHash != nil && hash == *r.session.LastCommsHash {
		r.Sink.Logger().Info("COMMS.md unchanged, skipping cycle")
		return nil
	}

	systemPrompt := convo.BuildSystemPrompt(ctx, r.WorkingDir)
	messages := convo.InitialMessages(systemPrompt)
	schemas := r.Registry.ListSchemas()

	r.Sink.Logger().Info("work cycle starting", "branch", r.Branch)
	if err := r.Sink.ModelLog().Append("request", messages); err != nil {
		r.Sink.Logger().Warn("model log append failed", "err", err)
	}

	reply, err := r.LLM.ChatCompletion(ctx, messages, schemas)
	if err != nil {
		return fmt.Errorf("chat completion: %w", err)
	}
	if err := r.Sink.ModelLog().Append("response", reply); err != nil {
		r.Sink.Logger().Warn("model log append failed", "err", err)
	}

	final := reply
	if len(reply.ToolCalls) > 0 {
		final, err = r.toolLoop(ctx, messages, reply)
		if err != nil {
			return fmt.Errorf("tool-call loop: %w", err)
		}
	}

	if ok {
		r.session.LastCommsHash = &hash
	} else {
		r.session.LastCommsHash = nil
	}

	if r.Digest != nil {
		summary := r.Digest.Generate(ctx, final.Content)
		if summary != "" {
			r.Sink.Logger().Info("cycle digest", "summary", summary)
		}
	}
	return nil
}

