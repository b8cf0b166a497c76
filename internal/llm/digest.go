package llm

import (
	"context"
	"log/slog"
	"strings"

	"github.com/maruel/genai"
	"github.com/maruel/genai/providers"
)

// DigestGenerator produces a short, cheap one-line summary of a cycle's
// outcome for logs/runner.log via a throwaway model call. If
// unconfigured, every call is a no-op: the digest is an operability
// nicety, never required for the cycle to complete.
type DigestGenerator struct {
	provider genai.Provider
}

// NewDigestGenerator builds a DigestGenerator from a genai provider name
// (e.g. "openrouter") and optional model override. A blank providerName,
// an unknown provider, or a construction failure all yield a disabled
// (no-op) generator rather than an error.
func NewDigestGenerator(ctx context.Context, providerName, model string) *DigestGenerator {
	if providerName == "" {
		return &DigestGenerator{}
	}
	cfg, ok := providers.All[providerName]
	if !ok || cfg.Factory == nil {
		slog.Warn("unknown LLM provider for cycle digest", "provider", providerName)
		return &DigestGenerator{}
	}
	var opts []genai.ProviderOption
	if model != "" {
		opts = append(opts, genai.ProviderOptionModel(model))
	} else {
		opts = append(opts, genai.ModelCheap)
	}
	p, err := cfg.Factory(ctx, opts...)
	if err != nil {
		slog.Warn("failed to create LLM provider for cycle digest", "provider", providerName, "err", err)
		return &DigestGenerator{}
	}
	slog.Info("cycle digest generation enabled", "provider", providerName, "model", p.ModelID())
	return &DigestGenerator{provider: p}
}

const digestSystemPrompt = "Summarize this agent work cycle in one short sentence (under 20 words) for an operator reading a log file. Reply with ONLY the sentence."

// Generate asks the configured provider for a one-line digest of
// cycleSummary (e.g. the tool names called and the final assistant
// message). Returns "" if unconfigured or on any failure; callers treat
// the digest purely as additional log context.
func (d *DigestGenerator) Generate(ctx context.Context, cycleSummary string) string {
	if d.provider == nil {
		return ""
	}
	input := cycleSummary
	if len(input) > 2000 {
		input = input[:2000]
	}
	res, err := d.provider.GenSync(ctx,
		genai.Messages{genai.NewTextMessage(input)},
		&genai.GenOptionText{
			SystemPrompt: digestSystemPrompt,
			MaxTokens:    64,
			Temperature:  0.3,
		},
	)
	if err != nil {
		slog.Warn("cycle digest generation failed", "err", err)
		return ""
	}
	return strings.TrimSpace(res.String())
}
