// Package config captures the process environment once at startup into a
// typed, immutable snapshot. Nothing re-reads env after startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the environment-derived configuration shared by the Runner and
// Watcher processes.
type Config struct {
	// OpenRouterAPIKey is the bearer token sent to OpenRouter. Required for
	// the Runner; absence is a fatal startup error there.
	OpenRouterAPIKey string
	// OpenRouterModel names the chat-completions model. Required for actual
	// use; its absence is tolerated at construction so the Watcher (which
	// never calls the LLM) can build a Config too.
	OpenRouterModel string
	// WorkInterval is the wall-clock cycle period, derived from
	// WORK_INTERVAL_MINUTES.
	WorkInterval time.Duration
	// Branch is the git branch the status server reports against.
	Branch string
	// StatusPort is the TCP port internal/statusserver listens on.
	StatusPort int
	// AgentRoot is the parent of every per-branch checkout
	// (<AgentRoot>/<branch>/autofram). Overridable via AUTOFRAM_AGENT_ROOT
	// so a deployment is not pinned to one host layout.
	AgentRoot string
	// RemoteRepo is the git remote every bootstrap clone targets.
	// Overridable via AUTOFRAM_REMOTE_REPO.
	RemoteRepo string
	// GeoIPDBPath, if set, points at a MaxMind GeoLite2 database used by
	// internal/statusserver to annotate /status responses with the caller's
	// approximate location. Optional; the lookup is skipped cleanly when
	// unset.
	GeoIPDBPath string
	// DigestProvider optionally names a genai provider (e.g.
	// "openrouter") used to generate one-line cycle summaries for the
	// runner log. Empty disables the digest.
	DigestProvider string
}

const (
	defaultStatusPort = 8080
	defaultAgentRoot  = "/home/agent"
	defaultRemoteRepo = "/mnt/remote"
)

// Load reads the Config from the process environment. It returns an error
// only when WORK_INTERVAL_MINUTES or AUTOFRAM_STATUS_PORT are present but
// not valid integers, or when WORK_INTERVAL_MINUTES is not positive; missing OPENROUTER_API_KEY/OPENROUTER_MODEL are left
// for callers to check explicitly, since the Watcher has no use for either.
func Load() (Config, error) {
	cfg := Config{
		OpenRouterAPIKey: os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterModel:  os.Getenv("OPENROUTER_MODEL"),
		Branch:           os.Getenv("AUTOFRAM_BRANCH"),
		StatusPort:       defaultStatusPort,
		AgentRoot:        defaultAgentRoot,
		RemoteRepo:       defaultRemoteRepo,
		GeoIPDBPath:      os.Getenv("AUTOFRAM_GEOIP_DB"),
		DigestProvider:   os.Getenv("AUTOFRAM_DIGEST_PROVIDER"),
	}
	if v := os.Getenv("AUTOFRAM_AGENT_ROOT"); v != "" {
		cfg.AgentRoot = v
	}
	if v := os.Getenv("AUTOFRAM_REMOTE_REPO"); v != "" {
		cfg.RemoteRepo = v
	}

	if raw := os.Getenv("WORK_INTERVAL_MINUTES"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("WORK_INTERVAL_MINUTES=%q: %w", raw, err)
		}
		if minutes <= 0 {
			return Config{}, fmt.Errorf("WORK_INTERVAL_MINUTES=%q: must be positive", raw)
		}
		cfg.WorkInterval = time.Duration(minutes) * time.Minute
	}

	if raw := os.Getenv("AUTOFRAM_STATUS_PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("AUTOFRAM_STATUS_PORT=%q: %w", raw, err)
		}
		cfg.StatusPort = port
	}

	return cfg, nil
}

// RequireRunnerCredentials returns an error naming the missing variable if
// the Runner cannot start. The Runner exits non-zero when
// OPENROUTER_API_KEY or WORK_INTERVAL_MINUTES is absent.
func (c Config) RequireRunnerCredentials() error {
	if c.OpenRouterAPIKey == "" {
		return fmt.Errorf("OPENROUTER_API_KEY is required")
	}
	if c.WorkInterval <= 0 {
		return fmt.Errorf("WORK_INTERVAL_MINUTES is required")
	}
	return nil
}
