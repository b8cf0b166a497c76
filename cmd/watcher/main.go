// Command watcher is the supervision process: it polls for the Runner,
// restarts it when missing or unhealthy, and alerts a human through
// COMMS.md once the crash budget is exhausted. It takes no flags and is
// always launched from the main branch's checkout.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/autofram-dev/autofram/internal/config"
	"github.com/autofram-dev/autofram/internal/logging"
	"github.com/autofram-dev/autofram/internal/watcher"
)

var version = "dev"

func main() {
	cmd := &cobra.Command{
		Use:           "watcher",
		Short:         "Autofram crash-recovery monitor",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context())
		},
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	mainDir := filepath.Join(cfg.AgentRoot, "main", "autofram")

	sink, err := logging.NewWatcherSink(filepath.Join(mainDir, "logs"))
	if err != nil {
		return err
	}
	defer sink.Close()

	w := watcher.New(mainDir, sink)
	w.Run(ctx)
	return nil
}
