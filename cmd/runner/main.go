// Command runner is the agent worker process: it drives the LLM work
// cycle against the branch checkout it is launched from, executes tool
// calls, and can replace itself with another branch's code via the
// bootstrap tool. It takes no flags; everything comes from the
// environment and the current working directory.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/autofram-dev/autofram/internal/config"
	"github.com/autofram-dev/autofram/internal/contracts"
	"github.com/autofram-dev/autofram/internal/dispatcher"
	"github.com/autofram-dev/autofram/internal/gitutil"
	"github.com/autofram-dev/autofram/internal/llm"
	"github.com/autofram-dev/autofram/internal/logging"
	"github.com/autofram-dev/autofram/internal/pidfile"
	"github.com/autofram-dev/autofram/internal/procscan"
	"github.com/autofram-dev/autofram/internal/runner"
	"github.com/autofram-dev/autofram/internal/statusserver"
	"github.com/autofram-dev/autofram/internal/tools"
	"github.com/autofram-dev/autofram/internal/upgrade"
)

var version = "dev"

func main() {
	cmd := &cobra.Command{
		Use:           "runner",
		Short:         "Autofram agent worker process",
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
	if err := cfg.RequireRunnerCredentials(); err != nil {
		return err
	}

	workingDir, err := os.Getwd()
	if err != nil {
		return err
	}
	mainDir := filepath.Join(cfg.AgentRoot, "main", "autofram")
	logsDir := filepath.Join(mainDir, "logs")

	sink, err := logging.NewRunnerSink(logsDir)
	if err != nil {
		return err
	}
	defer sink.Close()
	if err := logging.RedirectStderr(sink.ErrorsLog()); err != nil {
		sink.Logger().Warn("stderr redirect failed", "err", err)
	}

	branch := gitutil.CurrentBranch(ctx, workingDir)
	sink.Logger().Info("runner starting", "working_dir", workingDir, "branch", branch, "model", cfg.OpenRouterModel)

	controller := upgrade.Controller{
		AgentRoot:  cfg.AgentRoot,
		MainDir:    mainDir,
		RemoteRepo: cfg.RemoteRepo,
	}
	if err := upgrade.AppendLog(controller.LogPath(), upgrade.StatusBootstrapping, branch); err != nil {
		sink.Logger().Warn("bootstrap log append failed", "err", err)
	}

	pidPath := procscan.RunnerPIDPath(mainDir)
	if err := pidfile.Write(pidPath); err != nil {
		sink.Logger().Warn("pidfile write failed", "err", err)
	}
	defer func() {
		if err := pidfile.Remove(pidPath); err != nil {
			sink.Logger().Warn("pidfile remove failed", "err", err)
		}
	}()

	registry := dispatcher.NewRegistry()
	tc := tools.ToolContext{
		WorkingDir: workingDir,
		Upgrade:    controller,
		Branch:     branch,
		Contracts:  contracts.NewService(workingDir, contracts.NotConfiguredRunner{}),
	}
	for _, t := range tools.Builtins(tc, nil) {
		registry.Register(t)
	}

	client := llm.NewClient(llm.DefaultBaseURL, cfg.OpenRouterAPIKey, cfg.OpenRouterModel)
	digest := llm.NewDigestGenerator(ctx, cfg.DigestProvider, "")

	statusBranch := cfg.Branch
	if statusBranch == "" {
		statusBranch = branch
	}
	go func() {
		srv := statusserver.New(statusBranch, mainDir, cfg.GeoIPDBPath, sink.Logger())
		if err := srv.ListenAndServe(ctx, cfg.StatusPort); err != nil && ctx.Err() == nil {
			sink.Logger().Warn("status server exited", "err", err)
		}
	}()

	runner.WatchAdvisory(sink, workingDir)

	if err := upgrade.AppendLog(controller.LogPath(), upgrade.StatusSuccess, branch); err != nil {
		sink.Logger().Warn("bootstrap log append failed", "err", err)
	}
	sink.Logger().Info("bootstrap successful, entering main loop")

	r := runner.New(workingDir, branch, cfg.WorkInterval, sink, client, digest, registry)
	r.Run(ctx)
	return nil
}
