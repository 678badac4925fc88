package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/convergd/internal/config"
	"github.com/fyrsmithlabs/convergd/internal/converge"
	"github.com/fyrsmithlabs/convergd/internal/findings"
	"github.com/fyrsmithlabs/convergd/internal/logging"
	"github.com/fyrsmithlabs/convergd/internal/telemetry"
	"github.com/fyrsmithlabs/convergd/internal/workflow"
)

var (
	runMaxIterations int
	runConcurrency   int
	runWorkDir       string
)

var runCmd = &cobra.Command{
	Use:   "run <workflow.yaml>",
	Short: "Run a workflow to convergence",
	Long: `Run a workflow's task graph, gate the aggregated findings, and repeat the
work/check/fix cycle until the gate passes or the run escalates.

Without a remediate command in the workflow the run is a single-pass gate
check.

Examples:
  # Run a workflow with defaults
  convergd run audit.yaml

  # Allow more iterations and more parallel tasks
  convergd run audit.yaml --max-iterations 5 --concurrency 8`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().IntVar(&runMaxIterations, "max-iterations", 0, "override the iteration budget")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 0, "override the task concurrency limit")
	runCmd.Flags().StringVar(&runWorkDir, "dir", "", "working directory for workflow steps")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if runMaxIterations > 0 {
		cfg.Engine.MaxIterations = runMaxIterations
	}
	if runConcurrency > 0 {
		cfg.Engine.Concurrency = runConcurrency
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logging.Sync(logger) }()

	def, err := workflow.LoadFile(args[0])
	if err != nil {
		return err
	}

	loop, err := buildLoop(cfg, def)
	if err != nil {
		return err
	}
	loop.SetLogger(logger)
	loop.SetMetrics(converge.NewMetrics())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.New(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	outcome, err := loop.Run(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(outcome); err != nil {
		return err
	}

	if !outcome.Done() {
		return fmt.Errorf("workflow %q escalated: %s", def.Name, outcome.Reason)
	}
	return nil
}

// buildLoop wires the workflow into a convergence loop. Workflows without a
// remediate command get a single iteration and a remediator that is never
// reached on that budget.
func buildLoop(cfg *config.Config, def workflow.Definition) (*converge.Loop, error) {
	executor := &workflow.CommandExecutor{Dir: runWorkDir}

	maxIterations := cfg.Engine.MaxIterations
	var remediator converge.Remediator
	if len(def.Remediate) > 0 {
		remediator = &workflow.CommandRemediator{
			Run:     def.Remediate,
			Dir:     runWorkDir,
			Timeout: time.Duration(def.RemediateTimeout),
		}
	} else {
		maxIterations = 1
		remediator = converge.RemediatorFunc(func(context.Context, []findings.Finding) error {
			return nil
		})
	}

	thresholds := cfg.Gate

	return converge.New(converge.Config{
		Graphs:        def.Graph,
		Executor:      executor,
		Remediator:    remediator,
		Aggregator:    findings.Aggregator{ConfidenceThreshold: cfg.Engine.ConfidenceThreshold},
		Thresholds:    &thresholds,
		MaxIterations: maxIterations,
		Concurrency:   cfg.Engine.Concurrency,
	})
}
