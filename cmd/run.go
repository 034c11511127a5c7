package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"netsim-consolidate/internal/config"
	"netsim-consolidate/internal/logging"
	"netsim-consolidate/internal/pipeline"

	"github.com/spf13/cobra"
)

func newRunCommand() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Consolidate a batch of runs",
		Long:  "Reads every run directory of the batch and writes one CSV per metric into the metrics directory",
		Args:  cobra.NoArgs,
	}
	opts := newBatchOptions(runCmd)

	runCmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := opts.load()
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		return runBatch(cmd.Context(), cfg, flags.Changed("log-level"), flags.Changed("log-format"))
	}
	return runCmd
}

// runBatch applies the configured log settings unless the matching flag was
// given, then runs the pipeline until done or interrupted.
func runBatch(parent context.Context, cfg *config.ConsolidateConfig, levelFromFlag, formatFromFlag bool) error {
	logger := logging.GetLogger()

	if !levelFromFlag {
		if err := logging.SetLogLevel(cfg.LogLevel); err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
	}
	if !formatFromFlag {
		if err := logging.SetFormat(cfg.LogFormat); err != nil {
			return err
		}
	}
	if err := logging.SetRunLogLevel(cfg.RunLogLevel); err != nil {
		return fmt.Errorf("invalid run log level: %w", err)
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := pipeline.New(cfg).Run(ctx)
	if err != nil {
		logger.WithError(err).Error("Consolidation incomplete")
		return err
	}
	if summary.NoData() {
		return nil
	}
	logger.WithField("written", summary.Written).Info("Consolidation completed successfully")
	return nil
}
