package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"netsim-consolidate/internal/logging"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const Version = "1.0.0"

// Execute runs the CLI.
func Execute() error {
	loadEnvironment()
	return NewRootCommand().Execute()
}

// NewRootCommand builds the full command tree.
func NewRootCommand() *cobra.Command {
	var logLevel string
	var logFormat string

	rootCmd := &cobra.Command{
		Use:     "netsim-consolidate",
		Short:   "Consolidate network simulation telemetry",
		Long:    "Merges the per-run traces of repeated network simulations into one sorted CSV dataset per metric",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if logLevel != "" {
				if err := logging.SetLogLevel(logLevel); err != nil {
					return fmt.Errorf("invalid log level: %w", err)
				}
			}
			if logFormat != "" {
				if err := logging.SetFormat(logFormat); err != nil {
					return err
				}
			}
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Set log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Set log format (text, json)")

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newInspectCommand())
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newReplayCommand())

	return rootCmd
}

func loadEnvironment() {
	logger := logging.GetLogger()

	envFile := ".env"
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			logger.WithField("file", envFile).WithError(err).Warn("Error loading .env file")
		} else {
			logger.WithField("file", envFile).Debug("Loaded environment variables")
		}
		return
	}

	// fall back to the directory of the executable
	execPath, err := os.Executable()
	if err != nil {
		return
	}
	envFile = filepath.Join(filepath.Dir(execPath), ".env")
	if _, err := os.Stat(envFile); err != nil {
		return
	}
	if err := godotenv.Load(envFile); err != nil {
		logger.WithField("file", envFile).WithError(err).Warn("Error loading .env file")
	} else {
		logger.WithField("file", envFile).Debug("Loaded environment variables")
	}
}
