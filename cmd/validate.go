package cmd

import (
	"netsim-consolidate/internal/config"
	"netsim-consolidate/internal/logging"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newValidateCommand() *cobra.Command {
	var configFile string

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a consolidation configuration",
		Long:  "Loads a configuration file, applies defaults and checks it against the metric catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfig(configFile)
		},
	}

	validateCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to consolidation configuration file")
	_ = validateCmd.MarkFlagRequired("config")
	return validateCmd
}

func validateConfig(configFile string) error {
	logger := logging.GetLogger()

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		logger.WithField("config_file", configFile).WithError(err).Error("Configuration validation failed")
		return err
	}
	checksum, err := config.Checksum(cfg)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"config_file": configFile,
		"checksum":    checksum,
	}).Info("Configuration is valid")
	return nil
}
