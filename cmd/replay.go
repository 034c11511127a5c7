package cmd

import (
	"context"
	"fmt"
	"strings"

	"netsim-consolidate/internal/config"
	"netsim-consolidate/internal/database"
	"netsim-consolidate/internal/logging"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newReplayCommand() *cobra.Command {
	var configFile string

	replayCmd := &cobra.Command{
		Use:   "replay <spool-file>",
		Short: "Re-send a spooled batch to InfluxDB",
		Long:  "Loads a spool artifact written after a failed export and writes its datasets to InfluxDB",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadOrDefault(configFile)
			if err != nil {
				return err
			}
			return replaySpool(cmd.Context(), cfg.Export.InfluxDB, args[0])
		},
	}

	replayCmd.Flags().StringVarP(&configFile, "config", "c", "", "Configuration file holding the InfluxDB settings")
	return replayCmd
}

func replaySpool(ctx context.Context, influxCfg config.InfluxDBConfig, path string) error {
	logger := logging.GetLogger()

	settings := []struct{ name, value string }{
		{"host", influxCfg.Host},
		{"token", influxCfg.Token},
		{"org", influxCfg.Org},
		{"bucket", influxCfg.Bucket},
	}
	for _, s := range settings {
		if s.value == "" || strings.Contains(s.value, "${") {
			return fmt.Errorf("influxdb %s is not configured", s.name)
		}
	}

	artifact, err := database.LoadSpoolArtifact(path)
	if err != nil {
		return err
	}

	client, err := database.NewInfluxDBClient(influxCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to InfluxDB: %w", err)
	}
	defer client.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	if err := client.WriteDatasets(ctx, artifact.Batch, artifact.Datasets); err != nil {
		return err
	}

	fields := logrus.Fields{
		"file":     path,
		"batch":    artifact.Batch,
		"datasets": len(artifact.Datasets),
	}
	if stored, err := client.CountPoints(ctx, artifact.Batch); err != nil {
		logger.WithError(err).Warn("Could not verify stored points")
	} else {
		fields["stored_points"] = stored
	}
	logger.WithFields(fields).Info("Spool artifact replayed")
	return nil
}
