package cmd

import (
	"fmt"
	"strings"

	"netsim-consolidate/internal/config"
	"netsim-consolidate/internal/logging"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "NETSIM"

// batchOptions resolves a configuration from an optional YAML file, then
// NETSIM_* environment variables, then explicit flags.
type batchOptions struct {
	configFile string
	v          *viper.Viper
}

func newBatchOptions(cmd *cobra.Command) *batchOptions {
	opts := &batchOptions{v: viper.New()}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "Path to consolidation configuration file (defaults built in)")
	flags.String("base-dir", "", "Directory containing the run directories")
	flags.Int("runs", 0, "Number of runs in the batch")
	flags.Int("workers", 0, "Runs processed in parallel")
	flags.String("metrics-dir", "", "Output directory, relative to the base directory")

	opts.v.SetEnvPrefix(envPrefix)
	opts.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	opts.v.AutomaticEnv()
	for _, name := range []string{"base-dir", "runs", "workers", "metrics-dir"} {
		_ = opts.v.BindPFlag(name, flags.Lookup(name))
	}
	return opts
}

func (o *batchOptions) load() (*config.ConsolidateConfig, error) {
	logger := logging.GetLogger()

	cfg, err := loadOrDefault(o.configFile)
	if err != nil {
		return nil, err
	}

	if o.v.IsSet("base-dir") {
		cfg.BaseDir = o.v.GetString("base-dir")
	}
	if o.v.IsSet("runs") {
		cfg.Runs = o.v.GetInt("runs")
	}
	if o.v.IsSet("workers") {
		cfg.Workers = o.v.GetInt("workers")
	}
	if o.v.IsSet("metrics-dir") {
		cfg.MetricsDir = o.v.GetString("metrics-dir")
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger.WithField("config_file", o.configFile).Debug("Configuration resolved")
	return cfg, nil
}

// loadOrDefault reads path, or resolves the built-in defaults when path is
// empty. Both go through the same environment expansion and validation.
func loadOrDefault(path string) (*config.ConsolidateConfig, error) {
	if path == "" {
		return config.Parse(nil)
	}
	return config.LoadConfig(path)
}
