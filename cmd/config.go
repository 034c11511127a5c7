package cmd

import (
	"fmt"

	"netsim-consolidate/internal/config"
	"netsim-consolidate/internal/metric"

	"github.com/k0kubun/pp"
	"github.com/spf13/cobra"
)

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration helpers",
		Long:  "Inspect the resolved configuration and the metric catalog",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		Long:  "Prints the configuration after defaults, environment and flag overrides are applied",
		Args:  cobra.NoArgs,
	}
	opts := newBatchOptions(showCmd)
	showCmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := opts.load()
		if err != nil {
			return err
		}
		checksum, err := config.Checksum(cfg)
		if err != nil {
			return err
		}
		pp.Fprintln(cmd.OutOrStdout(), cfg)
		fmt.Fprintf(cmd.OutOrStdout(), "checksum: %s\n", checksum)
		return nil
	}

	metricsCmd := &cobra.Command{
		Use:   "metrics",
		Short: "List the metric catalog",
		Long:  "Lists every metric the consolidator knows with its kind and whether it is written",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, def := range metric.All() {
				state := "emitted"
				if !def.Emitted {
					state = "recognized"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-24s %-8s %s\n", def.Name, def.Kind, state)
			}
			return nil
		},
	}

	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(metricsCmd)
	return configCmd
}
