package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"netsim-consolidate/internal/config"
	"netsim-consolidate/internal/runset"

	"github.com/spf13/cobra"
)

func newInspectCommand() *cobra.Command {
	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show which runs and input files are present",
		Long:  "Lists every run id of the batch with its directory state and the configured input files it contains",
		Args:  cobra.NoArgs,
	}
	opts := newBatchOptions(inspectCmd)

	inspectCmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := opts.load()
		if err != nil {
			return err
		}
		return inspectBatch(cmd.OutOrStdout(), cfg)
	}
	return inspectCmd
}

func inspectBatch(out io.Writer, cfg *config.ConsolidateConfig) error {
	rs := runset.New(cfg)
	files := cfg.InputFiles()

	present := make(map[int]runset.Run, rs.Size())
	for run := range rs.Runs() {
		present[run.ID] = run
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTATE\tFILES\tMISSING FILES")
	for id := 0; id < rs.Size(); id++ {
		run, ok := present[id]
		if !ok {
			fmt.Fprintf(w, "%d\tmissing\t-\t-\n", id)
			continue
		}
		var absent []string
		for _, f := range files {
			if _, err := os.Stat(run.Path(f)); err != nil {
				absent = append(absent, f)
			}
		}
		missing := "-"
		if len(absent) > 0 {
			missing = fmt.Sprint(absent)
		}
		fmt.Fprintf(w, "%d\tfound\t%d/%d\t%s\n", id, len(files)-len(absent), len(files), missing)
	}
	fmt.Fprintf(w, "\n%d of %d runs present\n", len(present), rs.Size())
	return w.Flush()
}
