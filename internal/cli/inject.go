package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/homesense/sensorsim/internal/pipeline"
)

func newInjectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inject <dataset.csv>",
		Short: "Inject the configured anomalies into an existing dataset",
		Long:  "Reads a previously generated dataset, applies the anomalies listed in the config, and writes the labeled result to the output path. The input file is left untouched.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			defer a.close()
			if err := a.ensureOutputDir(); err != nil {
				return err
			}

			res, err := pipeline.NewRunner(a.cfg, a.log, a.store).Inject(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(a.stdout, "run %s: %d anomaly windows injected, written to %s\n",
				res.RunID, len(res.Windows), res.OutputPath)
			return nil
		},
	}
}
