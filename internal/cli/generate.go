package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/homesense/sensorsim/internal/pipeline"
)

func newGenerateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Generate a dataset from the configured simulation",
		Long:  "Runs the full simulation pipeline and writes the dataset CSV. When the config lists anomalies, they are injected and the dataset carries ground-truth label columns.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			defer a.close()
			if err := a.ensureOutputDir(); err != nil {
				return err
			}

			res, err := pipeline.NewRunner(a.cfg, a.log, a.store).Generate(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(a.stdout, "run %s: %d rows written to %s (seed %d", res.RunID, res.Rows, res.OutputPath, res.Seed)
			if res.SeedDrawn {
				fmt.Fprint(a.stdout, ", drawn")
			}
			fmt.Fprintln(a.stdout, ")")
			if len(res.Windows) > 0 {
				fmt.Fprintf(a.stdout, "injected %d anomaly windows\n", len(res.Windows))
			}
			return nil
		},
	}
}
