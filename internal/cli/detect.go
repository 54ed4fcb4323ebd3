package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/homesense/sensorsim/internal/detect"
	"github.com/homesense/sensorsim/internal/pipeline"
)

func newDetectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "detect <dataset.csv>",
		Short: "Score a labeled dataset with the baseline detectors",
		Long:  "Runs the statistical detector and the isolation forest over a labeled dataset and reports precision, recall, and F1 against the ground-truth columns.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			defer a.close()

			reports, err := pipeline.NewRunner(a.cfg, a.log, a.store).Detect(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			methods := make([]string, 0, len(reports))
			for m := range reports {
				methods = append(methods, m)
			}
			sort.Strings(methods)

			for _, method := range methods {
				fmt.Fprintf(a.stdout, "%s:\n", method)
				printReport(a, reports[method])
			}
			return nil
		},
	}
}

func printReport(a *app, report map[string]detect.Metrics) {
	names := make([]string, 0, len(report))
	for n := range report {
		names = append(names, n)
	}
	sort.Strings(names)
	// Overall last, it summarizes the rest.
	for i, n := range names {
		if n == "overall" {
			names = append(append(names[:i], names[i+1:]...), "overall")
			break
		}
	}

	for _, n := range names {
		m := report[n]
		fmt.Fprintf(a.stdout, "  %-14s precision=%.3f recall=%.3f f1=%.3f (tp=%d fp=%d fn=%d)\n",
			n, m.Precision, m.Recall, m.F1, m.TruePositives, m.FalsePositives, m.FalseNegatives)
	}
}
