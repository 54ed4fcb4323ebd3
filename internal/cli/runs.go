package cli

// runs.go — run registry inspection.
//
// Commands:
//   sensorsim runs list [--limit N] [--offset N]
//   sensorsim runs show <run-id>
//   sensorsim runs delete <run-id>

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newRunsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the run registry",
	}
	cmd.AddCommand(
		newRunsListCmd(a),
		newRunsShowCmd(a),
		newRunsDeleteCmd(a),
	)
	return cmd
}

func newRunsListCmd(a *app) *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			defer a.close()
			if a.store == nil {
				return fmt.Errorf("run registry disabled")
			}

			runs, err := a.store.ListRuns(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(a.stdout, "no runs recorded")
				return nil
			}

			w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tMODE\tSTATUS\tROWS\tSEED\tSTARTED\tOUTPUT")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
					r.ID, r.Mode, r.Status, r.Rows, r.Seed,
					r.StartedAt.Format("2006-01-02 15:04:05"), r.OutputPath)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "runs to skip")
	return cmd
}

func newRunsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run with its anomaly windows and channel stats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			defer a.close()
			if a.store == nil {
				return fmt.Errorf("run registry disabled")
			}
			ctx := cmd.Context()

			run, err := a.store.GetRun(ctx, args[0])
			if err != nil {
				return fmt.Errorf("run %s: %w", args[0], err)
			}

			fmt.Fprintf(a.stdout, "run %s\n", run.ID)
			fmt.Fprintf(a.stdout, "  mode:     %s\n", run.Mode)
			fmt.Fprintf(a.stdout, "  status:   %s\n", run.Status)
			if run.Error != "" {
				fmt.Fprintf(a.stdout, "  error:    %s\n", run.Error)
			}
			fmt.Fprintf(a.stdout, "  seed:     %d", run.Seed)
			if run.SeedDrawn {
				fmt.Fprint(a.stdout, " (drawn)")
			}
			fmt.Fprintln(a.stdout)
			fmt.Fprintf(a.stdout, "  window:   %s + %dd @ %dm\n", run.StartDate, run.Days, run.IntervalMinutes)
			fmt.Fprintf(a.stdout, "  rows:     %d\n", run.Rows)
			fmt.Fprintf(a.stdout, "  output:   %s\n", run.OutputPath)
			fmt.Fprintf(a.stdout, "  started:  %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(a.stdout, "  finished: %s\n", run.FinishedAt.Format("2006-01-02 15:04:05"))

			windows, err := a.store.GetAnomalyWindows(ctx, run.ID)
			if err != nil {
				return err
			}
			if len(windows) > 0 {
				fmt.Fprintf(a.stdout, "anomaly windows (%d):\n", len(windows))
				w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "  COLUMN\tKIND\tROWS\tFROM\tTO")
				for _, win := range windows {
					fmt.Fprintf(w, "  %s\t%s\t%d\t%s\t%s\n",
						win.Column, win.Kind, win.EndIdx-win.StartIdx,
						win.StartTime.Format("2006-01-02 15:04"), win.EndTime.Format("2006-01-02 15:04"))
				}
				if err := w.Flush(); err != nil {
					return err
				}
			}

			stats, err := a.store.GetChannelStats(ctx, run.ID)
			if err != nil {
				return err
			}
			if len(stats) > 0 {
				fmt.Fprintln(a.stdout, "channel stats:")
				w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "  CHANNEL\tMEAN\tMIN\tMAX\tANOMALY ROWS")
				for _, s := range stats {
					fmt.Fprintf(w, "  %s\t%.3f\t%.3f\t%.3f\t%d\n",
						s.Channel, s.Mean, s.Min, s.Max, s.AnomalyRows)
				}
				if err := w.Flush(); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newRunsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a run and its windows and stats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			defer a.close()
			if a.store == nil {
				return fmt.Errorf("run registry disabled")
			}

			if err := a.store.DeleteRun(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "deleted run %s\n", args[0])
			return nil
		},
	}
}
