package zonegraph

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newRunsCmd(a *app) *cobra.Command {
	var (
		stalledAfter time.Duration
		cleanOlder   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "Show ingestion run checkpoints",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			m, err := a.checkpoints()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if cleanOlder > 0 {
				n, err := m.CleanOld(ctx, cleanOlder)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %d checkpoints older than %s\n", n, cleanOlder)
				return nil
			}

			if len(args) == 1 {
				cp, err := m.Load(ctx, args[0])
				if err != nil {
					return err
				}
				if cp == nil {
					return fmt.Errorf("no checkpoint for run %s", args[0])
				}
				fmt.Fprint(out, cp.Summary())
				return nil
			}

			runs, err := m.List(ctx)
			if err != nil {
				return err
			}
			stats, err := m.GetStatistics(ctx, stalledAfter)
			if err != nil {
				return err
			}

			done := color.New(color.FgGreen).SprintFunc()
			pending := color.New(color.FgYellow).SprintFunc()
			for _, cp := range runs {
				status := pending("in progress")
				if cp.Completed {
					status = done("completed")
				}
				fmt.Fprintf(out, "%s  %-12s %-14s %s\n", cp.RunID, cp.SourceName, cp.GetProgress(), status)
			}
			fmt.Fprintf(out, "%d runs: %d completed, %d in progress, %d stalled\n",
				stats.Total, stats.Completed, stats.InProgress, stats.Stalled)
			return nil
		},
	}
	cmd.Flags().DurationVar(&stalledAfter, "stalled-after", time.Hour, "treat unfinished runs idle this long as stalled")
	cmd.Flags().DurationVar(&cleanOlder, "clean-older-than", 0, "delete checkpoints older than this instead of listing")
	return cmd
}
