package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/cartrecovery/internal/store"
)

// StatsOptions holds flags for the stats command.
type StatsOptions struct {
	*RootOptions
	Days int
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize abandoned carts",
		Long: `Summarize the abandoned cart table: totals, today's figures, a per-day
breakdown and the most abandoned products. Days are bounded in
stats.timezone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Days, "days", 30, "length of the per-day breakdown")

	return cmd
}

func runStats(opts *StatsOptions, cmd *cobra.Command) error {
	if opts.Days < 1 {
		return NewExitError(ExitCommandError, "--days must be at least 1")
	}

	formatter := newFormatter(opts.RootOptions, cmd)

	rt, err := openRuntime(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	loc, err := time.LoadLocation(rt.cfg.Stats.Timezone)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid stats.timezone", err)
	}

	now := time.Now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	since := today.AddDate(0, 0, -(opts.Days - 1))

	stats, err := rt.store.Statistics(commandContext(cmd), now, since, loc, rt.cfg.Stats.TopN)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to compute statistics", err)
	}

	return formatter.Emit(stats, func(w io.Writer) {
		printStats(w, stats)
	})
}

func printStats(w io.Writer, s *store.Stats) {
	fmt.Fprintf(w, "Abandoned carts: %d (value %s)\n", s.TotalCount, s.TotalValue.StringFixed(2))
	fmt.Fprintf(w, "Today:           %d (value %s)\n", s.TodayCount, s.TodayValue.StringFixed(2))
	if len(s.Daily) > 0 {
		fmt.Fprintln(w, "\nPer day:")
		for _, d := range s.Daily {
			fmt.Fprintf(w, "  %s  %4d  %12s\n", d.Date, d.Count, d.Value.StringFixed(2))
		}
	}
	if len(s.TopProducts) > 0 {
		fmt.Fprintln(w, "\nTop products:")
		for i, p := range s.TopProducts {
			fmt.Fprintf(w, "  %2d. %-32s carts=%d qty=%d value=%s\n",
				i+1, p.Label, p.CartCount, p.TotalQuantity, p.TotalValue.StringFixed(2))
		}
	}
}
