package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

// CleanupOptions holds flags for the cleanup command.
type CleanupOptions struct {
	*RootOptions
	Days int
}

// CleanupResult is the output of the cleanup command.
type CleanupResult struct {
	Days      int       `json:"days"`
	Threshold time.Time `json:"threshold"`
	Deleted   int64     `json:"deleted"`
}

// NewCleanupCommand creates the cleanup command.
func NewCleanupCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CleanupOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete carts older than the retention period",
		Long: `Delete abandoned carts created before the retention threshold, together
with their line items. Execution logs are kept. A retention of 0 days
disables cleanup.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCleanup(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Days, "days", -1, "retention in days (overrides retention.days)")

	return cmd
}

func runCleanup(opts *CleanupOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	rt, err := openRuntime(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	days := rt.cfg.Retention.Days
	if opts.Days >= 0 {
		days = opts.Days
	}
	if days <= 0 {
		return formatter.Emit(CleanupResult{}, func(w io.Writer) {
			fmt.Fprintln(w, "Cleanup disabled (retention is 0 days)")
		})
	}

	threshold := time.Now().AddDate(0, 0, -days)
	deleted, err := rt.store.DeleteCartsOlderThan(commandContext(cmd), threshold)
	if err != nil {
		_ = formatter.Error("E001", err.Error(), nil)
		return WrapExitError(ExitFailure, "cleanup failed", err)
	}
	rt.log.Info("cleanup finished", "deleted", deleted, "retention_days", days)

	res := CleanupResult{Days: days, Threshold: threshold, Deleted: deleted}
	return formatter.Emit(res, func(w io.Writer) {
		fmt.Fprintf(w, "Deleted %d cart(s) created before %s\n", deleted, threshold.Format(time.RFC3339))
	})
}
