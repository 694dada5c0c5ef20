package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/cartrecovery/internal/model"
	"github.com/roach88/cartrecovery/internal/store"
)

// LogsOptions holds flags for the logs command.
type LogsOptions struct {
	*RootOptions
	RuleID string
	CartID string
	Status string
	Limit  uint64
}

// NewLogsCommand creates the logs command.
func NewLogsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the automation execution log",
		Long: `Show execution log entries, newest first.

Each entry records one rule applied to one cart: the overall status and
the outcome of every action in the pipeline.

Example:
  cartrecovery logs --rule reminder --limit 20
  cartrecovery logs --status error --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogs(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.RuleID, "rule", "", "only entries for this rule")
	cmd.Flags().StringVar(&opts.CartID, "cart", "", "only entries for this cart")
	cmd.Flags().StringVar(&opts.Status, "status", "", "only entries with this status (success|error)")
	cmd.Flags().Uint64Var(&opts.Limit, "limit", 50, "maximum number of entries (0 for all)")

	return cmd
}

func runLogs(opts *LogsOptions, cmd *cobra.Command) error {
	if opts.Status != "" && opts.Status != model.StatusSuccess && opts.Status != model.StatusError {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid status %q: must be success or error", opts.Status))
	}

	formatter := newFormatter(opts.RootOptions, cmd)

	rt, err := openRuntime(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	logs, err := rt.store.ListLogs(commandContext(cmd), store.LogFilter{
		RuleID: opts.RuleID,
		CartID: opts.CartID,
		Status: opts.Status,
		Limit:  opts.Limit,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read logs", err)
	}

	return formatter.Emit(logs, func(w io.Writer) {
		if len(logs) == 0 {
			fmt.Fprintln(w, "No log entries")
			return
		}
		for _, l := range logs {
			printLog(w, l)
		}
	})
}

func printLog(w io.Writer, l model.ExecutionLog) {
	fmt.Fprintf(w, "%s  %s  rule=%s cart=%s customer=%s  %s\n",
		l.CreatedAt.Format("2006-01-02 15:04:05"), l.ID, l.RuleID, l.CartID, l.CustomerID, strings.ToUpper(l.Status))
	if l.Error != "" {
		fmt.Fprintf(w, "    error: %s\n", l.Error)
	}
	for _, r := range l.ActionResults {
		if r.Error != "" {
			fmt.Fprintf(w, "    %s: %s (%s)\n", r.Key, r.Status, r.Error)
			continue
		}
		fmt.Fprintf(w, "    %s: %s\n", r.Key, r.Status)
	}
}
