package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/cartrecovery/internal/engine"
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one automation sweep",
		Long: `Run a single automation sweep over every stored abandoned cart.

Active rules are loaded ordered by priority. For each cart the first
matching rule runs its action pipeline; the outcome is written to the
execution log and the cart's automation counter is advanced.

Exit codes:
  0 - Sweep finished (individual action failures are recorded in the log)
  1 - Sweep aborted (rules or a cart batch could not be loaded)
  2 - Command error (configuration, database)

Example:
  cartrecovery run --db ./cartrecovery.db
  cartrecovery run --config ./cartrecovery.yaml --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(rootOpts, cmd)
		},
	}
}

func runSweep(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	rt, err := openRuntime(opts, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sum, err := rt.app.Processor.Process(ctx)
	if err != nil {
		_ = formatter.Error(errorCode(err), err.Error(), sum)
		return WrapExitError(ExitFailure, "sweep failed", err)
	}

	return formatter.Emit(sum, func(w io.Writer) {
		printSummary(w, sum)
	})
}

func printSummary(w io.Writer, sum engine.Summary) {
	fmt.Fprintf(w, "Sweep complete: %d active rule(s), %d cart(s) scanned, %d executed\n",
		sum.Rules, sum.Scanned, sum.Executed)
	if sum.RecordFailures > 0 {
		fmt.Fprintf(w, "  %d execution(s) could not be recorded\n", sum.RecordFailures)
	}
	if sum.ActionFailures > 0 {
		fmt.Fprintf(w, "  %d action(s) failed (see logs)\n", sum.ActionFailures)
	}
}
