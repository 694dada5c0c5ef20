package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/cartrecovery/internal/scheduler"
)

// ScheduleOptions holds flags for the schedule command.
type ScheduleOptions struct {
	*RootOptions
	MetricsAddr string
	RunNow      bool
}

// NewScheduleCommand creates the schedule command.
func NewScheduleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScheduleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run sweeps and cleanup on cron schedules",
		Long: `Run the automation sweep and retention cleanup on their cron schedules
until interrupted. A run that is still in progress when its next tick
arrives is skipped, so sweeps never overlap.

Schedules come from schedule.automation and schedule.cleanup; cleanup is
only scheduled when retention.days is positive. When a metrics address is
set, Prometheus metrics are served on /metrics.

Example:
  cartrecovery schedule --config ./cartrecovery.yaml
  cartrecovery schedule --metrics-addr 127.0.0.1:9464 --now`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchedule(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve /metrics on this address (overrides schedule.metrics_addr)")
	cmd.Flags().BoolVar(&opts.RunNow, "now", false, "run one sweep immediately before waiting for the schedule")

	return cmd
}

func runSchedule(opts *ScheduleOptions, cmd *cobra.Command) error {
	rt, err := openRuntime(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	s, err := scheduler.New(scheduler.Config{
		Automation:    rt.cfg.Schedule.Automation,
		Cleanup:       rt.cfg.Schedule.Cleanup,
		RetentionDays: rt.cfg.Retention.Days,
	}, rt.app.Processor, rt.store, rt.log)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid schedule", err)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := rt.cfg.Schedule.MetricsAddr
	if opts.MetricsAddr != "" {
		addr = opts.MetricsAddr
	}
	if addr != "" {
		go func() {
			if err := scheduler.ServeMetrics(ctx, addr, rt.registry, rt.log); err != nil {
				rt.log.Error("metrics server failed", "addr", addr, "error", err)
			}
		}()
	}

	if opts.RunNow {
		// Failures are logged by RunSweep; the schedule keeps going.
		_ = s.RunSweep(ctx)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Scheduler started. Press Ctrl-C to stop.")
	s.Run(ctx)
	return nil
}
