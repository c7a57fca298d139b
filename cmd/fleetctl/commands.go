package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"fleet-manager/internal/app"
	"fleet-manager/internal/config"
	"fleet-manager/pkg/logger"

	"github.com/spf13/cobra"
)

var errIncomplete = errors.New("run did not complete, see the report")

type options struct {
	windowDays int
	workers    int
	noManagers bool
}

func newRootCommand(ctx context.Context) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:          "fleetctl",
		Short:        "Run the fleet inspection jobs once",
		Long:         "fleetctl runs the inspection reconciliation or the reminder dispatch against the configured database and prints the run report as JSON.",
		SilenceUsage: true,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "reconcile",
			Short: "Recompute next inspection dates and statuses for every vehicle",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(ctx, opts, func(a *app.App) error {
					report, err := a.Reconciler.Run(ctx)
					if err != nil {
						return err
					}
					return printReport(cmd.OutOrStdout(), report, report.Incomplete)
				})
			},
		},
		&cobra.Command{
			Use:   "dispatch",
			Short: "Send inspection reminders and mark lapsed inspections overdue",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(ctx, opts, func(a *app.App) error {
					report, err := a.Dispatcher.Run(ctx)
					if err != nil {
						return err
					}
					return printReport(cmd.OutOrStdout(), report, report.Incomplete)
				})
			},
		},
	)

	fs := cmd.PersistentFlags()
	fs.IntVar(&opts.windowDays, "window", 0, "reminder window in days (default from REMINDER_WINDOW_DAYS)")
	fs.IntVar(&opts.workers, "workers", 0, "reconciliation workers (default from JOB_WORKERS)")
	fs.BoolVar(&opts.noManagers, "no-manager-summary", false, "do not send the summary to primary managers")

	return cmd
}

func withApp(ctx context.Context, opts *options, run func(*app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	opts.apply(cfg)
	logger.Setup(cfg.Log.Level, cfg.Log.Format)

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return run(a)
}

func (o *options) apply(cfg *config.Config) {
	if o.windowDays > 0 {
		cfg.Jobs.ReminderWindowDays = o.windowDays
	}
	if o.workers > 0 {
		cfg.Jobs.Workers = o.workers
	}
	if o.noManagers {
		cfg.Jobs.NotifyManagers = false
	}
}

func printReport(w io.Writer, report interface{}, incomplete bool) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	if incomplete {
		return errIncomplete
	}
	return nil
}
