package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/edu-identity/internal/lib/metrics"
	"github.com/magabrotheeeer/edu-identity/internal/services/sweeper"
)

func newSweepCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one cleanup pass: idle sessions and past-due codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, db, err := opts.openStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			svc := sweeper.NewService(db, cfg.Session.IdleTimeout, cfg.Sweeper.Interval, metrics.NewNop(), opts.logger(cmd, cfg))
			return runSweep(cmd, svc)
		},
	}
}

type sweepRunner interface {
	Sweep(ctx context.Context) (sweeper.Report, error)
}

func runSweep(cmd *cobra.Command, svc sweepRunner) error {
	report, err := svc.Sweep(cmd.Context())
	cmd.Printf("idle sessions closed: %d\nstale codes expired: %d\n", report.IdleSessions, report.StaleCodes)
	return err
}
