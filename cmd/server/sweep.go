package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

// sweepCommand runs one reconciliation pass, for cron-driven deployments that
// start the API with --no-sweep.
func sweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Reconcile every pending, deleting and review record once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			d := newDeps(cfg)
			defer func() {
				if err := d.Close(); err != nil {
					d.logger.Error("shutdown cleanup failed", "error", err)
				}
			}()

			st, err := d.openStore(ctx)
			if err != nil {
				return err
			}
			svc, err := d.newService(ctx, d.chainClient(), st)
			if err != nil {
				return err
			}
			sweeper := newSweeper(svc, cfg)
			result, err := sweeper.SweepOnce(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
}
