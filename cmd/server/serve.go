package main

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ons/internal/domains/handler"
	"ons/internal/domains/service"
	"ons/internal/platform/config"
	"ons/internal/platform/httpserver"
	"ons/internal/platform/metrics"
	"ons/internal/platform/middleware"
)

func serveCommand() *cobra.Command {
	var noSweep bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the resolver API and the reconciliation sweeper",
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

			m := metrics.New(version)
			router := chi.NewRouter()
			router.Use(chimw.Recoverer)
			router.Use(middleware.RequestID)
			router.Use(middleware.RequestTime)
			router.Use(middleware.AccessLog(d.logger, m))
			handler.New(svc, d.logger).Register(router)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return httpserver.Run(gctx, httpserver.New(cfg.Server.Addr, router), d.logger)
			})
			g.Go(func() error {
				return httpserver.Run(gctx, httpserver.New(cfg.Server.MetricsAddr, metrics.Handler()), d.logger)
			})
			if !noSweep {
				sweeper := newSweeper(svc, cfg)
				g.Go(func() error {
					return sweeper.Run(gctx)
				})
			}

			d.logger.InfoContext(ctx, "starting ons resolver",
				"version", version,
				"addr", cfg.Server.Addr,
				"store", cfg.Store.Backend,
				"sweeper", !noSweep,
			)
			return g.Wait()
		},
	}
	cmd.Flags().BoolVar(&noSweep, "no-sweep", false, "do not run the background sweeper in this process")
	return cmd
}

func newSweeper(svc *service.Service, cfg *config.Config) *service.Sweeper {
	return service.NewSweeper(svc,
		service.WithSweepInterval(cfg.Reconcile.SweepInterval),
		service.WithSweepBatch(cfg.Reconcile.SweepBatch),
		service.WithSweepConcurrency(cfg.Reconcile.SweepConcurrency),
	)
}
