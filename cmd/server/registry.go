package main

import (
	"errors"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ons/internal/domains/registryapi"
	"ons/internal/platform/config"
	"ons/internal/platform/httpserver"
	"ons/internal/platform/metrics"
	"ons/internal/platform/middleware"
)

var errRemoteRegistry = errors.New("registry cannot itself use the remote store backend")

// registryCommand serves the registry CRUD surface that remote-store resolvers share.
func registryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "registry",
		Short: "Serve the shared registry store over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			if cfg.Store.Backend == config.StoreRemote {
				return errRemoteRegistry
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
			if cfg.Server.AdminToken == "" {
				d.logger.WarnContext(ctx, "ONS_ADMIN_TOKEN is empty; registry writes are unauthenticated")
			}

			m := metrics.New(version)
			router := chi.NewRouter()
			router.Use(chimw.Recoverer)
			router.Use(middleware.RequestID)
			router.Use(middleware.RequestTime)
			router.Use(middleware.AccessLog(d.logger, m))
			registryapi.New(st, cfg.Server.AdminToken, d.logger).Register(router)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return httpserver.Run(gctx, httpserver.New(cfg.Server.Addr, router), d.logger)
			})
			g.Go(func() error {
				return httpserver.Run(gctx, httpserver.New(cfg.Server.MetricsAddr, metrics.Handler()), d.logger)
			})
			d.logger.InfoContext(ctx, "starting ons registry",
				"version", version,
				"addr", cfg.Server.Addr,
				"store", cfg.Store.Backend,
			)
			return g.Wait()
		},
	}
}
