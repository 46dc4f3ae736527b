package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"ons/internal/chain"
	"ons/internal/domains/dedupe"
	"ons/internal/domains/events"
	domainmetrics "ons/internal/domains/metrics"
	"ons/internal/domains/service"
	"ons/internal/domains/store"
	"ons/internal/domains/verify"
	"ons/internal/platform/config"
	"ons/internal/platform/kafka"
	"ons/internal/platform/logger"
	"ons/internal/platform/postgres"
	platformredis "ons/internal/platform/redis"
	"ons/pkg/platform/circuit"
)

// deps owns the long-lived clients a subcommand opens and closes them in reverse order.
type deps struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func() error
}

func newDeps(cfg *config.Config) *deps {
	return &deps{
		cfg:    cfg,
		logger: logger.New(cfg.Log.Format, cfg.Log.Level),
	}
}

func (d *deps) onClose(fn func() error) {
	d.closers = append(d.closers, fn)
}

func (d *deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i]())
	}
	return errors.Join(errs...)
}

func (d *deps) protocol() verify.Protocol {
	return verify.Protocol{
		MasterAddress:   d.cfg.Protocol.MasterAddress,
		RegistrationFee: d.cfg.Protocol.RegistrationFee,
		DeletionFee:     d.cfg.Protocol.DeletionFee,
	}
}

func (d *deps) chainClient() *chain.Client {
	return chain.New(d.cfg.Chain.RPCURL,
		chain.WithTimeout(d.cfg.Chain.Timeout),
		chain.WithMetrics(chain.NewMetrics()),
	)
}

func (d *deps) openStore(ctx context.Context) (service.Store, error) {
	switch d.cfg.Store.Backend {
	case config.StorePostgres:
		db, err := postgres.Open(ctx, d.cfg.Store.PostgresDSN)
		if err != nil {
			return nil, err
		}
		d.onClose(db.Close)
		pg := store.NewPostgres(db)
		if err := pg.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate registry schema: %w", err)
		}
		d.logger.InfoContext(ctx, "using postgres registry store")
		return pg, nil
	case config.StoreRemote:
		d.logger.InfoContext(ctx, "using remote registry store", "url", d.cfg.Store.RegistryURL)
		return store.NewRemote(d.cfg.Store.RegistryURL, d.cfg.Store.Timeout,
			store.WithAdminToken(d.cfg.Store.RegistryToken),
		), nil
	default:
		d.logger.InfoContext(ctx, "using in-memory registry store")
		return store.NewInMemory(), nil
	}
}

// openDeduper returns the LRU set, or Redis guarded by a breaker that falls
// back to the LRU while Redis is failing.
func (d *deps) openDeduper() (dedupe.Deduper, error) {
	local := dedupe.NewMemory(d.cfg.Reconcile.DedupeSize, d.cfg.Reconcile.DedupeTTL)
	rc, err := platformredis.New(d.cfg.Redis)
	if err != nil {
		return nil, err
	}
	if rc == nil {
		return local, nil
	}
	d.onClose(rc.Close)
	breaker := circuit.New("dedupe-redis",
		circuit.WithFailureThreshold(3),
		circuit.WithSuccessThreshold(2),
	)
	return dedupe.NewFallback(dedupe.NewRedis(rc.Client, d.cfg.Reconcile.DedupeTTL), local, breaker, d.logger), nil
}

// openNotifier fans out to the in-process bus and, when brokers are set, Kafka.
func (d *deps) openNotifier(ctx context.Context) (service.Notifier, error) {
	bus := events.NewBus(prometheus.DefaultRegisterer, d.logger)
	d.onClose(func() error {
		bus.Close()
		return nil
	})
	bus.SubscribeFunc(func(evt events.Event) {
		d.logger.Debug("domain event",
			"type", evt.Type,
			"domain", evt.Domain,
			"status", evt.Status,
		)
	})

	client, err := kafka.New(ctx, d.cfg.Kafka)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return bus, nil
	}
	d.onClose(func() error {
		client.Close()
		return nil
	})
	d.logger.InfoContext(ctx, "publishing domain events to kafka", "topic", d.cfg.Kafka.Topic)
	return events.Multi{bus, events.NewKafkaPublisher(client, d.cfg.Kafka.Topic)}, nil
}

func (d *deps) newService(ctx context.Context, gateway service.Gateway, st service.Store) (*service.Service, error) {
	rc := d.cfg.Reconcile
	policy, err := service.ParsePolicy(rc.InvalidClaimPolicy, rc.DeletionFailurePolicy, rc.PendingTimeout, rc.DeletionTimeout, rc.AwaitWindow)
	if err != nil {
		return nil, err
	}
	deduper, err := d.openDeduper()
	if err != nil {
		return nil, err
	}
	notifier, err := d.openNotifier(ctx)
	if err != nil {
		return nil, err
	}
	return service.New(st, gateway, d.protocol(),
		service.WithLogger(d.logger),
		service.WithMetrics(domainmetrics.New()),
		service.WithNotifier(notifier),
		service.WithDeduper(deduper),
		service.WithPolicy(policy),
	)
}
