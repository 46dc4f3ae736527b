package service

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"ons/internal/domains/models"
	dErrors "ons/pkg/domain-errors"
	"ons/pkg/requestcontext"
)

// SweepResult summarizes one sweeper pass.
type SweepResult struct {
	Visited     int `json:"visited"`
	Transitions int `json:"transitions"`
	Failures    int `json:"failures"`
}

// Sweeper periodically reconciles every record still waiting on the chain.
type Sweeper struct {
	service     *Service
	interval    time.Duration
	batch       int
	concurrency int
	logger      *slog.Logger
}

type SweeperOption func(*Sweeper)

func WithSweepInterval(d time.Duration) SweeperOption {
	return func(sw *Sweeper) {
		if d > 0 {
			sw.interval = d
		}
	}
}

func WithSweepBatch(n int) SweeperOption {
	return func(sw *Sweeper) {
		if n > 0 {
			sw.batch = n
		}
	}
}

func WithSweepConcurrency(n int) SweeperOption {
	return func(sw *Sweeper) {
		if n > 0 {
			sw.concurrency = n
		}
	}
}

func NewSweeper(svc *Service, opts ...SweeperOption) *Sweeper {
	sw := &Sweeper{
		service:     svc,
		interval:    30 * time.Second,
		batch:       100,
		concurrency: 8,
		logger:      svc.logger,
	}
	for _, opt := range opts {
		opt(sw)
	}
	return sw
}

// Run sweeps immediately and then every interval until ctx is cancelled.
func (sw *Sweeper) Run(ctx context.Context) error {
	sw.logger.InfoContext(ctx, "sweeper started", "interval", sw.interval, "batch", sw.batch)
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()
	for {
		if _, err := sw.SweepOnce(ctx); err != nil && ctx.Err() == nil {
			sw.logger.ErrorContext(ctx, "sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			sw.logger.InfoContext(ctx, "sweeper stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// SweepOnce reconciles one batch of pending, deleting and review records.
// A failure on one domain never stops the others.
func (sw *Sweeper) SweepOnce(ctx context.Context) (SweepResult, error) {
	start := time.Now()
	ctx = requestcontext.WithTime(ctx, requestcontext.Now(ctx))

	recs, err := sw.service.store.ListByStatus(ctx, sw.batch,
		models.StatusPending, models.StatusDeleting, models.StatusReview)
	if err != nil {
		return SweepResult{}, storeError(err, "failed to list records to sweep")
	}

	type outcome struct {
		changed bool
		failed  bool
	}
	outcomes := make([]outcome, len(recs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sw.concurrency)
	for i, rec := range recs {
		g.Go(func() error {
			after, err := sw.service.Reconcile(gctx, rec.Domain)
			if err != nil {
				outcomes[i].failed = true
				sw.logger.WarnContext(gctx, "sweep reconcile failed",
					"domain", rec.FullName(),
					"code", dErrors.CodeOf(err),
					"error", err,
				)
				return nil
			}
			outcomes[i].changed = after.Status != rec.Status
			return nil
		})
	}
	_ = g.Wait()

	res := SweepResult{Visited: len(recs)}
	for _, o := range outcomes {
		if o.changed {
			res.Transitions++
		}
		if o.failed {
			res.Failures++
		}
	}
	if sw.service.metrics != nil {
		sw.service.metrics.ObserveSweep(start, len(recs))
	}
	if res.Visited > 0 {
		sw.logger.InfoContext(ctx, "sweep complete",
			"visited", res.Visited,
			"transitions", res.Transitions,
			"failures", res.Failures,
			"duration", time.Since(start),
		)
	}
	return res, nil
}
