package scheduler

import (
	"context"
	"log/slog"
	"time"

	"pricetracker/internal/products"
)

// Config configures the update cadence.
type Config struct {
	Interval time.Duration
}

// Scheduler periodically reconciles every tracked product. Cycles run inline
// in the ticker goroutine, so two cycles can never overlap; a cycle longer
// than the interval delays the next tick.
type Scheduler struct {
	store      Store
	reconciler *Reconciler
	interval   time.Duration
	logger     *slog.Logger
}

// New wires the scheduler to the catalog and the extractor.
func New(store Store, extractor products.Extractor, cfg Config, logger *slog.Logger) *Scheduler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 4 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:      store,
		reconciler: NewReconciler(store, extractor),
		interval:   interval,
		logger:     logger,
	}
}

// Run blocks until ctx is cancelled. One cycle runs immediately, then one
// per interval.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", "interval", s.interval)

	s.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping", "reason", ctx.Err())
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

// runCycle reconciles each product independently; one failing product never
// blocks the rest of the fleet.
func (s *Scheduler) runCycle(ctx context.Context) {
	list, err := s.store.ListAll(ctx)
	if err != nil {
		s.logger.Error("cycle aborted: list products", "error", err)
		return
	}

	var appended, skipped, failed int
	for _, p := range list {
		select {
		case <-ctx.Done():
			return
		default:
		}

		outcome, err := s.reconciler.Reconcile(ctx, p)
		switch outcome {
		case OutcomeAppended:
			appended++
			s.logger.Info("price updated", "id", p.ID, "name", p.Name)
		case OutcomeSkipped:
			skipped++
		case OutcomeFailed:
			failed++
			s.logger.Warn("reconcile failed", "id", p.ID, "url", p.URL, "error", err)
		}
	}

	s.logger.Info("cycle finished",
		"products", len(list), "appended", appended, "skipped", skipped, "failed", failed)
}
