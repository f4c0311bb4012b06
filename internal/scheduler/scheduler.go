package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"ppmkconnect-core/internal/logger"
)

// Reconciler is the periodic reconciliation pass the scheduler drives.
// Implemented by the application store.
type Reconciler interface {
	Reconcile(ctx context.Context)
}

// Scheduler runs the reconciliation pass on a cron schedule. It is the
// safety net against missed blob change notifications, not the primary
// propagation path.
type Scheduler struct {
	cron *cron.Cron
}

// New registers the reconciliation job with the given cron spec (for
// example "@every 30s").
func New(spec string, reconciler Reconciler) *Scheduler {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{cron: c}

	_, err := c.AddFunc(spec, func() {
		reconciler.Reconcile(context.Background())
	})
	if err != nil {
		logger.Error("Failed to register reconciliation job", "spec", spec, "error", err)
	}
	return s
}

// Start launches the cron scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info("Reconciliation scheduler started")
}

// Stop halts the scheduler and waits for a running pass to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Reconciliation scheduler stopped")
}
