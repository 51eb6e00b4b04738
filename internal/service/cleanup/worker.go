package cleanup

import (
	"context"
	"time"

	"github.com/Hemant-14942/CodeArena/internal/observability/logger"
	"go.uber.org/zap"
)

// Pruner removes session index entries whose record no longer exists.
type Pruner interface {
	PruneAll(ctx context.Context) (int, error)
}

// Observer is told how many orphans each run removed.
type Observer interface {
	OrphansPruned(n int)
}

type Worker struct {
	pruner   Pruner
	observer Observer
	interval time.Duration
	log      *zap.Logger
}

func NewWorker(p Pruner, obs Observer, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Worker{
		pruner:   p,
		observer: obs,
		interval: interval,
		log:      logger.Named("cleanup"),
	}
}

// Run prunes once immediately, then on every tick until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("background worker started", zap.Duration("interval", w.interval))
	w.RunOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("background worker stopped")
			return nil
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single pruning pass and returns the number removed.
func (w *Worker) RunOnce(ctx context.Context) int {
	start := time.Now()
	n, err := w.pruner.PruneAll(ctx)
	if n > 0 && w.observer != nil {
		w.observer.OrphansPruned(n)
	}
	if err != nil {
		if ctx.Err() == nil {
			w.log.Warn("session index cleanup failed", zap.Int("pruned", n), logger.Err(err))
		}
		return n
	}
	if n > 0 {
		w.log.Info("removed orphaned session index entries", zap.Int("pruned", n), zap.Duration("took", time.Since(start)))
	}
	return n
}
