package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type AbandonedFailer interface {
	FailAbandoned(ctx context.Context, maxAge time.Duration) (int64, error)
}

// PendingReaper fails transactions that stayed pending past maxAge, e.g.
// when a process died between debiting and recording the outcome.
type PendingReaper struct {
	failer    AbandonedFailer
	interval  time.Duration
	maxAge    time.Duration
	logger    *zap.Logger
	stopChan  chan struct{}
	closeOnce sync.Once
}

func NewPendingReaper(failer AbandonedFailer, interval, maxAge time.Duration, logger *zap.Logger) *PendingReaper {
	if interval <= 0 {
		interval = time.Minute
	}
	if maxAge <= 0 {
		maxAge = 10 * time.Minute
	}
	return &PendingReaper{
		failer:   failer,
		interval: interval,
		maxAge:   maxAge,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

func (pr *PendingReaper) Start(ctx context.Context) {
	pr.logger.Info("starting pending reaper",
		zap.Duration("interval", pr.interval),
		zap.Duration("max_age", pr.maxAge))

	ticker := time.NewTicker(pr.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := pr.failer.FailAbandoned(ctx, pr.maxAge)
			if err != nil {
				pr.logger.Error("failed to reap pending transactions", zap.Error(err))
				continue
			}
			if n > 0 {
				pr.logger.Warn("failed abandoned pending transactions", zap.Int64("count", n))
			}

		case <-pr.stopChan:
			pr.logger.Info("stopping pending reaper")
			return

		case <-ctx.Done():
			pr.logger.Info("context cancelled, stopping pending reaper")
			return
		}
	}
}

func (pr *PendingReaper) Stop() {
	pr.closeOnce.Do(func() { close(pr.stopChan) })
}
