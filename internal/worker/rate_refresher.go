package worker

import (
	"context"
	"sync"
	"time"

	"fx-wallet-service/internal/service"

	"go.uber.org/zap"
)

type RateRefreshSource interface {
	RefreshAll(ctx context.Context) service.RefreshResult
}

// RateRefresher periodically re-quotes every currency pair.
type RateRefresher struct {
	source    RateRefreshSource
	interval  time.Duration
	onStart   bool
	logger    *zap.Logger
	stopChan  chan struct{}
	closeOnce sync.Once
}

func NewRateRefresher(source RateRefreshSource, interval time.Duration, onStart bool, logger *zap.Logger) *RateRefresher {
	if interval <= 0 {
		interval = time.Hour
	}
	return &RateRefresher{
		source:   source,
		interval: interval,
		onStart:  onStart,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start blocks until Stop is called or ctx is done.
func (rr *RateRefresher) Start(ctx context.Context) {
	rr.logger.Info("starting rate refresher", zap.Duration("interval", rr.interval))

	if rr.onStart {
		rr.source.RefreshAll(ctx)
	}

	ticker := time.NewTicker(rr.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rr.source.RefreshAll(ctx)

		case <-rr.stopChan:
			rr.logger.Info("stopping rate refresher")
			return

		case <-ctx.Done():
			rr.logger.Info("context cancelled, stopping rate refresher")
			return
		}
	}
}

func (rr *RateRefresher) Stop() {
	rr.closeOnce.Do(func() { close(rr.stopChan) })
}
