package usecase

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics
var (
	transactionsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_transactions_total",
			Help: "Transactions that reached a terminal state, by type and status",
		},
		[]string{"type", "status"},
	)

	settleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wallet_settle_duration_seconds",
			Help:    "Duration of the locked unit of work that settles a transaction",
			Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2},
		},
		[]string{"type"},
	)

	staleTradeRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wallet_trade_stale_rate_rejections_total",
			Help: "Trades rejected because the live rate drifted from the quoted one",
		},
	)

	eventPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wallet_event_publish_errors_total",
			Help: "Transaction events that could not be published",
		},
	)
)
