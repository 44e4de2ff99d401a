package service

import (
	"context"
	"encoding/json"
	"time"

	"fx-wallet-service/internal/domain"
	"fx-wallet-service/internal/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const snapshotNamespace = "fx"

var rateLookups = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fx_rate_lookups_total",
		Help: "Rate lookups by the source that answered them",
	},
	[]string{"source"},
)

// SnapshotCache is a shared cache for full rate tables. *cache.Cache
// satisfies it.
type SnapshotCache interface {
	Get(ctx context.Context, namespace, key string) (string, error)
	Set(ctx context.Context, namespace, key string, value interface{}, ttl time.Duration) error
}

// FXResolver answers rate questions from, in order: the local cache, the
// provider, and the last persisted quote.
type FXResolver struct {
	provider RateProvider
	rateRepo repository.RateRepository
	cache    *RateCache
	shared   SnapshotCache
	base     domain.Currency
	group    singleflight.Group
	logger   *zap.Logger
}

type FXResolverOption func(*FXResolver)

// WithSnapshotCache shares getAllRates results across replicas.
func WithSnapshotCache(c SnapshotCache) FXResolverOption {
	return func(r *FXResolver) { r.shared = c }
}

func WithBaseCurrency(c domain.Currency) FXResolverOption {
	return func(r *FXResolver) { r.base = c }
}

func NewFXResolver(provider RateProvider, rateRepo repository.RateRepository, cache *RateCache, logger *zap.Logger, opts ...FXResolverOption) *FXResolver {
	r := &FXResolver{
		provider: provider,
		rateRepo: rateRepo,
		cache:    cache,
		base:     domain.USD,
		logger:   logger,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *FXResolver) BaseCurrency() domain.Currency { return r.base }

// GetRate returns the from->to rate. ok is false when no provider quote and
// no persisted quote is available.
func (r *FXResolver) GetRate(ctx context.Context, from, to domain.Currency) (decimal.Decimal, bool) {
	if from == to {
		return decimal.NewFromInt(1), true
	}
	if rate, ok := r.cache.Get(from, to); ok {
		rateLookups.WithLabelValues("cache").Inc()
		return rate, true
	}

	v, err, _ := r.group.Do(domain.PairKey(from, to), func() (interface{}, error) {
		return r.fetchPair(ctx, from, to)
	})
	if err == nil {
		rateLookups.WithLabelValues("provider").Inc()
		return v.(decimal.Decimal), true
	}

	r.logger.Warn("fx provider unavailable, falling back to stored rate",
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.Error(err))

	q, err := r.rateRepo.GetActive(ctx, from, to)
	if err != nil {
		r.logger.Error("no exchange rate available",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
			zap.Error(err))
		rateLookups.WithLabelValues("unavailable").Inc()
		return decimal.Zero, false
	}
	rateLookups.WithLabelValues("fallback").Inc()
	r.cache.Set(from, to, q.Rate)
	return q.Rate, true
}

func (r *FXResolver) fetchPair(ctx context.Context, from, to domain.Currency) (decimal.Decimal, error) {
	rate, err := r.provider.Pair(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	inverse := domain.Inverse(rate)
	if err := r.rateRepo.UpsertPair(ctx, from, to, rate, inverse); err != nil {
		r.logger.Error("failed to persist exchange rate",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
			zap.Error(err))
	}
	r.cache.SetPair(from, to, rate, inverse)
	return rate, nil
}

// GetAllRates returns base->currency quotes keyed BASE_CUR. It never fails;
// an unreachable provider yields an empty map.
func (r *FXResolver) GetAllRates(ctx context.Context, base domain.Currency) map[string]decimal.Decimal {
	if r.shared != nil {
		if raw, err := r.shared.Get(ctx, snapshotNamespace, "latest:"+base.String()); err == nil {
			var snap map[string]decimal.Decimal
			if json.Unmarshal([]byte(raw), &snap) == nil && len(snap) > 0 {
				return snap
			}
		}
	}

	latest, err := r.provider.Latest(ctx, base)
	if err != nil {
		r.logger.Warn("failed to fetch rate table", zap.String("base", base.String()), zap.Error(err))
		return map[string]decimal.Decimal{}
	}

	out := make(map[string]decimal.Decimal, len(latest))
	for cur, rate := range latest {
		if cur == base {
			continue
		}
		out[domain.PairKey(base, cur)] = rate
	}

	if r.shared != nil && len(out) > 0 {
		if data, err := json.Marshal(out); err == nil {
			if err := r.shared.Set(ctx, snapshotNamespace, "latest:"+base.String(), data, r.cache.ttl); err != nil {
				r.logger.Debug("failed to share rate table", zap.Error(err))
			}
		}
	}
	return out
}

type RefreshResult struct {
	Updated int
	Skipped int
}

// RefreshAll re-quotes every ordered pair of supported currencies from one
// base table, deriving cross rates through the base currency.
func (r *FXResolver) RefreshAll(ctx context.Context) RefreshResult {
	table := r.GetAllRates(ctx, r.base)

	baseRates := map[domain.Currency]decimal.Decimal{r.base: decimal.NewFromInt(1)}
	for _, cur := range domain.SupportedCurrencies {
		if rate, ok := table[domain.PairKey(r.base, cur)]; ok {
			baseRates[cur] = rate
		}
	}

	var res RefreshResult
	for _, from := range domain.SupportedCurrencies {
		for _, to := range domain.SupportedCurrencies {
			if from == to {
				continue
			}
			rFrom, okFrom := baseRates[from]
			rTo, okTo := baseRates[to]
			if !okFrom || !okTo || !rFrom.IsPositive() {
				r.logger.Warn("skipping pair without base quote",
					zap.String("from", from.String()),
					zap.String("to", to.String()))
				res.Skipped++
				continue
			}

			rate := rTo.Div(rFrom)
			inverse := domain.Inverse(rate)
			if err := r.rateRepo.UpsertPair(ctx, from, to, rate, inverse); err != nil {
				r.logger.Error("failed to persist refreshed rate",
					zap.String("from", from.String()),
					zap.String("to", to.String()),
					zap.Error(err))
				res.Skipped++
				continue
			}
			r.cache.SetPair(from, to, rate, inverse)
			res.Updated++
		}
	}

	r.logger.Info("exchange rates refreshed",
		zap.String("base", r.base.String()),
		zap.Int("updated", res.Updated),
		zap.Int("skipped", res.Skipped))
	return res
}
