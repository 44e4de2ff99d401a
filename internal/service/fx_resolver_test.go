package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fx-wallet-service/internal/domain"
	"fx-wallet-service/internal/repository/memory"
	xerrors "fx-wallet-service/pkg/xerrors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProvider struct {
	mu        sync.Mutex
	pairs     map[string]decimal.Decimal
	latest    map[domain.Currency]decimal.Decimal
	fail      bool
	pairCalls int32
	delay     time.Duration
}

func (p *fakeProvider) Pair(_ context.Context, from, to domain.Currency) (decimal.Decimal, error) {
	atomic.AddInt32(&p.pairCalls, 1)
	time.Sleep(p.delay)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return decimal.Zero, xerrors.ErrProviderUnavailable
	}
	r, ok := p.pairs[domain.PairKey(from, to)]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: no quote", xerrors.ErrProviderUnavailable)
	}
	return r, nil
}

func (p *fakeProvider) Latest(_ context.Context, _ domain.Currency) (map[domain.Currency]decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return nil, xerrors.ErrProviderUnavailable
	}
	return p.latest, nil
}

type mapSnapshotCache struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *mapSnapshotCache) Get(_ context.Context, ns, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[ns+":"+key]
	if !ok {
		return "", errors.New("miss")
	}
	return v, nil
}

func (m *mapSnapshotCache) Set(_ context.Context, ns, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[ns+":"+key] = string(value.([]byte))
	return nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newResolver(p *fakeProvider) (*FXResolver, *memory.Store) {
	store := memory.NewStore()
	return NewFXResolver(p, store, NewRateCache(5*time.Minute), zap.NewNop()), store
}

func TestSameCurrencyIsOneWithoutIO(t *testing.T) {
	p := &fakeProvider{fail: true}
	r, _ := newResolver(p)

	rate, ok := r.GetRate(context.Background(), domain.NGN, domain.NGN)
	require.True(t, ok)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)))
	assert.EqualValues(t, 0, p.pairCalls)
}

func TestFreshQuoteIsPersistedSymmetricallyAndCached(t *testing.T) {
	ctx := context.Background()
	p := &fakeProvider{pairs: map[string]decimal.Decimal{"NGN_USD": dec("0.0005")}}
	r, store := newResolver(p)

	rate, ok := r.GetRate(ctx, domain.NGN, domain.USD)
	require.True(t, ok)
	assert.Equal(t, "0.0005", rate.String())

	fwd, err := store.GetActive(ctx, domain.NGN, domain.USD)
	require.NoError(t, err)
	rev, err := store.GetActive(ctx, domain.USD, domain.NGN)
	require.NoError(t, err)
	assert.True(t, fwd.InverseRate.Equal(dec("2000")))
	assert.True(t, rev.Rate.Equal(dec("2000")))
	assert.True(t, rev.InverseRate.Equal(dec("0.0005")))

	// cached: no second provider call, reverse direction served too
	_, ok = r.GetRate(ctx, domain.NGN, domain.USD)
	require.True(t, ok)
	back, ok := r.GetRate(ctx, domain.USD, domain.NGN)
	require.True(t, ok)
	assert.True(t, back.Equal(dec("2000")))
	assert.EqualValues(t, 1, p.pairCalls)
}

func TestProviderFailureFallsBackToStoredQuote(t *testing.T) {
	ctx := context.Background()
	p := &fakeProvider{fail: true}
	r, store := newResolver(p)
	require.NoError(t, store.UpsertPair(ctx, domain.NGN, domain.USD, dec("0.00062"), domain.Inverse(dec("0.00062"))))

	rate, ok := r.GetRate(ctx, domain.NGN, domain.USD)
	require.True(t, ok)
	assert.Equal(t, "0.00062", rate.String())
}

func TestUnavailableWhenNothingKnown(t *testing.T) {
	r, _ := newResolver(&fakeProvider{fail: true})

	_, ok := r.GetRate(context.Background(), domain.EUR, domain.GBP)
	assert.False(t, ok)
}

func TestConcurrentMissesShareOneProviderCall(t *testing.T) {
	p := &fakeProvider{pairs: map[string]decimal.Decimal{"EUR_USD": dec("1.1")}, delay: 50 * time.Millisecond}
	r, _ := newResolver(p)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rate, ok := r.GetRate(context.Background(), domain.EUR, domain.USD)
			assert.True(t, ok)
			assert.Equal(t, "1.1", rate.String())
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, atomic.LoadInt32(&p.pairCalls))
}

func TestGetAllRatesIsBestEffort(t *testing.T) {
	ctx := context.Background()
	p := &fakeProvider{latest: map[domain.Currency]decimal.Decimal{domain.USD: dec("1"), domain.NGN: dec("1500")}}
	r, _ := newResolver(p)

	all := r.GetAllRates(ctx, domain.USD)
	assert.Len(t, all, 1)
	assert.Equal(t, "1500", all["USD_NGN"].String())

	p.fail = true
	assert.Empty(t, r.GetAllRates(ctx, domain.USD))
}

func TestGetAllRatesUsesSharedSnapshot(t *testing.T) {
	ctx := context.Background()
	p := &fakeProvider{latest: map[domain.Currency]decimal.Decimal{domain.NGN: dec("1500")}}
	shared := &mapSnapshotCache{data: map[string]string{}}
	r := NewFXResolver(p, memory.NewStore(), NewRateCache(time.Minute), zap.NewNop(), WithSnapshotCache(shared))

	first := r.GetAllRates(ctx, domain.USD)
	require.Len(t, first, 1)

	p.fail = true
	second := r.GetAllRates(ctx, domain.USD)
	require.Len(t, second, 1)
	assert.True(t, second["USD_NGN"].Equal(dec("1500")))
}

func TestRefreshAllDerivesCrossRates(t *testing.T) {
	ctx := context.Background()
	p := &fakeProvider{
		fail: false,
		latest: map[domain.Currency]decimal.Decimal{
			domain.USD: dec("1"),
			domain.NGN: dec("1500"),
			domain.EUR: dec("0.9"),
			domain.GBP: dec("0.75"),
			domain.JPY: dec("150"),
			domain.CAD: dec("1.35"),
			domain.AUD: dec("1.5"),
			domain.CHF: dec("0.88"),
			// CNY missing
		},
	}
	r, store := newResolver(p)

	res := r.RefreshAll(ctx)
	// 9 currencies -> 72 ordered pairs; 16 involve CNY
	assert.Equal(t, 56, res.Updated)
	assert.Equal(t, 16, res.Skipped)

	q, err := store.GetActive(ctx, domain.EUR, domain.NGN)
	require.NoError(t, err)
	assert.True(t, q.Rate.Equal(dec("1500").Div(dec("0.9"))))

	q, err = store.GetActive(ctx, domain.NGN, domain.USD)
	require.NoError(t, err)
	assert.True(t, q.Rate.Equal(dec("1").Div(dec("1500"))))

	_, err = store.GetActive(ctx, domain.CNY, domain.USD)
	assert.ErrorIs(t, err, xerrors.ErrNotFound)

	// served from cache afterwards
	p.fail = true
	rate, ok := r.GetRate(ctx, domain.GBP, domain.JPY)
	require.True(t, ok)
	assert.True(t, rate.Equal(dec("150").Div(dec("0.75"))))
	assert.EqualValues(t, 0, p.pairCalls)
}

func TestRefreshAllWithProviderDownSkipsEverything(t *testing.T) {
	r, _ := newResolver(&fakeProvider{fail: true})
	res := r.RefreshAll(context.Background())
	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, 72, res.Skipped)
}
