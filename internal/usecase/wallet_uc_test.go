package usecase

import (
	"context"
	"sync"
	"testing"

	"fx-wallet-service/internal/domain"
	"fx-wallet-service/internal/repository/memory"
	xerrors "fx-wallet-service/pkg/xerrors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newWalletFixture(t *testing.T) (*WalletUsecase, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	uc := NewWalletUsecase(store, store, nil, zap.NewNop())
	_, err := uc.OpenAccounts(context.Background(), "u1")
	require.NoError(t, err)
	return uc, store
}

func TestOpenAccountsCreatesDefaults(t *testing.T) {
	uc, _ := newWalletFixture(t)

	wallets, err := uc.GetWallets(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, wallets, len(domain.DefaultWalletCurrencies))
	for _, w := range wallets {
		assert.True(t, w.Available.IsZero())
		assert.True(t, w.Frozen.IsZero())
	}
}

func TestLedgerPrimitives(t *testing.T) {
	ctx := context.Background()
	uc, _ := newWalletFixture(t)

	w, err := uc.Fund(ctx, "u1", domain.NGN, dec("100"))
	require.NoError(t, err)
	assert.True(t, w.Available.Equal(dec("100")))

	w, err = uc.Freeze(ctx, "u1", domain.NGN, dec("30"))
	require.NoError(t, err)
	assert.True(t, w.Available.Equal(dec("70")))
	assert.True(t, w.Frozen.Equal(dec("30")))

	w, err = uc.Unfreeze(ctx, "u1", domain.NGN, dec("10"))
	require.NoError(t, err)
	assert.True(t, w.Available.Equal(dec("80")))
	assert.True(t, w.Frozen.Equal(dec("20")))

	w, err = uc.Deduct(ctx, "u1", domain.NGN, dec("20"))
	require.NoError(t, err)
	assert.True(t, w.Frozen.IsZero())

	w, err = uc.Credit(ctx, "u1", domain.NGN, dec("5"))
	require.NoError(t, err)
	assert.True(t, w.Available.Equal(dec("85")))
}

func TestLedgerErrors(t *testing.T) {
	ctx := context.Background()
	uc, _ := newWalletFixture(t)

	_, err := uc.Fund(ctx, "u1", domain.NGN, dec("0"))
	assert.ErrorIs(t, err, xerrors.ErrInvalidAmount)

	_, err = uc.Fund(ctx, "u1", domain.JPY, dec("1"))
	assert.ErrorIs(t, err, xerrors.ErrWalletNotFound)

	_, err = uc.Freeze(ctx, "u1", domain.NGN, dec("1"))
	assert.ErrorIs(t, err, xerrors.ErrInsufficientBalance)

	_, err = uc.Deduct(ctx, "u1", domain.NGN, dec("1"))
	assert.ErrorIs(t, err, xerrors.ErrInsufficientFrozenBalance)

	_, err = uc.Unfreeze(ctx, "u1", domain.NGN, dec("1"))
	assert.ErrorIs(t, err, xerrors.ErrInsufficientFrozenBalance)

	assert.ErrorIs(t, uc.ValidateSufficientBalance(ctx, "u1", domain.NGN, dec("1")), xerrors.ErrInsufficientBalance)
	assert.ErrorIs(t, uc.ValidateSufficientBalance(ctx, "u1", domain.NGN, dec("-1")), xerrors.ErrInvalidAmount)
}

func TestConcurrentFreezeOnlyOneSucceeds(t *testing.T) {
	ctx := context.Background()
	uc, _ := newWalletFixture(t)
	_, err := uc.Fund(ctx, "u1", domain.NGN, dec("100"))
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.Freeze(ctx, "u1", domain.NGN, dec("60"))
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}()
	}
	wg.Wait()

	var ok, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, xerrors.ErrInsufficientBalance):
			insufficient++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, insufficient)

	w, err := uc.GetWallet(ctx, "u1", domain.NGN)
	require.NoError(t, err)
	assert.True(t, w.Available.Equal(dec("40")))
	assert.True(t, w.Frozen.Equal(dec("60")))
}

func TestWithTxSharesOneUnitOfWork(t *testing.T) {
	ctx := context.Background()
	uc, store := newWalletFixture(t)
	_, err := uc.Fund(ctx, "u1", domain.NGN, dec("100"))
	require.NoError(t, err)

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	ledger := uc.WithTx(tx)

	require.NoError(t, ledger.Lock(ctx, "u1", domain.USD, domain.NGN))
	_, err = ledger.Freeze(ctx, "u1", domain.NGN, dec("50"))
	require.NoError(t, err)
	_, err = ledger.Deduct(ctx, "u1", domain.NGN, dec("50"))
	require.NoError(t, err)
	_, err = ledger.Credit(ctx, "u1", domain.USD, dec("0.03"))
	require.NoError(t, err)
	require.NoError(t, tx.Rollback(ctx))

	w, err := uc.GetWallet(ctx, "u1", domain.NGN)
	require.NoError(t, err)
	assert.True(t, w.Available.Equal(dec("100")))
	w, err = uc.GetWallet(ctx, "u1", domain.USD)
	require.NoError(t, err)
	assert.True(t, w.Available.IsZero())
}

func TestLockWithoutTx(t *testing.T) {
	uc, _ := newWalletFixture(t)
	assert.Error(t, uc.Lock(context.Background(), "u1", domain.NGN))
}
