package domain

import (
	"testing"

	xerrors "fx-wallet-service/pkg/xerrors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newAccount(available, frozen string) *WalletAccount {
	return &WalletAccount{Owner: "u1", Currency: NGN, Available: d(available), Frozen: d(frozen)}
}

func TestFreezeMovesAvailableToFrozen(t *testing.T) {
	w := newAccount("100", "0")
	require.NoError(t, w.Freeze(d("60")))

	assert.True(t, w.Available.Equal(d("40")))
	assert.True(t, w.Frozen.Equal(d("60")))
	assert.True(t, w.Total().Equal(d("100")))
}

func TestFreezeInsufficientLeavesAccountUntouched(t *testing.T) {
	w := newAccount("40", "60")
	err := w.Freeze(d("60"))

	assert.ErrorIs(t, err, xerrors.ErrInsufficientBalance)
	assert.True(t, w.Available.Equal(d("40")))
	assert.True(t, w.Frozen.Equal(d("60")))
}

func TestUnfreezeAndDeduct(t *testing.T) {
	w := newAccount("0", "50")

	require.NoError(t, w.Unfreeze(d("20")))
	assert.True(t, w.Available.Equal(d("20")))
	assert.True(t, w.Frozen.Equal(d("30")))

	require.NoError(t, w.Deduct(d("30")))
	assert.True(t, w.Frozen.IsZero())

	assert.ErrorIs(t, w.Deduct(d("1")), xerrors.ErrInsufficientFrozenBalance)
	assert.ErrorIs(t, w.Unfreeze(d("1")), xerrors.ErrInsufficientFrozenBalance)
}

func TestNonPositiveAmountsRejected(t *testing.T) {
	w := newAccount("10", "10")
	for _, amt := range []string{"0", "-1"} {
		assert.ErrorIs(t, w.Fund(d(amt)), xerrors.ErrInvalidAmount)
		assert.ErrorIs(t, w.Credit(d(amt)), xerrors.ErrInvalidAmount)
		assert.ErrorIs(t, w.Freeze(d(amt)), xerrors.ErrInvalidAmount)
		assert.ErrorIs(t, w.Unfreeze(d(amt)), xerrors.ErrInvalidAmount)
		assert.ErrorIs(t, w.Deduct(d(amt)), xerrors.ErrInvalidAmount)
	}
	assert.True(t, w.Available.Equal(d("10")))
	assert.True(t, w.Frozen.Equal(d("10")))
}

func TestAmountsBeyondStorageScaleRejected(t *testing.T) {
	w := newAccount("1", "1")
	assert.ErrorIs(t, w.Fund(d("0.000000001")), xerrors.ErrInvalidAmount)
	assert.ErrorIs(t, w.Freeze(d("0.999999999")), xerrors.ErrInvalidAmount)
	assert.True(t, w.Available.Equal(d("1")))
	assert.True(t, w.Frozen.Equal(d("1")))

	assert.NoError(t, ValidateAmount(d("0.00000001")))
	assert.NoError(t, ValidateAmount(d("2.500000000")))
}

func TestHasAvailable(t *testing.T) {
	w := newAccount("10", "0")
	assert.NoError(t, w.HasAvailable(d("10")))
	assert.ErrorIs(t, w.HasAvailable(d("10.00000001")), xerrors.ErrInsufficientBalance)
}

func TestParseCurrency(t *testing.T) {
	c, err := ParseCurrency(" ngn ")
	require.NoError(t, err)
	assert.Equal(t, NGN, c)

	_, err = ParseCurrency("XYZ")
	assert.ErrorIs(t, err, xerrors.ErrUnsupportedCurrency)
}

func TestReceiptMessage(t *testing.T) {
	reason := "insufficient balance"
	tx := &Transaction{Type: TransactionConversion, Status: StatusFailed, FailureReason: &reason}
	assert.Equal(t, "transaction failed: insufficient balance", tx.Receipt().Message)

	tx = &Transaction{Type: TransactionFunding, Status: StatusCompleted}
	assert.Equal(t, "wallet funded successfully", tx.Receipt().Message)
}
