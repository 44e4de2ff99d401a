package xerrors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres error codes we branch on.
const (
	PGUniqueViolation = "23505"
)

// IsUniqueViolation reports whether err is a unique constraint violation,
// optionally restricted to the named constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != PGUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// Generic
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("not found")
)

// Ledger
var (
	ErrInvalidAmount             = errors.New("amount must be greater than zero")
	ErrWalletNotFound            = errors.New("wallet not found")
	ErrInsufficientBalance       = errors.New("insufficient balance")
	ErrInsufficientFrozenBalance = errors.New("insufficient frozen balance")
	ErrUnsupportedCurrency       = errors.New("unsupported currency")
	ErrInvalidCurrencyPair       = errors.New("invalid currency pair")
)

// Rates
var (
	ErrRateUnavailable     = errors.New("exchange rate unavailable")
	ErrRateStale           = errors.New("exchange rate has changed")
	ErrProviderUnavailable = errors.New("rate provider unavailable")
)

// Transactions
var (
	ErrTransactionConflict     = errors.New("a similar transaction is already pending")
	ErrTransactionNotFound     = errors.New("transaction not found")
	ErrInvalidTransactionState = errors.New("transaction is not pending")
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already used")
)

// Token
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrInvalidAmount, "InvalidAmount"},
	{ErrWalletNotFound, "WalletNotFound"},
	{ErrInsufficientBalance, "InsufficientBalance"},
	{ErrInsufficientFrozenBalance, "InsufficientFrozenBalance"},
	{ErrUnsupportedCurrency, "UnsupportedCurrency"},
	{ErrInvalidCurrencyPair, "InvalidCurrencyPair"},
	{ErrRateUnavailable, "RateUnavailable"},
	{ErrRateStale, "RateStale"},
	{ErrProviderUnavailable, "ProviderUnavailable"},
	{ErrTransactionConflict, "TransactionConflict"},
	{ErrTransactionNotFound, "TransactionNotFound"},
	{ErrInvalidTransactionState, "InvalidTransactionState"},
	{ErrInvalidRequest, "InvalidRequest"},
	{ErrUnauthorized, "Unauthorized"},
	{ErrInvalidToken, "Unauthorized"},
	{ErrExpiredToken, "Unauthorized"},
	{ErrNotFound, "NotFound"},
}

// KindOf maps err to the name of the first known sentinel it wraps,
// or "Internal" when none matches.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "Internal"
}
