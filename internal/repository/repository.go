package repository

import (
	"context"
	"time"

	"fx-wallet-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// dbtx is the part of *pgxpool.Pool the postgres repositories use.
type dbtx interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UnitOfWork opens a storage transaction in which wallet rows can be locked
// and mutated together with a transaction status change.
type UnitOfWork interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is one open unit of work. Rows returned by LockWallet stay locked until
// Commit or Rollback. Rollback after Commit is a no-op.
type Tx interface {
	LockWallet(ctx context.Context, owner string, currency domain.Currency) (*domain.WalletAccount, error)
	SaveWallet(ctx context.Context, w *domain.WalletAccount) error
	// CompleteTransaction moves a pending record to completed. It returns
	// xerrors.ErrInvalidTransactionState if the record is no longer pending.
	CompleteTransaction(ctx context.Context, id string, at time.Time) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type WalletRepository interface {
	// CreateAccounts opens zero-balance accounts, skipping ones that exist.
	CreateAccounts(ctx context.Context, owner string, currencies []domain.Currency) ([]*domain.WalletAccount, error)
	ListByOwner(ctx context.Context, owner string) ([]*domain.WalletAccount, error)
	Get(ctx context.Context, owner string, currency domain.Currency) (*domain.WalletAccount, error)
}

type TransactionRepository interface {
	// Create inserts a pending record. It fails with
	// xerrors.ErrDuplicateIdempotencyKey or xerrors.ErrTransactionConflict
	// when a uniqueness rule is violated.
	Create(ctx context.Context, t *domain.Transaction) error
	GetByID(ctx context.Context, owner, id string) (*domain.Transaction, error)
	GetByReference(ctx context.Context, owner, reference string) (*domain.Transaction, error)
	FindByIdempotencyKey(ctx context.Context, owner, key string) (*domain.Transaction, error)
	FindPending(ctx context.Context, owner string, typ domain.TransactionType, from domain.Currency) (*domain.Transaction, error)
	// MarkFailed is conditional on the record still being pending.
	MarkFailed(ctx context.Context, id, reason string, at time.Time) error
	Cancel(ctx context.Context, owner, id, reason string, at time.Time) (*domain.Transaction, error)
	FailStalePending(ctx context.Context, createdBefore time.Time, reason string, at time.Time) (int64, error)
}

type RateRepository interface {
	// UpsertPair writes from->to and to->from in one storage transaction.
	UpsertPair(ctx context.Context, from, to domain.Currency, rate, inverse decimal.Decimal) error
	GetActive(ctx context.Context, from, to domain.Currency) (*domain.RateQuote, error)
}
