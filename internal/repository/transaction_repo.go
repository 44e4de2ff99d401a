package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fx-wallet-service/internal/domain"
	xerrors "fx-wallet-service/pkg/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	constraintIdempotency = "uq_tx_owner_idem"
	constraintPending     = "uq_tx_pending"
)

const transactionColumns = `id, reference, user_id, type, status, from_currency, from_amount,
	to_currency, to_amount, rate, description, idempotency_key, metadata, failure_reason,
	created_at, updated_at, completed_at, failed_at, cancelled_at`

type transactionRepo struct {
	db dbtx
}

func NewTransactionRepo(db *pgxpool.Pool) TransactionRepository {
	return &transactionRepo{db: db}
}

func (r *transactionRepo) Create(ctx context.Context, t *domain.Transaction) error {
	var toCurrency *string
	if t.ToCurrency != nil {
		s := string(*t.ToCurrency)
		toCurrency = &s
	}
	meta := t.Metadata
	if meta == nil {
		meta = map[string]string{}
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO transactions (id, reference, user_id, type, status, from_currency, from_amount,
			to_currency, to_amount, rate, description, idempotency_key, metadata, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$14)
	`, t.ID, t.Reference, t.Owner, string(t.Type), string(t.Status), string(t.FromCurrency), t.FromAmount,
		toCurrency, t.ToAmount, t.Rate, t.Description, t.IdempotencyKey, meta, t.CreatedAt)
	if err != nil {
		switch {
		case xerrors.IsUniqueViolation(err, constraintIdempotency):
			return xerrors.ErrDuplicateIdempotencyKey
		case xerrors.IsUniqueViolation(err, constraintPending):
			return xerrors.ErrTransactionConflict
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (r *transactionRepo) GetByID(ctx context.Context, owner, id string) (*domain.Transaction, error) {
	return r.getOne(ctx, `WHERE id::text = $1 AND user_id = $2`, id, owner)
}

func (r *transactionRepo) GetByReference(ctx context.Context, owner, reference string) (*domain.Transaction, error) {
	return r.getOne(ctx, `WHERE reference = $1 AND user_id = $2`, reference, owner)
}

func (r *transactionRepo) FindByIdempotencyKey(ctx context.Context, owner, key string) (*domain.Transaction, error) {
	return r.getOne(ctx, `WHERE user_id = $1 AND idempotency_key = $2`, owner, key)
}

func (r *transactionRepo) FindPending(ctx context.Context, owner string, typ domain.TransactionType, from domain.Currency) (*domain.Transaction, error) {
	return r.getOne(ctx, `WHERE user_id = $1 AND type = $2 AND from_currency = $3 AND status = 'pending'`,
		owner, string(typ), string(from))
}

func (r *transactionRepo) getOne(ctx context.Context, where string, args ...any) (*domain.Transaction, error) {
	row := r.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions `+where+` LIMIT 1`, args...)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

func (r *transactionRepo) MarkFailed(ctx context.Context, id, reason string, at time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE transactions
		SET status = 'failed', failure_reason = $1, failed_at = $2, updated_at = $2
		WHERE id = $3 AND status = 'pending'
	`, reason, at, id)
	if err != nil {
		return fmt.Errorf("failed to mark transaction failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", xerrors.ErrInvalidTransactionState, id)
	}
	return nil
}

func (r *transactionRepo) Cancel(ctx context.Context, owner, id, reason string, at time.Time) (*domain.Transaction, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE transactions
		SET status = 'cancelled',
		    cancelled_at = $1,
		    updated_at = $1,
		    metadata = metadata || jsonb_build_object('`+domain.MetaCancellationReason+`', $2::text)
		WHERE id::text = $3 AND user_id = $4 AND status = 'pending'
		RETURNING `+transactionColumns, at, reason, id, owner)

	t, err := scanTransaction(row)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to cancel transaction: %w", err)
	}
	// Either missing or already terminal.
	if _, getErr := r.GetByID(ctx, owner, id); getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("%w: %s", xerrors.ErrInvalidTransactionState, id)
}

func (r *transactionRepo) FailStalePending(ctx context.Context, createdBefore time.Time, reason string, at time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE transactions
		SET status = 'failed', failure_reason = $1, failed_at = $2, updated_at = $2
		WHERE status = 'pending' AND created_at < $3
	`, reason, at, createdBefore)
	if err != nil {
		return 0, fmt.Errorf("failed to fail stale transactions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		t                 domain.Transaction
		typ, status, from string
		to                *string
	)
	if err := row.Scan(&t.ID, &t.Reference, &t.Owner, &typ, &status, &from, &t.FromAmount,
		&to, &t.ToAmount, &t.Rate, &t.Description, &t.IdempotencyKey, &t.Metadata, &t.FailureReason,
		&t.CreatedAt, &t.UpdatedAt, &t.CompletedAt, &t.FailedAt, &t.CancelledAt); err != nil {
		return nil, err
	}
	t.Type = domain.TransactionType(typ)
	t.Status = domain.TransactionStatus(status)
	t.FromCurrency = domain.Currency(from)
	if to != nil {
		c := domain.Currency(*to)
		t.ToCurrency = &c
	}
	return &t, nil
}
