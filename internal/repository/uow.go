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

type pgUnitOfWork struct {
	db dbtx
}

func NewUnitOfWork(db *pgxpool.Pool) UnitOfWork {
	return &pgUnitOfWork{db: db}
}

func (u *pgUnitOfWork) Begin(ctx context.Context) (Tx, error) {
	tx, err := u.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx: %w", err)
	}
	return &pgTx{tx: tx}, nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) LockWallet(ctx context.Context, owner string, currency domain.Currency) (*domain.WalletAccount, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT `+walletColumns+`
		FROM wallets
		WHERE user_id = $1 AND currency = $2
		FOR UPDATE
	`, owner, string(currency))

	w, err := scanWallet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s %s", xerrors.ErrWalletNotFound, owner, currency)
		}
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}
	return w, nil
}

func (t *pgTx) SaveWallet(ctx context.Context, w *domain.WalletAccount) error {
	w.UpdatedAt = time.Now().UTC()
	tag, err := t.tx.Exec(ctx, `
		UPDATE wallets
		SET available_balance = $1, frozen_balance = $2, updated_at = $3
		WHERE id = $4
	`, w.Available, w.Frozen, w.UpdatedAt, w.ID)
	if err != nil {
		return fmt.Errorf("failed to save wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrWalletNotFound
	}
	return nil
}

func (t *pgTx) CompleteTransaction(ctx context.Context, id string, at time.Time) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE transactions
		SET status = 'completed', completed_at = $1, updated_at = $1
		WHERE id = $2 AND status = 'pending'
	`, at, id)
	if err != nil {
		return fmt.Errorf("failed to complete transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", xerrors.ErrInvalidTransactionState, id)
	}
	return nil
}

func (t *pgTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit tx: %w", err)
	}
	return nil
}

func (t *pgTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}
