package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fx-wallet-service/internal/domain"
	"fx-wallet-service/pkg/utils/id"
	xerrors "fx-wallet-service/pkg/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const walletColumns = `id, user_id, currency, available_balance, frozen_balance, created_at, updated_at`

type walletRepo struct {
	db dbtx
}

func NewWalletRepo(db *pgxpool.Pool) WalletRepository {
	return &walletRepo{db: db}
}

func (r *walletRepo) CreateAccounts(ctx context.Context, owner string, currencies []domain.Currency) ([]*domain.WalletAccount, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	for _, c := range currencies {
		if _, err := tx.Exec(ctx, `
			INSERT INTO wallets (id, user_id, currency, available_balance, frozen_balance, created_at, updated_at)
			VALUES ($1, $2, $3, 0, 0, $4, $4)
			ON CONFLICT (user_id, currency) DO NOTHING
		`, id.NewUUID(), owner, string(c), now); err != nil {
			return nil, fmt.Errorf("failed to create %s wallet: %w", c, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit wallets: %w", err)
	}
	return r.ListByOwner(ctx, owner)
}

func (r *walletRepo) ListByOwner(ctx context.Context, owner string) ([]*domain.WalletAccount, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+walletColumns+`
		FROM wallets
		WHERE user_id = $1
		ORDER BY currency ASC
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	defer rows.Close()

	var out []*domain.WalletAccount
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *walletRepo) Get(ctx context.Context, owner string, currency domain.Currency) (*domain.WalletAccount, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+walletColumns+`
		FROM wallets
		WHERE user_id = $1 AND currency = $2
	`, owner, string(currency))

	w, err := scanWallet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s %s", xerrors.ErrWalletNotFound, owner, currency)
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return w, nil
}

func scanWallet(row pgx.Row) (*domain.WalletAccount, error) {
	var (
		w        domain.WalletAccount
		currency string
	)
	if err := row.Scan(&w.ID, &w.Owner, &currency, &w.Available, &w.Frozen, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	w.Currency = domain.Currency(currency)
	return &w, nil
}
