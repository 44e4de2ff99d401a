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
	"github.com/shopspring/decimal"
)

type rateRepo struct {
	db dbtx
}

func NewRateRepo(db *pgxpool.Pool) RateRepository {
	return &rateRepo{db: db}
}

func (r *rateRepo) UpsertPair(ctx context.Context, from, to domain.Currency, rate, inverse decimal.Decimal) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	const q = `
		INSERT INTO fx_rates (from_currency, to_currency, rate, inverse_rate, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, $5, $5)
		ON CONFLICT (from_currency, to_currency) DO UPDATE
		SET rate = EXCLUDED.rate,
		    inverse_rate = EXCLUDED.inverse_rate,
		    is_active = TRUE,
		    updated_at = EXCLUDED.updated_at
	`
	if _, err := tx.Exec(ctx, q, string(from), string(to), rate, inverse, now); err != nil {
		return fmt.Errorf("failed to upsert %s/%s: %w", from, to, err)
	}
	if _, err := tx.Exec(ctx, q, string(to), string(from), inverse, rate, now); err != nil {
		return fmt.Errorf("failed to upsert %s/%s: %w", to, from, err)
	}
	return tx.Commit(ctx)
}

func (r *rateRepo) GetActive(ctx context.Context, from, to domain.Currency) (*domain.RateQuote, error) {
	row := r.db.QueryRow(ctx, `
		SELECT from_currency, to_currency, rate, inverse_rate, is_active, updated_at
		FROM fx_rates
		WHERE from_currency = $1 AND to_currency = $2 AND is_active
		ORDER BY updated_at DESC
		LIMIT 1
	`, string(from), string(to))

	q, err := scanRate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get rate: %w", err)
	}
	return q, nil
}

func scanRate(row pgx.Row) (*domain.RateQuote, error) {
	var (
		q        domain.RateQuote
		from, to string
	)
	if err := row.Scan(&from, &to, &q.Rate, &q.InverseRate, &q.IsActive, &q.UpdatedAt); err != nil {
		return nil, err
	}
	q.From, q.To = domain.Currency(from), domain.Currency(to)
	return &q, nil
}
