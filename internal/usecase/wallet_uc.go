package usecase

import (
	"context"
	"fmt"

	"fx-wallet-service/internal/domain"
	"fx-wallet-service/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// WalletUsecase is the per-currency ledger. Each mutating call locks the
// (owner, currency) row for its duration; WithTx binds the ledger to a unit
// of work owned by the caller so several calls share one lock scope.
type WalletUsecase struct {
	uow        repository.UnitOfWork
	walletRepo repository.WalletRepository
	defaults   []domain.Currency
	logger     *zap.Logger

	tx repository.Tx
}

func NewWalletUsecase(uow repository.UnitOfWork, walletRepo repository.WalletRepository, defaults []domain.Currency, logger *zap.Logger) *WalletUsecase {
	if len(defaults) == 0 {
		defaults = domain.DefaultWalletCurrencies
	}
	return &WalletUsecase{
		uow:        uow,
		walletRepo: walletRepo,
		defaults:   defaults,
		logger:     logger,
	}
}

// WithTx returns a copy of the ledger whose mutations run inside tx.
// Committing and rolling back stay with the caller.
func (uc *WalletUsecase) WithTx(tx repository.Tx) *WalletUsecase {
	c := *uc
	c.tx = tx
	return &c
}

// OpenAccounts creates the default zero-balance accounts for owner.
// Accounts that already exist are left alone.
func (uc *WalletUsecase) OpenAccounts(ctx context.Context, owner string) ([]*domain.WalletAccount, error) {
	wallets, err := uc.walletRepo.CreateAccounts(ctx, owner, uc.defaults)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("wallet accounts opened", zap.String("owner", owner), zap.Int("count", len(wallets)))
	return wallets, nil
}

func (uc *WalletUsecase) GetWallets(ctx context.Context, owner string) ([]*domain.WalletAccount, error) {
	return uc.walletRepo.ListByOwner(ctx, owner)
}

func (uc *WalletUsecase) GetWallet(ctx context.Context, owner string, currency domain.Currency) (*domain.WalletAccount, error) {
	return uc.walletRepo.Get(ctx, owner, currency)
}

func (uc *WalletUsecase) Fund(ctx context.Context, owner string, currency domain.Currency, amount decimal.Decimal) (*domain.WalletAccount, error) {
	return uc.mutate(ctx, "fund", owner, currency, amount, (*domain.WalletAccount).Fund)
}

func (uc *WalletUsecase) Freeze(ctx context.Context, owner string, currency domain.Currency, amount decimal.Decimal) (*domain.WalletAccount, error) {
	return uc.mutate(ctx, "freeze", owner, currency, amount, (*domain.WalletAccount).Freeze)
}

func (uc *WalletUsecase) Unfreeze(ctx context.Context, owner string, currency domain.Currency, amount decimal.Decimal) (*domain.WalletAccount, error) {
	return uc.mutate(ctx, "unfreeze", owner, currency, amount, (*domain.WalletAccount).Unfreeze)
}

// Deduct removes amount from the frozen balance.
func (uc *WalletUsecase) Deduct(ctx context.Context, owner string, currency domain.Currency, amount decimal.Decimal) (*domain.WalletAccount, error) {
	return uc.mutate(ctx, "deduct", owner, currency, amount, (*domain.WalletAccount).Deduct)
}

// Credit adds amount to the available balance.
func (uc *WalletUsecase) Credit(ctx context.Context, owner string, currency domain.Currency, amount decimal.Decimal) (*domain.WalletAccount, error) {
	return uc.mutate(ctx, "credit", owner, currency, amount, (*domain.WalletAccount).Credit)
}

// ValidateSufficientBalance is a read-only check of the available balance.
func (uc *WalletUsecase) ValidateSufficientBalance(ctx context.Context, owner string, currency domain.Currency, amount decimal.Decimal) error {
	if err := domain.ValidateAmount(amount); err != nil {
		return err
	}
	w, err := uc.walletRepo.Get(ctx, owner, currency)
	if err != nil {
		return err
	}
	return w.HasAvailable(amount)
}

// Lock acquires the row locks for the given currencies in a fixed order.
// It only makes sense on a ledger bound with WithTx.
func (uc *WalletUsecase) Lock(ctx context.Context, owner string, currencies ...domain.Currency) error {
	if uc.tx == nil {
		return fmt.Errorf("lock requires a unit of work")
	}
	for _, c := range sortedUnique(currencies) {
		if _, err := uc.tx.LockWallet(ctx, owner, c); err != nil {
			return err
		}
	}
	return nil
}

func (uc *WalletUsecase) mutate(
	ctx context.Context,
	op, owner string,
	currency domain.Currency,
	amount decimal.Decimal,
	apply func(*domain.WalletAccount, decimal.Decimal) error,
) (*domain.WalletAccount, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}

	if uc.tx != nil {
		return uc.applyIn(ctx, uc.tx, op, owner, currency, amount, apply)
	}

	tx, err := uc.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	w, err := uc.applyIn(ctx, tx, op, owner, currency, amount, apply)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

func (uc *WalletUsecase) applyIn(
	ctx context.Context,
	tx repository.Tx,
	op, owner string,
	currency domain.Currency,
	amount decimal.Decimal,
	apply func(*domain.WalletAccount, decimal.Decimal) error,
) (*domain.WalletAccount, error) {
	w, err := tx.LockWallet(ctx, owner, currency)
	if err != nil {
		return nil, err
	}
	if err := apply(w, amount); err != nil {
		uc.logger.Warn("ledger operation rejected",
			zap.String("op", op),
			zap.String("owner", owner),
			zap.String("currency", currency.String()),
			zap.String("amount", amount.String()),
			zap.Error(err))
		return nil, fmt.Errorf("%s %s: %w", op, currency, err)
	}
	if err := tx.SaveWallet(ctx, w); err != nil {
		return nil, err
	}
	uc.logger.Debug("ledger operation applied",
		zap.String("op", op),
		zap.String("owner", owner),
		zap.String("currency", currency.String()),
		zap.String("amount", amount.String()),
		zap.String("available", w.Available.String()),
		zap.String("frozen", w.Frozen.String()))
	return w, nil
}
