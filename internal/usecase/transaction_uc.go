package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fx-wallet-service/internal/domain"
	"fx-wallet-service/internal/pub"
	"fx-wallet-service/internal/repository"
	"fx-wallet-service/pkg/utils/id"
	xerrors "fx-wallet-service/pkg/xerrors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// Trades are rejected when the live rate is more than this fraction away
	// from the rate the caller was quoted.
	RateStaleTolerance = "0.01"

	ReferencePrefix = "TXN"

	markFailedLimit = 5 * time.Second
)

// RateSource resolves exchange rates. *service.FXResolver satisfies it.
type RateSource interface {
	GetRate(ctx context.Context, from, to domain.Currency) (decimal.Decimal, bool)
}

type FundRequest struct {
	Owner          string
	Currency       domain.Currency
	Amount         decimal.Decimal
	Description    string
	IdempotencyKey string
}

type ConvertRequest struct {
	Owner          string
	From           domain.Currency
	To             domain.Currency
	Amount         decimal.Decimal
	IdempotencyKey string
}

type TradeRequest struct {
	Owner          string
	From           domain.Currency
	To             domain.Currency
	Amount         decimal.Decimal
	ExpectedRate   decimal.NullDecimal
	IdempotencyKey string
}

// TransactionUsecase sequences fund, convert and trade into audited,
// idempotent units.
type TransactionUsecase struct {
	uow             repository.UnitOfWork
	transactionRepo repository.TransactionRepository
	walletUC        *WalletUsecase
	rates           RateSource
	publisher       pub.Publisher
	logger          *zap.Logger
	now             func() time.Time
}

func NewTransactionUsecase(
	uow repository.UnitOfWork,
	transactionRepo repository.TransactionRepository,
	walletUC *WalletUsecase,
	rates RateSource,
	publisher pub.Publisher,
	logger *zap.Logger,
) *TransactionUsecase {
	if publisher == nil {
		publisher = pub.NewNoopPublisher()
	}
	return &TransactionUsecase{
		uow:             uow,
		transactionRepo: transactionRepo,
		walletUC:        walletUC,
		rates:           rates,
		publisher:       publisher,
		logger:          logger,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// ===============================
// FUND
// ===============================

func (uc *TransactionUsecase) Fund(ctx context.Context, req FundRequest) (*domain.Receipt, error) {
	if err := domain.ValidateAmount(req.Amount); err != nil {
		return nil, err
	}
	if !req.Currency.Valid() {
		return nil, fmt.Errorf("%w: %q", xerrors.ErrUnsupportedCurrency, req.Currency)
	}

	if prev, err := uc.replay(ctx, req.Owner, req.IdempotencyKey); err != nil || prev != nil {
		return prev, err
	}

	t := uc.newTransaction(req.Owner, domain.TransactionFunding, req.Currency, req.Amount, req.IdempotencyKey)
	t.Description = req.Description
	if t.Description == "" {
		t.Description = fmt.Sprintf("Wallet funding - %s %s", req.Amount, req.Currency)
	}

	if prev, err := uc.open(ctx, t); err != nil || prev != nil {
		return prev, err
	}

	err := uc.settle(ctx, t, []domain.Currency{req.Currency}, func(ctx context.Context, ledger *WalletUsecase) error {
		_, err := ledger.Fund(ctx, req.Owner, req.Currency, req.Amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return t.Receipt(), nil
}

// ===============================
// CONVERT / TRADE
// ===============================

func (uc *TransactionUsecase) Convert(ctx context.Context, req ConvertRequest) (*domain.Receipt, error) {
	return uc.exchange(ctx, domain.TransactionConversion, req.Owner, req.From, req.To, req.Amount, decimal.NullDecimal{}, req.IdempotencyKey)
}

// Trade is a conversion guarded by the rate the caller was shown.
func (uc *TransactionUsecase) Trade(ctx context.Context, req TradeRequest) (*domain.Receipt, error) {
	return uc.exchange(ctx, domain.TransactionTrade, req.Owner, req.From, req.To, req.Amount, req.ExpectedRate, req.IdempotencyKey)
}

func (uc *TransactionUsecase) exchange(
	ctx context.Context,
	typ domain.TransactionType,
	owner string,
	from, to domain.Currency,
	amount decimal.Decimal,
	expected decimal.NullDecimal,
	idempotencyKey string,
) (*domain.Receipt, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}
	if !from.Valid() || !to.Valid() {
		return nil, fmt.Errorf("%w: %s/%s", xerrors.ErrUnsupportedCurrency, from, to)
	}
	if from == to {
		return nil, fmt.Errorf("%w: %s to itself", xerrors.ErrInvalidCurrencyPair, from)
	}
	if expected.Valid && !expected.Decimal.IsPositive() {
		return nil, fmt.Errorf("%w: expected rate %s", xerrors.ErrInvalidAmount, expected.Decimal)
	}

	if prev, err := uc.replay(ctx, owner, idempotencyKey); err != nil || prev != nil {
		return prev, err
	}

	rate, ok := uc.rates.GetRate(ctx, from, to)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", xerrors.ErrRateUnavailable, from, to)
	}
	if expected.Valid && RateDrifted(rate, expected.Decimal) {
		staleTradeRejections.Inc()
		uc.logger.Info("trade rejected on stale rate",
			zap.String("owner", owner),
			zap.String("pair", domain.PairKey(from, to)),
			zap.String("expected", expected.Decimal.String()),
			zap.String("current", rate.String()))
		return nil, fmt.Errorf("%w: expected %s, current %s", xerrors.ErrRateStale, expected.Decimal, rate)
	}

	toAmount := amount.Mul(rate).Round(domain.AmountScale)
	if !toAmount.IsPositive() {
		return nil, fmt.Errorf("%w: %s %s converts to nothing", xerrors.ErrInvalidAmount, amount, from)
	}

	if err := uc.walletUC.ValidateSufficientBalance(ctx, owner, from, amount); err != nil {
		return nil, err
	}
	if _, err := uc.walletUC.GetWallet(ctx, owner, to); err != nil {
		return nil, err
	}

	t := uc.newTransaction(owner, typ, from, amount, idempotencyKey)
	t.ToCurrency = &to
	t.ToAmount = decimal.NewNullDecimal(toAmount)
	t.Rate = decimal.NewNullDecimal(rate)
	verb := "Convert"
	if typ == domain.TransactionTrade {
		verb = "Trade"
		if expected.Valid {
			t.Metadata["expectedRate"] = expected.Decimal.String()
		}
	}
	t.Description = fmt.Sprintf("%s %s %s to %s", verb, amount, from, to)

	if prev, err := uc.open(ctx, t); err != nil || prev != nil {
		return prev, err
	}

	err := uc.settle(ctx, t, []domain.Currency{from, to}, func(ctx context.Context, ledger *WalletUsecase) error {
		if _, err := ledger.Freeze(ctx, owner, from, amount); err != nil {
			return err
		}
		if _, err := ledger.Deduct(ctx, owner, from, amount); err != nil {
			return err
		}
		_, err := ledger.Credit(ctx, owner, to, toAmount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return t.Receipt(), nil
}

// RateDrifted reports whether current is more than RateStaleTolerance away
// from expected, relative to current.
func RateDrifted(current, expected decimal.Decimal) bool {
	limit := current.Mul(decimal.RequireFromString(RateStaleTolerance))
	return current.Sub(expected).Abs().GreaterThan(limit)
}

// ===============================
// CANCEL / LOOKUP
// ===============================

func (uc *TransactionUsecase) Cancel(ctx context.Context, owner, transactionID, reason string) (*domain.Transaction, error) {
	if reason == "" {
		reason = "cancelled by user"
	}
	t, err := uc.transactionRepo.Cancel(ctx, owner, transactionID, reason, uc.now())
	if err != nil {
		return nil, err
	}
	transactionsProcessed.WithLabelValues(string(t.Type), string(domain.StatusCancelled)).Inc()
	uc.logger.Info("transaction cancelled",
		zap.String("owner", owner),
		zap.String("reference", t.Reference),
		zap.String("reason", reason))
	uc.publish(ctx, t)
	return t, nil
}

func (uc *TransactionUsecase) GetTransaction(ctx context.Context, owner, transactionID string) (*domain.Transaction, error) {
	return uc.transactionRepo.GetByID(ctx, owner, transactionID)
}

func (uc *TransactionUsecase) GetTransactionByReference(ctx context.Context, owner, reference string) (*domain.Transaction, error) {
	return uc.transactionRepo.GetByReference(ctx, owner, reference)
}

// FailAbandoned fails pending records older than maxAge.
func (uc *TransactionUsecase) FailAbandoned(ctx context.Context, maxAge time.Duration) (int64, error) {
	now := uc.now()
	return uc.transactionRepo.FailStalePending(ctx, now.Add(-maxAge), "abandoned: exceeded pending window", now)
}

// ===============================
// HELPERS
// ===============================

func (uc *TransactionUsecase) newTransaction(owner string, typ domain.TransactionType, from domain.Currency, amount decimal.Decimal, key string) *domain.Transaction {
	now := uc.now()
	t := &domain.Transaction{
		ID:             id.NewUUID(),
		Reference:      id.GenerateULID(ReferencePrefix),
		Owner:          owner,
		Type:           typ,
		Status:         domain.StatusPending,
		FromCurrency:   from,
		FromAmount:     amount,
		IdempotencyKey: strPtr(key),
		Metadata:       map[string]string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if key != "" {
		t.Metadata[domain.MetaIdempotencyKey] = key
	}
	return t
}

// replay returns the recorded receipt for a previously used idempotency key.
func (uc *TransactionUsecase) replay(ctx context.Context, owner, key string) (*domain.Receipt, error) {
	if key == "" {
		return nil, nil
	}
	prev, err := uc.transactionRepo.FindByIdempotencyKey(ctx, owner, key)
	switch {
	case err == nil:
		uc.logger.Info("idempotent replay",
			zap.String("owner", owner),
			zap.String("idempotency_key", key),
			zap.String("reference", prev.Reference))
		return prev.Receipt(), nil
	case errors.Is(err, xerrors.ErrTransactionNotFound):
		return nil, nil
	default:
		return nil, err
	}
}

// open rejects a duplicate pending operation and persists t as pending.
// A concurrent request holding the same idempotency key wins; its receipt
// is returned instead.
func (uc *TransactionUsecase) open(ctx context.Context, t *domain.Transaction) (*domain.Receipt, error) {
	pending, err := uc.transactionRepo.FindPending(ctx, t.Owner, t.Type, t.FromCurrency)
	switch {
	case err == nil:
		if sameKey(pending, t) {
			uc.logger.Info("idempotent replay of pending transaction",
				zap.String("owner", t.Owner),
				zap.String("idempotency_key", *t.IdempotencyKey),
				zap.String("reference", pending.Reference))
			return pending.Receipt(), nil
		}
		return nil, fmt.Errorf("%w: %s %s (%s)", xerrors.ErrTransactionConflict, t.Type, t.FromCurrency, pending.Reference)
	case !errors.Is(err, xerrors.ErrTransactionNotFound):
		return nil, err
	}

	if err := uc.transactionRepo.Create(ctx, t); err != nil {
		raced := errors.Is(err, xerrors.ErrDuplicateIdempotencyKey) || errors.Is(err, xerrors.ErrTransactionConflict)
		if raced && t.IdempotencyKey != nil {
			if prev, rerr := uc.replay(ctx, t.Owner, *t.IdempotencyKey); rerr != nil || prev != nil {
				return prev, rerr
			}
		}
		if errors.Is(err, xerrors.ErrTransactionConflict) {
			return nil, fmt.Errorf("%w: %s %s", xerrors.ErrTransactionConflict, t.Type, t.FromCurrency)
		}
		return nil, err
	}
	return nil, nil
}

// settle runs apply and the completion of t as one unit of work. On failure
// nothing apply did survives and t is marked failed.
func (uc *TransactionUsecase) settle(
	ctx context.Context,
	t *domain.Transaction,
	lock []domain.Currency,
	apply func(ctx context.Context, ledger *WalletUsecase) error,
) error {
	start := time.Now()
	completedAt, err := uc.runUnit(ctx, t, lock, apply)
	settleDuration.WithLabelValues(string(t.Type)).Observe(time.Since(start).Seconds())
	if err != nil {
		transactionsProcessed.WithLabelValues(string(t.Type), string(domain.StatusFailed)).Inc()
		uc.markFailed(ctx, t, err)
		return err
	}
	transactionsProcessed.WithLabelValues(string(t.Type), string(domain.StatusCompleted)).Inc()

	t.Status = domain.StatusCompleted
	t.CompletedAt = &completedAt
	t.UpdatedAt = completedAt
	uc.logger.Info("transaction completed",
		zap.String("owner", t.Owner),
		zap.String("type", string(t.Type)),
		zap.String("reference", t.Reference))
	uc.publish(ctx, t)
	return nil
}

func (uc *TransactionUsecase) runUnit(
	ctx context.Context,
	t *domain.Transaction,
	lock []domain.Currency,
	apply func(ctx context.Context, ledger *WalletUsecase) error,
) (time.Time, error) {
	tx, err := uc.uow.Begin(ctx)
	if err != nil {
		return time.Time{}, err
	}
	defer tx.Rollback(ctx)

	ledger := uc.walletUC.WithTx(tx)
	if err := ledger.Lock(ctx, t.Owner, lock...); err != nil {
		return time.Time{}, err
	}
	if err := apply(ctx, ledger); err != nil {
		return time.Time{}, err
	}

	at := uc.now()
	if err := tx.CompleteTransaction(ctx, t.ID, at); err != nil {
		return time.Time{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return time.Time{}, err
	}
	return at, nil
}

func (uc *TransactionUsecase) markFailed(ctx context.Context, t *domain.Transaction, cause error) {
	reason := cause.Error()
	at := uc.now()

	// The caller may already be gone; the record still has to leave pending.
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), markFailedLimit)
	defer cancel()

	if err := uc.transactionRepo.MarkFailed(fctx, t.ID, reason, at); err != nil {
		uc.logger.Error("failed to mark transaction failed",
			zap.String("reference", t.Reference),
			zap.String("cause", reason),
			zap.Error(err))
		return
	}

	t.Status = domain.StatusFailed
	t.FailureReason = &reason
	t.FailedAt = &at
	t.UpdatedAt = at
	uc.logger.Warn("transaction failed",
		zap.String("owner", t.Owner),
		zap.String("type", string(t.Type)),
		zap.String("reference", t.Reference),
		zap.String("kind", xerrors.KindOf(cause)),
		zap.String("reason", reason))
	uc.publish(fctx, t)
}

func (uc *TransactionUsecase) publish(ctx context.Context, t *domain.Transaction) {
	if err := uc.publisher.Publish(context.WithoutCancel(ctx), pub.NewTransactionEvent(t)); err != nil {
		eventPublishErrors.Inc()
		uc.logger.Warn("failed to publish transaction event",
			zap.String("reference", t.Reference),
			zap.Error(err))
	}
}
