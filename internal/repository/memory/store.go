// Package memory is a process-local implementation of the repository
// contracts. Wallet rows carry their own lock so a unit of work holds the
// rows it touched until it commits or rolls back.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"fx-wallet-service/internal/domain"
	"fx-wallet-service/internal/repository"
	"fx-wallet-service/pkg/utils/id"
	xerrors "fx-wallet-service/pkg/xerrors"

	"github.com/shopspring/decimal"
)

type walletKey struct {
	owner    string
	currency domain.Currency
}

type walletRow struct {
	lock    chan struct{}
	account domain.WalletAccount
}

type Store struct {
	mu           sync.Mutex
	wallets      map[walletKey]*walletRow
	transactions map[string]*domain.Transaction
	rates        map[string]*domain.RateQuote
}

func NewStore() *Store {
	return &Store{
		wallets:      make(map[walletKey]*walletRow),
		transactions: make(map[string]*domain.Transaction),
		rates:        make(map[string]*domain.RateQuote),
	}
}

var (
	_ repository.UnitOfWork            = (*Store)(nil)
	_ repository.WalletRepository      = (*Store)(nil)
	_ repository.TransactionRepository = (*Store)(nil)
	_ repository.RateRepository        = (*Store)(nil)
)

// --- wallets ---

func (s *Store) CreateAccounts(ctx context.Context, owner string, currencies []domain.Currency) ([]*domain.WalletAccount, error) {
	s.mu.Lock()
	now := time.Now().UTC()
	for _, c := range currencies {
		k := walletKey{owner, c}
		if _, ok := s.wallets[k]; ok {
			continue
		}
		s.wallets[k] = &walletRow{
			lock: make(chan struct{}, 1),
			account: domain.WalletAccount{
				ID:        id.NewUUID(),
				Owner:     owner,
				Currency:  c,
				Available: decimal.Zero,
				Frozen:    decimal.Zero,
				CreatedAt: now,
				UpdatedAt: now,
			},
		}
	}
	s.mu.Unlock()
	return s.ListByOwner(ctx, owner)
}

func (s *Store) ListByOwner(_ context.Context, owner string) ([]*domain.WalletAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.WalletAccount
	for k, row := range s.wallets {
		if k.owner == owner {
			w := row.account
			out = append(out, &w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out, nil
}

func (s *Store) Get(_ context.Context, owner string, currency domain.Currency) (*domain.WalletAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.wallets[walletKey{owner, currency}]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", xerrors.ErrWalletNotFound, owner, currency)
	}
	w := row.account
	return &w, nil
}

// --- transactions ---

func (s *Store) Create(_ context.Context, t *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.transactions {
		if existing.Owner != t.Owner {
			continue
		}
		if t.IdempotencyKey != nil && existing.IdempotencyKey != nil && *existing.IdempotencyKey == *t.IdempotencyKey {
			return xerrors.ErrDuplicateIdempotencyKey
		}
		if t.Status == domain.StatusPending && existing.Status == domain.StatusPending &&
			existing.Type == t.Type && existing.FromCurrency == t.FromCurrency {
			return xerrors.ErrTransactionConflict
		}
	}
	if _, ok := s.transactions[t.ID]; ok {
		return fmt.Errorf("transaction %s already exists", t.ID)
	}
	s.transactions[t.ID] = cloneTransaction(t)
	return nil
}

func (s *Store) GetByID(_ context.Context, owner, id string) (*domain.Transaction, error) {
	return s.find(func(t *domain.Transaction) bool { return t.ID == id && t.Owner == owner })
}

func (s *Store) GetByReference(_ context.Context, owner, reference string) (*domain.Transaction, error) {
	return s.find(func(t *domain.Transaction) bool { return t.Reference == reference && t.Owner == owner })
}

func (s *Store) FindByIdempotencyKey(_ context.Context, owner, key string) (*domain.Transaction, error) {
	return s.find(func(t *domain.Transaction) bool {
		return t.Owner == owner && t.IdempotencyKey != nil && *t.IdempotencyKey == key
	})
}

func (s *Store) FindPending(_ context.Context, owner string, typ domain.TransactionType, from domain.Currency) (*domain.Transaction, error) {
	return s.find(func(t *domain.Transaction) bool {
		return t.Owner == owner && t.Type == typ && t.FromCurrency == from && t.Status == domain.StatusPending
	})
}

func (s *Store) find(match func(*domain.Transaction) bool) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.transactions {
		if match(t) {
			return cloneTransaction(t), nil
		}
	}
	return nil, xerrors.ErrTransactionNotFound
}

func (s *Store) MarkFailed(_ context.Context, id, reason string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[id]
	if !ok || t.Status.Terminal() {
		return fmt.Errorf("%w: %s", xerrors.ErrInvalidTransactionState, id)
	}
	markFailed(t, reason, at)
	return nil
}

func (s *Store) Cancel(_ context.Context, owner, id, reason string, at time.Time) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[id]
	if !ok || t.Owner != owner {
		return nil, xerrors.ErrTransactionNotFound
	}
	if t.Status.Terminal() {
		return nil, fmt.Errorf("%w: %s", xerrors.ErrInvalidTransactionState, id)
	}
	if t.Metadata == nil {
		t.Metadata = map[string]string{}
	}
	t.Metadata[domain.MetaCancellationReason] = reason
	t.Status = domain.StatusCancelled
	t.CancelledAt = &at
	t.UpdatedAt = at
	return cloneTransaction(t), nil
}

func (s *Store) FailStalePending(_ context.Context, createdBefore time.Time, reason string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, t := range s.transactions {
		if t.Status == domain.StatusPending && t.CreatedAt.Before(createdBefore) {
			markFailed(t, reason, at)
			n++
		}
	}
	return n, nil
}

func markFailed(t *domain.Transaction, reason string, at time.Time) {
	t.Status = domain.StatusFailed
	t.FailureReason = &reason
	t.FailedAt = &at
	t.UpdatedAt = at
}

func cloneTransaction(t *domain.Transaction) *domain.Transaction {
	c := *t
	if t.Metadata != nil {
		c.Metadata = make(map[string]string, len(t.Metadata))
		for k, v := range t.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// --- rates ---

func (s *Store) UpsertPair(_ context.Context, from, to domain.Currency, rate, inverse decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	s.rates[domain.PairKey(from, to)] = &domain.RateQuote{From: from, To: to, Rate: rate, InverseRate: inverse, IsActive: true, UpdatedAt: now}
	s.rates[domain.PairKey(to, from)] = &domain.RateQuote{From: to, To: from, Rate: inverse, InverseRate: rate, IsActive: true, UpdatedAt: now}
	return nil
}

func (s *Store) GetActive(_ context.Context, from, to domain.Currency) (*domain.RateQuote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.rates[domain.PairKey(from, to)]
	if !ok || !q.IsActive {
		return nil, xerrors.ErrNotFound
	}
	c := *q
	return &c, nil
}
