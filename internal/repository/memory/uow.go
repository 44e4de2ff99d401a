package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fx-wallet-service/internal/domain"
	"fx-wallet-service/internal/repository"
	xerrors "fx-wallet-service/pkg/xerrors"
)

type tx struct {
	s           *Store
	held        map[walletKey]*walletRow
	staged      map[walletKey]domain.WalletAccount
	completions map[string]time.Time
	done        bool
}

func (s *Store) Begin(_ context.Context) (repository.Tx, error) {
	return &tx{
		s:           s,
		held:        make(map[walletKey]*walletRow),
		staged:      make(map[walletKey]domain.WalletAccount),
		completions: make(map[string]time.Time),
	}, nil
}

func (t *tx) LockWallet(ctx context.Context, owner string, currency domain.Currency) (*domain.WalletAccount, error) {
	if t.done {
		return nil, errTxDone
	}
	k := walletKey{owner, currency}
	if w, ok := t.staged[k]; ok {
		return &w, nil
	}
	if row, ok := t.held[k]; ok {
		w := row.account
		return &w, nil
	}

	t.s.mu.Lock()
	row, ok := t.s.wallets[k]
	t.s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", xerrors.ErrWalletNotFound, owner, currency)
	}

	select {
	case row.lock <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	t.held[k] = row

	t.s.mu.Lock()
	w := row.account
	t.s.mu.Unlock()
	return &w, nil
}

func (t *tx) SaveWallet(_ context.Context, w *domain.WalletAccount) error {
	if t.done {
		return errTxDone
	}
	k := walletKey{w.Owner, w.Currency}
	if _, ok := t.held[k]; !ok {
		return fmt.Errorf("wallet %s %s is not locked by this unit of work", w.Owner, w.Currency)
	}
	w.UpdatedAt = time.Now().UTC()
	t.staged[k] = *w
	return nil
}

func (t *tx) CompleteTransaction(_ context.Context, id string, at time.Time) error {
	if t.done {
		return errTxDone
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	rec, ok := t.s.transactions[id]
	if !ok || rec.Status != domain.StatusPending {
		return fmt.Errorf("%w: %s", xerrors.ErrInvalidTransactionState, id)
	}
	t.completions[id] = at
	return nil
}

func (t *tx) Commit(_ context.Context) error {
	if t.done {
		return errTxDone
	}
	defer t.release()

	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	for id := range t.completions {
		if rec := t.s.transactions[id]; rec == nil || rec.Status != domain.StatusPending {
			return fmt.Errorf("%w: %s", xerrors.ErrInvalidTransactionState, id)
		}
	}
	for k, w := range t.staged {
		t.s.wallets[k].account = w
	}
	for id, at := range t.completions {
		rec := t.s.transactions[id]
		at := at
		rec.Status = domain.StatusCompleted
		rec.CompletedAt = &at
		rec.UpdatedAt = at
	}
	return nil
}

func (t *tx) Rollback(_ context.Context) error {
	if t.done {
		return nil
	}
	t.release()
	return nil
}

func (t *tx) release() {
	t.done = true
	for _, row := range t.held {
		<-row.lock
	}
	t.held = nil
	t.staged = nil
}

var errTxDone = errors.New("unit of work already finished")
