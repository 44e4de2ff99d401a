package domain

import (
	"fmt"
	"time"

	xerrors "fx-wallet-service/pkg/xerrors"

	"github.com/shopspring/decimal"
)

// WalletAccount is one owner's balance in one currency.
// Available and Frozen never go negative.
type WalletAccount struct {
	ID        string          `json:"id"`
	Owner     string          `json:"owner"`
	Currency  Currency        `json:"currency"`
	Available decimal.Decimal `json:"available_balance"`
	Frozen    decimal.Decimal `json:"frozen_balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Total is available plus frozen.
func (w *WalletAccount) Total() decimal.Decimal {
	return w.Available.Add(w.Frozen)
}

// AmountScale is the number of decimal places balances are stored with.
const AmountScale = 8

// ValidateAmount rejects zero, negative and sub-AmountScale amounts.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: got %s", xerrors.ErrInvalidAmount, amount.String())
	}
	if !amount.Equal(amount.Truncate(AmountScale)) {
		return fmt.Errorf("%w: %s has more than %d decimal places", xerrors.ErrInvalidAmount, amount.String(), AmountScale)
	}
	return nil
}

// The balance methods below check before they mutate, so a returned error
// leaves the account untouched.

func (w *WalletAccount) Fund(amount decimal.Decimal) error {
	if err := ValidateAmount(amount); err != nil {
		return err
	}
	w.Available = w.Available.Add(amount)
	return nil
}

func (w *WalletAccount) Credit(amount decimal.Decimal) error {
	return w.Fund(amount)
}

func (w *WalletAccount) Freeze(amount decimal.Decimal) error {
	if err := ValidateAmount(amount); err != nil {
		return err
	}
	if w.Available.LessThan(amount) {
		return fmt.Errorf("%w: available %s %s, requested %s",
			xerrors.ErrInsufficientBalance, w.Available, w.Currency, amount)
	}
	w.Available = w.Available.Sub(amount)
	w.Frozen = w.Frozen.Add(amount)
	return nil
}

func (w *WalletAccount) Unfreeze(amount decimal.Decimal) error {
	if err := ValidateAmount(amount); err != nil {
		return err
	}
	if w.Frozen.LessThan(amount) {
		return fmt.Errorf("%w: frozen %s %s, requested %s",
			xerrors.ErrInsufficientFrozenBalance, w.Frozen, w.Currency, amount)
	}
	w.Frozen = w.Frozen.Sub(amount)
	w.Available = w.Available.Add(amount)
	return nil
}

// Deduct removes funds that were previously frozen.
func (w *WalletAccount) Deduct(amount decimal.Decimal) error {
	if err := ValidateAmount(amount); err != nil {
		return err
	}
	if w.Frozen.LessThan(amount) {
		return fmt.Errorf("%w: frozen %s %s, requested %s",
			xerrors.ErrInsufficientFrozenBalance, w.Frozen, w.Currency, amount)
	}
	w.Frozen = w.Frozen.Sub(amount)
	return nil
}

func (w *WalletAccount) HasAvailable(amount decimal.Decimal) error {
	if err := ValidateAmount(amount); err != nil {
		return err
	}
	if w.Available.LessThan(amount) {
		return fmt.Errorf("%w: available %s %s, required %s",
			xerrors.ErrInsufficientBalance, w.Available, w.Currency, amount)
	}
	return nil
}
