package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionFunding    TransactionType = "funding"
	TransactionConversion TransactionType = "conversion"
	TransactionTrade      TransactionType = "trade"
	TransactionTransfer   TransactionType = "transfer"
	TransactionWithdrawal TransactionType = "withdrawal"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
	StatusCancelled TransactionStatus = "cancelled"
)

func (s TransactionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Metadata keys.
const (
	MetaIdempotencyKey     = "idempotencyKey"
	MetaCancellationReason = "cancellationReason"
)

// Transaction is the audit record of one money movement. Once its status is
// terminal it is never modified again.
type Transaction struct {
	ID             string              `json:"id"`
	Reference      string              `json:"reference"`
	Owner          string              `json:"owner"`
	Type           TransactionType     `json:"type"`
	Status         TransactionStatus   `json:"status"`
	FromCurrency   Currency            `json:"from_currency"`
	FromAmount     decimal.Decimal     `json:"from_amount"`
	ToCurrency     *Currency           `json:"to_currency,omitempty"`
	ToAmount       decimal.NullDecimal `json:"to_amount"`
	Rate           decimal.NullDecimal `json:"rate"`
	Description    string              `json:"description,omitempty"`
	IdempotencyKey *string             `json:"idempotency_key,omitempty"`
	Metadata       map[string]string   `json:"metadata,omitempty"`
	FailureReason  *string             `json:"failure_reason,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	CompletedAt    *time.Time          `json:"completed_at,omitempty"`
	FailedAt       *time.Time          `json:"failed_at,omitempty"`
	CancelledAt    *time.Time          `json:"cancelled_at,omitempty"`
}

// Receipt is what callers get back from a fund, convert or trade.
type Receipt struct {
	TransactionID string              `json:"transaction_id"`
	Reference     string              `json:"reference"`
	Type          TransactionType     `json:"type"`
	Status        TransactionStatus   `json:"status"`
	FromCurrency  Currency            `json:"from_currency"`
	FromAmount    decimal.Decimal     `json:"from_amount"`
	ToCurrency    *Currency           `json:"to_currency,omitempty"`
	ToAmount      decimal.NullDecimal `json:"to_amount"`
	Rate          decimal.NullDecimal `json:"rate"`
	Message       string              `json:"message"`
	CreatedAt     time.Time           `json:"created_at"`
	CompletedAt   *time.Time          `json:"completed_at,omitempty"`
}

func (t *Transaction) Receipt() *Receipt {
	return &Receipt{
		TransactionID: t.ID,
		Reference:     t.Reference,
		Type:          t.Type,
		Status:        t.Status,
		FromCurrency:  t.FromCurrency,
		FromAmount:    t.FromAmount,
		ToCurrency:    t.ToCurrency,
		ToAmount:      t.ToAmount,
		Rate:          t.Rate,
		Message:       t.message(),
		CreatedAt:     t.CreatedAt,
		CompletedAt:   t.CompletedAt,
	}
}

func (t *Transaction) message() string {
	switch t.Status {
	case StatusCompleted:
		switch t.Type {
		case TransactionFunding:
			return "wallet funded successfully"
		case TransactionConversion:
			return "currency converted successfully"
		case TransactionTrade:
			return "trade executed successfully"
		}
		return "transaction completed"
	case StatusFailed:
		if t.FailureReason != nil {
			return "transaction failed: " + *t.FailureReason
		}
		return "transaction failed"
	case StatusCancelled:
		return "transaction cancelled"
	}
	return "transaction pending"
}
