package pub

import (
	"context"
	"time"

	"fx-wallet-service/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	TransactionEventsChannel = "transaction_events"

	EventTransactionCompleted = "transaction.completed"
	EventTransactionFailed    = "transaction.failed"
	EventTransactionCancelled = "transaction.cancelled"
)

// Publisher fans transaction outcomes out to other services.
type Publisher interface {
	Publish(ctx context.Context, event *TransactionEvent) error
	Close() error
}

type TransactionEvent struct {
	EventType       string            `json:"event_type"`
	UserID          string            `json:"user_id"`
	TransactionID   string            `json:"transaction_id"`
	Reference       string            `json:"reference"`
	TransactionType string            `json:"transaction_type"`
	Status          string            `json:"status"`
	FromCurrency    string            `json:"from_currency"`
	FromAmount      decimal.Decimal   `json:"from_amount"`
	ToCurrency      string            `json:"to_currency,omitempty"`
	ToAmount        *decimal.Decimal  `json:"to_amount,omitempty"`
	Rate            *decimal.Decimal  `json:"rate,omitempty"`
	ErrorMessage    string            `json:"error_message,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	Timestamp       time.Time         `json:"timestamp"`
}

// NewTransactionEvent builds the event for a record in a terminal state.
func NewTransactionEvent(t *domain.Transaction) *TransactionEvent {
	ev := &TransactionEvent{
		UserID:          t.Owner,
		TransactionID:   t.ID,
		Reference:       t.Reference,
		TransactionType: string(t.Type),
		Status:          string(t.Status),
		FromCurrency:    string(t.FromCurrency),
		FromAmount:      t.FromAmount,
		Metadata:        t.Metadata,
		Timestamp:       time.Now().UTC(),
	}
	switch t.Status {
	case domain.StatusCompleted:
		ev.EventType = EventTransactionCompleted
	case domain.StatusFailed:
		ev.EventType = EventTransactionFailed
	case domain.StatusCancelled:
		ev.EventType = EventTransactionCancelled
	}
	if t.ToCurrency != nil {
		ev.ToCurrency = string(*t.ToCurrency)
	}
	if t.ToAmount.Valid {
		v := t.ToAmount.Decimal
		ev.ToAmount = &v
	}
	if t.Rate.Valid {
		v := t.Rate.Decimal
		ev.Rate = &v
	}
	if t.FailureReason != nil {
		ev.ErrorMessage = *t.FailureReason
	}
	return ev
}

type noopPublisher struct{}

// NewNoopPublisher drops every event.
func NewNoopPublisher() Publisher { return noopPublisher{} }

func (noopPublisher) Publish(context.Context, *TransactionEvent) error { return nil }
func (noopPublisher) Close() error { return nil }
