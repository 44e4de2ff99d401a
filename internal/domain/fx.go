package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateQuote is a persisted directional exchange rate. For every stored
// (From, To) the reverse direction is stored with the rates swapped.
type RateQuote struct {
	From        Currency        `json:"from_currency"`
	To          Currency        `json:"to_currency"`
	Rate        decimal.Decimal `json:"rate"`
	InverseRate decimal.Decimal `json:"inverse_rate"`
	IsActive    bool            `json:"is_active"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Inverse returns 1/rate.
func Inverse(rate decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(1).Div(rate)
}
