package domain

import (
	"fmt"
	"strings"

	xerrors "fx-wallet-service/pkg/xerrors"
)

type Currency string

const (
	NGN Currency = "NGN"
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	JPY Currency = "JPY"
	CAD Currency = "CAD"
	AUD Currency = "AUD"
	CHF Currency = "CHF"
	CNY Currency = "CNY"
)

// SupportedCurrencies is the fixed set the service holds balances and quotes in.
var SupportedCurrencies = []Currency{NGN, USD, EUR, GBP, JPY, CAD, AUD, CHF, CNY}

// DefaultWalletCurrencies are opened for every owner on activation.
var DefaultWalletCurrencies = []Currency{NGN, USD, EUR, GBP}

func (c Currency) String() string { return string(c) }

func (c Currency) Valid() bool {
	for _, s := range SupportedCurrencies {
		if s == c {
			return true
		}
	}
	return false
}

// ParseCurrency normalizes and validates a currency code.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", xerrors.ErrUnsupportedCurrency, s)
	}
	return c, nil
}

// ParseCurrencies parses a list, failing on the first unsupported code.
func ParseCurrencies(codes []string) ([]Currency, error) {
	out := make([]Currency, 0, len(codes))
	for _, code := range codes {
		c, err := ParseCurrency(code)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// PairKey is the FROM_TO key used by caches and rate maps.
func PairKey(from, to Currency) string {
	return string(from) + "_" + string(to)
}
