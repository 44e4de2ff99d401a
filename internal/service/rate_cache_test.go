package service

import (
	"testing"
	"time"

	"fx-wallet-service/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateCacheExpires(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewRateCache(5 * time.Minute)
	c.now = func() time.Time { return now }

	c.SetPair(domain.NGN, domain.USD, decimal.RequireFromString("0.0006"), decimal.RequireFromString("1666.66"))

	rate, ok := c.Get(domain.NGN, domain.USD)
	require.True(t, ok)
	assert.Equal(t, "0.0006", rate.String())
	rate, ok = c.Get(domain.USD, domain.NGN)
	require.True(t, ok)
	assert.Equal(t, "1666.66", rate.String())

	now = now.Add(4*time.Minute + 59*time.Second)
	_, ok = c.Get(domain.NGN, domain.USD)
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok = c.Get(domain.NGN, domain.USD)
	assert.False(t, ok)
}
