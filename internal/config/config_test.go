package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8030", cfg.HTTPAddr)
	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Equal(t, 5*time.Minute, cfg.FX.CacheTTL)
	assert.Equal(t, time.Hour, cfg.FX.RefreshInterval)
	assert.Equal(t, 10*time.Second, cfg.FX.ProviderTimeout)
	assert.Equal(t, []string{"NGN", "USD", "EUR", "GBP"}, cfg.DefaultCurrencies)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("FX_CACHE_TTL", "90s")
	t.Setenv("FX_PROVIDER_RPS", "2.5")
	t.Setenv("FX_REFRESH_ON_START", "false")
	t.Setenv("WALLET_DEFAULT_CURRENCIES", "usd, jpy,,")
	t.Setenv("DB_MAX_CONNS", "not-a-number")

	cfg := Load()

	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, 90*time.Second, cfg.FX.CacheTTL)
	assert.Equal(t, 2.5, cfg.FX.ProviderRPS)
	assert.False(t, cfg.FX.RefreshOnStart)
	assert.Equal(t, []string{"usd", "jpy"}, cfg.DefaultCurrencies)
	assert.EqualValues(t, 50, cfg.DB.MaxConns)
}

func TestDBURLEscapesPassword(t *testing.T) {
	c := DBConfig{Host: "db", Port: "5432", User: "app", Password: "p@ss/word", Name: "fx", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%2Fword@db:5432/fx?sslmode=disable", c.URL())
}
