package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fx-wallet-service/internal/domain"
	xerrors "fx-wallet-service/pkg/xerrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, h http.HandlerFunc, key string) *ExchangeRateClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewExchangeRateClient(ExchangeRateConfig{
		BaseURL: srv.URL + "/v6",
		APIKey:  key,
		Timeout: 200 * time.Millisecond,
		RPS:     100,
	}, zap.NewNop())
}

func TestPairParsesConversionRate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v6/secret/pair/NGN/USD", r.URL.Path)
		_, _ = w.Write([]byte(`{"result":"success","conversion_rate":0.00065}`))
	}, "secret")

	rate, err := c.Pair(context.Background(), domain.NGN, domain.USD)
	require.NoError(t, err)
	assert.Equal(t, "0.00065", rate.String())
}

func TestPairFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"error result": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"result":"error","error-type":"invalid-key"}`))
		},
		"zero rate": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"result":"success","conversion_rate":0}`))
		},
		"http 500": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"bad json": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{`))
		},
		"timeout": func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(500 * time.Millisecond)
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, h, "k")
			_, err := c.Pair(context.Background(), domain.NGN, domain.USD)
			assert.ErrorIs(t, err, xerrors.ErrProviderUnavailable)
		})
	}
}

func TestMissingAPIKeyIsUnavailable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("provider must not be called without a key")
	}, "")

	_, err := c.Latest(context.Background(), domain.USD)
	assert.ErrorIs(t, err, xerrors.ErrProviderUnavailable)
}

func TestLatestKeepsSupportedCurrencies(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v6/k/latest/USD", r.URL.Path)
		_, _ = w.Write([]byte(`{"result":"success","conversion_rates":{"USD":1,"NGN":1500,"EUR":0.9,"XAU":0.0004}}`))
	}, "k")

	rates, err := c.Latest(context.Background(), domain.USD)
	require.NoError(t, err)
	assert.Len(t, rates, 3)
	assert.Equal(t, "1500", rates[domain.NGN].String())
	_, ok := rates[domain.Currency("XAU")]
	assert.False(t, ok)
}
