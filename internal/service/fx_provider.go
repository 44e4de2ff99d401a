package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fx-wallet-service/internal/domain"
	xerrors "fx-wallet-service/pkg/xerrors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateProvider is the external quote source.
type RateProvider interface {
	Pair(ctx context.Context, from, to domain.Currency) (decimal.Decimal, error)
	Latest(ctx context.Context, base domain.Currency) (map[domain.Currency]decimal.Decimal, error)
}

type ExchangeRateConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	RPS     float64
}

// ExchangeRateClient talks to the exchangerate-api v6 HTTP API.
type ExchangeRateClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewExchangeRateClient(cfg ExchangeRateConfig, logger *zap.Logger) *ExchangeRateClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 5
	}
	burst := int(cfg.RPS)
	if burst < 1 {
		burst = 1
	}
	return &ExchangeRateClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), burst),
		logger:  logger,
	}
}

type pairResponse struct {
	Result         string          `json:"result"`
	ErrorType      string          `json:"error-type"`
	ConversionRate decimal.Decimal `json:"conversion_rate"`
}

type latestResponse struct {
	Result          string                     `json:"result"`
	ErrorType       string                     `json:"error-type"`
	ConversionRates map[string]decimal.Decimal `json:"conversion_rates"`
}

func (c *ExchangeRateClient) Pair(ctx context.Context, from, to domain.Currency) (decimal.Decimal, error) {
	var resp pairResponse
	if err := c.get(ctx, fmt.Sprintf("%s/%s/pair/%s/%s", c.baseURL, c.apiKey, from, to), &resp); err != nil {
		return decimal.Zero, err
	}
	if resp.Result != "success" {
		return decimal.Zero, fmt.Errorf("%w: pair %s/%s: %s", xerrors.ErrProviderUnavailable, from, to, resp.ErrorType)
	}
	if !resp.ConversionRate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: pair %s/%s: non-positive rate %s", xerrors.ErrProviderUnavailable, from, to, resp.ConversionRate)
	}
	return resp.ConversionRate, nil
}

// Latest returns base->currency rates for the supported currencies the
// provider quoted.
func (c *ExchangeRateClient) Latest(ctx context.Context, base domain.Currency) (map[domain.Currency]decimal.Decimal, error) {
	var resp latestResponse
	if err := c.get(ctx, fmt.Sprintf("%s/%s/latest/%s", c.baseURL, c.apiKey, base), &resp); err != nil {
		return nil, err
	}
	if resp.Result != "success" {
		return nil, fmt.Errorf("%w: latest %s: %s", xerrors.ErrProviderUnavailable, base, resp.ErrorType)
	}

	out := make(map[domain.Currency]decimal.Decimal, len(domain.SupportedCurrencies))
	for code, r := range resp.ConversionRates {
		cur := domain.Currency(code)
		if cur.Valid() && r.IsPositive() {
			out[cur] = r
		}
	}
	return out, nil
}

func (c *ExchangeRateClient) get(ctx context.Context, url string, out any) error {
	if c.apiKey == "" {
		return fmt.Errorf("%w: api key not configured", xerrors.ErrProviderUnavailable)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", xerrors.ErrProviderUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", xerrors.ErrProviderUnavailable, err)
	}
	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("fx provider request failed", zap.Error(err))
		return fmt.Errorf("%w: %v", xerrors.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("fx provider responded",
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", xerrors.ErrProviderUnavailable, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode: %v", xerrors.ErrProviderUnavailable, err)
	}
	return nil
}
