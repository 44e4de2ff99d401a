package handler

import (
	"fmt"
	"net/http"

	"fx-wallet-service/internal/domain"
	"fx-wallet-service/internal/service"
	"fx-wallet-service/pkg/response"
	xerrors "fx-wallet-service/pkg/xerrors"
)

func RateHandler(resolver *service.FXResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, err := domain.ParseCurrency(r.URL.Query().Get("from"))
		if err != nil {
			writeError(w, err)
			return
		}
		to, err := domain.ParseCurrency(r.URL.Query().Get("to"))
		if err != nil {
			writeError(w, err)
			return
		}
		rate, ok := resolver.GetRate(r.Context(), from, to)
		if !ok {
			writeError(w, fmt.Errorf("%w: %s/%s", xerrors.ErrRateUnavailable, from, to))
			return
		}
		response.JSON(w, http.StatusOK, map[string]any{
			"from_currency": from,
			"to_currency":   to,
			"rate":          rate,
		})
	}
}

func AllRatesHandler(resolver *service.FXResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		base := resolver.BaseCurrency()
		if q := r.URL.Query().Get("base"); q != "" {
			c, err := domain.ParseCurrency(q)
			if err != nil {
				writeError(w, err)
				return
			}
			base = c
		}
		response.JSON(w, http.StatusOK, map[string]any{
			"base":  base,
			"rates": resolver.GetAllRates(r.Context(), base),
		})
	}
}

func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
