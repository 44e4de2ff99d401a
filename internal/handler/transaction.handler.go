package handler

import (
	"encoding/json"
	"net/http"

	"fx-wallet-service/internal/domain"
	"fx-wallet-service/internal/middleware"
	"fx-wallet-service/internal/usecase"
	"fx-wallet-service/pkg/response"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const idempotencyHeader = "Idempotency-Key"

type fundBody struct {
	Currency       string          `json:"currency"`
	Amount         decimal.Decimal `json:"amount"`
	Description    string          `json:"description"`
	IdempotencyKey string          `json:"idempotency_key"`
}

type exchangeBody struct {
	FromCurrency   string              `json:"from_currency"`
	ToCurrency     string              `json:"to_currency"`
	Amount         decimal.Decimal     `json:"amount"`
	ExpectedRate   decimal.NullDecimal `json:"expected_rate"`
	IdempotencyKey string              `json:"idempotency_key"`
}

type cancelBody struct {
	Reason string `json:"reason"`
}

func idempotencyKey(r *http.Request, fromBody string) string {
	if h := r.Header.Get(idempotencyHeader); h != "" {
		return h
	}
	return fromBody
}

func FundHandler(txUC *usecase.TransactionUsecase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserID(r.Context())
		if !ok {
			response.ErrorWithCode(w, http.StatusUnauthorized, "Unauthorized", "missing user")
			return
		}
		var body fundBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			response.ErrorWithCode(w, http.StatusBadRequest, "InvalidRequest", "Invalid JSON body")
			return
		}
		currency, err := domain.ParseCurrency(body.Currency)
		if err != nil {
			writeError(w, err)
			return
		}

		receipt, err := txUC.Fund(r.Context(), usecase.FundRequest{
			Owner:          userID,
			Currency:       currency,
			Amount:         body.Amount,
			Description:    body.Description,
			IdempotencyKey: idempotencyKey(r, body.IdempotencyKey),
		})
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, http.StatusOK, receipt)
	}
}

func ConvertHandler(txUC *usecase.TransactionUsecase) http.HandlerFunc {
	return exchangeHandler(func(r *http.Request, userID string, from, to domain.Currency, body exchangeBody) (*domain.Receipt, error) {
		return txUC.Convert(r.Context(), usecase.ConvertRequest{
			Owner:          userID,
			From:           from,
			To:             to,
			Amount:         body.Amount,
			IdempotencyKey: idempotencyKey(r, body.IdempotencyKey),
		})
	})
}

func TradeHandler(txUC *usecase.TransactionUsecase) http.HandlerFunc {
	return exchangeHandler(func(r *http.Request, userID string, from, to domain.Currency, body exchangeBody) (*domain.Receipt, error) {
		return txUC.Trade(r.Context(), usecase.TradeRequest{
			Owner:          userID,
			From:           from,
			To:             to,
			Amount:         body.Amount,
			ExpectedRate:   body.ExpectedRate,
			IdempotencyKey: idempotencyKey(r, body.IdempotencyKey),
		})
	})
}

type exchangeFunc func(r *http.Request, userID string, from, to domain.Currency, body exchangeBody) (*domain.Receipt, error)

func exchangeHandler(run exchangeFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserID(r.Context())
		if !ok {
			response.ErrorWithCode(w, http.StatusUnauthorized, "Unauthorized", "missing user")
			return
		}
		var body exchangeBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			response.ErrorWithCode(w, http.StatusBadRequest, "InvalidRequest", "Invalid JSON body")
			return
		}
		from, err := domain.ParseCurrency(body.FromCurrency)
		if err != nil {
			writeError(w, err)
			return
		}
		to, err := domain.ParseCurrency(body.ToCurrency)
		if err != nil {
			writeError(w, err)
			return
		}

		receipt, err := run(r, userID, from, to, body)
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, http.StatusOK, receipt)
	}
}

func GetTransactionHandler(txUC *usecase.TransactionUsecase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserID(r.Context())
		if !ok {
			response.ErrorWithCode(w, http.StatusUnauthorized, "Unauthorized", "missing user")
			return
		}
		t, err := txUC.GetTransaction(r.Context(), userID, chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, http.StatusOK, t)
	}
}

func GetTransactionByReferenceHandler(txUC *usecase.TransactionUsecase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserID(r.Context())
		if !ok {
			response.ErrorWithCode(w, http.StatusUnauthorized, "Unauthorized", "missing user")
			return
		}
		t, err := txUC.GetTransactionByReference(r.Context(), userID, chi.URLParam(r, "reference"))
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, http.StatusOK, t)
	}
}

func CancelTransactionHandler(txUC *usecase.TransactionUsecase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserID(r.Context())
		if !ok {
			response.ErrorWithCode(w, http.StatusUnauthorized, "Unauthorized", "missing user")
			return
		}
		var body cancelBody
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				response.ErrorWithCode(w, http.StatusBadRequest, "InvalidRequest", "Invalid JSON body")
				return
			}
		}
		t, err := txUC.Cancel(r.Context(), userID, chi.URLParam(r, "id"), body.Reason)
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, http.StatusOK, t)
	}
}
