package handler

import (
	"net/http"

	"fx-wallet-service/pkg/response"
	xerrors "fx-wallet-service/pkg/xerrors"
)

var statusByKind = map[string]int{
	"InvalidAmount":             http.StatusBadRequest,
	"UnsupportedCurrency":       http.StatusBadRequest,
	"InvalidCurrencyPair":       http.StatusBadRequest,
	"InvalidRequest":            http.StatusBadRequest,
	"WalletNotFound":            http.StatusNotFound,
	"TransactionNotFound":       http.StatusNotFound,
	"NotFound":                  http.StatusNotFound,
	"InsufficientBalance":       http.StatusUnprocessableEntity,
	"InsufficientFrozenBalance": http.StatusUnprocessableEntity,
	"RateStale":                 http.StatusConflict,
	"TransactionConflict":       http.StatusConflict,
	"InvalidTransactionState":   http.StatusConflict,
	"RateUnavailable":           http.StatusServiceUnavailable,
	"ProviderUnavailable":       http.StatusServiceUnavailable,
	"Unauthorized":              http.StatusUnauthorized,
}

// writeError reports err with its kind. Unknown errors are not echoed back.
func writeError(w http.ResponseWriter, err error) {
	kind := xerrors.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		response.ErrorWithCode(w, http.StatusInternalServerError, kind, "internal server error")
		return
	}
	response.ErrorWithCode(w, status, kind, err.Error())
}
