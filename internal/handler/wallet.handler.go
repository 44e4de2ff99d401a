package handler

import (
	"net/http"

	"fx-wallet-service/internal/middleware"
	"fx-wallet-service/internal/usecase"
	"fx-wallet-service/pkg/response"
)

func OpenAccountsHandler(walletUC *usecase.WalletUsecase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserID(r.Context())
		if !ok {
			response.ErrorWithCode(w, http.StatusUnauthorized, "Unauthorized", "missing user")
			return
		}
		wallets, err := walletUC.OpenAccounts(r.Context(), userID)
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, http.StatusCreated, wallets)
	}
}

func GetWalletsHandler(walletUC *usecase.WalletUsecase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserID(r.Context())
		if !ok {
			response.ErrorWithCode(w, http.StatusUnauthorized, "Unauthorized", "missing user")
			return
		}
		wallets, err := walletUC.GetWallets(r.Context(), userID)
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, http.StatusOK, wallets)
	}
}
