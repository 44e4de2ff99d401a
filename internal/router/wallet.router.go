package router

import (
	"time"

	"fx-wallet-service/internal/handler"
	"fx-wallet-service/internal/middleware"
	"fx-wallet-service/internal/service"
	"fx-wallet-service/internal/usecase"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RequestTimeout bounds every routed request, including the rate lookup and
// the wallet lock wait.
const RequestTimeout = 30 * time.Second

type Deps struct {
	Verifier      middleware.TokenVerifier
	WalletUC      *usecase.WalletUsecase
	TransactionUC *usecase.TransactionUsecase
	Resolver      *service.FXResolver
}

func New(d Deps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		AllowCredentials: false, // must be false when using "*"
		MaxAge:           300,
	}))

	r.Get("/health", handler.HealthHandler())
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(d.Verifier))

		r.Route("/api", func(r chi.Router) {
			r.Post("/wallets/activate", handler.OpenAccountsHandler(d.WalletUC))
			r.Get("/wallets", handler.GetWalletsHandler(d.WalletUC))
			r.Post("/wallets/fund", handler.FundHandler(d.TransactionUC))
			r.Post("/wallets/convert", handler.ConvertHandler(d.TransactionUC))
			r.Post("/wallets/trade", handler.TradeHandler(d.TransactionUC))

			r.Get("/transactions/{id}", handler.GetTransactionHandler(d.TransactionUC))
			r.Get("/transactions/ref/{reference}", handler.GetTransactionByReferenceHandler(d.TransactionUC))
			r.Post("/transactions/{id}/cancel", handler.CancelTransactionHandler(d.TransactionUC))

			r.Get("/fx/rate", handler.RateHandler(d.Resolver))
			r.Get("/fx/rates", handler.AllRatesHandler(d.Resolver))
		})
	})

	return r
}
