package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"fx-wallet-service/internal/config"
	"fx-wallet-service/internal/domain"
	"fx-wallet-service/internal/pub"
	"fx-wallet-service/internal/repository"
	"fx-wallet-service/internal/repository/memory"
	"fx-wallet-service/internal/router"
	"fx-wallet-service/internal/service"
	"fx-wallet-service/internal/usecase"
	"fx-wallet-service/internal/worker"
	"fx-wallet-service/pkg/jwtutil"
	"fx-wallet-service/pkg/utils/cache"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type Server struct {
	httpServer *http.Server
	db         *pgxpool.Pool
	redis      *cache.Cache
	publisher  pub.Publisher
	logger     *zap.Logger

	refresher *worker.RateRefresher
	reaper    *worker.PendingReaper
	workers   sync.WaitGroup
	cancel    context.CancelFunc
}

type stores struct {
	uow          repository.UnitOfWork
	wallets      repository.WalletRepository
	transactions repository.TransactionRepository
	rates        repository.RateRepository
}

func New(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) (*Server, error) {
	s := &Server{logger: logger}

	st, err := s.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.RedisAddr != "" {
		addrs := strings.Split(cfg.RedisAddr, ",")
		s.redis = cache.NewCache(addrs, cfg.RedisPass, len(addrs) > 1)
	}

	s.publisher, err = s.newPublisher(cfg)
	if err != nil {
		s.closeStores()
		return nil, err
	}

	defaults, err := domain.ParseCurrencies(cfg.DefaultCurrencies)
	if err != nil {
		s.closeStores()
		return nil, fmt.Errorf("invalid default currencies: %w", err)
	}
	base, err := domain.ParseCurrency(cfg.FX.BaseCurrency)
	if err != nil {
		s.closeStores()
		return nil, fmt.Errorf("invalid fx base currency: %w", err)
	}

	provider := service.NewExchangeRateClient(service.ExchangeRateConfig{
		BaseURL: cfg.FX.APIURL,
		APIKey:  cfg.FX.APIKey,
		Timeout: cfg.FX.ProviderTimeout,
		RPS:     cfg.FX.ProviderRPS,
	}, logger)
	opts := []service.FXResolverOption{service.WithBaseCurrency(base)}
	if s.redis != nil {
		opts = append(opts, service.WithSnapshotCache(s.redis))
	}
	resolver := service.NewFXResolver(provider, st.rates, service.NewRateCache(cfg.FX.CacheTTL), logger, opts...)

	walletUC := usecase.NewWalletUsecase(st.uow, st.wallets, defaults, logger)
	txUC := usecase.NewTransactionUsecase(st.uow, st.transactions, walletUC, resolver, s.publisher, logger)

	verifier, err := jwtutil.LoadAndBuild(jwtutil.JWTConfig{
		PubPath:  cfg.JWT.PublicKeyPath,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
	})
	if err != nil {
		s.closeStores()
		return nil, fmt.Errorf("failed to load jwt public key: %w", err)
	}

	s.refresher = worker.NewRateRefresher(resolver, cfg.FX.RefreshInterval, cfg.FX.RefreshOnStart, logger)
	s.reaper = worker.NewPendingReaper(txUC, cfg.PendingReapInterval, cfg.PendingMaxAge, logger)

	s.httpServer = newHTTPServer(cfg.HTTPAddr, router.New(router.Deps{
		Verifier:      verifier,
		WalletUC:      walletUC,
		TransactionUC: txUC,
		Resolver:      resolver,
	}))
	return s, nil
}

// newHTTPServer keeps the write deadline past the router's request timeout
// so a slow settle still gets its response written.
func newHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: router.RequestTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func (s *Server) openStore(ctx context.Context, cfg config.AppConfig) (stores, error) {
	switch cfg.StoreDriver {
	case "memory":
		s.logger.Warn("using in-memory store; balances are lost on restart")
		m := memory.NewStore()
		return stores{uow: m, wallets: m, transactions: m, rates: m}, nil
	case "postgres", "":
		db, err := config.ConnectDB(ctx, cfg.DB, s.logger)
		if err != nil {
			return stores{}, err
		}
		if err := repository.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return stores{}, fmt.Errorf("failed to apply schema: %w", err)
		}
		s.db = db
		return stores{
			uow:          repository.NewUnitOfWork(db),
			wallets:      repository.NewWalletRepo(db),
			transactions: repository.NewTransactionRepo(db),
			rates:        repository.NewRateRepo(db),
		}, nil
	default:
		return stores{}, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func (s *Server) newPublisher(cfg config.AppConfig) (pub.Publisher, error) {
	switch cfg.EventsDriver {
	case "redis":
		if s.redis == nil {
			return nil, fmt.Errorf("events driver redis needs REDIS_ADDR")
		}
		return pub.NewRedisPublisher(s.redis.Client(), s.logger), nil
	case "kafka":
		return pub.NewKafkaPublisher(pub.NewKafkaWriter(cfg.KafkaBrokers, cfg.EventsKafkaTopic), s.logger), nil
	case "none", "":
		return pub.NewNoopPublisher(), nil
	default:
		return nil, fmt.Errorf("unknown events driver %q", cfg.EventsDriver)
	}
}

// StartWorkers runs the rate refresher and the pending reaper until
// Shutdown.
func (s *Server) StartWorkers(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	for _, start := range []func(context.Context){s.refresher.Start, s.reaper.Start} {
		s.workers.Add(1)
		go func(run func(context.Context)) {
			defer s.workers.Done()
			run(ctx)
		}(start)
	}
}

func (s *Server) ListenAndServe() error {
	s.logger.Info("wallet service listening", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)

	s.refresher.Stop()
	s.reaper.Stop()
	if s.cancel != nil {
		s.cancel()
	}
	s.workers.Wait()

	if cerr := s.publisher.Close(); cerr != nil {
		s.logger.Warn("failed to close publisher", zap.Error(cerr))
	}
	s.closeStores()
	return err
}

func (s *Server) closeStores() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if s.db != nil {
		s.db.Close()
	}
}
