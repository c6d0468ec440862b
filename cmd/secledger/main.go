package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/secledger/secledger/internal/app"
	"github.com/secledger/secledger/internal/ledger"
	"github.com/secledger/secledger/internal/ledger/pgstore"
	"github.com/secledger/secledger/internal/observability"
	"github.com/secledger/secledger/internal/platform/cache"
	"github.com/secledger/secledger/internal/platform/db"
	"github.com/secledger/secledger/internal/secacct"
	"github.com/secledger/secledger/internal/trxmgr"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	tol, err := cfg.Tolerances()
	if err != nil {
		logger.Error("parse tolerances", slog.Any("error", err))
		os.Exit(1)
	}

	var store ledger.Store
	switch cfg.StoreBackend {
	case "memory":
		store = ledger.NewMemoryStore()
		logger.Warn("running on the in-memory store, data will not persist")
	default:
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		store = pgstore.New(pool)
	}

	var redisClient *redis.Client
	if client, err := cache.New(ctx, cfg.RedisAddr); err != nil {
		logger.Warn("redis unavailable, finder cache disabled", slog.Any("error", err))
	} else {
		redisClient = client
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()

	generator := secacct.NewGenerator(store, tol, logger)
	lotChecker := secacct.NewLotChecker(store, tol, logger)

	trxManager := trxmgr.NewManager(store, tol, logger)
	finder := trxmgr.NewFinder(store, tol, logger)
	finderCache := trxmgr.NewFinderCache(redisClient, cfg.FinderCacheTTL)
	cachedFinder := trxmgr.NewCachedFinder(finder, finderCache, logger)

	secacctHandler := secacct.NewHandler(logger, generator, lotChecker, store, metrics, cachedFinder)
	trxmgrHandler := trxmgr.NewHandler(logger, store, tol, cachedFinder, finder, trxManager, metrics, finderCache)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SecAcctHandler: secacctHandler,
		TrxMgrHandler:  trxmgrHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", cfg.AppAddr), slog.String("store", cfg.StoreBackend))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", slog.Any("error", err))
			os.Exit(1)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("serve", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
