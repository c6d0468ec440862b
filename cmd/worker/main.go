package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/secledger/secledger/internal/app"
	"github.com/secledger/secledger/internal/ledger/pgstore"
	"github.com/secledger/secledger/internal/platform/db"
	"github.com/secledger/secledger/internal/secacct"
	"github.com/secledger/secledger/internal/trxmgr"
	"github.com/secledger/secledger/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()
	store := pgstore.New(pool)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	lotChecker := secacct.NewLotChecker(store, tol, logger)
	lotsJob := jobs.NewLotsVerifyJob(store, lotChecker, logger, nil)

	finder := trxmgr.NewFinder(store, tol, logger)
	finderCache := trxmgr.NewFinderCache(redisClient, cfg.FinderCacheTTL)
	cachedFinder := trxmgr.NewCachedFinder(finder, finderCache, logger)
	warmupJob := jobs.NewFinderWarmupJob(cachedFinder, logger, nil)

	lotsTask, err := jobs.NewLotsVerifyTask(jobs.LotsVerifyPayload{
		InvestmentAccountIDs: cfg.LotsVerifyAccounts,
	})
	if err != nil {
		logger.Error("build lots verify task", slog.Any("error", err))
		os.Exit(1)
	}
	warmupTask, err := jobs.NewFinderWarmupTask(jobs.FinderWarmupPayload{WithSplits: true})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLotsVerify, Handler: lotsJob.Handle},
			{Type: jobs.TaskFinderWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "15 1 * * *", Task: lotsTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "45 1 * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
