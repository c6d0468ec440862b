package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/secledger/secledger/internal/jobs"
	"github.com/secledger/secledger/internal/trxmgr"
)

// FinderWarmupJob pre-populates the cached finder with the unfiltered
// transaction listing so the first interactive query hits the cache.
type FinderWarmupJob struct {
	Finder  *trxmgr.CachedFinder
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewFinderWarmupJob wires dependencies for the warmup handler.
func NewFinderWarmupJob(finder *trxmgr.CachedFinder, logger *slog.Logger, metrics *jobmetrics.Metrics) *FinderWarmupJob {
	return &FinderWarmupJob{Finder: finder, Logger: logger, Metrics: metrics}
}

// Handle processes finder warmup tasks.
func (j *FinderWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Finder == nil {
		return errors.New("finder warmup: handler not configured")
	}
	var payload FinderWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskFinderWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	flt := &trxmgr.TransactionFilter{}
	flt.Reset()
	trxs, err := j.Finder.FindTransactions(ctx, flt, payload.WithSplits, trxmgr.SplitLogicAnd)
	if err != nil {
		resultErr = err
		j.logger().Error("warm finder cache", slog.Any("error", err))
		return resultErr
	}
	j.logger().Info("finder cache warmed", slog.Int("transactions", len(trxs)))
	return resultErr
}

func (j *FinderWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *FinderWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
