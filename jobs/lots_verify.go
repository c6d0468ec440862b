package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/secledger/secledger/internal/jobs"
	"github.com/secledger/secledger/internal/ledger"
	"github.com/secledger/secledger/internal/secacct"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// LotsVerifyJob sweeps the share accounts under each configured
// investment account and reports lots whose splits do not balance.
type LotsVerifyJob struct {
	Store   ledger.Store
	Lots    *secacct.LotChecker
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewLotsVerifyJob wires dependencies for the lot verification handler.
func NewLotsVerifyJob(store ledger.Store, lots *secacct.LotChecker, logger *slog.Logger, metrics *jobmetrics.Metrics) *LotsVerifyJob {
	return &LotsVerifyJob{
		Store:   store,
		Lots:    lots,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes lot verification tasks.
func (j *LotsVerifyJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Store == nil || j.Lots == nil {
		return errors.New("lots verify: handler not configured")
	}
	var payload LotsVerifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskLotsVerify)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	if len(payload.InvestmentAccountIDs) == 0 {
		logger.Info("no investment accounts configured for lot sweep")
		return resultErr
	}

	for _, raw := range payload.InvestmentAccountIDs {
		accountID, err := uuid.Parse(raw)
		if err != nil {
			logger.Warn("skipping malformed account id", slog.String("account_id", raw))
			continue
		}
		if err := j.sweepAccount(ctx, accountID); err != nil {
			resultErr = err
			logger.Error("sweep investment account",
				slog.String("account_id", accountID.String()),
				slog.Any("error", err))
			return resultErr
		}
	}
	return resultErr
}

func (j *LotsVerifyJob) sweepAccount(ctx context.Context, investmentAccountID uuid.UUID) error {
	mgr, err := secacct.NewManager(ctx, j.Store, investmentAccountID)
	if err != nil {
		return err
	}
	shares, err := mgr.ShareAccounts(ctx)
	if err != nil {
		return err
	}
	logger := j.logger()
	for _, acct := range shares {
		ok, err := j.Lots.AreLotsOK(ctx, acct.ID)
		if err != nil {
			return err
		}
		if !ok {
			j.metrics().AddBrokenLots(acct.ID.String(), 1)
			logger.Warn("unbalanced lot detected",
				slog.String("account_id", acct.ID.String()),
				slog.String("account", acct.Name))
		}
	}
	return nil
}

func (j *LotsVerifyJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *LotsVerifyJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
