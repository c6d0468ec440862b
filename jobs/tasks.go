package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLotsVerify sweeps stock accounts for unbalanced lots.
	TaskLotsVerify = "lots:verify"
	// TaskFinderWarmup pre-populates the finder result cache.
	TaskFinderWarmup = "finder:warmup"
)

// LotsVerifyPayload selects the investment accounts to sweep.
type LotsVerifyPayload struct {
	InvestmentAccountIDs []string `json:"investment_account_ids"`
}

// NewLotsVerifyTask constructs an Asynq task for a lot verification sweep.
func NewLotsVerifyTask(payload LotsVerifyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLotsVerify, data), nil
}

// FinderWarmupPayload configures the cache warmup query.
type FinderWarmupPayload struct {
	WithSplits bool `json:"with_splits"`
}

// NewFinderWarmupTask constructs an Asynq task for cache warmup.
func NewFinderWarmupTask(payload FinderWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFinderWarmup, data), nil
}
