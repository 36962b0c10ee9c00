// Package jobs runs the monthly fee sweep on asynq: a scheduler enqueues the
// task on a cron spec and a worker server executes it.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// TypeMonthlyFee is the task type of the monthly fee sweep.
	TypeMonthlyFee = "pocket:monthly_fee"
	// Queue is the asynq queue the bank's tasks run on.
	Queue = "cleverbank"

	// uniqueWindow keeps two scheduler replicas from enqueuing the same run.
	uniqueWindow = time.Hour
)

// MonthlyFeePayload is carried by the monthly fee task.
type MonthlyFeePayload struct {
	RequestedBy string `json:"requested_by"`
}

// NewMonthlyFeeTask builds the sweep task. A sweep charges money, so a
// failed run is never retried automatically.
func NewMonthlyFeeTask(requestedBy string) (*asynq.Task, error) {
	payload, err := json.Marshal(MonthlyFeePayload{RequestedBy: requestedBy})
	if err != nil {
		return nil, fmt.Errorf("marshal monthly fee payload: %w", err)
	}
	return asynq.NewTask(TypeMonthlyFee, payload,
		asynq.Queue(Queue),
		asynq.MaxRetry(0),
		asynq.Unique(uniqueWindow),
	), nil
}

// Enqueuer pushes tasks on demand, e.g. from the CLI.
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer wraps an asynq client.
func NewEnqueuer(opt asynq.RedisConnOpt) *Enqueuer {
	return &Enqueuer{client: asynq.NewClient(opt)}
}

// EnqueueMonthlyFee schedules an immediate sweep.
func (e *Enqueuer) EnqueueMonthlyFee(ctx context.Context, requestedBy string) (*asynq.TaskInfo, error) {
	task, err := NewMonthlyFeeTask(requestedBy)
	if err != nil {
		return nil, err
	}
	info, err := e.client.EnqueueContext(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("enqueue monthly fee: %w", err)
	}
	return info, nil
}

// Close releases the client connection.
func (e *Enqueuer) Close() error {
	return e.client.Close()
}

// RedisOpt parses a redis:// URL into asynq connection options.
func RedisOpt(url string) (asynq.RedisConnOpt, error) {
	opt, err := asynq.ParseRedisURI(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return opt, nil
}
