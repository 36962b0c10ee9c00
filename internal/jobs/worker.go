package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"github.com/clever-bank/clever_bank/internal/logging"
	"github.com/clever-bank/clever_bank/internal/payments"
)

// Sweeper runs one monthly fee sweep.
type Sweeper interface {
	MonthlyFeeSweep(ctx context.Context) (payments.SweepReport, error)
}

// Handler executes bank tasks.
type Handler struct {
	sweeper Sweeper
	logger  *slog.Logger
}

// NewHandler builds a task handler.
func NewHandler(sweeper Sweeper, logger *slog.Logger) *Handler {
	return &Handler{sweeper: sweeper, logger: logging.Component(logger, "jobs")}
}

// ProcessMonthlyFee runs the sweep carried by t.
func (h *Handler) ProcessMonthlyFee(ctx context.Context, t *asynq.Task) error {
	var payload MonthlyFeePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("decode monthly fee payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	if payload.RequestedBy == "" {
		payload.RequestedBy = "scheduler"
	}

	h.logger.Info("monthly fee sweep started", "requested_by", payload.RequestedBy)
	report, err := h.sweeper.MonthlyFeeSweep(ctx)
	if err != nil {
		// Pockets already charged must not be charged again by a retry.
		return fmt.Errorf("monthly fee sweep: %v: %w", err, asynq.SkipRetry)
	}
	h.logger.Info("monthly fee sweep done",
		"requested_by", payload.RequestedBy,
		"accounts", report.Accounts,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
	)
	return nil
}

// NewServeMux routes task types to h.
func NewServeMux(h *Handler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeMonthlyFee, h.ProcessMonthlyFee)
	return mux
}

// NewServer builds the worker server for the bank queue.
func NewServer(opt asynq.RedisConnOpt, concurrency int, logger *slog.Logger) *asynq.Server {
	if concurrency <= 0 {
		concurrency = 1
	}
	log := logging.Component(logger, "jobs")
	return asynq.NewServer(opt, asynq.Config{
		Concurrency:     concurrency,
		Queues:          map[string]int{Queue: 1},
		Logger:          slogAdapter{log},
		ShutdownTimeout: 30 * time.Second,
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			log.Error("task failed", "type", task.Type(), "error", err)
		}),
	})
}

// NewScheduler registers the monthly fee task on cronspec (standard five
// fields, evaluated in UTC).
func NewScheduler(opt asynq.RedisConnOpt, cronspec string, logger *slog.Logger) (*asynq.Scheduler, string, error) {
	log := logging.Component(logger, "scheduler")
	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		Location: time.UTC,
		Logger:   slogAdapter{log},
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				log.Warn("scheduled enqueue", "error", err)
				return
			}
			log.Info("scheduled task enqueued", "task_id", info.ID, "type", info.Type)
		},
	})

	task, err := NewMonthlyFeeTask("scheduler")
	if err != nil {
		return nil, "", err
	}
	entryID, err := scheduler.Register(cronspec, task)
	if err != nil {
		return nil, "", fmt.Errorf("register monthly fee %q: %w", cronspec, err)
	}
	return scheduler, entryID, nil
}

// slogAdapter satisfies asynq.Logger.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Debug(args ...interface{}) { a.logger.Debug(fmt.Sprint(args...)) }
func (a slogAdapter) Info(args ...interface{})  { a.logger.Info(fmt.Sprint(args...)) }
func (a slogAdapter) Warn(args ...interface{})  { a.logger.Warn(fmt.Sprint(args...)) }
func (a slogAdapter) Error(args ...interface{}) { a.logger.Error(fmt.Sprint(args...)) }
func (a slogAdapter) Fatal(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
	os.Exit(1)
}
