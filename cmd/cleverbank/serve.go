package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/clever-bank/clever_bank/internal/app"
	"github.com/clever-bank/clever_bank/internal/jobs"
	"github.com/clever-bank/clever_bank/internal/server"
)

func serveCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the ops server, the job worker and the monthly fee scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := c.open(ctx)
			if err != nil {
				return err
			}

			stopJobs, err := startJobs(a, c.cfg.RedisURL, c.logger)
			if err != nil {
				return err
			}
			defer stopJobs()

			srv := server.New(c.cfg, a.DB, a.Cache, c.logger)
			srvErrCh := make(chan error, 1)
			go func() {
				srvErrCh <- srv.Listen()
			}()
			c.logger.Info("ops server listening", "addr", c.cfg.Address(), "env", c.cfg.AppEnv)

			select {
			case <-ctx.Done():
				c.logger.Info("shutdown signal received")
			case err := <-srvErrCh:
				if err != nil {
					return fmt.Errorf("server: %w", err)
				}
				return nil
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), c.cfg.ShutdownPeriod)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			c.logger.Info("server exited cleanly")
			return nil
		},
	}
}

// startJobs runs the monthly fee on asynq when Redis is configured and on an
// in-process cron otherwise. The returned func stops whatever was started.
func startJobs(a *app.App, redisURL string, logger *slog.Logger) (func(), error) {
	if redisURL == "" {
		return startLocalCron(a, logger)
	}

	opt, err := jobs.RedisOpt(redisURL)
	if err != nil {
		return nil, err
	}
	worker := jobs.NewServer(opt, a.Config.WorkerConcurrency, logger)
	if err := worker.Start(jobs.NewServeMux(jobs.NewHandler(a.Payments, logger))); err != nil {
		return nil, fmt.Errorf("start worker: %w", err)
	}
	scheduler, entryID, err := jobs.NewScheduler(opt, a.Config.MonthlyFeeCron, logger)
	if err != nil {
		worker.Shutdown()
		return nil, err
	}
	if err := scheduler.Start(); err != nil {
		worker.Shutdown()
		return nil, fmt.Errorf("start scheduler: %w", err)
	}
	logger.Info("monthly fee scheduled", "cron", a.Config.MonthlyFeeCron, "entry_id", entryID)

	return func() {
		scheduler.Shutdown()
		worker.Shutdown()
	}, nil
}

func startLocalCron(a *app.App, logger *slog.Logger) (func(), error) {
	c := cron.New(cron.WithLocation(time.UTC))
	_, err := c.AddFunc(a.Config.MonthlyFeeCron, func() {
		report, err := a.Payments.MonthlyFeeSweep(context.Background())
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("monthly fee sweep", "error", err)
		}
		logger.Info("monthly fee sweep finished",
			"accounts", report.Accounts,
			"succeeded", report.Succeeded,
			"failed", report.Failed,
			"errored", report.Errored,
		)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule monthly fee %q: %w", a.Config.MonthlyFeeCron, err)
	}
	c.Start()
	logger.Info("monthly fee scheduled in-process", "cron", a.Config.MonthlyFeeCron)
	return func() { <-c.Stop().Done() }, nil
}
