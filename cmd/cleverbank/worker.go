package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func workerCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "run only the job worker and the monthly fee scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.RedisURL == "" {
				return fmt.Errorf("REDIS_URL is required for the worker")
			}
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			stop, err := startJobs(a, c.cfg.RedisURL, c.logger)
			if err != nil {
				return err
			}
			<-cmd.Context().Done()
			c.logger.Info("shutdown signal received")
			stop()
			return nil
		},
	}
}
