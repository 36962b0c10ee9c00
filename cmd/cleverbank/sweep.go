package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clever-bank/clever_bank/internal/jobs"
)

func sweepCommand(c *cli) *cobra.Command {
	var async bool
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "charge the monthly fee to every active pocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			if async {
				return enqueueSweep(cmd, c)
			}
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			report, err := a.Payments.MonthlyFeeSweep(cmd.Context())
			if perr := printJSON(cmd.OutOrStdout(), report); perr != nil {
				return perr
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&async, "async", false, "enqueue the sweep for the worker instead of running it here")
	return cmd
}

func enqueueSweep(cmd *cobra.Command, c *cli) error {
	if c.cfg.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required to enqueue a sweep")
	}
	opt, err := jobs.RedisOpt(c.cfg.RedisURL)
	if err != nil {
		return err
	}
	enq := jobs.NewEnqueuer(opt)
	defer enq.Close()

	host, _ := os.Hostname()
	info, err := enq.EnqueueMonthlyFee(cmd.Context(), "cli@"+host)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s on %s\n", info.ID, info.Queue)
	return nil
}
