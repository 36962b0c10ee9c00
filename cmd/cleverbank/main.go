package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/clever-bank/clever_bank/internal/app"
	"github.com/clever-bank/clever_bank/internal/config"
	"github.com/clever-bank/clever_bank/internal/logging"
)

// cli carries state shared by every command once the root pre-run loaded it.
type cli struct {
	cfg    config.Config
	logger *slog.Logger
	app    *app.App
}

// open builds the service graph on first use.
func (c *cli) open(ctx context.Context) (*app.App, error) {
	if c.app != nil {
		return c.app, nil
	}
	a, err := app.New(ctx, c.cfg, c.logger)
	if err != nil {
		return nil, fmt.Errorf("build app: %w", err)
	}
	c.app = a
	return a, nil
}

func (c *cli) close() {
	if c.app != nil {
		c.app.Close()
	}
}

func newRootCommand(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "cleverbank",
		Short:         "Clever Bank pocket ledger and fund-movement engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			c.cfg = cfg
			c.logger = logging.New(cfg.LogLevel)
			return nil
		},
	}

	root.AddCommand(serveCommand(c))
	root.AddCommand(workerCommand(c))
	root.AddCommand(migrateCommand(c))
	root.AddCommand(sweepCommand(c))
	root.AddCommand(customerCommand(c))
	root.AddCommand(pocketCommand(c))
	root.AddCommand(billCommand(c))
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	c := &cli{}
	err := newRootCommand(c).ExecuteContext(ctx)
	c.close()
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}
