package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string        `envconfig:"APP_NAME" default:"CleverBank"`
	AppEnv         string        `envconfig:"APP_ENV" default:"development"`
	Port           string        `envconfig:"PORT" default:"8080"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	DatabaseURL    string        `envconfig:"DATABASE_URL"`
	RedisURL       string        `envconfig:"REDIS_URL"`
	ShutdownPeriod time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	// BankName is the display name recorded as counterparty of fee charges.
	BankName string `envconfig:"BANK_NAME" default:"Clever Bank"`
	// BankLegalName is the counterparty of deposits and plain withdrawals.
	BankLegalName   string          `envconfig:"BANK_LEGAL_NAME" default:"Clever Bank Service Ltd"`
	DefaultCurrency string          `envconfig:"DEFAULT_CURRENCY" default:"USD"`
	StartingBalance decimal.Decimal `envconfig:"STARTING_BALANCE" default:"40.00"`
	MonthlyFee      decimal.Decimal `envconfig:"MONTHLY_FEE" default:"2.00"`
	// MonthlyFeeCron fires at 00:01 on the first day of every month.
	MonthlyFeeCron string `envconfig:"MONTHLY_FEE_CRON" default:"1 0 1 * *"`
	StatementSize  int    `envconfig:"STATEMENT_SIZE" default:"7"`

	LockTTL           time.Duration `envconfig:"LOCK_TTL" default:"20s"`
	LockWait          time.Duration `envconfig:"LOCK_WAIT" default:"5s"`
	OperationTimeout  time.Duration `envconfig:"OPERATION_TIMEOUT" default:"15s"`
	WorkerConcurrency int           `envconfig:"WORKER_CONCURRENCY" default:"2"`
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.DefaultCurrency = strings.ToUpper(cfg.DefaultCurrency)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field rules that envconfig cannot express.
func (c Config) Validate() error {
	if !c.IsDev() {
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", c.AppEnv)
		}
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", c.AppEnv)
		}
	}
	if len(c.DefaultCurrency) != 3 {
		return fmt.Errorf("invalid DEFAULT_CURRENCY %q", c.DefaultCurrency)
	}
	if c.StartingBalance.IsNegative() {
		return fmt.Errorf("STARTING_BALANCE must not be negative")
	}
	if !c.MonthlyFee.IsPositive() {
		return fmt.Errorf("MONTHLY_FEE must be positive")
	}
	if !c.StartingBalance.Equal(c.StartingBalance.Round(2)) || !c.MonthlyFee.Equal(c.MonthlyFee.Round(2)) {
		return fmt.Errorf("STARTING_BALANCE and MONTHLY_FEE must have at most two decimal places")
	}
	if c.LockTTL < c.OperationTimeout {
		return fmt.Errorf("LOCK_TTL (%s) must not be shorter than OPERATION_TIMEOUT (%s)", c.LockTTL, c.OperationTimeout)
	}
	if c.StatementSize <= 0 {
		return fmt.Errorf("STATEMENT_SIZE must be positive")
	}
	return nil
}

// IsDev reports whether the app runs in a local/development environment,
// where Postgres and Redis are optional and in-memory backends are used.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}
