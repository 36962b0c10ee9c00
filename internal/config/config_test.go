package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "CleverBank", cfg.AppName)
	assert.Equal(t, ":8080", cfg.Address())
	assert.Equal(t, "USD", cfg.DefaultCurrency)
	assert.True(t, cfg.StartingBalance.Equal(decimal.RequireFromString("40.00")))
	assert.True(t, cfg.MonthlyFee.Equal(decimal.RequireFromString("2.00")))
	assert.Equal(t, "Clever Bank", cfg.BankName)
	assert.Equal(t, "Clever Bank Service Ltd", cfg.BankLegalName)
	assert.Equal(t, 7, cfg.StatementSize)
	assert.Equal(t, 10*time.Second, cfg.ShutdownPeriod)
	assert.GreaterOrEqual(t, cfg.LockTTL, cfg.OperationTimeout)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("PORT", ":9090")
	t.Setenv("MONTHLY_FEE", "3.50")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("DEFAULT_CURRENCY", "eur")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Address())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "EUR", cfg.DefaultCurrency)
	assert.True(t, cfg.MonthlyFee.Equal(decimal.RequireFromString("3.5")))
	assert.Equal(t, 3*time.Second, cfg.ShutdownPeriod)
}

func TestLoadRequiresBackendsOutsideDev(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")

	t.Setenv("DATABASE_URL", "postgres://localhost/bank")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_URL")

	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	_, err = Load()
	require.NoError(t, err)
}

func TestLoadRejectsNonPositiveFee(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("MONTHLY_FEE", "0")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsLockShorterThanOperation(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("LOCK_TTL", "5s")
	t.Setenv("OPERATION_TIMEOUT", "15s")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOCK_TTL")
}

func TestLoadRejectsSubCentMoney(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("MONTHLY_FEE", "2.005")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decimal places")
}
