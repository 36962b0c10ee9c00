// Package ledger is the append-only log of every funds-movement attempt.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when no transaction matches the identifier.
var ErrNotFound = errors.New("transaction not found")

// Type is the direction of a movement relative to the affected pocket.
type Type string

const (
	TypeDeposit    Type = "DEPOSIT"
	TypeWithdrawal Type = "WITHDRAWAL"
)

// Status is the outcome of a movement attempt.
type Status string

const (
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
)

// Transaction is one immutable ledger entry. RemainingBalance is the balance
// of AccountID right after the attempt.
type Transaction struct {
	ID               string          `json:"id"`
	CustomerID       string          `json:"customer_id"`
	AccountID        string          `json:"account_id"`
	Sender           string          `json:"sender"`
	Receiver         string          `json:"receiver"`
	Amount           decimal.Decimal `json:"amount"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	Currency         string          `json:"currency"`
	Type             Type            `json:"type"`
	Status           Status          `json:"status"`
	Description      string          `json:"description"`
	ReasonFailed     string          `json:"reason_failed"`
	CreatedOn        time.Time       `json:"created_on"`
}

// Succeeded reports whether the movement was applied.
func (t Transaction) Succeeded() bool {
	return t.Status == StatusSucceeded
}

// Ledger defines the contract implemented by ledger backends (e.g. Postgres).
// Entries are returned newest first; entries sharing a timestamp keep append order.
type Ledger interface {
	Append(ctx context.Context, tx Transaction) (Transaction, error)
	Get(ctx context.Context, id string) (Transaction, error)
	RecentByAccount(ctx context.Context, accountID string, limit int) ([]Transaction, error)
	AllByOwner(ctx context.Context, ownerID string) ([]Transaction, error)
}
