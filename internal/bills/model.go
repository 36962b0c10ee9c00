package bills

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Status of a bill. PENDING is the only payable state.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusPaid     Status = "PAID"
	StatusCanceled Status = "CANCELED"
)

// Category groups utility bills.
type Category string

const (
	CategoryElectricity Category = "ELECTRICITY"
	CategoryWater       Category = "WATER"
	CategoryGas         Category = "GAS"
	CategoryInternet    Category = "INTERNET"
	CategoryPhone       Category = "PHONE"
	CategoryOther       Category = "OTHER"
)

var (
	// ErrNotFound is returned when no bill matches the identifier.
	ErrNotFound = errors.New("bill not found")
	// ErrDuplicateNumber is returned when the bill number is already used.
	ErrDuplicateNumber = errors.New("bill number already exists")
)

// Bill is a utility bill owed by a customer.
type Bill struct {
	ID          string          `json:"id"`
	CustomerID  string          `json:"customer_id"`
	BillNumber  string          `json:"bill_number"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    Category        `json:"category"`
	Status      Status          `json:"status"`
	// TransactionID is the ledger entry of the last settlement attempt.
	TransactionID string    `json:"transaction_id"`
	CreatedOn     time.Time `json:"created_on"`
	UpdatedOn     time.Time `json:"updated_on"`
}
