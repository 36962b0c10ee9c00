package pocket

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Status gates every balance-changing operation on a pocket.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// Type is the product a pocket was opened as.
type Type string

const (
	TypeSavings  Type = "SAVINGS"
	TypeBusiness Type = "BUSINESS"
)

var (
	// ErrNotFound is returned when no pocket matches the lookup.
	ErrNotFound = errors.New("pocket not found")
	// ErrOwnerHasAccount is returned when a customer already owns a pocket.
	ErrOwnerHasAccount = errors.New("customer already has a pocket")
	// ErrConflict is returned by UpdateBalance when the stored version moved.
	ErrConflict = errors.New("pocket version conflict")
	// ErrNegativeBalance is returned when a write would persist a negative balance.
	ErrNegativeBalance = errors.New("pocket balance cannot be negative")
)

// MinorUnits is the number of decimal places money is stored with.
const MinorUnits = 2

// FitsMinorUnits reports whether amount has no digits below MinorUnits.
func FitsMinorUnits(amount decimal.Decimal) bool {
	return amount.Equal(amount.Round(MinorUnits))
}

// Account is a customer's holding of funds in a single currency.
type Account struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"owner_id"`
	Status    Status          `json:"status"`
	Type      Type            `json:"type"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	Version   int64           `json:"version"`
	CreatedOn time.Time       `json:"created_on"`
	UpdatedOn time.Time       `json:"updated_on"`
}

// IsActive reports whether the pocket accepts movements.
func (a Account) IsActive() bool {
	return a.Status == StatusActive
}
