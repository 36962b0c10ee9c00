// Package bills settles utility bills through the payments engine.
package bills

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clever-bank/clever_bank/internal/apperr"
	"github.com/clever-bank/clever_bank/internal/customer"
	"github.com/clever-bank/clever_bank/internal/ledger"
	"github.com/clever-bank/clever_bank/internal/lock"
	"github.com/clever-bank/clever_bank/internal/logging"
	"github.com/clever-bank/clever_bank/internal/notification"
	"github.com/clever-bank/clever_bank/internal/pocket"
)

// Withdrawer debits a pocket and records the attempt.
type Withdrawer interface {
	Withdraw(ctx context.Context, accountID string, amount decimal.Decimal, description string) (ledger.Transaction, error)
}

// ActivePockets finds the pocket a customer pays from.
type ActivePockets interface {
	FirstActive(ctx context.Context, ownerID string) (pocket.Account, error)
}

// Customers checks that a bill's customer exists.
type Customers interface {
	Get(ctx context.Context, id string) (customer.Customer, error)
}

// Service manages bills.
type Service struct {
	repo      Repository
	customers Customers
	pockets   ActivePockets
	payments  Withdrawer
	locker    lock.Locker
	notifier  notification.Notifier
	logger    *slog.Logger
}

// NewService builds a bill service. notifier may be nil.
func NewService(repo Repository, customers Customers, pockets ActivePockets, payments Withdrawer, locker lock.Locker, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		customers: customers,
		pockets:   pockets,
		payments:  payments,
		locker:    locker,
		notifier:  notifier,
		logger:    logging.Component(logger, "bills"),
	}
}

// CreateInput is the bill form.
type CreateInput struct {
	CustomerID  string
	BillNumber  string
	Description string
	Amount      decimal.Decimal
	Category    Category
}

// Validate checks the bill form.
func (in CreateInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.CustomerID, validation.Required),
		validation.Field(&in.BillNumber, validation.Required, validation.Length(4, 10)),
		validation.Field(&in.Description, validation.Length(2, 100)),
		validation.Field(&in.Amount, validation.By(func(value interface{}) error {
			v := value.(decimal.Decimal)
			if !v.IsPositive() {
				return errors.New("must be greater than zero")
			}
			if !pocket.FitsMinorUnits(v) {
				return errors.New("must have at most two decimal places")
			}
			return nil
		})),
		validation.Field(&in.Category, validation.In(
			CategoryElectricity, CategoryWater, CategoryGas, CategoryInternet, CategoryPhone, CategoryOther,
		)),
	)
}

// Create stores a PENDING bill for an existing customer.
func (s *Service) Create(ctx context.Context, input CreateInput) (Bill, error) {
	if input.Category == "" {
		input.Category = CategoryOther
	}
	if err := input.Validate(); err != nil {
		return Bill{}, apperr.Wrap(apperr.KindInvalidInput, err, "Invalid bill")
	}
	if _, err := s.customers.Get(ctx, input.CustomerID); err != nil {
		return Bill{}, err
	}

	now := time.Now().UTC()
	bill := Bill{
		ID:          uuid.NewString(),
		CustomerID:  input.CustomerID,
		BillNumber:  input.BillNumber,
		Description: input.Description,
		Amount:      input.Amount,
		Category:    input.Category,
		Status:      StatusPending,
		CreatedOn:   now,
		UpdatedOn:   now,
	}
	if err := s.repo.Create(ctx, bill); err != nil {
		if errors.Is(err, ErrDuplicateNumber) {
			return Bill{}, apperr.Wrap(apperr.KindConflict, err, "Bill number already exists")
		}
		return Bill{}, fmt.Errorf("create bill: %w", err)
	}
	s.logger.Info("bill created", "bill_id", bill.ID, "bill_number", bill.BillNumber, "customer_id", bill.CustomerID)
	return bill, nil
}

// Get returns a bill.
func (s *Service) Get(ctx context.Context, id string) (Bill, error) {
	bill, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Bill{}, apperr.NotFound(err, "Bill not found")
	}
	return bill, err
}

// ListByCustomer returns the customer's bills, newest first.
func (s *Service) ListByCustomer(ctx context.Context, customerID string) ([]Bill, error) {
	return s.repo.ListByCustomer(ctx, customerID)
}

// Delete removes a bill.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFound(err, "Bill not found")
		}
		return err
	}
	s.logger.Info("bill deleted", "bill_id", id)
	return nil
}

// PayBill settles a PENDING bill from the customer's first ACTIVE pocket.
// The withdrawal is always attempted. The bill is CANCELED when the pocket
// balance is strictly below the bill amount and PAID otherwise, so a bill
// equal to the balance ends PAID even though the withdrawal itself is
// refused for leaving the pocket empty.
func (s *Service) PayBill(ctx context.Context, billID string) (Bill, error) {
	release, err := lock.Acquire(ctx, s.locker, "bill:"+billID)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return Bill{}, apperr.Wrap(apperr.KindConflict, err, "Bill is being paid, try again")
		}
		return Bill{}, fmt.Errorf("lock bill: %w", err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("release bill lock", "bill_id", billID, "error", err)
		}
	}()

	bill, err := s.Get(ctx, billID)
	if err != nil {
		return Bill{}, err
	}
	switch bill.Status {
	case StatusPaid:
		return Bill{}, apperr.Conflict("Bill is already paid")
	case StatusCanceled:
		return Bill{}, apperr.Conflict("Bill is canceled")
	}

	account, err := s.pockets.FirstActive(ctx, bill.CustomerID)
	if err != nil {
		if errors.Is(err, pocket.ErrNoActivePocket) {
			return Bill{}, apperr.NotFound(err, "Active wallet not found")
		}
		return Bill{}, err
	}

	tx, err := s.payments.Withdraw(ctx, account.ID, bill.Amount, bill.Description)
	if err != nil {
		return Bill{}, err
	}

	bill.Status = StatusPaid
	if balanceAtAttempt(tx).LessThan(bill.Amount) {
		bill.Status = StatusCanceled
	}
	bill.TransactionID = tx.ID
	bill.UpdatedOn = time.Now().UTC()
	if err := s.repo.Update(ctx, bill); err != nil {
		return Bill{}, fmt.Errorf("update bill: %w", err)
	}

	s.logger.Info("bill settled", "bill_id", bill.ID, "status", bill.Status, "transaction_id", tx.ID, "transaction_status", tx.Status)
	if s.notifier != nil {
		msg := notification.Message{
			Kind:       notification.KindBillSettled,
			CustomerID: bill.CustomerID,
			Body:       fmt.Sprintf("Bill %s is %s", bill.BillNumber, bill.Status),
		}
		if err := s.notifier.Send(ctx, msg); err != nil {
			s.logger.Warn("notification", "kind", msg.Kind, "error", err)
		}
	}
	return bill, nil
}

// balanceAtAttempt is the pocket balance the withdrawal was evaluated
// against, read under the pocket lock.
func balanceAtAttempt(tx ledger.Transaction) decimal.Decimal {
	if tx.Succeeded() {
		return tx.RemainingBalance.Add(tx.Amount)
	}
	return tx.RemainingBalance
}
