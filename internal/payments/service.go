// Package payments is the fund-movement engine. Every operation reads the
// pocket, evaluates policy, mutates the balance if policy passes and always
// appends one ledger entry describing the outcome. Business refusals are
// FAILED transactions, never errors.
package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"

	"github.com/clever-bank/clever_bank/internal/apperr"
	"github.com/clever-bank/clever_bank/internal/customer"
	"github.com/clever-bank/clever_bank/internal/ledger"
	"github.com/clever-bank/clever_bank/internal/lock"
	"github.com/clever-bank/clever_bank/internal/logging"
	"github.com/clever-bank/clever_bank/internal/notification"
	"github.com/clever-bank/clever_bank/internal/pocket"
)

const (
	ReasonInactiveDeposit  = "Inactive pocket"
	ReasonSuccessDeposit   = "Success deposit!"
	ReasonInactiveWithdraw = "Inactive pocket status"
	ReasonInsufficient     = "Insufficient balance"
	ReasonSuccessWithdraw  = "Success withdrawal!"
	ReasonInvalidTransfer  = "Invalid transfer!"
	ReasonIncomingTransfer = "Incoming transfer!"
	ReasonReversal         = "Transfer reversed"

	MonthlyFeeDescription = "Monthly fee applied"
)

var (
	// ErrNotOwner indicates the caller does not own the source pocket.
	ErrNotOwner = errors.New("not owner of source pocket")
	// ErrTransferReversed is returned with the sender's withdrawal when the
	// receiver could not be credited and the sender was refunded.
	ErrTransferReversed = errors.New("transfer reversed")
)

// Customers resolves pocket owners.
type Customers interface {
	FindByID(ctx context.Context, id string) (customer.Customer, error)
	FindByUsername(ctx context.Context, username string) (customer.Customer, error)
}

// Options tunes the engine.
type Options struct {
	// BankName is the counterparty of fee charges.
	BankName string
	// BankLegalName is the counterparty of deposits and plain withdrawals.
	BankLegalName string
	MonthlyFee    decimal.Decimal
	StatementSize int
	// OperationTimeout bounds each operation; zero means no deadline.
	OperationTimeout time.Duration
	// MaxRetries caps re-evaluations after a version conflict.
	MaxRetries uint64
}

// Service moves funds between pockets and the bank.
type Service struct {
	accounts  pocket.Repository
	ledger    ledger.Ledger
	customers Customers
	locker    lock.Locker
	notifier  notification.Notifier
	opts      Options
	logger    *slog.Logger
}

// NewService constructs the engine. notifier may be nil.
func NewService(accounts pocket.Repository, led ledger.Ledger, customers Customers, locker lock.Locker, notifier notification.Notifier, opts Options, logger *slog.Logger) *Service {
	if opts.BankName == "" {
		opts.BankName = "Clever Bank"
	}
	if opts.BankLegalName == "" {
		opts.BankLegalName = "Clever Bank Service Ltd"
	}
	if opts.StatementSize <= 0 {
		opts.StatementSize = 7
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 5
	}
	return &Service{
		accounts:  accounts,
		ledger:    led,
		customers: customers,
		locker:    locker,
		notifier:  notifier,
		opts:      opts,
		logger:    logging.Component(logger, "payments"),
	}
}

// Deposit credits amount to the pocket. An inactive pocket records a FAILED
// deposit and keeps its balance.
func (s *Service) Deposit(ctx context.Context, accountID string, amount decimal.Decimal) (ledger.Transaction, error) {
	if err := checkAmount(amount); err != nil {
		return ledger.Transaction{}, err
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	release, err := s.lock(ctx, accountID)
	if err != nil {
		return ledger.Transaction{}, err
	}
	defer s.unlock(ctx, release)

	return s.apply(ctx, s.depositMove(accountID, amount))
}

// Withdraw debits amount from the pocket. Checks run in order: inactive
// pocket, then balance <= amount (withdrawing the whole balance fails).
func (s *Service) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal, description string) (ledger.Transaction, error) {
	return s.withdraw(ctx, accountID, amount, description, s.opts.BankLegalName)
}

func (s *Service) withdraw(ctx context.Context, accountID string, amount decimal.Decimal, description, receiver string) (ledger.Transaction, error) {
	if err := checkAmount(amount); err != nil {
		return ledger.Transaction{}, err
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	release, err := s.lock(ctx, accountID)
	if err != nil {
		return ledger.Transaction{}, err
	}
	defer s.unlock(ctx, release)

	return s.apply(ctx, s.withdrawMove(accountID, amount, description, receiver))
}

// Transfer debits the sender pocket and credits the receiver's first ACTIVE
// pocket. senderOwner must own senderAccountID. The sender's withdrawal entry
// is returned; the receiver gets its own DEPOSIT entry. An unknown receiver,
// or one without a usable pocket, records a single FAILED withdrawal.
func (s *Service) Transfer(ctx context.Context, senderAccountID, receiverUsername string, amount decimal.Decimal, senderOwner string) (ledger.Transaction, error) {
	if err := checkAmount(amount); err != nil {
		return ledger.Transaction{}, err
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	sender, err := s.load(ctx, senderAccountID)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if senderOwner != "" && sender.OwnerID != senderOwner {
		return ledger.Transaction{}, apperr.Wrap(apperr.KindForbidden, ErrNotOwner, "Pocket does not belong to the customer")
	}
	senderName := s.displayName(ctx, sender.OwnerID)
	description := fmt.Sprintf("Transfer from customer %s to customer %s with amount %s.", senderName, receiverUsername, amount.StringFixed(2))

	receiver, ok, err := s.resolveReceiver(ctx, receiverUsername, sender.Currency)
	if err != nil {
		return ledger.Transaction{}, err
	}

	keys := []string{sender.ID}
	if ok {
		keys = append(keys, receiver.ID)
	}
	release, err := s.lock(ctx, keys...)
	if err != nil {
		return ledger.Transaction{}, err
	}
	defer s.unlock(ctx, release)

	if !ok {
		return s.rejectTransfer(ctx, sender.ID, receiverUsername, amount, description)
	}

	withdrawal, err := s.apply(ctx, s.withdrawMove(sender.ID, amount, description, receiverUsername))
	if err != nil || !withdrawal.Succeeded() {
		return withdrawal, err
	}

	credit, err := s.apply(ctx, s.creditMove(receiver.ID, sender.ID, amount, senderName))
	if err == nil && credit.Succeeded() {
		s.notify(ctx, notification.Message{
			Kind:       notification.KindTransferReceived,
			CustomerID: receiver.OwnerID,
			Body:       credit.Description,
		})
		return withdrawal, nil
	}
	return withdrawal, s.reverse(ctx, withdrawal, credit, err)
}

// MonthlyFeeSweep charges the monthly fee to every ACTIVE pocket through the
// withdrawal rules. One pocket failing never stops the sweep.
func (s *Service) MonthlyFeeSweep(ctx context.Context) (SweepReport, error) {
	started := time.Now()
	accounts, err := s.accounts.ListByStatus(ctx, pocket.StatusActive)
	if err != nil {
		return SweepReport{}, fmt.Errorf("list active pockets: %w", err)
	}

	report := SweepReport{Accounts: len(accounts)}
	var errs []error
	for _, account := range accounts {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		tx, err := s.withdraw(ctx, account.ID, s.opts.MonthlyFee, MonthlyFeeDescription, s.opts.BankName)
		switch {
		case err != nil:
			report.Errored++
			errs = append(errs, fmt.Errorf("pocket %s: %w", account.ID, err))
			s.logger.Error("monthly fee", "account_id", account.ID, "error", err)
		case tx.Succeeded():
			report.Succeeded++
		default:
			report.Failed++
		}
	}

	s.logger.Info("monthly fee sweep finished",
		"accounts", report.Accounts,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"errored", report.Errored,
		"duration", time.Since(started).String(),
	)
	return report, errors.Join(errs...)
}

// SweepReport summarises one monthly fee run.
type SweepReport struct {
	Accounts  int
	Succeeded int
	Failed    int
	Errored   int
}

func (s *Service) rejectTransfer(ctx context.Context, senderID, receiverUsername string, amount decimal.Decimal, description string) (ledger.Transaction, error) {
	return s.apply(ctx, movement{
		accountID: senderID,
		amount:    amount,
		txType:    ledger.TypeWithdrawal,
		evaluate:  func(pocket.Account) string { return ReasonInvalidTransfer },
		entry: func(a pocket.Account) ledger.Transaction {
			return ledger.Transaction{Sender: a.ID, Receiver: receiverUsername, Description: description}
		},
	})
}

// reverse refunds the sender after a failed credit. It runs detached from
// ctx so an expired deadline cannot strand the debited funds.
func (s *Service) reverse(ctx context.Context, withdrawal, credit ledger.Transaction, creditErr error) error {
	cause := creditErr
	if cause == nil {
		cause = errors.New(credit.ReasonFailed)
	}
	s.logger.Error("transfer credit failed, reversing", "transaction_id", withdrawal.ID, "account_id", withdrawal.AccountID, "error", cause)

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.reversalTimeout())
	defer cancel()
	refund, err := s.apply(rctx, movement{
		accountID: withdrawal.AccountID,
		amount:    withdrawal.Amount,
		txType:    ledger.TypeDeposit,
		success:   ReasonReversal,
		entry: func(a pocket.Account) ledger.Transaction {
			return ledger.Transaction{
				Sender:      s.opts.BankLegalName,
				Receiver:    a.ID,
				Description: "Transfer reversal: " + withdrawal.Description,
			}
		},
	})
	if err != nil {
		s.logger.Error("transfer reversal failed", "transaction_id", withdrawal.ID, "account_id", withdrawal.AccountID, "error", err)
		return apperr.Wrap(apperr.KindInternal, errors.Join(cause, err), "Transfer could not be completed nor reversed")
	}
	return fmt.Errorf("%w: refunded by %s: %v", ErrTransferReversed, refund.ID, cause)
}

func (s *Service) reversalTimeout() time.Duration {
	if s.opts.OperationTimeout > 0 {
		return s.opts.OperationTimeout
	}
	return 30 * time.Second
}

// resolveReceiver returns the receiver's first ACTIVE pocket. ok is false
// when the transfer has no valid counterparty.
func (s *Service) resolveReceiver(ctx context.Context, username, currency string) (pocket.Account, bool, error) {
	c, err := s.customers.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			return pocket.Account{}, false, nil
		}
		return pocket.Account{}, false, fmt.Errorf("resolve receiver: %w", err)
	}
	account, err := pocket.FirstActive(ctx, s.accounts, c.ID)
	if err != nil {
		if errors.Is(err, pocket.ErrNoActivePocket) {
			return pocket.Account{}, false, nil
		}
		return pocket.Account{}, false, fmt.Errorf("resolve receiver pocket: %w", err)
	}
	if account.Currency != currency {
		return pocket.Account{}, false, nil
	}
	return account, true, nil
}

func (s *Service) displayName(ctx context.Context, ownerID string) string {
	c, err := s.customers.FindByID(ctx, ownerID)
	if err != nil {
		return ownerID
	}
	return c.Username
}

func (s *Service) load(ctx context.Context, id string) (pocket.Account, error) {
	account, err := s.accounts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, pocket.ErrNotFound) {
			return pocket.Account{}, apperr.NotFound(err, "Pocket not found")
		}
		return pocket.Account{}, fmt.Errorf("load pocket %s: %w", id, err)
	}
	return account, nil
}

func (s *Service) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.OperationTimeout > 0 {
		return context.WithTimeout(ctx, s.opts.OperationTimeout)
	}
	return context.WithCancel(ctx)
}

// checkAmount rejects amounts the stores cannot hold exactly.
func checkAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperr.InvalidInput("Amount must be greater than zero")
	}
	if !pocket.FitsMinorUnits(amount) {
		return apperr.InvalidInput("Amount must have at most %d decimal places", pocket.MinorUnits)
	}
	return nil
}

func (s *Service) lock(ctx context.Context, ids ...string) (lock.Release, error) {
	release, err := lock.Acquire(ctx, s.locker, ids...)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, apperr.Wrap(apperr.KindConflict, err, "Pocket is busy, try again")
		}
		return nil, fmt.Errorf("lock pockets: %w", err)
	}
	return release, nil
}

func (s *Service) unlock(ctx context.Context, release lock.Release) {
	if err := release(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("release pocket lock", "error", err)
	}
}

func (s *Service) notify(ctx context.Context, msg notification.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Warn("notification", "kind", msg.Kind, "error", err)
	}
}

func isConflict(err error) bool {
	return errors.Is(err, pocket.ErrConflict)
}

func retryPolicy(ctx context.Context, maxRetries uint64) backoff.BackOffContext {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 2 * time.Millisecond
	eb.MaxInterval = 50 * time.Millisecond
	eb.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(eb, maxRetries), ctx)
}
