package payments

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"

	"github.com/clever-bank/clever_bank/internal/apperr"
	"github.com/clever-bank/clever_bank/internal/ledger"
	"github.com/clever-bank/clever_bank/internal/pocket"
)

// movement is one balance change attempt on a single pocket.
type movement struct {
	accountID string
	amount    decimal.Decimal
	txType    ledger.Type
	// evaluate returns the refusal reason, or "" when the movement may go ahead.
	evaluate func(pocket.Account) string
	// success is recorded as ReasonFailed on SUCCEEDED entries.
	success string
	// entry fills counterparties and description.
	entry func(pocket.Account) ledger.Transaction
}

// apply evaluates m against the stored pocket, commits the new balance with a
// version check and appends exactly one ledger entry. A version conflict
// re-reads the pocket and evaluates again.
func (s *Service) apply(ctx context.Context, m movement) (ledger.Transaction, error) {
	tx, err := backoff.RetryWithData(func() (ledger.Transaction, error) {
		account, err := s.load(ctx, m.accountID)
		if err != nil {
			return ledger.Transaction{}, backoff.Permanent(err)
		}

		tx := m.entry(account)
		tx.CustomerID = account.OwnerID
		tx.AccountID = account.ID
		tx.Amount = m.amount
		tx.Currency = account.Currency
		tx.Type = m.txType

		if m.evaluate != nil {
			if reason := m.evaluate(account); reason != "" {
				tx.Status = ledger.StatusFailed
				tx.ReasonFailed = reason
				tx.RemainingBalance = account.Balance
				return tx, nil
			}
		}

		next := account.Balance.Add(m.amount)
		if m.txType == ledger.TypeWithdrawal {
			next = account.Balance.Sub(m.amount)
		}
		updated, err := s.accounts.UpdateBalance(ctx, account.ID, next, account.Version)
		if err != nil {
			if isConflict(err) {
				return ledger.Transaction{}, err
			}
			return ledger.Transaction{}, backoff.Permanent(fmt.Errorf("update pocket %s: %w", account.ID, err))
		}

		tx.Status = ledger.StatusSucceeded
		tx.ReasonFailed = m.success
		tx.RemainingBalance = updated.Balance
		return tx, nil
	}, retryPolicy(ctx, s.opts.MaxRetries))
	if err != nil {
		if isConflict(err) {
			return ledger.Transaction{}, apperr.Wrap(apperr.KindConflict, err, "Pocket is busy, try again")
		}
		return ledger.Transaction{}, err
	}

	// The balance may already be committed; the entry must be written even
	// if the caller's deadline has passed.
	stored, err := s.ledger.Append(context.WithoutCancel(ctx), tx)
	if err != nil {
		s.logger.Error("append transaction", "account_id", tx.AccountID, "type", tx.Type, "status", tx.Status, "error", err)
		return ledger.Transaction{}, fmt.Errorf("append transaction: %w", err)
	}

	s.logger.Info("movement recorded",
		"transaction_id", stored.ID,
		"account_id", stored.AccountID,
		"type", stored.Type,
		"status", stored.Status,
		"amount", stored.Amount.StringFixed(2),
		"remaining_balance", stored.RemainingBalance.StringFixed(2),
	)
	return stored, nil
}

func (s *Service) depositMove(accountID string, amount decimal.Decimal) movement {
	return movement{
		accountID: accountID,
		amount:    amount,
		txType:    ledger.TypeDeposit,
		success:   ReasonSuccessDeposit,
		evaluate: func(a pocket.Account) string {
			if !a.IsActive() {
				return ReasonInactiveDeposit
			}
			return ""
		},
		entry: func(a pocket.Account) ledger.Transaction {
			return ledger.Transaction{
				Sender:      s.opts.BankLegalName,
				Receiver:    a.ID,
				Description: fmt.Sprintf("Your deposit up to %s %s", amount.StringFixed(2), a.Currency),
			}
		},
	}
}

func (s *Service) withdrawMove(accountID string, amount decimal.Decimal, description, receiver string) movement {
	if description == "" {
		description = "Withdrawal"
	}
	return movement{
		accountID: accountID,
		amount:    amount,
		txType:    ledger.TypeWithdrawal,
		success:   ReasonSuccessWithdraw,
		evaluate: func(a pocket.Account) string {
			switch {
			case !a.IsActive():
				return ReasonInactiveWithdraw
			case a.Balance.LessThanOrEqual(amount):
				return ReasonInsufficient
			default:
				return ""
			}
		},
		entry: func(a pocket.Account) ledger.Transaction {
			return ledger.Transaction{Sender: a.ID, Receiver: receiver, Description: description}
		},
	}
}

func (s *Service) creditMove(receiverID, senderID string, amount decimal.Decimal, senderName string) movement {
	return movement{
		accountID: receiverID,
		amount:    amount,
		txType:    ledger.TypeDeposit,
		success:   ReasonIncomingTransfer,
		evaluate: func(a pocket.Account) string {
			if !a.IsActive() {
				return ReasonInactiveDeposit
			}
			return ""
		},
		entry: func(a pocket.Account) ledger.Transaction {
			return ledger.Transaction{
				Sender:      senderID,
				Receiver:    a.ID,
				Description: fmt.Sprintf("Received from %s with amount %s", senderName, amount.StringFixed(2)),
			}
		},
	}
}
