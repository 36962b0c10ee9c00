package payments

import (
	"context"
	"errors"

	"github.com/clever-bank/clever_bank/internal/apperr"
	"github.com/clever-bank/clever_bank/internal/ledger"
)

// Statement returns the latest SUCCEEDED entries of a pocket, newest first.
func (s *Service) Statement(ctx context.Context, accountID string) ([]ledger.Transaction, error) {
	if _, err := s.load(ctx, accountID); err != nil {
		return nil, err
	}
	return s.ledger.RecentByAccount(ctx, accountID, s.opts.StatementSize)
}

// History returns every entry recorded on behalf of a customer, newest first.
func (s *Service) History(ctx context.Context, customerID string) ([]ledger.Transaction, error) {
	return s.ledger.AllByOwner(ctx, customerID)
}

// Transaction looks up a single ledger entry.
func (s *Service) Transaction(ctx context.Context, id string) (ledger.Transaction, error) {
	tx, err := s.ledger.Get(ctx, id)
	if errors.Is(err, ledger.ErrNotFound) {
		return ledger.Transaction{}, apperr.NotFound(err, "Transaction not found")
	}
	return tx, err
}
