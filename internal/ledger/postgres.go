package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const transactionColumns = `id, customer_id, account_id, sender, receiver, amount, remaining_balance,
        currency, type, status, description, reason_failed, created_on`

// PostgresLedger persists ledger entries in PostgreSQL. The table is only
// ever inserted into; seq keeps append order for entries sharing created_on.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// Append inserts one transaction.
func (l *PostgresLedger) Append(ctx context.Context, tx Transaction) (Transaction, error) {
	stamp(&tx)
	id, err := uuid.Parse(tx.ID)
	if err != nil {
		return Transaction{}, fmt.Errorf("transaction id: %w", err)
	}
	customerID, err := uuid.Parse(tx.CustomerID)
	if err != nil {
		return Transaction{}, fmt.Errorf("customer id: %w", err)
	}
	accountID, err := uuid.Parse(tx.AccountID)
	if err != nil {
		return Transaction{}, fmt.Errorf("account id: %w", err)
	}

	_, err = l.db.Exec(ctx, `INSERT INTO transactions (`+transactionColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		id, customerID, accountID, tx.Sender, tx.Receiver, tx.Amount, tx.RemainingBalance,
		tx.Currency, string(tx.Type), string(tx.Status), tx.Description, tx.ReasonFailed, tx.CreatedOn.UTC())
	if err != nil {
		return Transaction{}, fmt.Errorf("append transaction: %w", err)
	}
	return tx, nil
}

// Get fetches a transaction by identifier.
func (l *PostgresLedger) Get(ctx context.Context, id string) (Transaction, error) {
	txID, err := uuid.Parse(id)
	if err != nil {
		return Transaction{}, ErrNotFound
	}
	row := l.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, txID)
	tx, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrNotFound
	}
	return tx, err
}

// RecentByAccount returns the latest SUCCEEDED entries of an account.
func (l *PostgresLedger) RecentByAccount(ctx context.Context, accountID string, limit int) ([]Transaction, error) {
	account, err := uuid.Parse(accountID)
	if err != nil || limit <= 0 {
		return nil, nil
	}
	rows, err := l.db.Query(ctx, `SELECT `+transactionColumns+` FROM transactions
        WHERE account_id = $1 AND status = $2
        ORDER BY created_on DESC, seq DESC
        LIMIT $3`, account, string(StatusSucceeded), limit)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

// AllByOwner returns the full history of a customer.
func (l *PostgresLedger) AllByOwner(ctx context.Context, ownerID string) ([]Transaction, error) {
	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return nil, nil
	}
	rows, err := l.db.Query(ctx, `SELECT `+transactionColumns+` FROM transactions
        WHERE customer_id = $1
        ORDER BY created_on DESC, seq DESC`, owner)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var (
		tx                        Transaction
		id, customerID, accountID uuid.UUID
		txType, status            string
		createdOn                 time.Time
	)
	if err := row.Scan(&id, &customerID, &accountID, &tx.Sender, &tx.Receiver, &tx.Amount, &tx.RemainingBalance,
		&tx.Currency, &txType, &status, &tx.Description, &tx.ReasonFailed, &createdOn); err != nil {
		return Transaction{}, err
	}
	tx.ID = id.String()
	tx.CustomerID = customerID.String()
	tx.AccountID = accountID.String()
	tx.Type = Type(txType)
	tx.Status = Status(status)
	tx.CreatedOn = createdOn.UTC()
	return tx, nil
}

func collectTransactions(rows pgx.Rows) ([]Transaction, error) {
	defer rows.Close()
	var out []Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}
