package pocket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository persists pockets. UpdateBalance is the only way a balance moves
// and is a compare-and-swap on Version.
type Repository interface {
	Create(ctx context.Context, account Account) error
	Get(ctx context.Context, id string) (Account, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Account, error)
	ListByStatus(ctx context.Context, status Status) ([]Account, error)
	UpdateBalance(ctx context.Context, id string, newBalance decimal.Decimal, expectedVersion int64) (Account, error)
	SetStatus(ctx context.Context, id string, status Status) (Account, error)
}

const uniqueViolation = "23505"

const accountColumns = `id, owner_id, status, type, balance, currency, version, created_on, updated_on`

// PostgresRepository stores pockets in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a pocket record.
func (r *PostgresRepository) Create(ctx context.Context, account Account) error {
	accountID, err := uuid.Parse(account.ID)
	if err != nil {
		return err
	}
	ownerID, err := uuid.Parse(account.OwnerID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO pockets (id, owner_id, status, type, balance, currency, version, created_on, updated_on)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		accountID, ownerID, string(account.Status), string(account.Type), account.Balance, account.Currency,
		account.Version, account.CreatedOn.UTC(), account.UpdatedOn.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrOwnerHasAccount
		}
		return err
	}
	return nil
}

// Get fetches a pocket by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Account, error) {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return Account{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM pockets WHERE id = $1`, accountID)
	return scanAccount(row)
}

// ListByOwner returns the owner's pockets, oldest first.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]Account, error) {
	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM pockets
        WHERE owner_id = $1 ORDER BY created_on ASC, id ASC`, owner)
	if err != nil {
		return nil, err
	}
	return collectAccounts(rows)
}

// ListByStatus returns every pocket in the given status, oldest first.
func (r *PostgresRepository) ListByStatus(ctx context.Context, status Status) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM pockets
        WHERE status = $1 ORDER BY created_on ASC, id ASC`, string(status))
	if err != nil {
		return nil, err
	}
	return collectAccounts(rows)
}

// UpdateBalance writes newBalance if the stored version still equals expectedVersion.
func (r *PostgresRepository) UpdateBalance(ctx context.Context, id string, newBalance decimal.Decimal, expectedVersion int64) (Account, error) {
	if newBalance.IsNegative() {
		return Account{}, ErrNegativeBalance
	}
	accountID, err := uuid.Parse(id)
	if err != nil {
		return Account{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `UPDATE pockets
        SET balance = $2, version = version + 1, updated_on = $3
        WHERE id = $1 AND version = $4
        RETURNING `+accountColumns, accountID, newBalance, time.Now().UTC(), expectedVersion)
	account, err := scanAccount(row)
	if errors.Is(err, ErrNotFound) {
		// Either the pocket is gone or someone else bumped the version.
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return Account{}, getErr
		}
		return Account{}, ErrConflict
	}
	return account, err
}

// SetStatus flips the pocket status.
func (r *PostgresRepository) SetStatus(ctx context.Context, id string, status Status) (Account, error) {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return Account{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `UPDATE pockets SET status = $2, updated_on = $3
        WHERE id = $1 RETURNING `+accountColumns, accountID, string(status), time.Now().UTC())
	return scanAccount(row)
}

func scanAccount(row pgx.Row) (Account, error) {
	var (
		a                    Account
		id, ownerID          uuid.UUID
		status, accountType  string
		createdOn, updatedOn time.Time
	)
	if err := row.Scan(&id, &ownerID, &status, &accountType, &a.Balance, &a.Currency, &a.Version, &createdOn, &updatedOn); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, fmt.Errorf("scan pocket: %w", err)
	}
	a.ID = id.String()
	a.OwnerID = ownerID.String()
	a.Status = Status(status)
	a.Type = Type(accountType)
	a.CreatedOn = createdOn.UTC()
	a.UpdatedOn = updatedOn.UTC()
	return a, nil
}

func collectAccounts(rows pgx.Rows) ([]Account, error) {
	defer rows.Close()
	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
