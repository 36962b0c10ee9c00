package bills

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists bills.
type Repository interface {
	Create(ctx context.Context, bill Bill) error
	Get(ctx context.Context, id string) (Bill, error)
	ListByCustomer(ctx context.Context, customerID string) ([]Bill, error)
	Update(ctx context.Context, bill Bill) error
	Delete(ctx context.Context, id string) error
}

const billColumns = `id, customer_id, bill_number, description, amount, category, status, transaction_id, created_on, updated_on`

// PostgresRepository stores bills in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed bill repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a bill.
func (r *PostgresRepository) Create(ctx context.Context, bill Bill) error {
	billID, err := uuid.Parse(bill.ID)
	if err != nil {
		return err
	}
	customerID, err := uuid.Parse(bill.CustomerID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO bills (`+billColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		billID, customerID, bill.BillNumber, bill.Description, bill.Amount, string(bill.Category),
		string(bill.Status), bill.TransactionID, bill.CreatedOn.UTC(), bill.UpdatedOn.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateNumber
	}
	return err
}

// Get fetches a bill by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Bill, error) {
	billID, err := uuid.Parse(id)
	if err != nil {
		return Bill{}, ErrNotFound
	}
	return scanBill(r.db.QueryRow(ctx, `SELECT `+billColumns+` FROM bills WHERE id = $1`, billID))
}

// ListByCustomer returns the customer's bills, newest first.
func (r *PostgresRepository) ListByCustomer(ctx context.Context, customerID string) ([]Bill, error) {
	customer, err := uuid.Parse(customerID)
	if err != nil {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+billColumns+` FROM bills
        WHERE customer_id = $1 ORDER BY created_on DESC`, customer)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Update stores the bill status and settlement reference.
func (r *PostgresRepository) Update(ctx context.Context, bill Bill) error {
	billID, err := uuid.Parse(bill.ID)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE bills SET status = $2, transaction_id = $3, updated_on = $4 WHERE id = $1`,
		billID, string(bill.Status), bill.TransactionID, bill.UpdatedOn.UTC())
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a bill.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	billID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `DELETE FROM bills WHERE id = $1`, billID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanBill(row pgx.Row) (Bill, error) {
	var (
		b                    Bill
		id, customerID       uuid.UUID
		category, status     string
		createdOn, updatedOn time.Time
	)
	if err := row.Scan(&id, &customerID, &b.BillNumber, &b.Description, &b.Amount, &category, &status,
		&b.TransactionID, &createdOn, &updatedOn); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bill{}, ErrNotFound
		}
		return Bill{}, err
	}
	b.ID = id.String()
	b.CustomerID = customerID.String()
	b.Category = Category(category)
	b.Status = Status(status)
	b.CreatedOn = createdOn.UTC()
	b.UpdatedOn = updatedOn.UTC()
	return b, nil
}
