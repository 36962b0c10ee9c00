package customer

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists customers.
type Repository interface {
	Create(ctx context.Context, c Customer) error
	FindByID(ctx context.Context, id string) (Customer, error)
	FindByUsername(ctx context.Context, username string) (Customer, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed customer repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new customer.
func (r *PostgresRepository) Create(ctx context.Context, c Customer) error {
	customerID, err := uuid.Parse(c.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO customers (id, username, first_name, last_name, email, created_on)
        VALUES ($1, $2, $3, $4, $5, $6)`, customerID, c.Username, c.FirstName, c.LastName, c.Email, c.CreatedOn.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrUsernameTaken
	}
	return err
}

// FindByID fetches a customer by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Customer, error) {
	customerID, err := uuid.Parse(id)
	if err != nil {
		return Customer{}, ErrNotFound
	}
	return scanCustomer(r.db.QueryRow(ctx, `SELECT id, username, first_name, last_name, email, created_on
        FROM customers WHERE id = $1`, customerID))
}

// FindByUsername fetches a customer by username.
func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (Customer, error) {
	return scanCustomer(r.db.QueryRow(ctx, `SELECT id, username, first_name, last_name, email, created_on
        FROM customers WHERE username = $1`, username))
}

func scanCustomer(row pgx.Row) (Customer, error) {
	var (
		id        uuid.UUID
		createdOn time.Time
		c         Customer
	)
	if err := row.Scan(&id, &c.Username, &c.FirstName, &c.LastName, &c.Email, &createdOn); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, ErrNotFound
		}
		return Customer{}, err
	}
	c.ID = id.String()
	c.CreatedOn = createdOn.UTC()
	return c, nil
}
