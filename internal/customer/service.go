package customer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/clever-bank/clever_bank/internal/apperr"
	"github.com/clever-bank/clever_bank/internal/logging"
	"github.com/clever-bank/clever_bank/internal/pocket"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// PocketOpener opens the onboarding pocket of a new customer.
type PocketOpener interface {
	Open(ctx context.Context, ownerID string) (pocket.Account, error)
}

// Service manages the customer directory.
type Service struct {
	repo    Repository
	pockets PocketOpener
	logger  *slog.Logger
}

// NewService creates a new customer service.
func NewService(repo Repository, pockets PocketOpener, logger *slog.Logger) *Service {
	return &Service{repo: repo, pockets: pockets, logger: logging.Component(logger, "customer")}
}

// RegisterInput is the onboarding form.
type RegisterInput struct {
	Username  string
	FirstName string
	LastName  string
	Email     string
}

// Validate checks the onboarding form.
func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Username, validation.Required, validation.Length(3, 32), validation.Match(usernamePattern)),
		validation.Field(&in.FirstName, validation.Required, validation.Length(1, 64)),
		validation.Field(&in.LastName, validation.Length(0, 64)),
		validation.Field(&in.Email, validation.Required, validation.Match(emailPattern)),
	)
}

// Register stores the customer and opens their pocket.
func (s *Service) Register(ctx context.Context, input RegisterInput) (Customer, pocket.Account, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := input.Validate(); err != nil {
		return Customer{}, pocket.Account{}, apperr.Wrap(apperr.KindInvalidInput, err, "Invalid customer")
	}

	c := Customer{
		ID:        uuid.NewString(),
		Username:  input.Username,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		CreatedOn: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return Customer{}, pocket.Account{}, apperr.Wrap(apperr.KindConflict, err, "Username already taken")
		}
		return Customer{}, pocket.Account{}, fmt.Errorf("create customer: %w", err)
	}

	account, err := s.pockets.Open(ctx, c.ID)
	if err != nil {
		s.logger.Error("open pocket for new customer", "customer_id", c.ID, "error", err)
		return c, pocket.Account{}, err
	}

	s.logger.Info("customer registered", "customer_id", c.ID, "username", c.Username, "account_id", account.ID)
	return c, account, nil
}

// Get returns a customer by id.
func (s *Service) Get(ctx context.Context, id string) (Customer, error) {
	c, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Customer{}, apperr.NotFound(err, "Customer not found")
	}
	return c, err
}

// FindByUsername returns a customer by username.
func (s *Service) FindByUsername(ctx context.Context, username string) (Customer, error) {
	c, err := s.repo.FindByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return Customer{}, apperr.NotFound(err, "Customer %s not found", username)
	}
	return c, err
}
