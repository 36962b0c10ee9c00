package pocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clever-bank/clever_bank/internal/apperr"
	"github.com/clever-bank/clever_bank/internal/logging"
)

// ErrNoActivePocket is returned when a customer has no ACTIVE pocket.
var ErrNoActivePocket = errors.New("no active pocket")

// Options holds the onboarding defaults.
type Options struct {
	StartingBalance decimal.Decimal
	Currency        string
}

// Service manages the pocket lifecycle. Balances are only moved by the
// payments engine; this service never touches them after creation.
type Service struct {
	repo   Repository
	opts   Options
	logger *slog.Logger
}

// NewService builds a pocket service.
func NewService(repo Repository, opts Options, logger *slog.Logger) *Service {
	if opts.Currency == "" {
		opts.Currency = "USD"
	}
	return &Service{repo: repo, opts: opts, logger: logging.Component(logger, "pocket")}
}

// CreateInput captures data required to create a pocket.
type CreateInput struct {
	OwnerID        string
	InitialBalance decimal.Decimal
	Currency       string
	Type           Type
}

// Validate checks the input before anything is stored.
func (in CreateInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.OwnerID, validation.Required, validation.By(isUUID)),
		validation.Field(&in.Currency, validation.Required, validation.Length(3, 3)),
		validation.Field(&in.InitialBalance, validation.By(func(value interface{}) error {
			v := value.(decimal.Decimal)
			if v.IsNegative() {
				return errors.New("must not be negative")
			}
			if !FitsMinorUnits(v) {
				return errors.New("must have at most two decimal places")
			}
			return nil
		})),
		validation.Field(&in.Type, validation.In(TypeSavings, TypeBusiness)),
	)
}

// Create stores a new ACTIVE pocket for the owner.
func (s *Service) Create(ctx context.Context, input CreateInput) (Account, error) {
	input.Currency = strings.ToUpper(input.Currency)
	if input.Type == "" {
		input.Type = TypeBusiness
	}
	if err := input.Validate(); err != nil {
		return Account{}, apperr.Wrap(apperr.KindInvalidInput, err, "Invalid pocket")
	}

	now := time.Now().UTC()
	account := Account{
		ID:        uuid.NewString(),
		OwnerID:   input.OwnerID,
		Status:    StatusActive,
		Type:      input.Type,
		Balance:   input.InitialBalance,
		Currency:  input.Currency,
		CreatedOn: now,
		UpdatedOn: now,
	}
	if err := s.repo.Create(ctx, account); err != nil {
		if errors.Is(err, ErrOwnerHasAccount) {
			return Account{}, apperr.Wrap(apperr.KindConflict, err, "Customer already has a pocket")
		}
		return Account{}, fmt.Errorf("create pocket: %w", err)
	}

	s.logger.Info("pocket opened", "account_id", account.ID, "owner_id", account.OwnerID, "balance", account.Balance.StringFixed(2))
	return account, nil
}

// Open creates the onboarding pocket with the configured starting balance.
func (s *Service) Open(ctx context.Context, ownerID string) (Account, error) {
	return s.Create(ctx, CreateInput{
		OwnerID:        ownerID,
		InitialBalance: s.opts.StartingBalance,
		Currency:       s.opts.Currency,
		Type:           TypeBusiness,
	})
}

// Get retrieves a pocket.
func (s *Service) Get(ctx context.Context, id string) (Account, error) {
	account, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Account{}, apperr.NotFound(err, "Pocket not found")
		}
		return Account{}, err
	}
	return account, nil
}

// ListByOwner returns the owner's pockets, oldest first.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]Account, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// FirstActive returns the owner's oldest ACTIVE pocket.
func (s *Service) FirstActive(ctx context.Context, ownerID string) (Account, error) {
	return FirstActive(ctx, s.repo, ownerID)
}

// FirstActive scans the owner's pockets in creation order and returns the
// first ACTIVE one, or ErrNoActivePocket.
func FirstActive(ctx context.Context, repo Repository, ownerID string) (Account, error) {
	accounts, err := repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return Account{}, err
	}
	for _, a := range accounts {
		if a.IsActive() {
			return a, nil
		}
	}
	return Account{}, ErrNoActivePocket
}

// SetStatus forces the pocket into status.
func (s *Service) SetStatus(ctx context.Context, id string, status Status) (Account, error) {
	if status != StatusActive && status != StatusInactive {
		return Account{}, apperr.InvalidInput("Unknown pocket status %q", status)
	}
	account, err := s.repo.SetStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Account{}, apperr.NotFound(err, "Pocket not found")
		}
		return Account{}, err
	}
	s.logger.Info("pocket status changed", "account_id", id, "status", status)
	return account, nil
}

// ToggleStatus flips ACTIVE and INACTIVE. The pocket must belong to ownerID;
// someone else's pocket is reported as not found.
func (s *Service) ToggleStatus(ctx context.Context, id, ownerID string) (Account, error) {
	account, err := s.Get(ctx, id)
	if err != nil {
		return Account{}, err
	}
	if account.OwnerID != ownerID {
		return Account{}, apperr.NotFound(ErrNotFound, "Pocket not found")
	}
	next := StatusInactive
	if !account.IsActive() {
		next = StatusActive
	}
	return s.SetStatus(ctx, id, next)
}

func isUUID(value interface{}) error {
	s, _ := value.(string)
	if _, err := uuid.Parse(s); err != nil {
		return errors.New("must be a valid UUID")
	}
	return nil
}
