package pocket

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clever-bank/clever_bank/internal/apperr"
	"github.com/clever-bank/clever_bank/internal/logging"
)

func newTestService() (*Service, Repository) {
	repo := NewMemoryRepository()
	svc := NewService(repo, Options{StartingBalance: decimal.RequireFromString("40.00"), Currency: "USD"}, logging.Discard())
	return svc, repo
}

func TestOpenUsesOnboardingDefaults(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	ownerID := uuid.NewString()

	account, err := svc.Open(ctx, ownerID)
	require.NoError(t, err)

	assert.Equal(t, ownerID, account.OwnerID)
	assert.Equal(t, StatusActive, account.Status)
	assert.Equal(t, TypeBusiness, account.Type)
	assert.Equal(t, "USD", account.Currency)
	assert.True(t, account.Balance.Equal(decimal.RequireFromString("40")))

	fetched, err := svc.Get(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, account.ID, fetched.ID)
}

func TestOpenTwiceForSameOwnerConflicts(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	ownerID := uuid.NewString()

	_, err := svc.Open(ctx, ownerID)
	require.NoError(t, err)

	_, err = svc.Open(ctx, ownerID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.ErrorIs(t, err, ErrOwnerHasAccount)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	cases := map[string]CreateInput{
		"owner not uuid":   {OwnerID: "bob", Currency: "USD"},
		"bad currency":     {OwnerID: uuid.NewString(), Currency: "US"},
		"negative balance": {OwnerID: uuid.NewString(), Currency: "USD", InitialBalance: decimal.NewFromInt(-1)},
		"unknown type":     {OwnerID: uuid.NewString(), Currency: "USD", Type: "GOLD"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(ctx, in)
			require.Error(t, err)
			assert.Equal(t, 400, apperr.Status(err))
		})
	}
}

func TestGetUnknownPocket(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Get(context.Background(), uuid.NewString())
	require.Error(t, err)
	assert.Equal(t, 404, apperr.Status(err))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestToggleStatus(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	ownerID := uuid.NewString()
	account, err := svc.Open(ctx, ownerID)
	require.NoError(t, err)

	toggled, err := svc.ToggleStatus(ctx, account.ID, ownerID)
	require.NoError(t, err)
	assert.Equal(t, StatusInactive, toggled.Status)

	toggled, err = svc.ToggleStatus(ctx, account.ID, ownerID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, toggled.Status)

	_, err = svc.ToggleStatus(ctx, account.ID, uuid.NewString())
	assert.Equal(t, 404, apperr.Status(err))
}

func TestFirstActiveFollowsCreationOrder(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	ownerID := uuid.NewString()
	base := time.Now().UTC()

	// The memory store allows a single pocket per owner, so the order is
	// exercised through ListByStatus across owners and FirstActive on one.
	older := Account{ID: uuid.NewString(), OwnerID: ownerID, Status: StatusInactive, CreatedOn: base}
	require.NoError(t, repo.Create(ctx, older))

	_, err := FirstActive(ctx, repo, ownerID)
	assert.ErrorIs(t, err, ErrNoActivePocket)

	_, err = repo.SetStatus(ctx, older.ID, StatusActive)
	require.NoError(t, err)
	got, err := FirstActive(ctx, repo, ownerID)
	require.NoError(t, err)
	assert.Equal(t, older.ID, got.ID)

	second := Account{ID: uuid.NewString(), OwnerID: uuid.NewString(), Status: StatusActive, CreatedOn: base.Add(-time.Hour)}
	require.NoError(t, repo.Create(ctx, second))
	active, err := repo.ListByStatus(ctx, StatusActive)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, second.ID, active[0].ID)
	assert.Equal(t, older.ID, active[1].ID)
}

func TestUpdateBalanceCompareAndSwap(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	account := Account{ID: uuid.NewString(), OwnerID: uuid.NewString(), Status: StatusActive, Balance: decimal.NewFromInt(10)}
	require.NoError(t, repo.Create(ctx, account))

	updated, err := repo.UpdateBalance(ctx, account.ID, decimal.NewFromInt(15), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.Version)
	assert.True(t, updated.Balance.Equal(decimal.NewFromInt(15)))

	_, err = repo.UpdateBalance(ctx, account.ID, decimal.NewFromInt(20), 0)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = repo.UpdateBalance(ctx, account.ID, decimal.NewFromInt(-1), 1)
	assert.ErrorIs(t, err, ErrNegativeBalance)

	_, err = repo.UpdateBalance(ctx, uuid.NewString(), decimal.NewFromInt(1), 0)
	assert.ErrorIs(t, err, ErrNotFound)

	stored, err := repo.Get(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(decimal.NewFromInt(15)))
}
