package pocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Account
	owners  map[string]string
}

// NewMemoryRepository constructs an in-memory repository for tests and dev mode.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		storage: make(map[string]Account),
		owners:  make(map[string]string),
	}
}

func (r *memoryRepository) Create(_ context.Context, account Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.owners[account.OwnerID]; exists {
		return ErrOwnerHasAccount
	}
	r.storage[account.ID] = account
	r.owners[account.OwnerID] = account.ID
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.storage[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return account, nil
}

func (r *memoryRepository) ListByOwner(_ context.Context, ownerID string) ([]Account, error) {
	return r.filter(func(a Account) bool { return a.OwnerID == ownerID }), nil
}

func (r *memoryRepository) ListByStatus(_ context.Context, status Status) ([]Account, error) {
	return r.filter(func(a Account) bool { return a.Status == status }), nil
}

func (r *memoryRepository) UpdateBalance(_ context.Context, id string, newBalance decimal.Decimal, expectedVersion int64) (Account, error) {
	if newBalance.IsNegative() {
		return Account{}, ErrNegativeBalance
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.storage[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	if account.Version != expectedVersion {
		return Account{}, ErrConflict
	}
	account.Balance = newBalance
	account.Version++
	account.UpdatedOn = time.Now().UTC()
	r.storage[id] = account
	return account, nil
}

func (r *memoryRepository) SetStatus(_ context.Context, id string, status Status) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.storage[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	account.Status = status
	account.UpdatedOn = time.Now().UTC()
	r.storage[id] = account
	return account, nil
}

func (r *memoryRepository) filter(keep func(Account) bool) []Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Account
	for _, a := range r.storage {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedOn.Equal(out[j].CreatedOn) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedOn.Before(out[j].CreatedOn)
	})
	return out
}
