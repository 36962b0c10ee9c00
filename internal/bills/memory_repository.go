package bills

import (
	"context"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Bill
	numbers map[string]string
}

// NewMemoryRepository constructs an in-memory bill store for tests and dev mode.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		storage: make(map[string]Bill),
		numbers: make(map[string]string),
	}
}

func (r *memoryRepository) Create(_ context.Context, bill Bill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.numbers[bill.BillNumber]; exists {
		return ErrDuplicateNumber
	}
	r.storage[bill.ID] = bill
	r.numbers[bill.BillNumber] = bill.ID
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Bill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bill, ok := r.storage[id]
	if !ok {
		return Bill{}, ErrNotFound
	}
	return bill, nil
}

func (r *memoryRepository) ListByCustomer(_ context.Context, customerID string) ([]Bill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Bill
	for _, b := range r.storage {
		if b.CustomerID == customerID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedOn.After(out[j].CreatedOn) })
	return out, nil
}

func (r *memoryRepository) Update(_ context.Context, bill Bill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.storage[bill.ID]
	if !ok {
		return ErrNotFound
	}
	stored.Status = bill.Status
	stored.TransactionID = bill.TransactionID
	stored.UpdatedOn = bill.UpdatedOn
	r.storage[bill.ID] = stored
	return nil
}

func (r *memoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	bill, ok := r.storage[id]
	if !ok {
		return ErrNotFound
	}
	delete(r.storage, id)
	delete(r.numbers, bill.BillNumber)
	return nil
}
