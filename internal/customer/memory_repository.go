package customer

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu         sync.RWMutex
	byID       map[string]Customer
	byUsername map[string]string
}

// NewMemoryRepository builds an in-memory customer store for tests and dev mode.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		byID:       make(map[string]Customer),
		byUsername: make(map[string]string),
	}
}

func (r *memoryRepository) Create(_ context.Context, c Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byUsername[c.Username]; exists {
		return ErrUsernameTaken
	}
	r.byID[c.ID] = c
	r.byUsername[c.Username] = c.ID
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	if !ok {
		return Customer{}, ErrNotFound
	}
	return c, nil
}

func (r *memoryRepository) FindByUsername(_ context.Context, username string) (Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byUsername[username]
	if !ok {
		return Customer{}, ErrNotFound
	}
	return r.byID[id], nil
}
