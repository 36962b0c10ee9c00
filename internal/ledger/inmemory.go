package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type inMemoryLedger struct {
	mu      sync.RWMutex
	entries []Transaction
	byID    map[string]int
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit tests.
func NewInMemory() Ledger {
	return &inMemoryLedger{byID: make(map[string]int)}
}

func (l *inMemoryLedger) Append(_ context.Context, tx Transaction) (Transaction, error) {
	stamp(&tx)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.byID[tx.ID] = len(l.entries)
	l.entries = append(l.entries, tx)
	return tx, nil
}

func (l *inMemoryLedger) Get(_ context.Context, id string) (Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	idx, ok := l.byID[id]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	return l.entries[idx], nil
}

func (l *inMemoryLedger) RecentByAccount(_ context.Context, accountID string, limit int) ([]Transaction, error) {
	if limit <= 0 {
		return nil, nil
	}
	return l.newestFirst(limit, func(tx Transaction) bool {
		return tx.AccountID == accountID && tx.Succeeded()
	}), nil
}

func (l *inMemoryLedger) AllByOwner(_ context.Context, ownerID string) ([]Transaction, error) {
	return l.newestFirst(0, func(tx Transaction) bool {
		return tx.CustomerID == ownerID
	}), nil
}

// newestFirst walks the log backwards. Append order is the tiebreak, so
// entries sharing a timestamp come out in reverse append order.
func (l *inMemoryLedger) newestFirst(limit int, keep func(Transaction) bool) []Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Transaction
	for i := len(l.entries) - 1; i >= 0; i-- {
		if !keep(l.entries[i]) {
			continue
		}
		out = append(out, l.entries[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func stamp(tx *Transaction) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedOn.IsZero() {
		tx.CreatedOn = time.Now().UTC()
	}
}
