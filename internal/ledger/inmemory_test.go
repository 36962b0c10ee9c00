package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func entry(account, owner string, status Status) Transaction {
	return Transaction{
		CustomerID:       owner,
		AccountID:        account,
		Sender:           account,
		Receiver:         "Clever Bank Service Ltd",
		Amount:           decimal.NewFromInt(1),
		RemainingBalance: decimal.NewFromInt(10),
		Currency:         "USD",
		Type:             TypeWithdrawal,
		Status:           status,
	}
}

func TestInMemoryLedger_AppendAssignsIdentity(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	tx, err := l.Append(ctx, entry("a", "owner", StatusSucceeded))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if tx.ID == "" || tx.CreatedOn.IsZero() {
		t.Fatalf("expected id and timestamp to be assigned, got %+v", tx)
	}

	got, err := l.Get(ctx, tx.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != tx.ID || !got.Amount.Equal(tx.Amount) {
		t.Fatalf("unexpected entry: %+v", got)
	}

	if _, err := l.Get(ctx, uuid.NewString()); err != ErrNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestInMemoryLedger_RecentByAccountFiltersAndCaps(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	now := time.Now().UTC()

	var want []string
	for i := 0; i < 10; i++ {
		tx := entry("a", "owner", StatusSucceeded)
		tx.CreatedOn = now // identical timestamps: append order decides
		tx.Description = fmt.Sprintf("entry %d", i)
		stored, err := l.Append(ctx, tx)
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		want = append([]string{stored.ID}, want...)

		if _, err := l.Append(ctx, entry("a", "owner", StatusFailed)); err != nil {
			t.Fatalf("append failed entry: %v", err)
		}
		if _, err := l.Append(ctx, entry("b", "other", StatusSucceeded)); err != nil {
			t.Fatalf("append other entry: %v", err)
		}
	}

	recent, err := l.RecentByAccount(ctx, "a", 7)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 7 {
		t.Fatalf("expected 7 entries, got %d", len(recent))
	}
	for i, tx := range recent {
		if tx.Status != StatusSucceeded || tx.AccountID != "a" {
			t.Fatalf("unexpected entry in statement: %+v", tx)
		}
		if tx.ID != want[i] {
			t.Fatalf("entry %d out of order: got %s want %s", i, tx.ID, want[i])
		}
	}

	none, _ := l.RecentByAccount(ctx, "a", 0)
	if len(none) != 0 {
		t.Fatalf("expected empty statement for zero limit")
	}
}

func TestInMemoryLedger_AllByOwnerNewestFirst(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	first, _ := l.Append(ctx, entry("a", "owner", StatusFailed))
	second, _ := l.Append(ctx, entry("a", "owner", StatusSucceeded))
	l.Append(ctx, entry("b", "other", StatusSucceeded))

	history, err := l.AllByOwner(ctx, "owner")
	if err != nil {
		t.Fatalf("all by owner: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(history))
	}
	if history[0].ID != second.ID || history[1].ID != first.ID {
		t.Fatalf("history not newest first: %+v", history)
	}
}

func TestInMemoryLedger_ConcurrentAppends(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Append(ctx, entry("a", "owner", StatusSucceeded)); err != nil {
				t.Errorf("append: %v", err)
			}
		}()
	}
	wg.Wait()

	history, _ := l.AllByOwner(ctx, "owner")
	if len(history) != workers {
		t.Fatalf("expected %d entries, got %d", workers, len(history))
	}
}
