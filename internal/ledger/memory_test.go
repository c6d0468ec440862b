package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestMemoryStoreBalanceFoldsSplitQuantities(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	acct := &Account{Name: "AAPL", Type: AccountTypeStock, Balance: decimal.NewFromInt(100)}
	store.AddAccount(acct)

	trx, err := store.NewTransaction(ctx)
	if err != nil {
		t.Fatalf("NewTransaction returned error: %v", err)
	}
	splt, err := store.NewSplit(ctx, trx.ID, acct.ID)
	if err != nil {
		t.Fatalf("NewSplit returned error: %v", err)
	}
	splt.Quantity = decimal.NewFromInt(15)
	if err := store.UpdateSplit(ctx, splt); err != nil {
		t.Fatalf("UpdateSplit returned error: %v", err)
	}

	got, err := store.AccountByID(ctx, acct.ID)
	if err != nil {
		t.Fatalf("AccountByID returned error: %v", err)
	}
	if !got.Balance.Equal(decimal.NewFromInt(115)) {
		t.Fatalf("expected balance 115 got %s", got.Balance)
	}
}

func TestMemoryStoreDateRangeInclusive(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	dates := []time.Time{
		time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC),
	}
	for _, d := range dates {
		trx, err := store.NewTransaction(ctx)
		if err != nil {
			t.Fatalf("NewTransaction returned error: %v", err)
		}
		trx.DatePosted = d
		if err := store.UpdateTransaction(ctx, trx); err != nil {
			t.Fatalf("UpdateTransaction returned error: %v", err)
		}
	}

	got, err := store.TransactionsByDateRange(ctx, dates[0], dates[1])
	if err != nil {
		t.Fatalf("TransactionsByDateRange returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 transactions in range got %d", len(got))
	}
}

func TestMemoryStoreRemoveTransactionCascades(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	acct := &Account{Name: "Bank", Type: AccountTypeBank}
	store.AddAccount(acct)

	trx, err := store.NewTransaction(ctx)
	if err != nil {
		t.Fatalf("NewTransaction returned error: %v", err)
	}
	splt, err := store.NewSplit(ctx, trx.ID, acct.ID)
	if err != nil {
		t.Fatalf("NewSplit returned error: %v", err)
	}

	if err := store.RemoveTransaction(ctx, trx.ID); err != nil {
		t.Fatalf("RemoveTransaction returned error: %v", err)
	}
	if _, err := store.SplitByID(ctx, splt.ID); !errors.Is(err, ErrSplitNotFound) {
		t.Fatalf("expected ErrSplitNotFound after cascade got %v", err)
	}
	if _, err := store.TransactionByID(ctx, trx.ID); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound got %v", err)
	}
	all, err := store.Transactions(ctx)
	if err != nil {
		t.Fatalf("Transactions returned error: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected empty store got %d transactions", len(all))
	}
}

func TestMemoryStoreRemoveSplitChecksMembership(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	acct := &Account{Name: "Bank", Type: AccountTypeBank}
	store.AddAccount(acct)

	trxA, _ := store.NewTransaction(ctx)
	trxB, _ := store.NewTransaction(ctx)
	splt, err := store.NewSplit(ctx, trxA.ID, acct.ID)
	if err != nil {
		t.Fatalf("NewSplit returned error: %v", err)
	}

	if err := store.RemoveSplit(ctx, trxB.ID, splt.ID); !errors.Is(err, ErrSplitNotInTransaction) {
		t.Fatalf("expected ErrSplitNotInTransaction got %v", err)
	}
	if err := store.RemoveSplit(ctx, trxA.ID, splt.ID); err != nil {
		t.Fatalf("RemoveSplit returned error: %v", err)
	}
}

func TestMemoryStoreNotFoundErrors(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.AccountByID(ctx, uuid.New()); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound got %v", err)
	}
	if _, err := store.LotsByAccount(ctx, uuid.New()); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound got %v", err)
	}
	if _, err := store.NewSplit(ctx, uuid.New(), uuid.New()); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound got %v", err)
	}
}
