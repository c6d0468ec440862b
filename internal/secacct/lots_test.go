package secacct

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/secledger/secledger/internal/ledger"
)

func TestIsLotOK(t *testing.T) {
	f := newFixture()
	checker := NewLotChecker(f.store, ledger.DefaultTolerances(), nil)

	balanced := &ledger.Lot{
		AccountID: f.stock.ID,
		Title:     "tranche 1",
		Splits: []*ledger.Split{
			{Value: dec("3462")},
			{Value: dec("-1731")},
			{Value: dec("-1731")},
		},
	}
	if !checker.IsLotOK(balanced) {
		t.Fatalf("expected balanced lot to pass")
	}

	withinTolerance := &ledger.Lot{
		AccountID: f.stock.ID,
		Splits: []*ledger.Split{
			{Value: dec("100.004")},
			{Value: dec("-100")},
		},
	}
	if !checker.IsLotOK(withinTolerance) {
		t.Fatalf("expected lot within tolerance to pass")
	}

	open := &ledger.Lot{
		AccountID: f.stock.ID,
		Title:     "open position",
		Splits: []*ledger.Split{
			{Value: dec("3462")},
			{Value: dec("-1731")},
		},
	}
	if checker.IsLotOK(open) {
		t.Fatalf("expected open lot to fail")
	}

	empty := &ledger.Lot{AccountID: f.stock.ID, Title: "empty"}
	if checker.IsLotOK(empty) {
		t.Fatalf("expected empty lot to fail")
	}
}

func TestAreLotsOK(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	checker := NewLotChecker(f.store, ledger.DefaultTolerances(), nil)

	f.store.AddLot(&ledger.Lot{
		AccountID: f.stock.ID,
		Splits:    []*ledger.Split{{Value: dec("50")}, {Value: dec("-50")}},
	})
	ok, err := checker.AreLotsOK(ctx, f.stock.ID)
	if err != nil {
		t.Fatalf("AreLotsOK returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected all lots to pass")
	}

	f.store.AddLot(&ledger.Lot{
		AccountID: f.stock.ID,
		Splits:    []*ledger.Split{{Value: dec("50")}, {Value: decimal.Zero}},
	})
	ok, err = checker.AreLotsOK(ctx, f.stock.ID)
	if err != nil {
		t.Fatalf("AreLotsOK returned error: %v", err)
	}
	if ok {
		t.Fatalf("expected the open lot to fail the account")
	}
}

func TestAreLotsOKWrongAccountType(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	checker := NewLotChecker(f.store, ledger.DefaultTolerances(), nil)

	if _, err := checker.AreLotsOK(ctx, f.bank.ID); !errors.Is(err, ErrWrongAccountType) {
		t.Fatalf("expected ErrWrongAccountType got %v", err)
	}
}
