package trxmgr

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/secledger/secledger/internal/ledger"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type leg struct {
	acct   uuid.UUID
	value  string
	qty    string
	action ledger.Action
	memo   string
}

type fixture struct {
	store *ledger.MemoryStore
	bank  *ledger.Account
	stock *ledger.Account
	fees  *ledger.Account
}

func newFixture() *fixture {
	store := ledger.NewMemoryStore()
	f := &fixture{
		store: store,
		bank:  &ledger.Account{Name: "Brokerage Cash", Type: ledger.AccountTypeBank},
		stock: &ledger.Account{Name: "AAPL", Type: ledger.AccountTypeStock},
		fees:  &ledger.Account{Name: "Trading Fees", Type: ledger.AccountTypeExpense},
	}
	store.AddAccount(f.bank)
	store.AddAccount(f.stock)
	store.AddAccount(f.fees)
	return f
}

func (f *fixture) addTrx(t *testing.T, posted time.Time, descr string, legs []leg) *ledger.Transaction {
	t.Helper()
	ctx := context.Background()
	trx, err := f.store.NewTransaction(ctx)
	if err != nil {
		t.Fatalf("NewTransaction returned error: %v", err)
	}
	trx.DatePosted = posted
	trx.Description = descr
	if err := f.store.UpdateTransaction(ctx, trx); err != nil {
		t.Fatalf("UpdateTransaction returned error: %v", err)
	}
	for _, l := range legs {
		splt, err := f.store.NewSplit(ctx, trx.ID, l.acct)
		if err != nil {
			t.Fatalf("NewSplit returned error: %v", err)
		}
		splt.Value = dec(l.value)
		if l.qty != "" {
			splt.Quantity = dec(l.qty)
		} else {
			splt.Quantity = splt.Value
		}
		if l.action != "" {
			splt.SetAction(l.action)
		}
		splt.Description = l.memo
		if err := f.store.UpdateSplit(ctx, splt); err != nil {
			t.Fatalf("UpdateSplit returned error: %v", err)
		}
	}
	return trx
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestTransactionFilterZeroValueMatchesAll(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	trx := f.addTrx(t, day(2024, 2, 15), "buy AAPL", []leg{
		{acct: f.bank.ID, value: "-500"},
		{acct: f.stock.ID, value: "500", qty: "10", action: ledger.ActionBuy},
	})

	flt := &TransactionFilter{}
	flt.Reset()
	ok, err := flt.Matches(ctx, f.store, ledger.DefaultTolerances(), trx, false, SplitLogicAnd)
	if err != nil {
		t.Fatalf("Matches returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected the reset filter to match everything")
	}
}

func TestTransactionFilterCriteria(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	tol := ledger.DefaultTolerances()
	trx := f.addTrx(t, day(2024, 2, 15), "Buy AAPL tranche", []leg{
		{acct: f.bank.ID, value: "-500"},
		{acct: f.stock.ID, value: "500", qty: "10", action: ledger.ActionBuy},
	})

	from := day(2024, 2, 16)
	flt := &TransactionFilter{DatePostedFrom: &from}
	if ok, _ := flt.Matches(ctx, f.store, tol, trx, false, SplitLogicAnd); ok {
		t.Fatalf("expected posted-from bound to reject")
	}

	// DateAlreadyFiltered skips the posted-date check.
	flt.DateAlreadyFiltered = true
	if ok, _ := flt.Matches(ctx, f.store, tol, trx, false, SplitLogicAnd); !ok {
		t.Fatalf("expected pre-filtered date bound to be skipped")
	}

	flt = &TransactionFilter{DescrPart: "aapl TRANCHE"}
	if ok, _ := flt.Matches(ctx, f.store, tol, trx, false, SplitLogicAnd); !ok {
		t.Fatalf("expected description match to be case-insensitive")
	}

	flt = &TransactionFilter{SplitCountFrom: 3}
	if ok, _ := flt.Matches(ctx, f.store, tol, trx, false, SplitLogicAnd); ok {
		t.Fatalf("expected split-count lower bound to reject")
	}
	flt = &TransactionFilter{SplitCountFrom: 2, SplitCountTo: 2}
	if ok, _ := flt.Matches(ctx, f.store, tol, trx, false, SplitLogicAnd); !ok {
		t.Fatalf("expected exact split count to match")
	}
}

func TestTransactionFilterSplitLogic(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	tol := ledger.DefaultTolerances()
	trx := f.addTrx(t, day(2024, 2, 15), "buy", []leg{
		{acct: f.bank.ID, value: "-500"},
		{acct: f.stock.ID, value: "500", qty: "10", action: ledger.ActionBuy},
	})

	buy := ledger.ActionBuy
	flt := &TransactionFilter{Split: SplitFilter{Action: &buy}}

	// Only one of the two splits carries the BUY action.
	if ok, _ := flt.Matches(ctx, f.store, tol, trx, true, SplitLogicAnd); ok {
		t.Fatalf("expected AND over mixed splits to reject")
	}
	if ok, _ := flt.Matches(ctx, f.store, tol, trx, true, SplitLogicOr); !ok {
		t.Fatalf("expected OR over mixed splits to match")
	}

	// Ignoring splits ignores the split filter.
	if ok, _ := flt.Matches(ctx, f.store, tol, trx, false, SplitLogicAnd); !ok {
		t.Fatalf("expected withSplits=false to skip the split filter")
	}
}

func TestSplitFilterCriteria(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	tol := ledger.DefaultTolerances()
	trx := f.addTrx(t, day(2024, 2, 15), "buy", []leg{
		{acct: f.bank.ID, value: "-500", memo: "settlement"},
		{acct: f.stock.ID, value: "500", qty: "10", action: ledger.ActionBuy},
	})
	bankSplit, stockSplit := trx.Splits[0], trx.Splits[1]

	stockType := ledger.AccountTypeStock
	flt := &SplitFilter{AccountType: &stockType}
	if ok, _ := flt.Matches(ctx, f.store, tol, bankSplit); ok {
		t.Fatalf("expected account-type criterion to reject the bank split")
	}
	if ok, _ := flt.Matches(ctx, f.store, tol, stockSplit); !ok {
		t.Fatalf("expected account-type criterion to match the stock split")
	}

	// Sign-insensitive value range.
	from, to := dec("400"), dec("600")
	flt = &SplitFilter{ValueFrom: &from, ValueTo: &to, ValueAbs: true}
	if ok, _ := flt.Matches(ctx, f.store, tol, bankSplit); !ok {
		t.Fatalf("expected abs value range to match the negative split")
	}
	flt.ValueAbs = false
	if ok, _ := flt.Matches(ctx, f.store, tol, bankSplit); ok {
		t.Fatalf("expected signed value range to reject the negative split")
	}

	// Range bounds compare with tolerance.
	edge := dec("500.004")
	flt = &SplitFilter{ValueFrom: &edge}
	if ok, _ := flt.Matches(ctx, f.store, tol, stockSplit); !ok {
		t.Fatalf("expected bound within tolerance to match")
	}

	// Untagged splits never match an action criterion.
	buy := ledger.ActionBuy
	flt = &SplitFilter{Action: &buy}
	if ok, _ := flt.Matches(ctx, f.store, tol, bankSplit); ok {
		t.Fatalf("expected untagged split to fail the action criterion")
	}

	flt = &SplitFilter{DescrPart: "settle"}
	if ok, _ := flt.Matches(ctx, f.store, tol, bankSplit); !ok {
		t.Fatalf("expected memo substring to match")
	}
	flt = &SplitFilter{DescrPart: "SETTLE"}
	if ok, _ := flt.Matches(ctx, f.store, tol, bankSplit); ok {
		t.Fatalf("expected memo match to be case-sensitive")
	}

	flt = &SplitFilter{AccountID: f.fees.ID}
	if ok, _ := flt.Matches(ctx, f.store, tol, bankSplit); ok {
		t.Fatalf("expected account criterion to reject")
	}
}

func TestSplitFilterReset(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	tol := ledger.DefaultTolerances()
	trx := f.addTrx(t, day(2024, 2, 15), "buy", []leg{
		{acct: f.bank.ID, value: "-500"},
	})

	buy := ledger.ActionBuy
	from := dec("1000")
	flt := &SplitFilter{Action: &buy, ValueFrom: &from, AccountID: f.stock.ID, DescrPart: "x"}
	if ok, _ := flt.Matches(ctx, f.store, tol, trx.Splits[0]); ok {
		t.Fatalf("expected configured filter to reject")
	}
	flt.Reset()
	if ok, _ := flt.Matches(ctx, f.store, tol, trx.Splits[0]); !ok {
		t.Fatalf("expected reset filter to match")
	}
}
