package trxmgr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secledger/secledger/internal/ledger"
)

type mergeObserverStub struct {
	merges [][2]string
	scans  []string
}

func (m *mergeObserverStub) ObserveMerge(strategy, outcome string) {
	m.merges = append(m.merges, [2]string{strategy, outcome})
}

func (m *mergeObserverStub) ObserveFinderScan(kind string, _ time.Duration) {
	m.scans = append(m.scans, kind)
}

type handlerFixture struct {
	*fixture
	router   chi.Router
	observer *mergeObserverStub
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	f := newFixture()
	tol := ledger.DefaultTolerances()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	finder := NewFinder(f.store, tol, logger)

	hf := &handlerFixture{fixture: f, observer: &mergeObserverStub{}}
	h := NewHandler(
		logger,
		f.store,
		tol,
		finder,
		finder,
		NewManager(f.store, tol, logger),
		hf.observer,
		nil,
	)
	hf.router = chi.NewRouter()
	h.MountRoutes(hf.router)
	return hf
}

func (hf *handlerFixture) post(t *testing.T, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	hf.router.ServeHTTP(rec, req)
	return rec
}

func TestHandleFindTransactions(t *testing.T) {
	hf := newHandlerFixture(t)
	hf.addTrx(t, day(2024, 3, 10), "buy AAPL tranche", []leg{
		{acct: hf.bank.ID, value: "-509.45"},
		{acct: hf.stock.ID, value: "500", qty: "10", action: ledger.ActionBuy},
		{acct: hf.fees.ID, value: "9.45"},
	})
	hf.addTrx(t, day(2024, 3, 12), "dividend AAPL", []leg{
		{acct: hf.bank.ID, value: "125.50"},
		{acct: hf.stock.ID, value: "-125.50"},
	})

	rec := hf.post(t, "/find/transactions", FindTransactionsRequest{
		Filter:     TransactionFilterDTO{DescrPart: "tranche"},
		WithSplits: true,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var out []TransactionDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "buy AAPL tranche", out[0].Description)
	assert.Equal(t, "2024-03-10", out[0].DatePosted)
	require.Len(t, out[0].Splits, 3)
	assert.Equal(t, string(ledger.ActionBuy), out[0].Splits[1].Action)

	assert.Equal(t, []string{"transactions"}, hf.observer.scans)
}

func TestHandleFindTransactionsRejectsUnknownLogic(t *testing.T) {
	hf := newHandlerFixture(t)

	rec := hf.post(t, "/find/transactions", FindTransactionsRequest{Logic: "XOR"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandleFindSplits(t *testing.T) {
	hf := newHandlerFixture(t)
	hf.addTrx(t, day(2024, 3, 10), "buy", []leg{
		{acct: hf.bank.ID, value: "-509.45"},
		{acct: hf.stock.ID, value: "500", qty: "10"},
		{acct: hf.fees.ID, value: "9.45"},
	})

	rec := hf.post(t, "/find/splits", FindSplitsRequest{
		Filter: SplitFilterDTO{AccountType: string(ledger.AccountTypeBank)},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var out []SplitDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "-509.45", out[0].Value)
	assert.Equal(t, []string{"splits"}, hf.observer.scans)
}

func TestHandleMergeSimple(t *testing.T) {
	hf := newHandlerFixture(t)
	survivor, dier := duplicatePair(t, hf.fixture)

	rec := hf.post(t, "/merge", MergeRequest{
		SurvivorID: survivor.ID.String(),
		DierID:     dier.ID.String(),
		Strategy:   "simple",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	if _, err := hf.store.TransactionByID(context.Background(), dier.ID); !errors.Is(err, ledger.ErrTransactionNotFound) {
		t.Fatalf("expected the dier to be removed got %v", err)
	}
	assert.Equal(t, [][2]string{{"simple", "merged"}}, hf.observer.merges)
}

func TestHandleMergeImplausiblePair(t *testing.T) {
	hf := newHandlerFixture(t)
	survivor := hf.addTrx(t, day(2024, 3, 10), "a", []leg{
		{acct: hf.bank.ID, value: "-10"},
		{acct: hf.stock.ID, value: "10"},
	})
	dier := hf.addTrx(t, day(2024, 3, 20), "b", []leg{
		{acct: hf.bank.ID, value: "-10"},
		{acct: hf.stock.ID, value: "10"},
	})

	rec := hf.post(t, "/merge", MergeRequest{
		SurvivorID: survivor.ID.String(),
		DierID:     dier.ID.String(),
		Strategy:   "simple",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, [][2]string{{"simple", "implausible"}}, hf.observer.merges)
}

func TestHandleMergeSurgeryRequiresSplitIDs(t *testing.T) {
	hf := newHandlerFixture(t)
	survivor, dier := duplicatePair(t, hf.fixture)

	rec := hf.post(t, "/merge", MergeRequest{
		SurvivorID: survivor.ID.String(),
		DierID:     dier.ID.String(),
		Strategy:   "surgery",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, hf.observer.merges)
}

func TestHandleSanity(t *testing.T) {
	hf := newHandlerFixture(t)
	trx := hf.addTrx(t, day(2024, 3, 10), "balanced", []leg{
		{acct: hf.bank.ID, value: "-10"},
		{acct: hf.stock.ID, value: "10"},
	})

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/transactions/%s/sane", trx.ID), nil)
	rec := httptest.NewRecorder()
	hf.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var result map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result["sane"])

	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/transactions/%s/sane", uuid.New()), nil)
	rec = httptest.NewRecorder()
	hf.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
