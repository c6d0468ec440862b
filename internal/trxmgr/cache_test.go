package trxmgr

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secledger/secledger/internal/ledger"
)

func newTestCache(t *testing.T) *FinderCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewFinderCache(client, time.Minute)
}

func TestFinderCacheVersion(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache(t)

	ver, err := cache.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), ver)

	require.NoError(t, cache.Bump(ctx))
	ver, err = cache.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), ver)
}

func TestCachedFinderServesCachedResultsUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	tol := ledger.DefaultTolerances()
	cached := NewCachedFinder(NewFinder(f.store, tol, nil), newTestCache(t), nil)

	f.addTrx(t, day(2024, 3, 10), "first", []leg{
		{acct: f.bank.ID, value: "-10"},
		{acct: f.stock.ID, value: "10"},
	})

	flt := &TransactionFilter{}
	found, err := cached.FindTransactions(ctx, flt, true, SplitLogicAnd)
	require.NoError(t, err)
	require.Len(t, found, 1)

	// A mutation the cache has not been told about stays invisible.
	f.addTrx(t, day(2024, 3, 11), "second", []leg{
		{acct: f.bank.ID, value: "-20"},
		{acct: f.stock.ID, value: "20"},
	})
	found, err = cached.FindTransactions(ctx, flt, true, SplitLogicAnd)
	require.NoError(t, err)
	assert.Len(t, found, 1)

	cached.Invalidate(ctx)
	found, err = cached.FindTransactions(ctx, flt, true, SplitLogicAnd)
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestCachedFinderKeysOnFilter(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	tol := ledger.DefaultTolerances()
	cached := NewCachedFinder(NewFinder(f.store, tol, nil), newTestCache(t), nil)

	f.addTrx(t, day(2024, 3, 10), "tranche one", []leg{
		{acct: f.bank.ID, value: "-10"},
		{acct: f.stock.ID, value: "10"},
	})
	f.addTrx(t, day(2024, 3, 11), "dividend", []leg{
		{acct: f.bank.ID, value: "-20"},
		{acct: f.stock.ID, value: "20"},
	})

	all, err := cached.FindTransactions(ctx, &TransactionFilter{}, false, SplitLogicAnd)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	narrowed, err := cached.FindTransactions(ctx, &TransactionFilter{DescrPart: "tranche"}, false, SplitLogicAnd)
	require.NoError(t, err)
	require.Len(t, narrowed, 1)
	assert.Equal(t, "tranche one", narrowed[0].Description)
}

func TestCachedFinderNilClientPassThrough(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	tol := ledger.DefaultTolerances()
	cached := NewCachedFinder(NewFinder(f.store, tol, nil), NewFinderCache(nil, time.Minute), nil)

	f.addTrx(t, day(2024, 3, 10), "first", []leg{
		{acct: f.bank.ID, value: "-10"},
		{acct: f.stock.ID, value: "10"},
	})
	found, err := cached.FindTransactions(ctx, &TransactionFilter{}, true, SplitLogicAnd)
	require.NoError(t, err)
	require.Len(t, found, 1)

	// Without a backing client every call hits the store.
	f.addTrx(t, day(2024, 3, 11), "second", []leg{
		{acct: f.bank.ID, value: "-20"},
		{acct: f.stock.ID, value: "20"},
	})
	found, err = cached.FindTransactions(ctx, &TransactionFilter{}, true, SplitLogicAnd)
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestCachedFinderNilFilter(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	cached := NewCachedFinder(NewFinder(f.store, ledger.DefaultTolerances(), nil), newTestCache(t), nil)

	_, err := cached.FindTransactions(ctx, nil, false, SplitLogicAnd)
	assert.ErrorIs(t, err, ErrNilFilter)
}
