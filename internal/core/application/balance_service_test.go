package application_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/veil-network/veil-daemon/internal/core/application"
	"github.com/veil-network/veil-daemon/internal/core/domain"
	"github.com/veil-network/veil-daemon/pkg/ledger"
)

func TestBalanceServiceReadThrough(t *testing.T) {
	t.Parallel()

	ledgerSvc := &mockLedger{}
	ledgerSvc.On("GetBalance", mock.Anything, "addr").
		Return(uint64(700), nil).Once()
	ledgerSvc.On("GetCompressedAccountsByOwner", mock.Anything, "addr").
		Return([]ledger.CompressedAccount{
			{Hash: "h1", Lamports: 300},
		}, nil).Once()

	cache := application.NewCacheService(time.Minute, nil)
	svc := application.NewBalanceService(ledgerSvc, cache)

	balance, err := svc.GetBalance(
		context.Background(), "addr", domain.NativeMint,
	)
	require.NoError(t, err)
	require.Equal(t, uint64(700), balance.Public)
	require.Equal(t, uint64(300), balance.Private)

	// second read must be served from the cache, the ledger expectations
	// above are Once
	cached, err := svc.GetBalance(
		context.Background(), "addr", domain.NativeMint,
	)
	require.NoError(t, err)
	require.Equal(t, balance.Public, cached.Public)
	require.Equal(t, balance.Private, cached.Private)
	ledgerSvc.AssertExpectations(t)
}

func TestBalanceServiceTokenReadThrough(t *testing.T) {
	t.Parallel()

	ledgerSvc := &mockLedger{}
	ledgerSvc.On("GetTokenBalance", mock.Anything, "addr", "usdc").
		Return(uint64(1000), nil)
	ledgerSvc.On(
		"GetCompressedTokenAccountsByOwner", mock.Anything, "addr", "usdc",
	).Return([]ledger.CompressedTokenAccount{
		{Hash: "h1", Mint: "usdc", Amount: 400},
		{Hash: "h2", Mint: "usdc", Amount: 100},
	}, nil)

	cache := application.NewCacheService(time.Minute, nil)
	svc := application.NewBalanceService(ledgerSvc, cache)

	balance, err := svc.GetBalance(context.Background(), "addr", "usdc")
	require.NoError(t, err)
	require.Equal(t, uint64(1000), balance.Public)
	require.Equal(t, uint64(500), balance.Private)
}

func TestBalanceServiceCoalescesRefreshes(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})

	ledgerSvc := &mockLedger{}
	// the first fetch blocks until released so further triggers arrive while
	// a refresh is in flight
	ledgerSvc.On("GetBalance", mock.Anything, "addr").
		Run(func(args mock.Arguments) {
			close(started)
			<-release
		}).Return(uint64(1), nil).Once()
	ledgerSvc.On("GetBalance", mock.Anything, "addr").Return(uint64(2), nil)
	ledgerSvc.On("GetCompressedAccountsByOwner", mock.Anything, "addr").
		Return([]ledger.CompressedAccount{}, nil)

	cache := application.NewCacheService(time.Minute, nil)
	svc := application.NewBalanceService(ledgerSvc, cache)

	var mtx sync.Mutex
	passes := 0
	done := make(chan struct{}, 4)
	svc.OnRefresh(func(map[application.BalanceKey]domain.Balance) {
		mtx.Lock()
		passes++
		mtx.Unlock()
		done <- struct{}{}
	})

	keys := []application.BalanceKey{{Address: "addr", Mint: domain.NativeMint}}
	svc.TriggerRefresh(keys)
	<-started

	// these two arrive while the first refresh is blocked and must coalesce
	// into a single rerun
	svc.TriggerRefresh(keys)
	svc.TriggerRefresh(keys)
	close(release)

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("refresh did not complete in time")
		}
	}

	// no third pass shows up
	select {
	case <-done:
		t.Fatal("triggers were not coalesced")
	case <-time.After(200 * time.Millisecond):
	}

	mtx.Lock()
	defer mtx.Unlock()
	require.Equal(t, 2, passes)
}

func TestBalanceServiceSkipsFailingKeys(t *testing.T) {
	t.Parallel()

	ledgerSvc := &mockLedger{}
	ledgerSvc.On("GetBalance", mock.Anything, "good").Return(uint64(10), nil)
	ledgerSvc.On("GetCompressedAccountsByOwner", mock.Anything, "good").
		Return([]ledger.CompressedAccount{}, nil)
	ledgerSvc.On("GetBalance", mock.Anything, "bad").
		Return(uint64(0), context.DeadlineExceeded)

	cache := application.NewCacheService(time.Minute, nil)
	svc := application.NewBalanceService(ledgerSvc, cache)

	done := make(chan map[application.BalanceKey]domain.Balance, 1)
	svc.OnRefresh(func(results map[application.BalanceKey]domain.Balance) {
		done <- results
	})

	goodKey := application.BalanceKey{Address: "good", Mint: domain.NativeMint}
	badKey := application.BalanceKey{Address: "bad", Mint: domain.NativeMint}
	svc.TriggerRefresh([]application.BalanceKey{goodKey, badKey})

	select {
	case results := <-done:
		require.Contains(t, results, goodKey)
		require.NotContains(t, results, badKey)
	case <-time.After(5 * time.Second):
		t.Fatal("refresh did not complete in time")
	}

	_, fresh := cache.Get(goodKey)
	require.True(t, fresh)
	_, fresh = cache.Get(badKey)
	require.False(t, fresh)
}
