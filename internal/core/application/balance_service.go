package application

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/veil-network/veil-daemon/internal/core/domain"
	"github.com/veil-network/veil-daemon/pkg/ledger"
)

// BalanceService maintains the balance cache and serializes concurrent
// refresh requests with a queue-of-one: a trigger arriving while a refresh is
// in flight only marks a pending re-run with the latest requested key set,
// it never runs concurrently. On completion the pending run, if any, is
// executed once.
type BalanceService interface {
	// GetBalance reads through the cache, fetching from the ledger when the
	// entry is missing or stale.
	GetBalance(ctx context.Context, address, mint string) (domain.Balance, error)
	// TriggerRefresh schedules an asynchronous refresh of the given keys.
	TriggerRefresh(keys []BalanceKey)
	// OnRefresh registers the callback republishing refreshed balances.
	OnRefresh(cb func(map[BalanceKey]domain.Balance))
	// Cache exposes the underlying cache for invalidation by other services.
	Cache() *CacheService
}

type balanceService struct {
	ledgerSvc ledger.Service
	cache     *CacheService

	mtx         sync.Mutex
	onRefresh   func(map[BalanceKey]domain.Balance)
	refreshing  bool
	pending     bool
	pendingKeys []BalanceKey
}

// NewBalanceService returns a balance manager on top of the given ledger
// client and cache.
func NewBalanceService(
	ledgerSvc ledger.Service, cache *CacheService,
) BalanceService {
	return &balanceService{
		ledgerSvc: ledgerSvc,
		cache:     cache,
	}
}

func (b *balanceService) Cache() *CacheService {
	return b.cache
}

func (b *balanceService) OnRefresh(cb func(map[BalanceKey]domain.Balance)) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	b.onRefresh = cb
}

func (b *balanceService) GetBalance(
	ctx context.Context, address, mint string,
) (domain.Balance, error) {
	key := BalanceKey{Address: address, Mint: mint}
	if balance, fresh := b.cache.Get(key); fresh {
		return balance, nil
	}

	balance, err := b.fetch(ctx, key)
	if err != nil {
		return domain.Balance{}, err
	}
	b.cache.Put(key, balance)
	return balance, nil
}

func (b *balanceService) TriggerRefresh(keys []BalanceKey) {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	if b.refreshing {
		b.pending = true
		b.pendingKeys = keys
		return
	}

	b.refreshing = true
	go b.refresh(keys)
}

func (b *balanceService) refresh(keys []BalanceKey) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	results := b.fetchAll(ctx, keys)
	cancel()

	b.mtx.Lock()
	callback := b.onRefresh
	rerun := b.pending
	rerunKeys := b.pendingKeys
	b.pending = false
	b.pendingKeys = nil
	if !rerun {
		b.refreshing = false
	}
	b.mtx.Unlock()

	if callback != nil && len(results) > 0 {
		callback(results)
	}

	if rerun {
		b.refresh(rerunKeys)
	}
}

func (b *balanceService) fetchAll(
	ctx context.Context, keys []BalanceKey,
) map[BalanceKey]domain.Balance {
	results := make(map[BalanceKey]domain.Balance, len(keys))
	var resultsMtx sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, key := range keys {
		key := key
		g.Go(func() error {
			balance, err := b.fetch(gctx, key)
			if err != nil {
				// a failing key is skipped, the remaining ones still publish
				log.WithError(err).Warnf(
					"balance refresh failed for %s/%s", key.Address, key.Mint,
				)
				return nil
			}
			resultsMtx.Lock()
			results[key] = balance
			resultsMtx.Unlock()
			return nil
		})
	}
	g.Wait()

	for key, balance := range results {
		b.cache.Put(key, balance)
	}
	return results
}

func (b *balanceService) fetch(
	ctx context.Context, key BalanceKey,
) (domain.Balance, error) {
	if key.Mint == domain.NativeMint {
		public, err := b.ledgerSvc.GetBalance(ctx, key.Address)
		if err != nil {
			return domain.Balance{}, err
		}
		accounts, err := b.ledgerSvc.GetCompressedAccountsByOwner(
			ctx, key.Address,
		)
		if err != nil {
			return domain.Balance{}, err
		}
		return domain.Balance{
			Public:  public,
			Private: ledger.SumLamports(accounts),
			AsOf:    time.Now(),
		}, nil
	}

	public, err := b.ledgerSvc.GetTokenBalance(ctx, key.Address, key.Mint)
	if err != nil {
		return domain.Balance{}, err
	}
	accounts, err := b.ledgerSvc.GetCompressedTokenAccountsByOwner(
		ctx, key.Address, key.Mint,
	)
	if err != nil {
		return domain.Balance{}, err
	}
	return domain.Balance{
		Public:  public,
		Private: ledger.SumTokenAmounts(accounts),
		AsOf:    time.Now(),
	}, nil
}
