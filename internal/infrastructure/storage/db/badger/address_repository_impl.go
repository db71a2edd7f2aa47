package dbbadger

import (
	"context"
	"sync"

	"github.com/timshannon/badgerhold/v4"

	"github.com/veil-network/veil-daemon/internal/core/domain"
)

// indexCounter tracks the next unused derivation index per wallet and
// namespace.
type indexCounter struct {
	Wallet    string
	Namespace domain.AddressNamespace
	Next      uint32
}

func (c indexCounter) key() string {
	return c.Wallet + ":" + string(c.Namespace)
}

type addressRepositoryImpl struct {
	store *badgerhold.Store

	// guards the read-modify-write of the index counters
	countersMtx sync.Mutex
}

// NewAddressRepositoryImpl initialize a badger implementation of the
// domain.AddressRepository
func NewAddressRepositoryImpl(store *badgerhold.Store) domain.AddressRepository {
	return &addressRepositoryImpl{store: store}
}

func (a *addressRepositoryImpl) AddAddress(
	ctx context.Context, address domain.DerivedAddress,
) error {
	if err := a.store.Insert(address.Key(), &address); err != nil {
		if err != badgerhold.ErrKeyExists {
			return err
		}
	}
	return nil
}

func (a *addressRepositoryImpl) ListAddresses(
	ctx context.Context, wallet string, ns domain.AddressNamespace,
) ([]domain.DerivedAddress, error) {
	query := badgerhold.Where("Wallet").Eq(wallet).
		And("Namespace").Eq(ns)

	var addresses []domain.DerivedAddress
	if err := a.store.Find(&addresses, query.SortBy("Index")); err != nil {
		return nil, err
	}
	if addresses == nil {
		addresses = make([]domain.DerivedAddress, 0)
	}
	return addresses, nil
}

func (a *addressRepositoryImpl) NextIndex(
	ctx context.Context, wallet string, ns domain.AddressNamespace,
) (uint32, error) {
	a.countersMtx.Lock()
	defer a.countersMtx.Unlock()

	counter := indexCounter{Wallet: wallet, Namespace: ns}
	err := a.store.Get(counter.key(), &counter)
	if err != nil && err != badgerhold.ErrNotFound {
		return 0, err
	}

	allocated := counter.Next
	counter.Next++
	if err := a.store.Upsert(counter.key(), &counter); err != nil {
		return 0, err
	}
	return allocated, nil
}
