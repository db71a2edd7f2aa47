package domain

import (
	"context"
	"time"
)

// AddressNamespace separates the derived address families. Each namespace
// corresponds to a distinct challenge message signed by the wallet, so two
// namespaces never collide even at the same index.
type AddressNamespace string

const (
	// NamespaceStealth is the family of receiving addresses.
	NamespaceStealth AddressNamespace = "stealth"
	// NamespaceTrading is the family of addresses used for swaps.
	NamespaceTrading AddressNamespace = "trading"
)

// DerivedAddressVersion is bumped on schema changes of the persisted record.
const DerivedAddressVersion = uint32(1)

// DerivedAddress is a deterministically derived sub-address of a wallet.
// Index is monotonically assigned per (wallet, namespace) and is the domain
// separation input of the derivation.
type DerivedAddress struct {
	Wallet    string
	Address   string
	Index     uint32
	Namespace AddressNamespace
	CreatedAt time.Time
	Version   uint32
}

// Key identifies the record in storage.
func (a DerivedAddress) Key() string {
	return a.Wallet + ":" + string(a.Namespace) + ":" + a.Address
}

// AddressRepository persists the derived address book and the per-wallet
// next-unused index counters.
type AddressRepository interface {
	AddAddress(ctx context.Context, addr DerivedAddress) error
	ListAddresses(
		ctx context.Context, wallet string, ns AddressNamespace,
	) ([]DerivedAddress, error)
	// NextIndex allocates and returns the next unused derivation index for the
	// given wallet and namespace. Allocation is monotonic, indexes are never
	// reused.
	NextIndex(
		ctx context.Context, wallet string, ns AddressNamespace,
	) (uint32, error)
}
