package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/veil-network/veil-daemon/internal/core/domain"
	"github.com/veil-network/veil-daemon/internal/core/ports"
	"github.com/veil-network/veil-daemon/pkg/keyderive"
)

// challenge messages signed by the wallet, one per address namespace. The two
// derived families never collide even at the same index because the base
// signatures differ.
const (
	stealthChallenge = "veil.network wants you to derive your stealth addresses. This signature does not authorize any transfer."
	tradingChallenge = "veil.network wants you to derive your trading addresses. This signature does not authorize any transfer."
)

// WalletService manages the derived sub-address families of the connected
// wallet.
type WalletService interface {
	// Wallet returns the base58 public key of the backing wallet.
	Wallet() string
	// NewAddress derives the next unused address of the namespace and
	// persists it.
	NewAddress(
		ctx context.Context, ns domain.AddressNamespace,
	) (*domain.DerivedAddress, error)
	// ListAddresses returns the persisted addresses of the namespace.
	ListAddresses(
		ctx context.Context, ns domain.AddressNamespace,
	) ([]domain.DerivedAddress, error)
	// KeypairAt rebuilds the signing keypair of an already derived address.
	KeypairAt(
		ctx context.Context, ns domain.AddressNamespace, index uint32,
	) (*keyderive.Keypair, error)
}

type walletService struct {
	signer      ports.Signer
	addressRepo domain.AddressRepository

	// signatures over the challenge messages are cached per namespace so a
	// non-deterministic external signer cannot fork the derivation. The mutex
	// guarantees each challenge is signed at most once even under concurrent
	// derivations.
	mtx        sync.Mutex
	signatures map[domain.AddressNamespace][]byte
}

// NewWalletService returns a wallet service backed by the given signer and
// address repository.
func NewWalletService(
	signer ports.Signer, addressRepo domain.AddressRepository,
) WalletService {
	return &walletService{
		signer:      signer,
		addressRepo: addressRepo,
		signatures:  map[domain.AddressNamespace][]byte{},
	}
}

func (w *walletService) Wallet() string {
	return w.signer.PublicKey()
}

func (w *walletService) NewAddress(
	ctx context.Context, ns domain.AddressNamespace,
) (*domain.DerivedAddress, error) {
	signature, err := w.baseSignature(ctx, ns)
	if err != nil {
		return nil, err
	}

	wallet := w.signer.PublicKey()
	index, err := w.addressRepo.NextIndex(ctx, wallet, ns)
	if err != nil {
		return nil, fmt.Errorf("error on allocating derivation index: %w", err)
	}

	keypair, err := keyderive.Derive(signature, index)
	if err != nil {
		return nil, err
	}

	derived := domain.DerivedAddress{
		Wallet:    wallet,
		Address:   keypair.Address(),
		Index:     index,
		Namespace: ns,
		CreatedAt: time.Now(),
		Version:   domain.DerivedAddressVersion,
	}
	if err := w.addressRepo.AddAddress(ctx, derived); err != nil {
		return nil, fmt.Errorf("error on persisting derived address: %w", err)
	}

	log.Debugf(
		"derived %s address %s at index %d", ns, derived.Address, index,
	)
	return &derived, nil
}

func (w *walletService) ListAddresses(
	ctx context.Context, ns domain.AddressNamespace,
) ([]domain.DerivedAddress, error) {
	return w.addressRepo.ListAddresses(ctx, w.signer.PublicKey(), ns)
}

func (w *walletService) KeypairAt(
	ctx context.Context, ns domain.AddressNamespace, index uint32,
) (*keyderive.Keypair, error) {
	signature, err := w.baseSignature(ctx, ns)
	if err != nil {
		return nil, err
	}
	return keyderive.Derive(signature, index)
}

func (w *walletService) baseSignature(
	ctx context.Context, ns domain.AddressNamespace,
) ([]byte, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	if signature, found := w.signatures[ns]; found {
		return signature, nil
	}

	var challenge string
	switch ns {
	case domain.NamespaceStealth:
		challenge = stealthChallenge
	case domain.NamespaceTrading:
		challenge = tradingChallenge
	default:
		return nil, ErrUnknownNamespace
	}

	signature, err := w.signer.SignMessage(ctx, []byte(challenge))
	if err != nil {
		return nil, fmt.Errorf("error on signing derivation challenge: %w", err)
	}
	w.signatures[ns] = signature
	return signature, nil
}
