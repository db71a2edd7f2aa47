package application_test

import (
	"context"
	"crypto/ed25519"
	"sync"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/mock"

	"github.com/veil-network/veil-daemon/internal/core/domain"
	"github.com/veil-network/veil-daemon/pkg/aggregator"
	"github.com/veil-network/veil-daemon/pkg/ledger"
	"github.com/veil-network/veil-daemon/pkg/relay"
	"github.com/veil-network/veil-daemon/pkg/txbuilder"
)

// **** Ledger ****

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) GetBalance(
	ctx context.Context, address string,
) (uint64, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockLedger) GetTokenBalance(
	ctx context.Context, address, mint string,
) (uint64, error) {
	args := m.Called(ctx, address, mint)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockLedger) GetCompressedAccountsByOwner(
	ctx context.Context, owner string,
) ([]ledger.CompressedAccount, error) {
	args := m.Called(ctx, owner)

	var res []ledger.CompressedAccount
	if a := args.Get(0); a != nil {
		res = a.([]ledger.CompressedAccount)
	}
	return res, args.Error(1)
}

func (m *mockLedger) GetCompressedTokenAccountsByOwner(
	ctx context.Context, owner, mint string,
) ([]ledger.CompressedTokenAccount, error) {
	args := m.Called(ctx, owner, mint)

	var res []ledger.CompressedTokenAccount
	if a := args.Get(0); a != nil {
		res = a.([]ledger.CompressedTokenAccount)
	}
	return res, args.Error(1)
}

func (m *mockLedger) GetValidityProof(
	ctx context.Context, hashes []string,
) (*ledger.ValidityProof, error) {
	args := m.Called(ctx, hashes)

	var res *ledger.ValidityProof
	if a := args.Get(0); a != nil {
		res = a.(*ledger.ValidityProof)
	}
	return res, args.Error(1)
}

func (m *mockLedger) GetLatestBlockhash(
	ctx context.Context,
) (*ledger.Blockhash, error) {
	args := m.Called(ctx)

	var res *ledger.Blockhash
	if a := args.Get(0); a != nil {
		res = a.(*ledger.Blockhash)
	}
	return res, args.Error(1)
}

func (m *mockLedger) GetBlockHeight(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockLedger) SendTransaction(
	ctx context.Context, txBase64 string,
) (string, error) {
	args := m.Called(ctx, txBase64)
	return args.String(0), args.Error(1)
}

func (m *mockLedger) IsTransactionConfirmed(
	ctx context.Context, signature string,
) (bool, error) {
	args := m.Called(ctx, signature)
	return args.Bool(0), args.Error(1)
}

// subscribingLedger is a mockLedger additionally exposing the push
// subscription interface.
type subscribingLedger struct {
	*mockLedger
}

func (m *subscribingLedger) SubscribeSignature(
	ctx context.Context, signature string,
) (<-chan ledger.SignatureNotification, error) {
	args := m.Called(ctx, signature)

	var res <-chan ledger.SignatureNotification
	if a := args.Get(0); a != nil {
		res = a.(<-chan ledger.SignatureNotification)
	}
	return res, args.Error(1)
}

// **** Relay ****

type mockRelay struct {
	mock.Mock
}

func (m *mockRelay) GaslessSend(
	ctx context.Context, req relay.Request,
) (*txbuilder.Transaction, error) {
	args := m.Called(ctx, req)

	var res *txbuilder.Transaction
	if a := args.Get(0); a != nil {
		res = a.(*txbuilder.Transaction)
	}
	return res, args.Error(1)
}

func (m *mockRelay) GaslessUnshield(
	ctx context.Context, req relay.Request,
) (*txbuilder.Transaction, error) {
	args := m.Called(ctx, req)

	var res *txbuilder.Transaction
	if a := args.Get(0); a != nil {
		res = a.(*txbuilder.Transaction)
	}
	return res, args.Error(1)
}

func (m *mockRelay) GaslessTrading(
	ctx context.Context, req relay.Request,
) (*txbuilder.Transaction, error) {
	args := m.Called(ctx, req)

	var res *txbuilder.Transaction
	if a := args.Get(0); a != nil {
		res = a.(*txbuilder.Transaction)
	}
	return res, args.Error(1)
}

// **** Aggregator ****

type mockAggregator struct {
	mock.Mock
}

func (m *mockAggregator) GetToken(
	ctx context.Context, mint string,
) (*aggregator.Token, error) {
	args := m.Called(ctx, mint)

	var res *aggregator.Token
	if a := args.Get(0); a != nil {
		res = a.(*aggregator.Token)
	}
	return res, args.Error(1)
}

func (m *mockAggregator) GetQuote(
	ctx context.Context, req aggregator.QuoteRequest,
) (*aggregator.Quote, error) {
	args := m.Called(ctx, req)

	var res *aggregator.Quote
	if a := args.Get(0); a != nil {
		res = a.(*aggregator.Quote)
	}
	return res, args.Error(1)
}

func (m *mockAggregator) GetSwapInstructions(
	ctx context.Context, quote *aggregator.Quote, userPublicKey string,
) ([]txbuilder.Instruction, error) {
	args := m.Called(ctx, quote, userPublicKey)

	var res []txbuilder.Instruction
	if a := args.Get(0); a != nil {
		res = a.([]txbuilder.Instruction)
	}
	return res, args.Error(1)
}

// **** Signer ****

// fakeSigner is a deterministic ed25519 signer backed by a fixed seed.
type fakeSigner struct {
	priv ed25519.PrivateKey
}

func newFakeSigner(seed byte) *fakeSigner {
	raw := make([]byte, ed25519.SeedSize)
	for i := range raw {
		raw[i] = seed
	}
	return &fakeSigner{priv: ed25519.NewKeyFromSeed(raw)}
}

func (s *fakeSigner) PublicKey() string {
	return base58.Encode(s.priv.Public().(ed25519.PublicKey))
}

func (s *fakeSigner) SignMessage(
	_ context.Context, message []byte,
) ([]byte, error) {
	return ed25519.Sign(s.priv, message), nil
}

func (s *fakeSigner) SignTransaction(
	_ context.Context, payload []byte,
) (string, error) {
	return base58.Encode(ed25519.Sign(s.priv, payload)), nil
}

// **** Repositories ****

type inMemoryAddressRepository struct {
	mtx       sync.Mutex
	addresses []domain.DerivedAddress
	counters  map[string]uint32
}

func newInMemoryAddressRepository() *inMemoryAddressRepository {
	return &inMemoryAddressRepository{counters: map[string]uint32{}}
}

func (r *inMemoryAddressRepository) AddAddress(
	_ context.Context, address domain.DerivedAddress,
) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.addresses = append(r.addresses, address)
	return nil
}

func (r *inMemoryAddressRepository) ListAddresses(
	_ context.Context, wallet string, ns domain.AddressNamespace,
) ([]domain.DerivedAddress, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	list := make([]domain.DerivedAddress, 0)
	for _, address := range r.addresses {
		if address.Wallet == wallet && address.Namespace == ns {
			list = append(list, address)
		}
	}
	return list, nil
}

func (r *inMemoryAddressRepository) NextIndex(
	_ context.Context, wallet string, ns domain.AddressNamespace,
) (uint32, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	key := wallet + ":" + string(ns)
	next := r.counters[key]
	r.counters[key] = next + 1
	return next, nil
}

type inMemoryOperationRepository struct {
	mtx        sync.Mutex
	operations []domain.Operation
}

func newInMemoryOperationRepository() *inMemoryOperationRepository {
	return &inMemoryOperationRepository{}
}

func (r *inMemoryOperationRepository) AddOperation(
	_ context.Context, operation domain.Operation,
) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.operations = append(r.operations, operation)
	return nil
}

func (r *inMemoryOperationRepository) ListOperationsForWallet(
	_ context.Context, wallet string, page domain.Page,
) ([]domain.Operation, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	list := make([]domain.Operation, 0)
	for _, operation := range r.operations {
		if operation.Wallet == wallet {
			list = append(list, operation)
		}
	}
	return list, nil
}
