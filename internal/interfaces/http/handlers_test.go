package httpinterface

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/veil-network/veil-daemon/internal/core/application"
	"github.com/veil-network/veil-daemon/internal/core/domain"
	"github.com/veil-network/veil-daemon/pkg/aggregator"
	"github.com/veil-network/veil-daemon/pkg/keyderive"
)

type stubWalletService struct{}

func (stubWalletService) Wallet() string { return "wallet111" }

func (stubWalletService) NewAddress(
	_ context.Context, ns domain.AddressNamespace,
) (*domain.DerivedAddress, error) {
	if ns != domain.NamespaceStealth && ns != domain.NamespaceTrading {
		return nil, application.ErrUnknownNamespace
	}
	return &domain.DerivedAddress{
		Wallet: "wallet111", Address: "derived111", Index: 3, Namespace: ns,
	}, nil
}

func (stubWalletService) ListAddresses(
	_ context.Context, ns domain.AddressNamespace,
) ([]domain.DerivedAddress, error) {
	return []domain.DerivedAddress{
		{Wallet: "wallet111", Address: "derived111", Index: 0, Namespace: ns},
	}, nil
}

func (stubWalletService) KeypairAt(
	context.Context, domain.AddressNamespace, uint32,
) (*keyderive.Keypair, error) {
	return nil, domain.ErrAddressNotFound
}

type stubBalanceService struct {
	cache     *application.CacheService
	triggered [][]application.BalanceKey
}

func (s *stubBalanceService) GetBalance(
	_ context.Context, address, mint string,
) (domain.Balance, error) {
	return domain.Balance{Public: 700, Private: 300, AsOf: time.Now()}, nil
}

func (s *stubBalanceService) TriggerRefresh(keys []application.BalanceKey) {
	s.triggered = append(s.triggered, keys)
}

func (s *stubBalanceService) OnRefresh(func(map[application.BalanceKey]domain.Balance)) {
}

func (s *stubBalanceService) Cache() *application.CacheService { return s.cache }

type stubTransferService struct {
	err error
}

func (s *stubTransferService) result() (*application.OperationResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &application.OperationResult{
		FlowID:      "flow-1",
		TxSignature: "sig",
		Amount:      990,
		Fee:         10,
		Status:      "confirmed",
	}, nil
}

func (s *stubTransferService) Shield(
	context.Context, uint64,
) (*application.OperationResult, error) {
	return s.result()
}

func (s *stubTransferService) Unshield(
	context.Context, uint64, string, bool,
) (*application.OperationResult, error) {
	return s.result()
}

func (s *stubTransferService) SendShielded(
	context.Context, uint64, string,
) (*application.OperationResult, error) {
	return s.result()
}

func (s *stubTransferService) SendTokenShielded(
	context.Context, string, uint32, uint64, string,
) (*application.OperationResult, error) {
	return s.result()
}

func (s *stubTransferService) Operations(
	context.Context, domain.Page,
) ([]domain.Operation, error) {
	return []domain.Operation{{FlowID: "flow-1", Kind: domain.OperationShield}}, nil
}

type stubSwapService struct{}

func (stubSwapService) Token(
	_ context.Context, mint string,
) (*aggregator.Token, error) {
	if mint == "unknown" {
		return nil, aggregator.ErrTokenNotFound
	}
	return &aggregator.Token{Mint: mint, Symbol: "USDC", Decimals: 6}, nil
}

func (stubSwapService) Quote(
	_ context.Context, inputMint, outputMint string, amount uint64, _ int,
) (*aggregator.Quote, error) {
	if amount == 0 {
		return nil, domain.ErrInvalidAmount
	}
	return &aggregator.Quote{
		InputMint: inputMint, OutputMint: outputMint,
		InAmount: amount, OutAmount: amount * 2,
	}, nil
}

func (stubSwapService) Swap(
	context.Context, string, string, uint64, int,
) (*application.SwapResult, error) {
	return &application.SwapResult{
		FlowID: "flow-2", SwapSignature: "swapsig", SweepSignature: "sweepsig",
		InAmount: 980, OutAmount: 1960, Fee: 20,
	}, nil
}

func newTestServer(t *testing.T, transferSvc application.TransferService) *httptest.Server {
	t.Helper()

	service, err := NewService(
		"127.0.0.1:9947",
		stubWalletService{},
		&stubBalanceService{cache: application.NewCacheService(time.Minute, nil)},
		transferSvc,
		stubSwapService{},
	)
	require.NoError(t, err)

	server := httptest.NewServer(service.server.Handler)
	t.Cleanup(server.Close)
	return server
}

func post(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func TestHandleInfo(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, &stubTransferService{})

	resp, err := http.Get(server.URL + "/v1/info")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reply map[string]string
	decode(t, resp, &reply)
	require.Equal(t, "wallet111", reply["wallet"])
}

func TestHandleBalance(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, &stubTransferService{})

	resp, err := http.Get(server.URL + "/v1/balance")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reply balanceReply
	decode(t, resp, &reply)
	require.Equal(t, "wallet111", reply.Address)
	require.Equal(t, domain.NativeMint, reply.Mint)
	require.Equal(t, uint64(700), reply.Public)
	require.Equal(t, uint64(300), reply.Private)
	require.Equal(t, uint64(1000), reply.Total)
}

func TestHandleNewAddress(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, &stubTransferService{})

	resp := post(t, server.URL+"/v1/addresses", map[string]string{
		"namespace": "stealth",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var reply addressReply
	decode(t, resp, &reply)
	require.Equal(t, "derived111", reply.Address)
	require.Equal(t, uint32(3), reply.Index)

	resp = post(t, server.URL+"/v1/addresses", map[string]string{
		"namespace": "bogus",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestHandleShield(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, &stubTransferService{})

	resp := post(t, server.URL+"/v1/shield", map[string]uint64{"amount": 1000})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reply operationReply
	decode(t, resp, &reply)
	require.Equal(t, "sig", reply.TxSignature)
	require.Equal(t, uint64(990), reply.Amount)
	require.Equal(t, uint64(10), reply.Fee)
}

func TestHandleSendInsufficientFunds(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, &stubTransferService{
		err: &domain.InsufficientFundsError{Required: 1000, Available: 400},
	})

	resp := post(t, server.URL+"/v1/send", map[string]interface{}{
		"amount": 1000, "recipient": "r",
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var reply errorReply
	decode(t, resp, &reply)
	require.Equal(t, uint64(600), reply.Shortfall)
	require.NotEmpty(t, reply.Error)
}

func TestHandleSendConfirmationTimeout(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, &stubTransferService{
		err: application.ErrConfirmationTimeout,
	})

	resp := post(t, server.URL+"/v1/send", map[string]interface{}{
		"amount": 1000, "recipient": "r",
	})
	require.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
	resp.Body.Close()
}

func TestHandleQuoteAndSwap(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, &stubTransferService{})

	resp := post(t, server.URL+"/v1/quote", map[string]interface{}{
		"inputMint": "native", "outputMint": "usdc", "amount": 500,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var quote map[string]interface{}
	decode(t, resp, &quote)
	require.Equal(t, float64(1000), quote["outAmount"])

	resp = post(t, server.URL+"/v1/swap", map[string]interface{}{
		"inputMint": "native", "outputMint": "usdc", "amount": 500,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var swap map[string]interface{}
	decode(t, resp, &swap)
	require.Equal(t, "swapsig", swap["swapSignature"])
	require.Equal(t, "sweepsig", swap["sweepSignature"])
}

func TestHandleOperations(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, &stubTransferService{})

	resp, err := http.Get(server.URL + "/v1/operations?page=1&size=10")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reply struct {
		Operations []domain.Operation `json:"operations"`
	}
	decode(t, resp, &reply)
	require.Len(t, reply.Operations, 1)

	resp, err = http.Get(server.URL + "/v1/operations?page=0")
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestInvalidListeningAddress(t *testing.T) {
	t.Parallel()

	_, err := NewService(
		"bogus", stubWalletService{}, &stubBalanceService{},
		&stubTransferService{}, stubSwapService{},
	)
	require.Error(t, err)
}
