package compressed_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/veil-network/veil-daemon/pkg/ledger"
	"github.com/veil-network/veil-daemon/pkg/ledger/compressed"
)

type rpcCall struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

func newMockIndexer(
	t *testing.T, results map[string]string,
) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			var call rpcCall
			require.NoError(t, json.NewDecoder(r.Body).Decode(&call))

			result, found := results[call.Method]
			if !found {
				fmt.Fprintf(
					w,
					`{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"method %s not found"}}`,
					call.Method,
				)
				return
			}
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":1,"result":%s}`, result)
		},
	))
}

func newTestService(
	t *testing.T, results map[string]string,
) ledger.Service {
	t.Helper()
	results["getIndexerHealth"] = `"ok"`
	server := newMockIndexer(t, results)
	t.Cleanup(server.Close)

	svc, err := compressed.NewService(server.URL, "", 5000)
	require.NoError(t, err)
	return svc
}

func TestGetBalance(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, map[string]string{
		"getBalance": `{"value":1500000000}`,
	})

	balance, err := svc.GetBalance(context.Background(), "someaddress")
	require.NoError(t, err)
	require.Equal(t, uint64(1_500_000_000), balance)
}

func TestGetCompressedAccountsByOwner(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, map[string]string{
		"getCompressedAccountsByOwner": `{
			"items": [
				{"hash":"h1","lamports":200,"merkleTree":"t1"},
				{"hash":"h2","lamports":300,"merkleTree":"t1"}
			]
		}`,
	})

	accounts, err := svc.GetCompressedAccountsByOwner(
		context.Background(), "owner",
	)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	require.Equal(t, uint64(500), ledger.SumLamports(accounts))
	require.Equal(t, "t1", accounts[0].MerkleTree)
}

func TestGetCompressedTokenAccountsByOwner(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, map[string]string{
		"getCompressedTokenAccountsByOwner": `{
			"items": [{
				"account": {"hash":"h1","merkleTree":"t2"},
				"tokenData": {"mint":"usdcmint","amount":9900000}
			}]
		}`,
	})

	accounts, err := svc.GetCompressedTokenAccountsByOwner(
		context.Background(), "owner", "usdcmint",
	)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	require.Equal(t, "usdcmint", accounts[0].Mint)
	require.Equal(t, uint64(9_900_000), accounts[0].Amount)
}

func TestGetValidityProof(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, map[string]string{
		"getValidityProof": `{"compressedProof":"cHJvb2Y=","rootIndices":[4,9]}`,
	})

	proof, err := svc.GetValidityProof(
		context.Background(), []string{"h1", "h2"},
	)
	require.NoError(t, err)
	require.Equal(t, "cHJvb2Y=", proof.CompressedProof)
	require.Equal(t, []uint32{4, 9}, proof.RootIndices)
}

func TestGetLatestBlockhashAndSend(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, map[string]string{
		"getLatestBlockhash": `{"value":{"blockhash":"Hash111","lastValidBlockHeight":424242}}`,
		"sendTransaction":    `"sig111"`,
	})

	blockhash, err := svc.GetLatestBlockhash(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Hash111", blockhash.Blockhash)
	require.Equal(t, uint64(424242), blockhash.LastValidBlockHeight)

	signature, err := svc.SendTransaction(context.Background(), "dHg=")
	require.NoError(t, err)
	require.Equal(t, "sig111", signature)
}

func TestIsTransactionConfirmed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		result    string
		confirmed bool
		wantErr   bool
	}{
		{
			name:      "confirmed",
			result:    `{"value":[{"confirmationStatus":"confirmed","err":null}]}`,
			confirmed: true,
		},
		{
			name:      "processed_only",
			result:    `{"value":[{"confirmationStatus":"processed","err":null}]}`,
			confirmed: false,
		},
		{
			name:      "not_found",
			result:    `{"value":[null]}`,
			confirmed: false,
		},
		{
			name:    "failed_on_chain",
			result:  `{"value":[{"confirmationStatus":"confirmed","err":{"InstructionError":[0,"Custom"]}}]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := newTestService(t, map[string]string{
				"getSignatureStatuses": tt.result,
			})
			confirmed, err := svc.IsTransactionConfirmed(
				context.Background(), "sig111",
			)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.confirmed, confirmed)
		})
	}
}

func TestRPCErrorIsStructured(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, map[string]string{})

	_, err := svc.GetBalance(context.Background(), "someaddress")
	require.Error(t, err)

	var rpcErr *compressed.RPCError
	require.ErrorAs(t, err, &rpcErr)
	require.Equal(t, -32601, rpcErr.Code)
	require.Contains(t, rpcErr.Message, "getBalance")
}

func TestUnhealthyIndexerFailsConstruction(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"result":"behind"}`)
		},
	))
	t.Cleanup(server.Close)

	_, err := compressed.NewService(server.URL, "", 5000)
	require.Error(t, err)
}
