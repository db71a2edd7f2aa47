// Package compressed implements the ledger.Service interface against the
// JSON-RPC API of a compressed-ledger indexer node.
package compressed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"

	"github.com/veil-network/veil-daemon/pkg/circuitbreaker"
	"github.com/veil-network/veil-daemon/pkg/ledger"
)

type service struct {
	rpcURL    string
	wsURL     string
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker
	requestID uint64
}

// NewService returns a new compressed ledger service as a ledger.Service
// interface. The request timeout is expressed in milliseconds. An empty
// wsEndpoint disables the push subscription.
func NewService(
	rpcEndpoint, wsEndpoint string, requestTimeout int,
) (ledger.Service, error) {
	svc := &service{
		rpcURL: rpcEndpoint,
		wsURL:  wsEndpoint,
		client: &http.Client{
			Timeout: time.Duration(requestTimeout) * time.Millisecond,
		},
		breaker: circuitbreaker.NewCircuitBreaker(),
	}

	if err := svc.healthCheck(); err != nil {
		return nil, fmt.Errorf("health check: %w", err)
	}

	return svc, nil
}

func (s *service) healthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var result string
	if err := s.call(ctx, "getIndexerHealth", nil, &result); err != nil {
		return err
	}
	if result != "ok" {
		return fmt.Errorf("indexer reported status %q", result)
	}
	return nil
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      uint64      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// call runs a single JSON-RPC request through the circuit breaker and decodes
// the result into out.
func (s *service) call(
	ctx context.Context, method string, params, out interface{},
) error {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      atomic.AddUint64(&s.requestID, 1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return err
	}

	raw, err := s.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(
			ctx, http.MethodPost, s.rpcURL, bytes.NewReader(payload),
		)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf(
				"%s: unexpected status %d: %s", method, resp.StatusCode, body,
			)
		}
		return body, nil
	})
	if err != nil {
		return err
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(raw.([]byte), &rpcResp); err != nil {
		return fmt.Errorf("%s: malformed response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(rpcResp.Result, out)
}
