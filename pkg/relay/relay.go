// Package relay is the client of the gasless relay, the server-side
// collaborator paying network fees on the user's behalf. The relay co-signs
// as fee payer and first signer; the caller must add its own signature before
// submission.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/veil-network/veil-daemon/pkg/circuitbreaker"
	"github.com/veil-network/veil-daemon/pkg/txbuilder"
)

// Request is the payload of every relay endpoint.
type Request struct {
	Instructions  []txbuilder.Instruction `json:"instructions"`
	Blockhash     string                  `json:"blockhash"`
	UserPublicKey string                  `json:"userPublicKey"`
}

type response struct {
	Transaction string `json:"transaction"`
}

// Error carries the relay's error message verbatim along with the HTTP status.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("relay returned status %d: %s", e.StatusCode, e.Message)
}

// Service is the interface to the gasless relay.
type Service interface {
	GaslessSend(ctx context.Context, req Request) (*txbuilder.Transaction, error)
	GaslessUnshield(ctx context.Context, req Request) (*txbuilder.Transaction, error)
	GaslessTrading(ctx context.Context, req Request) (*txbuilder.Transaction, error)
}

type service struct {
	apiURL  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewService returns a new relay client. The request timeout is expressed in
// milliseconds.
func NewService(apiURL string, requestTimeout int) Service {
	return &service{
		apiURL: apiURL,
		client: &http.Client{
			Timeout: time.Duration(requestTimeout) * time.Millisecond,
		},
		breaker: circuitbreaker.NewCircuitBreaker(),
	}
}

func (s *service) GaslessSend(
	ctx context.Context, req Request,
) (*txbuilder.Transaction, error) {
	return s.post(ctx, "/gasless-send", req)
}

func (s *service) GaslessUnshield(
	ctx context.Context, req Request,
) (*txbuilder.Transaction, error) {
	return s.post(ctx, "/gasless-unshield", req)
}

func (s *service) GaslessTrading(
	ctx context.Context, req Request,
) (*txbuilder.Transaction, error) {
	return s.post(ctx, "/gasless-trading", req)
}

func (s *service) post(
	ctx context.Context, path string, req Request,
) (*txbuilder.Transaction, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	raw, err := s.breaker.Execute(func() (interface{}, error) {
		httpReq, err := http.NewRequestWithContext(
			ctx, http.MethodPost, s.apiURL+path, bytes.NewReader(payload),
		)
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(httpReq)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &Error{
				StatusCode: resp.StatusCode,
				Message:    string(body),
			}
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}

	var relayResp response
	if err := json.Unmarshal(raw.([]byte), &relayResp); err != nil {
		return nil, fmt.Errorf("malformed relay response: %w", err)
	}
	if relayResp.Transaction == "" {
		return nil, fmt.Errorf("relay returned an empty transaction")
	}

	tx, err := txbuilder.Deserialize(relayResp.Transaction)
	if err != nil {
		return nil, fmt.Errorf("malformed relay transaction: %w", err)
	}
	return tx, nil
}
