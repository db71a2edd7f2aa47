// Package aggregator is the client of the third-party swap quoting and
// routing API. The aggregator is trusted for token metadata (decimals,
// symbol, name); no validation against on-chain mint data is performed.
package aggregator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/ratelimit"

	"github.com/veil-network/veil-daemon/pkg/txbuilder"
)

// Token is the metadata of a tradable token.
type Token struct {
	Mint     string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint32 `json:"decimals"`
}

// QuoteRequest ...
type QuoteRequest struct {
	InputMint   string
	OutputMint  string
	Amount      uint64
	SlippageBps int
}

// Quote is a swap route quotation. Raw keeps the untouched aggregator
// response needed to request the swap instructions.
type Quote struct {
	InputMint      string
	OutputMint     string
	InAmount       uint64
	OutAmount      uint64
	PriceImpactPct string
	Raw            json.RawMessage
}

// Service is the interface to the swap aggregator.
type Service interface {
	GetToken(ctx context.Context, mint string) (*Token, error)
	GetQuote(ctx context.Context, req QuoteRequest) (*Quote, error)
	GetSwapInstructions(
		ctx context.Context, quote *Quote, userPublicKey string,
	) ([]txbuilder.Instruction, error)
}

// Opts groups the tunables of the aggregator client.
type Opts struct {
	APIURL string
	// RequestTimeout in milliseconds.
	RequestTimeout int
	// TokenTTL is how long cached token metadata stays fresh.
	TokenTTL time.Duration
	// RequestsPerSecond paces the outgoing calls.
	RequestsPerSecond int
	// Clock is injectable for tests, defaults to time.Now.
	Clock func() time.Time
}

type service struct {
	apiURL  string
	client  *http.Client
	limiter ratelimit.Limiter
	tokens  *tokenCache
}

// NewService returns a new aggregator client.
func NewService(opts Opts) Service {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	return &service{
		apiURL: opts.APIURL,
		client: &http.Client{
			Timeout: time.Duration(opts.RequestTimeout) * time.Millisecond,
		},
		limiter: ratelimit.New(rps),
		tokens:  newTokenCache(opts.TokenTTL, clock),
	}
}

type quoteResponse struct {
	InputMint      string `json:"inputMint"`
	OutputMint     string `json:"outputMint"`
	InAmount       string `json:"inAmount"`
	OutAmount      string `json:"outAmount"`
	PriceImpactPct string `json:"priceImpactPct"`
}

func (s *service) GetQuote(
	ctx context.Context, req QuoteRequest,
) (*Quote, error) {
	params := url.Values{}
	params.Set("inputMint", req.InputMint)
	params.Set("outputMint", req.OutputMint)
	params.Set("amount", strconv.FormatUint(req.Amount, 10))
	if req.SlippageBps > 0 {
		params.Set("slippageBps", strconv.Itoa(req.SlippageBps))
	}

	raw, err := s.get(ctx, "/quote?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("error on retrieving quote: %w", err)
	}

	var resp quoteResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("malformed quote response: %w", err)
	}

	inAmount, err := strconv.ParseUint(resp.InAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed quote in amount: %w", err)
	}
	outAmount, err := strconv.ParseUint(resp.OutAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed quote out amount: %w", err)
	}

	return &Quote{
		InputMint:      resp.InputMint,
		OutputMint:     resp.OutputMint,
		InAmount:       inAmount,
		OutAmount:      outAmount,
		PriceImpactPct: resp.PriceImpactPct,
		Raw:            raw,
	}, nil
}

type swapInstructionsRequest struct {
	QuoteResponse json.RawMessage `json:"quoteResponse"`
	UserPublicKey string          `json:"userPublicKey"`
}

type swapInstructionsResponse struct {
	Instructions []txbuilder.Instruction `json:"instructions"`
}

func (s *service) GetSwapInstructions(
	ctx context.Context, quote *Quote, userPublicKey string,
) ([]txbuilder.Instruction, error) {
	payload, err := json.Marshal(swapInstructionsRequest{
		QuoteResponse: quote.Raw,
		UserPublicKey: userPublicKey,
	})
	if err != nil {
		return nil, err
	}

	raw, err := s.post(ctx, "/swap-instructions", payload)
	if err != nil {
		return nil, fmt.Errorf("error on retrieving swap instructions: %w", err)
	}

	var resp swapInstructionsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("malformed swap instructions response: %w", err)
	}
	if len(resp.Instructions) == 0 {
		return nil, fmt.Errorf("aggregator returned no swap instructions")
	}
	return resp.Instructions, nil
}

func (s *service) get(ctx context.Context, path string) ([]byte, error) {
	s.limiter.Take()
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, s.apiURL+path, nil,
	)
	if err != nil {
		return nil, err
	}
	return s.do(req)
}

func (s *service) post(
	ctx context.Context, path string, body []byte,
) ([]byte, error) {
	s.limiter.Take()
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, s.apiURL+path, bytes.NewReader(body),
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return s.do(req)
}

func (s *service) do(req *http.Request) ([]byte, error) {
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
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}
	return body, nil
}
