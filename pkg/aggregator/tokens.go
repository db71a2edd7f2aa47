package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"
)

// ErrTokenNotFound ...
var ErrTokenNotFound = errors.New("token not found")

// popularTokens short-circuits metadata resolution for the most traded mints.
var popularTokens = []Token{
	{
		Mint:     "So11111111111111111111111111111111111111112",
		Symbol:   "SOL",
		Name:     "Wrapped SOL",
		Decimals: 9,
	},
	{
		Mint:     "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		Symbol:   "USDC",
		Name:     "USD Coin",
		Decimals: 6,
	},
	{
		Mint:     "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB",
		Symbol:   "USDT",
		Name:     "USDT",
		Decimals: 6,
	},
	{
		Mint:     "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN",
		Symbol:   "JUP",
		Name:     "Jupiter",
		Decimals: 6,
	},
}

type tokenCacheEntry struct {
	token     Token
	timestamp time.Time
}

// tokenCache memoizes remote metadata lookups per mint for a fixed TTL. Stale
// entries are overwritten on the next fetch, never proactively evicted.
type tokenCache struct {
	mtx     sync.Mutex
	entries map[string]tokenCacheEntry
	ttl     time.Duration
	clock   func() time.Time
}

func newTokenCache(ttl time.Duration, clock func() time.Time) *tokenCache {
	return &tokenCache{
		entries: map[string]tokenCacheEntry{},
		ttl:     ttl,
		clock:   clock,
	}
}

func (c *tokenCache) get(mint string) (Token, bool) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	entry, found := c.entries[mint]
	if !found {
		return Token{}, false
	}
	if c.clock().Sub(entry.timestamp) > c.ttl {
		return Token{}, false
	}
	return entry.token, true
}

func (c *tokenCache) put(token Token) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.entries[token.Mint] = tokenCacheEntry{
		token:     token,
		timestamp: c.clock(),
	}
}

func (s *service) GetToken(ctx context.Context, mint string) (*Token, error) {
	for _, token := range popularTokens {
		if token.Mint == mint {
			popular := token
			return &popular, nil
		}
	}

	if token, found := s.tokens.get(mint); found {
		return &token, nil
	}

	params := url.Values{}
	params.Set("query", mint)
	raw, err := s.get(ctx, "/tokens/search?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("error on searching token: %w", err)
	}

	var results []Token
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, fmt.Errorf("malformed token search response: %w", err)
	}

	for _, token := range results {
		if token.Mint == mint {
			s.tokens.put(token)
			found := token
			return &found, nil
		}
	}
	return nil, ErrTokenNotFound
}
