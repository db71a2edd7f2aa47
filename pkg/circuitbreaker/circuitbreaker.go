package circuitbreaker

import (
	"time"

	"github.com/sony/gobreaker"
)

var (
	// MaxNumOfFailingRequests ...
	MaxNumOfFailingRequests = 10
	// FailingRatio ...
	FailingRatio = 0.6
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout = 30 * time.Second
)

// NewCircuitBreaker is a factory function returning a *gobreaker.CircuitBreaker
// guarding the external ledger and relay endpoints. The breaker trips once the
// number of requests exceeds MaxNumOfFailingRequests with a failing ratio of
// at least FailingRatio.
func NewCircuitBreaker() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "circuitbreaker",
		Timeout: OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return int(counts.Requests) > MaxNumOfFailingRequests && ratio >= FailingRatio
		},
	})
}
