package application

import "errors"

var (
	// ErrServiceUnavailable is returned in case of internal errors
	ErrServiceUnavailable = errors.New("service is unavailable, try again later")
	// ErrIndexerLagged is returned when the indexer does not reflect a
	// confirmed shield within the polling deadline
	ErrIndexerLagged = errors.New(
		"shielded balance not yet visible, the indexer is catching up",
	)
	// ErrConfirmationTimeout is returned when a submitted transaction could
	// not be confirmed in time. The transaction may still have landed.
	ErrConfirmationTimeout = errors.New(
		"transaction confirmation timed out, it may still land",
	)
	// ErrUnknownNamespace ...
	ErrUnknownNamespace = errors.New("unknown address namespace")
)
