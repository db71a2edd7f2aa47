package ports

import "github.com/veil-network/veil-daemon/internal/core/domain"

// RepoManager gives access to all the domain repositories backed by the same
// store.
type RepoManager interface {
	AddressRepository() domain.AddressRepository
	OperationRepository() domain.OperationRepository
	Close()
}
