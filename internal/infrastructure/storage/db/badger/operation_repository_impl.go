package dbbadger

import (
	"context"

	"github.com/timshannon/badgerhold/v4"

	"github.com/veil-network/veil-daemon/internal/core/domain"
)

type operationRepositoryImpl struct {
	store *badgerhold.Store
}

// NewOperationRepositoryImpl initialize a badger implementation of the
// domain.OperationRepository
func NewOperationRepositoryImpl(store *badgerhold.Store) domain.OperationRepository {
	return operationRepositoryImpl{store}
}

func (o operationRepositoryImpl) AddOperation(
	ctx context.Context, operation domain.Operation,
) error {
	if err := o.store.Insert(operation.Key(), &operation); err != nil {
		if err != badgerhold.ErrKeyExists {
			return err
		}
	}
	return nil
}

func (o operationRepositoryImpl) ListOperationsForWallet(
	ctx context.Context, wallet string, page domain.Page,
) ([]domain.Operation, error) {
	query := badgerhold.Where("Wallet").Eq(wallet).
		SortBy("Timestamp").Reverse()

	if page.Size > 0 {
		from := page.Number*page.Size - page.Size
		if from < 0 {
			from = 0
		}
		query = query.Skip(from).Limit(page.Size)
	}

	var operations []domain.Operation
	if err := o.store.Find(&operations, query); err != nil {
		return nil, err
	}
	if operations == nil {
		operations = make([]domain.Operation, 0)
	}
	return operations, nil
}
