package domain

import "context"

// OperationKind enumerates the operations the daemon records.
type OperationKind string

const (
	OperationShield   OperationKind = "shield"
	OperationUnshield OperationKind = "unshield"
	OperationTransfer OperationKind = "transfer"
	OperationSend     OperationKind = "send"
	OperationSwap     OperationKind = "swap"
)

// Operation is the durable record of a terminal flow. The transaction
// signature is the only on-chain handle the daemon keeps.
type Operation struct {
	FlowID      string
	Kind        OperationKind
	Wallet      string
	Mint        string
	Amount      uint64
	Fee         uint64
	TxSignature string
	Status      string
	Reason      string
	Timestamp   int64
}

// Key identifies the record in storage.
func (o Operation) Key() string {
	return o.FlowID
}

// Page is used to paginate repository listings.
type Page struct {
	Number int
	Size   int
}

// OperationRepository persists terminal operation records.
type OperationRepository interface {
	AddOperation(ctx context.Context, operation Operation) error
	ListOperationsForWallet(
		ctx context.Context, wallet string, page Page,
	) ([]Operation, error)
}
