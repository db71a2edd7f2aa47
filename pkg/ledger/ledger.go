package ledger

import "context"

// CompressedAccount is a shielded-pool note tracked by the compression layer.
type CompressedAccount struct {
	Hash       string
	Lamports   uint64
	MerkleTree string
}

// CompressedTokenAccount is a shielded note holding a token amount.
type CompressedTokenAccount struct {
	Hash       string
	Mint       string
	Amount     uint64
	MerkleTree string
}

// ValidityProof proves a set of compressed accounts are valid inputs to a
// state transition. The proof itself is opaque to the daemon.
type ValidityProof struct {
	CompressedProof string
	RootIndices     []uint32
}

// Blockhash is a recent network blockhash along with the last block height at
// which a transaction referencing it is valid.
type Blockhash struct {
	Blockhash            string
	LastValidBlockHeight uint64
}

// Service is the interface to the compressed-ledger RPC collaborator.
type Service interface {
	GetBalance(ctx context.Context, address string) (uint64, error)
	GetTokenBalance(ctx context.Context, address, mint string) (uint64, error)
	GetCompressedAccountsByOwner(
		ctx context.Context, owner string,
	) ([]CompressedAccount, error)
	GetCompressedTokenAccountsByOwner(
		ctx context.Context, owner, mint string,
	) ([]CompressedTokenAccount, error)
	GetValidityProof(
		ctx context.Context, hashes []string,
	) (*ValidityProof, error)
	GetLatestBlockhash(ctx context.Context) (*Blockhash, error)
	GetBlockHeight(ctx context.Context) (uint64, error)
	SendTransaction(ctx context.Context, txBase64 string) (string, error)
	IsTransactionConfirmed(
		ctx context.Context, signature string,
	) (bool, error)
}

// SignatureNotification is pushed by the websocket subscription once a
// submitted transaction reaches a terminal status.
type SignatureNotification struct {
	Signature string
	Err       string
}

// Subscriber is the optional push interface of the ledger. Implementations
// fall back to polling when the websocket endpoint is not configured.
type Subscriber interface {
	SubscribeSignature(
		ctx context.Context, signature string,
	) (<-chan SignatureNotification, error)
}
