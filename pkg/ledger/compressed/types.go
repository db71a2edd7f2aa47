package compressed

import (
	"fmt"

	"github.com/veil-network/veil-daemon/pkg/ledger"
)

// RPCError is the structured error returned by the indexer. The raw provider
// message is kept as an attachment rather than being parsed.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("ledger rpc error %d: %s", e.Code, e.Message)
}

type compressedAccountItem struct {
	Hash       string `json:"hash"`
	Lamports   uint64 `json:"lamports"`
	MerkleTree string `json:"merkleTree"`
}

type compressedAccountList struct {
	Items []compressedAccountItem `json:"items"`
}

type compressedTokenAccountItem struct {
	Account struct {
		Hash       string `json:"hash"`
		MerkleTree string `json:"merkleTree"`
	} `json:"account"`
	TokenData struct {
		Mint   string `json:"mint"`
		Amount uint64 `json:"amount"`
	} `json:"tokenData"`
}

type compressedTokenAccountList struct {
	Items []compressedTokenAccountItem `json:"items"`
}

type validityProofResult struct {
	CompressedProof string   `json:"compressedProof"`
	RootIndices     []uint32 `json:"rootIndices"`
}

type blockhashResult struct {
	Value struct {
		Blockhash            string `json:"blockhash"`
		LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
	} `json:"value"`
}

type balanceResult struct {
	Value uint64 `json:"value"`
}

type signatureStatusResult struct {
	Value []*struct {
		ConfirmationStatus string `json:"confirmationStatus"`
		Err                any    `json:"err"`
	} `json:"value"`
}

func (i compressedAccountItem) toDomain() ledger.CompressedAccount {
	return ledger.CompressedAccount{
		Hash:       i.Hash,
		Lamports:   i.Lamports,
		MerkleTree: i.MerkleTree,
	}
}

func (i compressedTokenAccountItem) toDomain() ledger.CompressedTokenAccount {
	return ledger.CompressedTokenAccount{
		Hash:       i.Account.Hash,
		Mint:       i.TokenData.Mint,
		Amount:     i.TokenData.Amount,
		MerkleTree: i.Account.MerkleTree,
	}
}
