package compressed

import (
	"context"
	"fmt"

	"github.com/veil-network/veil-daemon/pkg/ledger"
)

func (s *service) GetBalance(
	ctx context.Context, address string,
) (uint64, error) {
	var result balanceResult
	if err := s.call(
		ctx, "getBalance", []interface{}{address}, &result,
	); err != nil {
		return 0, fmt.Errorf("error on retrieving balance: %w", err)
	}
	return result.Value, nil
}

func (s *service) GetTokenBalance(
	ctx context.Context, address, mint string,
) (uint64, error) {
	var result struct {
		Value struct {
			Amount uint64 `json:"amount,string"`
		} `json:"value"`
	}
	params := []interface{}{
		address,
		map[string]interface{}{"mint": mint},
	}
	if err := s.call(
		ctx, "getTokenAccountBalance", params, &result,
	); err != nil {
		return 0, fmt.Errorf("error on retrieving token balance: %w", err)
	}
	return result.Value.Amount, nil
}

func (s *service) GetCompressedAccountsByOwner(
	ctx context.Context, owner string,
) ([]ledger.CompressedAccount, error) {
	var result compressedAccountList
	params := map[string]interface{}{"owner": owner}
	if err := s.call(
		ctx, "getCompressedAccountsByOwner", params, &result,
	); err != nil {
		return nil, fmt.Errorf("error on retrieving compressed accounts: %w", err)
	}

	accounts := make([]ledger.CompressedAccount, 0, len(result.Items))
	for _, item := range result.Items {
		accounts = append(accounts, item.toDomain())
	}
	return accounts, nil
}

func (s *service) GetCompressedTokenAccountsByOwner(
	ctx context.Context, owner, mint string,
) ([]ledger.CompressedTokenAccount, error) {
	var result compressedTokenAccountList
	params := map[string]interface{}{"owner": owner}
	if mint != "" {
		params["mint"] = mint
	}
	if err := s.call(
		ctx, "getCompressedTokenAccountsByOwner", params, &result,
	); err != nil {
		return nil, fmt.Errorf(
			"error on retrieving compressed token accounts: %w", err,
		)
	}

	accounts := make([]ledger.CompressedTokenAccount, 0, len(result.Items))
	for _, item := range result.Items {
		accounts = append(accounts, item.toDomain())
	}
	return accounts, nil
}

func (s *service) GetValidityProof(
	ctx context.Context, hashes []string,
) (*ledger.ValidityProof, error) {
	var result validityProofResult
	params := map[string]interface{}{"hashes": hashes}
	if err := s.call(ctx, "getValidityProof", params, &result); err != nil {
		return nil, fmt.Errorf("error on retrieving validity proof: %w", err)
	}

	return &ledger.ValidityProof{
		CompressedProof: result.CompressedProof,
		RootIndices:     result.RootIndices,
	}, nil
}
