package compressed

import (
	"context"
	"fmt"

	"github.com/veil-network/veil-daemon/pkg/ledger"
)

func (s *service) GetLatestBlockhash(
	ctx context.Context,
) (*ledger.Blockhash, error) {
	var result blockhashResult
	if err := s.call(ctx, "getLatestBlockhash", nil, &result); err != nil {
		return nil, fmt.Errorf("error on retrieving blockhash: %w", err)
	}
	return &ledger.Blockhash{
		Blockhash:            result.Value.Blockhash,
		LastValidBlockHeight: result.Value.LastValidBlockHeight,
	}, nil
}

func (s *service) GetBlockHeight(ctx context.Context) (uint64, error) {
	var height uint64
	if err := s.call(ctx, "getBlockHeight", nil, &height); err != nil {
		return 0, fmt.Errorf("error on retrieving block height: %w", err)
	}
	return height, nil
}

func (s *service) SendTransaction(
	ctx context.Context, txBase64 string,
) (string, error) {
	var signature string
	params := []interface{}{
		txBase64,
		map[string]interface{}{"encoding": "base64"},
	}
	if err := s.call(ctx, "sendTransaction", params, &signature); err != nil {
		return "", fmt.Errorf("error on broadcasting transaction: %w", err)
	}
	return signature, nil
}

func (s *service) IsTransactionConfirmed(
	ctx context.Context, signature string,
) (bool, error) {
	var result signatureStatusResult
	params := []interface{}{[]string{signature}}
	if err := s.call(ctx, "getSignatureStatuses", params, &result); err != nil {
		return false, err
	}
	if len(result.Value) == 0 || result.Value[0] == nil {
		return false, nil
	}
	status := result.Value[0]
	if status.Err != nil {
		return false, fmt.Errorf("transaction failed on chain: %v", status.Err)
	}
	return status.ConfirmationStatus == "confirmed" ||
		status.ConfirmationStatus == "finalized", nil
}
