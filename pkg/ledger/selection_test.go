package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/veil-network/veil-daemon/pkg/ledger"
)

func TestSelectMinAccountsForTransfer(t *testing.T) {
	t.Parallel()

	accounts := []ledger.CompressedAccount{
		{Hash: "a", Lamports: 100},
		{Hash: "b", Lamports: 700},
		{Hash: "c", Lamports: 300},
	}

	tests := []struct {
		name           string
		target         uint64
		expectedHashes []string
		expectedTotal  uint64
		expectedError  error
	}{
		{
			name:           "single_note_covers",
			target:         600,
			expectedHashes: []string{"b"},
			expectedTotal:  700,
		},
		{
			name:           "two_notes_needed",
			target:         900,
			expectedHashes: []string{"b", "c"},
			expectedTotal:  1000,
		},
		{
			name:           "all_notes_needed",
			target:         1100,
			expectedHashes: []string{"b", "c", "a"},
			expectedTotal:  1100,
		},
		{
			name:          "not_enough",
			target:        1101,
			expectedError: ledger.ErrInsufficientAccounts,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			selected, total, err := ledger.SelectMinAccountsForTransfer(
				accounts, tt.target,
			)
			if tt.expectedError != nil {
				require.ErrorIs(t, err, tt.expectedError)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expectedTotal, total)

			hashes := make([]string, 0, len(selected))
			for _, account := range selected {
				hashes = append(hashes, account.Hash)
			}
			require.Equal(t, tt.expectedHashes, hashes)
		})
	}

	// input order is untouched
	require.Equal(t, "a", accounts[0].Hash)
}

func TestSelectMinTokenAccountsForTransfer(t *testing.T) {
	t.Parallel()

	accounts := []ledger.CompressedTokenAccount{
		{Hash: "x", Mint: "usdc", Amount: 4_000_000},
		{Hash: "y", Mint: "usdc", Amount: 9_000_000},
	}

	selected, total, err := ledger.SelectMinTokenAccountsForTransfer(
		accounts, 10_000_000,
	)
	require.NoError(t, err)
	require.Len(t, selected, 2)
	require.Equal(t, uint64(13_000_000), total)
	require.Equal(t, total, ledger.SumTokenAmounts(selected))
}
