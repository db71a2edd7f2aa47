package ledger

import (
	"errors"
	"sort"
)

// ErrInsufficientAccounts is thrown when the owned notes cannot cover the
// target amount.
var ErrInsufficientAccounts = errors.New(
	"compressed accounts do not cover the target amount",
)

// SelectMinAccountsForTransfer picks a minimal covering subset of notes for
// the target amount, greedy by size. It returns the selected accounts and the
// total amount they carry.
func SelectMinAccountsForTransfer(
	accounts []CompressedAccount, target uint64,
) ([]CompressedAccount, uint64, error) {
	sorted := make([]CompressedAccount, len(accounts))
	copy(sorted, accounts)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Lamports > sorted[j].Lamports
	})

	selected := make([]CompressedAccount, 0, len(sorted))
	total := uint64(0)
	for _, account := range sorted {
		if total >= target {
			break
		}
		selected = append(selected, account)
		total += account.Lamports
	}

	if total < target {
		return nil, 0, ErrInsufficientAccounts
	}
	return selected, total, nil
}

// SelectMinTokenAccountsForTransfer is the token variant of
// SelectMinAccountsForTransfer.
func SelectMinTokenAccountsForTransfer(
	accounts []CompressedTokenAccount, target uint64,
) ([]CompressedTokenAccount, uint64, error) {
	sorted := make([]CompressedTokenAccount, len(accounts))
	copy(sorted, accounts)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Amount > sorted[j].Amount
	})

	selected := make([]CompressedTokenAccount, 0, len(sorted))
	total := uint64(0)
	for _, account := range sorted {
		if total >= target {
			break
		}
		selected = append(selected, account)
		total += account.Amount
	}

	if total < target {
		return nil, 0, ErrInsufficientAccounts
	}
	return selected, total, nil
}

// SumLamports returns the total amount of the given notes.
func SumLamports(accounts []CompressedAccount) uint64 {
	total := uint64(0)
	for _, account := range accounts {
		total += account.Lamports
	}
	return total
}

// SumTokenAmounts returns the total amount of the given token notes.
func SumTokenAmounts(accounts []CompressedTokenAccount) uint64 {
	total := uint64(0)
	for _, account := range accounts {
		total += account.Amount
	}
	return total
}
