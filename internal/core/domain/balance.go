package domain

import "time"

// Balance holds the transparent and shielded balances of an address for a
// single mint. It is only ever produced by querying the ledger; the private
// side is the summation of the owned shielded note amounts.
type Balance struct {
	Public  uint64
	Private uint64
	AsOf    time.Time
}

// Total returns the sum of both pools.
func (b Balance) Total() uint64 {
	return b.Public + b.Private
}
