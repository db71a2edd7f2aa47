package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// TenThousands is the divisor turning basis points into a percentage.
var TenThousands = decimal.NewFromInt(10000)

// FeePolicy describes the service fee applied to a shield or unshield. The
// rate is expressed in basis points (100 = 1%) with a floor expressed in
// native base units, scaled down for tokens with fewer decimals.
type FeePolicy struct {
	BasisPoints uint64
	MinFee      uint64
}

var (
	// WalletFeePolicy applies to operations signed and paid by the wallet itself.
	WalletFeePolicy = FeePolicy{BasisPoints: 100, MinFee: MinFeeLamports}
	// GaslessFeePolicy applies to operations subsidized by the relay.
	GaslessFeePolicy = FeePolicy{BasisPoints: 200, MinFee: MinFeeLamports}
)

// Fee returns max(floor(amount * rate), minFee) for a token with the given
// precision. The floor never exceeds the amount itself.
func (p FeePolicy) Fee(amount uint64, decimals uint32) uint64 {
	amountDecimal := decimal.NewFromBigInt(new(big.Int).SetUint64(amount), 0)
	bpsDecimal := decimal.NewFromBigInt(new(big.Int).SetUint64(p.BasisPoints), 0)

	fee := amountDecimal.Mul(bpsDecimal).Div(TenThousands).Floor()

	minFee := p.scaledMinFee(decimals)
	if fee.Cmp(minFee) < 0 {
		fee = minFee
	}
	if fee.Cmp(amountDecimal) > 0 {
		fee = amountDecimal
	}
	return fee.BigInt().Uint64()
}

// LessFee returns the net amount delivered once the fee is subtracted, along
// with the fee itself.
func (p FeePolicy) LessFee(amount uint64, decimals uint32) (net, fee uint64) {
	fee = p.Fee(amount, decimals)
	return amount - fee, fee
}

func (p FeePolicy) scaledMinFee(decimals uint32) decimal.Decimal {
	minFee := decimal.NewFromBigInt(new(big.Int).SetUint64(p.MinFee), 0)
	if decimals == NativeDecimals {
		return minFee
	}
	exp := int32(decimals) - NativeDecimals
	return minFee.Mul(decimal.New(1, exp)).Floor()
}
