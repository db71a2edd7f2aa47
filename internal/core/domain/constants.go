package domain

const (
	// LamportsPerSol is the number of base units of the native token.
	LamportsPerSol = 1_000_000_000

	// NativeDecimals is the precision of the native token.
	NativeDecimals = 9

	// NativeMint identifies the native token in balance and cache keys.
	NativeMint = "native"

	// DefaultFeeBufferLamports is added on top of a shortfall when shielding, so
	// that the shielded pool can pay the network fee of the operation that
	// follows the pool movement. 0.0002 SOL general buffer plus the base
	// per-signature fee allowance.
	DefaultFeeBufferLamports = 200_000 + 5_000

	// DefaultMaxSendTolerance is the rounding tolerance, in lamports, within
	// which a requested amount is considered a full private-balance sweep.
	DefaultMaxSendTolerance = 100

	// DefaultFeeReserveLamports is deducted from a full-balance request before
	// reconciliation to avoid leaving an unpayable remainder. 0.02 SOL.
	DefaultFeeReserveLamports = 20_000_000

	// DefaultMinGasLamports is the public native balance under which a token
	// operation first tops up gas from the shielded native pool. 0.001 SOL.
	DefaultMinGasLamports = 1_000_000

	// MinFeeLamports is the floor of the shield/unshield service fee, expressed
	// in native base units and scaled by token precision for other mints.
	MinFeeLamports = 10_000
)
