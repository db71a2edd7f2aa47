package domain

// ReconcilePolicy tunes the balance reconciliation ahead of a shielded
// operation.
type ReconcilePolicy struct {
	// FeeBuffer is added to a shield amount so the shielded pool can pay the
	// fee of the operation following the pool movement.
	FeeBuffer uint64
	// MaxSendTolerance is the rounding tolerance under which a request is
	// treated as a full private-balance sweep.
	MaxSendTolerance uint64
	// FeeReserve is deducted from a full-balance request before
	// reconciliation.
	FeeReserve uint64
}

// DefaultReconcilePolicy returns the policy used for native transfers.
func DefaultReconcilePolicy() ReconcilePolicy {
	return ReconcilePolicy{
		FeeBuffer:        DefaultFeeBufferLamports,
		MaxSendTolerance: DefaultMaxSendTolerance,
		FeeReserve:       DefaultFeeReserveLamports,
	}
}

// TokenReconcilePolicy returns the policy used for token transfers. Network
// fees are paid in the native token from the transparent account, so token
// pool movements carry no fee buffer and a sweep leaves no reserve behind.
func TokenReconcilePolicy() ReconcilePolicy {
	return ReconcilePolicy{
		MaxSendTolerance: DefaultMaxSendTolerance,
	}
}

// Plan is the outcome of a reconciliation: how much must move between pools
// before the primary operation, and the possibly adjusted amount of the
// operation itself.
type Plan struct {
	ShieldAmount   uint64
	UnshieldAmount uint64
	AdjustedAmount uint64
}

// NeedsShield returns whether the plan requires a public to private movement.
func (p Plan) NeedsShield() bool {
	return p.ShieldAmount > 0
}

// Reconcile decides how much must be shielded so that the private pool can
// cover the required amount plus the fee of the operation that follows.
//
// A request within MaxSendTolerance of the full private balance is treated as
// a sweep and reduced by FeeReserve first, so the remainder left behind is
// never unpayable.
func Reconcile(required, public, private uint64, pol ReconcilePolicy) (*Plan, error) {
	if required == 0 {
		return nil, ErrInvalidAmount
	}

	if isMaxSend(required, private, pol.MaxSendTolerance) {
		if required <= pol.FeeReserve {
			return nil, ErrAmountBelowReserve
		}
		required -= pol.FeeReserve
	}

	if private >= required {
		return &Plan{AdjustedAmount: required}, nil
	}

	if public+private < required {
		return nil, &InsufficientFundsError{
			Required:  required,
			Available: public + private,
		}
	}

	shortfall := required - private
	shield := shortfall + pol.FeeBuffer
	if shield > public {
		// the buffer is best effort: shield what the public pool holds
		shield = public
	}

	return &Plan{
		ShieldAmount:   shield,
		AdjustedAmount: required,
	}, nil
}

// ReconcileGas checks whether a token operation needs a native gas top-up
// first. It returns the amount of native token to unshield, zero when the
// public pool already covers the threshold, or ErrInsufficientGas when the
// private pool cannot cover the top-up either.
func ReconcileGas(publicNative, privateNative, minGas uint64) (uint64, error) {
	if publicNative >= minGas {
		return 0, nil
	}

	topUp := minGas - publicNative
	if privateNative < topUp {
		return 0, ErrInsufficientGas
	}
	return topUp, nil
}

func isMaxSend(required, private, tolerance uint64) bool {
	if private == 0 {
		return false
	}
	diff := required - private
	if required < private {
		diff = private - required
	}
	return diff <= tolerance
}
