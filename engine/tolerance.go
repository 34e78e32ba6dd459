package engine

import "github.com/shopspring/decimal"

// =============================================================================
// TOLERANCES - Named configuration value set for all checks
// =============================================================================

// Tolerances centralizes every threshold used by the validators, so the
// engine carries no scattered magic numbers and tests can exercise edge
// cases deterministically.
type Tolerances struct {
	// CadenceToleranceDays is the window within which two date gaps count
	// as the same cadence (holidays routinely shift a pay day a few days).
	CadenceToleranceDays int

	// ConsistencyAbs / ConsistencyRel gate the consistency-mismatch
	// warning: a delta-vs-reported difference must exceed BOTH to be
	// flagged at all. ConsistencyAbs also serves as the epsilon for YTD
	// monotonicity and reset detection.
	ConsistencyAbs decimal.Decimal
	ConsistencyRel decimal.Decimal

	// ConsistencyErrorAbs / ConsistencyErrorRel escalate a flagged
	// mismatch to error severity when EITHER is exceeded.
	ConsistencyErrorAbs decimal.Decimal
	ConsistencyErrorRel decimal.Decimal
}

// DefaultTolerances returns the standard tolerance set: one currency unit /
// 0.5% for the warning gate, $50 / 5% for the error escalation, and a
// three-day cadence window.
func DefaultTolerances() Tolerances {
	return Tolerances{
		CadenceToleranceDays: 3,
		ConsistencyAbs:       decimal.NewFromInt(1),
		ConsistencyRel:       decimal.NewFromFloat(0.005),
		ConsistencyErrorAbs:  decimal.NewFromInt(50),
		ConsistencyErrorRel:  decimal.NewFromFloat(0.05),
	}
}
