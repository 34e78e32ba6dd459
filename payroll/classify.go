/*
Package payroll adapts the generic engine to US payroll semantics: pay
type classification of records and statutory retirement-plan limits.

The engine package stays domain-light (categories and tolerances); the
knowledge of what a "bonus check" or a deferral limit means lives here.
*/
package payroll

import "github.com/warp/payroll-engine/engine"

// PayType classifies a record by its dominant earnings content.
type PayType string

const (
	PayRegular   PayType = "regular"
	PayBonus     PayType = "bonus"
	PayStockVest PayType = "stock_vest"
	PayOther     PayType = "other"
)

// Classify identifies the pay type of a record from its non-zero
// current-period earnings categories. Stock and bonus checks are usually
// issued separately from the regular run, so those categories win when
// present even if a small regular amount rides along.
func Classify(rec engine.PayPeriodRecord) PayType {
	switch {
	case rec.Earnings.Get(engine.CategoryStockVest).IsPositive():
		return PayStockVest
	case rec.Earnings.Get(engine.CategoryBonus).IsPositive():
		return PayBonus
	case rec.Earnings.Get(engine.CategoryRegular).IsPositive():
		return PayRegular
	default:
		return PayOther
	}
}

// CountByType tallies records per pay type, for summary reporting.
func CountByType(records []engine.PayPeriodRecord) map[PayType]int {
	counts := make(map[PayType]int)
	for _, rec := range records {
		counts[Classify(rec)]++
	}
	return counts
}
