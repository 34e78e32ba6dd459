package payroll

import "github.com/shopspring/decimal"

// elective401kLimits holds the IRS elective deferral limit (402(g)) per
// calendar year. Catch-up contributions are not modeled.
var elective401kLimits = map[int]int64{
	2022: 20500,
	2023: 22500,
	2024: 23000,
	2025: 23500,
}

// Limit401k returns the elective deferral limit for a year. When the
// year has no published entry the closest known year is used instead,
// with exact=false so callers can surface the substitution.
func Limit401k(year int) (limit decimal.Decimal, yearUsed int, exact bool) {
	if v, ok := elective401kLimits[year]; ok {
		return decimal.NewFromInt(v), year, true
	}
	best := 0
	for y := range elective401kLimits {
		if best == 0 || absInt(y-year) < absInt(best-year) ||
			(absInt(y-year) == absInt(best-year) && y > best) {
			best = y
		}
	}
	return decimal.NewFromInt(elective401kLimits[best]), best, false
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
