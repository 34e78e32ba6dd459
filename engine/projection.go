/*
projection.go - Year-end extrapolation from partial-year data

PURPOSE:
  Extends the validated actuals to a December-31 estimate using the
  cadences the Pattern Detector found. Projection is opt-in: validation
  always runs, projection only when the caller asks for a mid-year
  estimate.

PER-CATEGORY RESULTS:
  Each projectable category gets {actual, projected_add, estimated_total}.
  Categories that cannot be projected land in Skipped with a reason, so a
  caller can report partial results. ErrProjectionInsufficientData is
  returned only when nothing at all could be projected.

401k CAP:
  Contributions stop at the statutory elective-deferral limit. Reaching
  the limit mid-year is normal payroll behavior, not an anomaly: the
  projected add is clamped to the remaining headroom, and a YTD already
  at or above the limit projects zero.

TAX WITHHOLDING:
  Projected withholding follows the observed effective rate
  (YTD withheld / YTD taxable basis) applied to projected taxable income,
  not any tax-law computation - that belongs to a downstream consumer.
*/
package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PROJECTION INPUT / RESULT
// =============================================================================

// ProjectionInput carries everything the Projector needs. Cadence and
// Vest come from the Pattern Detector; either may be nil when detection
// failed, which skips the categories depending on it.
type ProjectionInput struct {
	Summary AnnualSummary

	Cadence *PayCadence
	Vest    *VestPattern

	// AsOf defaults to the last event date; YearEnd defaults to
	// December 31 of the summary year.
	AsOf    TimePoint
	YearEnd TimePoint

	// Limit401k is the statutory elective-deferral limit for the year.
	// Zero disables the cap.
	Limit401k decimal.Decimal

	// TaxableCategories designates the earnings categories forming the
	// withholding basis. Defaults to regular, bonus, and stock vest.
	TaxableCategories []Category
}

// CategoryProjection is the per-category outcome.
type CategoryProjection struct {
	Actual         decimal.Decimal
	ProjectedAdd   decimal.Decimal
	EstimatedTotal decimal.Decimal
}

// ProjectionResult maps categories to projections plus the cadence
// metadata used to produce them.
type ProjectionResult struct {
	Categories map[Category]CategoryProjection
	Skipped    map[Category]string

	RemainingPeriods int
	RemainingVests   int
	Cadence          *PayCadence
	Vest             *VestPattern
	AsOf             TimePoint
	YearEnd          TimePoint
}

// =============================================================================
// PROJECTOR
// =============================================================================

// Project extrapolates year-end totals for a partial year.
func Project(in ProjectionInput) (ProjectionResult, error) {
	summary := in.Summary

	yearEnd := in.YearEnd
	if yearEnd.IsZero() {
		yearEnd = EndOfYear(summary.Year)
	}
	asOf := in.AsOf
	if asOf.IsZero() {
		if len(summary.EventTimeline) > 0 {
			asOf = summary.EventTimeline[len(summary.EventTimeline)-1].Date
		} else {
			asOf = yearEnd
		}
	}

	result := ProjectionResult{
		Categories: map[Category]CategoryProjection{},
		Skipped:    map[Category]string{},
		Cadence:    in.Cadence,
		Vest:       in.Vest,
		AsOf:       asOf,
		YearEnd:    yearEnd,
	}

	totals := summary.CombinedTotals

	// Per-period averages come from the most recent employment segment
	// only, the same segment the cadence was detected on; a previous
	// employer's amounts describe a different salary.
	perPeriodEvents := summary.EventTimeline
	if n := len(summary.Segments); n > 0 {
		perPeriodEvents = eventsSince(summary.EventTimeline, summary.Segments[n-1].FirstDate)
	}

	// --- Regular pay -----------------------------------------------------
	if in.Cadence != nil && in.Cadence.IntervalDays > 0 {
		lastRegular, ok := LastEventDate(summary.EventTimeline, CategoryRegular)
		if !ok {
			result.Skipped[CategoryRegular] = "no regular-pay history"
		} else {
			result.RemainingPeriods = countSteps(lastRegular, yearEnd, in.Cadence.IntervalDays)
			avg := TrailingAverage(perPeriodEvents, CategoryRegular)
			add := avg.Mul(decimal.NewFromInt(int64(result.RemainingPeriods)))
			result.setCategory(CategoryRegular, totals.Earnings.Get(CategoryRegular), add)
		}
	} else {
		result.Skipped[CategoryRegular] = "no regular-pay cadence detected"
	}

	// --- Stock vesting ---------------------------------------------------
	if in.Vest != nil && len(in.Vest.Months) > 0 {
		lastVest, _ := LastEventDate(summary.EventTimeline, CategoryStockVest)
		result.RemainingVests = remainingVestCount(*in.Vest, lastVest, yearEnd)
		avg := TrailingAverage(summary.EventTimeline, CategoryStockVest)
		add := avg.Mul(decimal.NewFromInt(int64(result.RemainingVests)))
		result.setCategory(CategoryStockVest, totals.Earnings.Get(CategoryStockVest), add)
	} else {
		result.Skipped[CategoryStockVest] = "no vesting history"
	}

	// --- Bonus and other: actuals only, nothing recurring to project -----
	result.setCategory(CategoryBonus, totals.Earnings.Get(CategoryBonus), decimal.Zero)
	result.setCategory(CategoryOther, totals.Earnings.Get(CategoryOther), decimal.Zero)

	// --- Retirement (401k) with statutory cap ----------------------------
	if _, projected := result.Categories[CategoryRegular]; projected {
		ytdContrib := totals.Deductions.Get(DeductionRetirement)
		avg := TrailingAverage(perPeriodEvents, DeductionRetirement)
		add := avg.Mul(decimal.NewFromInt(int64(result.RemainingPeriods)))
		if in.Limit401k.IsPositive() {
			headroom := in.Limit401k.Sub(ytdContrib)
			if headroom.IsNegative() {
				headroom = decimal.Zero
			}
			if add.GreaterThan(headroom) {
				add = headroom
			}
		}
		result.setCategory(DeductionRetirement, ytdContrib, add)
	} else {
		result.Skipped[DeductionRetirement] = "retirement projection requires a regular-pay cadence"
	}

	// --- Tax withholding at the observed effective rate ------------------
	taxable := in.TaxableCategories
	if len(taxable) == 0 {
		taxable = []Category{CategoryRegular, CategoryBonus, CategoryStockVest}
	}
	basis := decimal.Zero
	projectedTaxableAdd := decimal.Zero
	for _, cat := range taxable {
		basis = basis.Add(totals.Earnings.Get(cat))
		if cp, ok := result.Categories[cat]; ok {
			projectedTaxableAdd = projectedTaxableAdd.Add(cp.ProjectedAdd)
		}
	}
	actualTaxes := totals.Taxes.Total()
	if basis.IsPositive() {
		rate := actualTaxes.Div(basis)
		result.setCategory(CategoryTaxesWithheld, actualTaxes, rate.Mul(projectedTaxableAdd))
	} else {
		result.Skipped[CategoryTaxesWithheld] = "no taxable income basis"
	}

	if _, regularOK := result.Categories[CategoryRegular]; !regularOK {
		if _, vestOK := result.Categories[CategoryStockVest]; !vestOK {
			return result, fmt.Errorf("%w (regular: %s; stock vest: %s)",
				ErrProjectionInsufficientData,
				result.Skipped[CategoryRegular], result.Skipped[CategoryStockVest])
		}
	}
	return result, nil
}

func (r *ProjectionResult) setCategory(cat Category, actual, add decimal.Decimal) {
	r.Categories[cat] = CategoryProjection{
		Actual:         actual,
		ProjectedAdd:   add,
		EstimatedTotal: actual.Add(add),
	}
}

// countSteps counts cadence-spaced dates in (from, to]: the first counted
// date is from+stepDays.
func countSteps(from, to TimePoint, stepDays int) int {
	count := 0
	for next := from.AddDays(stepDays); next.BeforeOrEqual(to); next = next.AddDays(stepDays) {
		count++
	}
	return count
}

// remainingVestCount counts vest occurrences after the last observed vest
// through year end. Periodic patterns extend the cycle forward; irregular
// patterns only replay already-observed months.
func remainingVestCount(vest VestPattern, lastVest TimePoint, yearEnd TimePoint) int {
	lastMonth := 0
	if !lastVest.IsZero() {
		lastMonth = int(lastVest.Month())
	}
	endMonth := int(yearEnd.Month())

	count := 0
	if vest.Periodic && vest.StepMonths > 0 {
		for m := lastMonth + vest.StepMonths; m <= endMonth; m += vest.StepMonths {
			count++
		}
		return count
	}
	for _, m := range vest.Months {
		if m > lastMonth && m <= endMonth {
			count++
		}
	}
	return count
}
