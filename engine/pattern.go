/*
pattern.go - Recurring cadence inference

PURPOSE:
  Infers the recurring structure of a pay history so the Projector can
  extrapolate: the regular-pay interval in days, and the set of calendar
  months in which stock vests occur.

REGULAR PAY:
  Uses the most recent segment only (a new employer can mean a new pay
  frequency). Gaps between consecutive records with non-zero regular
  earnings feed the same tolerance-bucketed mode tracker that continuity
  validation uses. The mode bin must hold a strict majority of the gaps,
  otherwise the history is irregular and the caller gets
  ErrPatternUndetected rather than a guessed default.

VESTING:
  Uses ALL segments: equity vests independently of the payroll employer,
  so vesting continues across employer changes. If the observed months are
  evenly spaced mod 12 (e.g. {2,5,8,11} -> step 3) the pattern is
  periodic; otherwise the literal observed month set is returned and the
  Projector projects one vest per future occurrence of an observed month.
*/
package engine

import (
	"math"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PAY CADENCE
// =============================================================================

type PayFrequency string

const (
	FreqWeekly   PayFrequency = "weekly"
	FreqBiweekly PayFrequency = "biweekly"
	FreqMonthly  PayFrequency = "monthly"
	FreqCustom   PayFrequency = "custom"
)

// PayCadence is a detected regular-pay interval.
type PayCadence struct {
	IntervalDays int
	Frequency    PayFrequency
	Observed     int // number of gaps supporting the estimate
}

// DetectPayCadence infers the regular-pay interval from the most recent
// segment. Requires at least three records with non-zero regular earnings;
// returns ErrPatternUndetected for shorter or irregular histories.
func (a *Analyzer) DetectPayCadence(seg Segment) (PayCadence, error) {
	var dates []TimePoint
	for _, rec := range seg.Records {
		if rec.Earnings.Get(CategoryRegular).IsPositive() {
			dates = append(dates, rec.PayDate)
		}
	}
	if len(dates) < 3 {
		return PayCadence{}, ErrPatternUndetected
	}

	tracker := newCadenceTracker(a.Tol.CadenceToleranceDays)
	gaps := 0
	for i := 1; i < len(dates); i++ {
		if gap := DaysBetween(dates[i-1], dates[i]); gap > 0 {
			tracker.Observe(gap)
			gaps++
		}
	}
	if gaps < 2 {
		return PayCadence{}, ErrPatternUndetected
	}

	mode, _ := tracker.mode()
	if mode.count*2 <= gaps {
		// No dominant interval: gaps disagree beyond tolerance.
		return PayCadence{}, ErrPatternUndetected
	}

	interval := int(math.Round(float64(mode.sumDays) / float64(mode.count)))
	return PayCadence{
		IntervalDays: snapInterval(interval),
		Frequency:    frequencyFor(interval),
		Observed:     mode.count,
	}, nil
}

// snapInterval rounds a raw interval to the canonical pay frequency it
// falls in, tolerating date drift from holidays and weekends.
func snapInterval(days int) int {
	switch {
	case days >= 6 && days <= 8:
		return 7
	case days >= 12 && days <= 16:
		return 14
	case days >= 28 && days <= 32:
		return 30
	default:
		return days
	}
}

func frequencyFor(days int) PayFrequency {
	switch snapInterval(days) {
	case 7:
		return FreqWeekly
	case 14:
		return FreqBiweekly
	case 30:
		return FreqMonthly
	default:
		return FreqCustom
	}
}

// =============================================================================
// VEST PATTERN
// =============================================================================

// VestPattern describes the months in which stock vests were observed.
// When Periodic is true the months are evenly spaced StepMonths apart
// mod 12; otherwise Months is the literal observed set.
type VestPattern struct {
	Months     []int // observed vest months, ascending, 1-12
	StepMonths int
	Periodic   bool
}

// DetectVestMonths collects vest months across the full history (all
// segments). Returns ErrPatternUndetected when no vest event exists.
func (a *Analyzer) DetectVestMonths(segments []Segment) (VestPattern, error) {
	seen := map[int]bool{}
	for _, seg := range segments {
		for _, rec := range seg.Records {
			if rec.Earnings.Get(CategoryStockVest).IsPositive() {
				seen[int(rec.PayDate.Month())] = true
			}
		}
	}
	if len(seen) == 0 {
		return VestPattern{}, ErrPatternUndetected
	}

	months := make([]int, 0, len(seen))
	for m := 1; m <= 12; m++ {
		if seen[m] {
			months = append(months, m)
		}
	}

	pattern := VestPattern{Months: months}
	if len(months) < 2 {
		return pattern, nil
	}

	// Evenly spaced? A partial-year observation like {2,5,8} still counts
	// as periodic (step 3); the cycle need not have wrapped yet.
	step := months[1] - months[0]
	periodic := true
	for i := 2; i < len(months); i++ {
		if months[i]-months[i-1] != step {
			periodic = false
			break
		}
	}
	if periodic {
		pattern.Periodic = true
		pattern.StepMonths = step
	}
	return pattern, nil
}

// =============================================================================
// TRAILING AVERAGES
// =============================================================================

// trailingWindow is the number of most recent amounts averaged for
// per-period projections; a short window damps outlier bonus-laden
// periods without overreacting to the single latest value.
const trailingWindow = 4

// TrailingAverage averages the last min(trailingWindow, n) timeline
// amounts of one category. Zero when the category has no events.
func TrailingAverage(timeline []Event, cat Category) decimal.Decimal {
	var amounts []decimal.Decimal
	for _, e := range timeline {
		if e.Category == cat {
			amounts = append(amounts, e.Amount)
		}
	}
	if len(amounts) == 0 {
		return decimal.Zero
	}
	if len(amounts) > trailingWindow {
		amounts = amounts[len(amounts)-trailingWindow:]
	}
	sum := decimal.Zero
	for _, a := range amounts {
		sum = sum.Add(a)
	}
	return sum.Div(decimal.NewFromInt(int64(len(amounts))))
}

// eventsSince filters the timeline to events dated on or after from.
func eventsSince(timeline []Event, from TimePoint) []Event {
	out := make([]Event, 0, len(timeline))
	for _, e := range timeline {
		if e.Date.AfterOrEqual(from) {
			out = append(out, e)
		}
	}
	return out
}

// LastEventDate returns the date of the most recent event of a category.
func LastEventDate(timeline []Event, cat Category) (TimePoint, bool) {
	var last TimePoint
	found := false
	for _, e := range timeline {
		if e.Category == cat {
			last = e.Date
			found = true
		}
	}
	return last, found
}
