/*
continuity.go - Segment detection and gap findings

PURPOSE:
  Scans the ordered record sequence once, splitting it into employer
  segments and flagging holes in the expected pay cadence. This is the
  first engine stage; everything downstream consumes its segments.

ALGORITHM:
  Sort ascending, then fold over consecutive pairs with an explicit
  ScanState (current segment + running cadence estimate). For pairs in the
  same segment the date gap feeds a cadence tracker; the running "expected
  cadence" is the mode of observed gaps, where gaps within a few days of an
  existing bin merge into it rather than opening a new one (holidays shift
  pay days). A gap above 1.5x the expected cadence is a missing-period
  warning. An employer change or a YTD reset closes the segment.

SEVERITY RULES:
  - segment-boundary is informational: legitimate employer changes reset
    YTD and must be distinguishable from anomalies downstream.
  - A YTD reset WITHOUT an employer change also emits a ytd-anomaly
    warning: it is either an employer change not yet reflected in the
    identifier, or a genuine data problem. The ambiguity is why this is a
    warning here, while an intra-segment per-category decrease (see
    consistency.go) is a hard error.

SEE ALSO:
  - consistency.go: Runs per segment on this stage's output
  - pattern.go: Reuses the cadence tracker for pay-frequency inference
*/
package engine

import (
	"fmt"
	"math"
	"sort"
)

// Analyzer runs the validation pipeline with a fixed tolerance set. It
// holds no per-call state; one instance may serve concurrent calls.
type Analyzer struct {
	Tol Tolerances
}

func NewAnalyzer(tol Tolerances) *Analyzer {
	return &Analyzer{Tol: tol}
}

// =============================================================================
// CADENCE TRACKER - Running mode of observed date gaps
// =============================================================================

type cadenceBin struct {
	days    int // first-seen gap for this bin
	count   int
	sumDays int
}

// cadenceTracker buckets observed gaps into tolerance-wide bins and
// reports the mode. Ties resolve to the earlier-seen bin.
type cadenceTracker struct {
	bins      []cadenceBin
	tolerance int
}

func newCadenceTracker(toleranceDays int) *cadenceTracker {
	return &cadenceTracker{tolerance: toleranceDays}
}

func (ct *cadenceTracker) Observe(gapDays int) {
	best, bestDist := -1, ct.tolerance+1
	for i := range ct.bins {
		d := gapDays - ct.bins[i].days
		if d < 0 {
			d = -d
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	if best >= 0 && bestDist <= ct.tolerance {
		ct.bins[best].count++
		ct.bins[best].sumDays += gapDays
		return
	}
	ct.bins = append(ct.bins, cadenceBin{days: gapDays, count: 1, sumDays: gapDays})
}

func (ct *cadenceTracker) observations() int {
	n := 0
	for _, b := range ct.bins {
		n += b.count
	}
	return n
}

func (ct *cadenceTracker) mode() (cadenceBin, bool) {
	if len(ct.bins) == 0 {
		return cadenceBin{}, false
	}
	best := ct.bins[0]
	for _, b := range ct.bins[1:] {
		if b.count > best.count {
			best = b
		}
	}
	return best, true
}

// Expected returns the running cadence estimate: the rounded mean of the
// mode bin. The first two gaps only seed the tracker, so the estimate is
// available from the second observation on.
func (ct *cadenceTracker) Expected() (int, bool) {
	if ct.observations() < 2 {
		return 0, false
	}
	m, _ := ct.mode()
	return int(math.Round(float64(m.sumDays) / float64(m.count))), true
}

// =============================================================================
// CONTINUITY VALIDATOR
// =============================================================================

// ValidateContinuity sorts the records, drops malformed ones with
// data-error findings, splits the remainder into segments, and flags
// cadence gaps. Pure function of the inputs and the as-of date.
//
// A zero asOf defaults to the latest record's pay date.
func (a *Analyzer) ValidateContinuity(records []PayPeriodRecord, year int, asOf TimePoint) ([]Segment, []Finding, error) {
	findings := []Finding{}

	clean := make([]PayPeriodRecord, 0, len(records))
	for _, r := range records {
		if r.PayDate.IsZero() || r.EmployerID == "" {
			findings = append(findings, Finding{
				Severity:     SeverityWarning,
				Kind:         FindingDataError,
				SubjectDates: []TimePoint{r.PayDate},
				Message:      "record skipped: missing pay date or employer id",
			})
			continue
		}
		clean = append(clean, r)
	}
	if len(clean) == 0 {
		return nil, findings, ErrInsufficientData
	}

	sortRecords(clean)

	// A first record whose YTD exceeds its own current-period figures means
	// earlier periods exist but were not provided.
	first := clean[0]
	if first.TotalYTDEarnings().Sub(first.Earnings.Total()).Abs().GreaterThan(a.Tol.ConsistencyAbs) {
		findings = append(findings, Finding{
			Severity:     SeverityWarning,
			Kind:         FindingMissingPeriod,
			SubjectDates: []TimePoint{StartOfYear(year), first.PayDate},
			Message: fmt.Sprintf("first record (%s) has YTD %s but current %s: earlier pay periods are missing",
				first.PayDate, first.TotalYTDEarnings().StringFixed(2), first.Earnings.Total().StringFixed(2)),
		})
	}

	var segments []Segment
	current := Segment{EmployerID: first.EmployerID, Records: []PayPeriodRecord{first}}
	cadence := newCadenceTracker(a.Tol.CadenceToleranceDays)

	for _, rec := range clean[1:] {
		prev := current.Last()

		employerChanged := rec.EmployerID != prev.EmployerID
		ytdDrop := prev.TotalYTDEarnings().Sub(rec.TotalYTDEarnings())
		ytdReset := ytdDrop.GreaterThan(a.Tol.ConsistencyAbs)

		if employerChanged || ytdReset {
			segments = append(segments, current)

			reason := "employer changed"
			if !employerChanged {
				reason = "YTD total reset"
			}
			findings = append(findings, Finding{
				Severity:     SeverityInfo,
				Kind:         FindingSegmentBoundary,
				SubjectDates: []TimePoint{prev.PayDate, rec.PayDate},
				Message: fmt.Sprintf("segment %q closed at %s (%s); new segment %q opens at %s",
					prev.EmployerID, prev.PayDate, reason, rec.EmployerID, rec.PayDate),
			})
			if ytdReset && !employerChanged {
				findings = append(findings, Finding{
					Severity:     SeverityWarning,
					Kind:         FindingYTDAnomaly,
					SubjectDates: []TimePoint{prev.PayDate, rec.PayDate},
					Message: fmt.Sprintf("YTD earnings dropped %s -> %s between %s and %s with no employer change",
						prev.TotalYTDEarnings().StringFixed(2), rec.TotalYTDEarnings().StringFixed(2),
						prev.PayDate, rec.PayDate),
				})
			}

			current = Segment{EmployerID: rec.EmployerID, Records: []PayPeriodRecord{rec}}
			continue
		}

		gap := DaysBetween(prev.PayDate, rec.PayDate)
		if expected, ok := cadence.Expected(); ok && gap*2 > expected*3 {
			missed := int(math.Round(float64(gap)/float64(expected))) - 1
			if missed < 1 {
				missed = 1
			}
			findings = append(findings, Finding{
				Severity:     SeverityWarning,
				Kind:         FindingMissingPeriod,
				SubjectDates: []TimePoint{prev.PayDate, rec.PayDate},
				Message: fmt.Sprintf("gap of %d days between %s and %s (~%d missing period(s) at %d-day cadence)",
					gap, prev.PayDate, rec.PayDate, missed, expected),
			})
		} else if gap > 0 {
			// Flagged gaps stay out of the tracker so a hole in the data
			// cannot shift the cadence estimate.
			cadence.Observe(gap)
		}
		current.Records = append(current.Records, rec)
	}
	segments = append(segments, current)

	last := clean[len(clean)-1]
	if asOf.IsZero() {
		asOf = last.PayDate
	}
	if expected, ok := cadence.Expected(); ok {
		tail := DaysBetween(last.PayDate, asOf)
		if tail > expected {
			missed := int(math.Round(float64(tail)/float64(expected))) - 1
			if missed < 1 {
				missed = 1
			}
			findings = append(findings, Finding{
				Severity:     SeverityWarning,
				Kind:         FindingPossiblyIncompleteYear,
				SubjectDates: []TimePoint{last.PayDate, asOf},
				Message: fmt.Sprintf("last record %s is %d days before %s (~%d period(s) likely missing at %d-day cadence)",
					last.PayDate, tail, asOf, missed, expected),
			})
		}
	}

	return segments, findings, nil
}

// sortRecords orders by pay date, breaking same-date ties by YTD earnings
// so year-end adjustments land after the regular record they follow.
func sortRecords(records []PayPeriodRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].PayDate.Equal(records[j].PayDate) {
			return records[i].PayDate.Before(records[j].PayDate)
		}
		return records[i].TotalYTDEarnings().LessThan(records[j].TotalYTDEarnings())
	})
}
