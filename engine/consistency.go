/*
consistency.go - Current-period vs YTD-delta reconciliation

PURPOSE:
  Every record displays both a "current period" figure and a YTD figure
  per category. Within a segment the YTD delta between consecutive records
  is what the current figure SHOULD be; a divergence means a data-entry or
  extraction defect.

TWO-THRESHOLD DESIGN:
  A difference is flagged only when it exceeds BOTH the absolute and the
  relative warning tolerance, which absorbs rounding noise. A flagged
  difference escalates to error severity when it exceeds EITHER of the
  larger error thresholds.

HARD INVARIANT:
  A negative YTD delta inside a segment (YTD decreased for a category with
  no segment boundary) is always a ytd-anomaly ERROR. Legitimate resets
  open a new segment in continuity.go and never reach this check.
*/
package engine

import "fmt"

// CheckConsistency reconciles each record of a segment against the YTD
// delta since its predecessor. The baseline record has no predecessor and
// only gets a sanity check that its own period figures are non-negative.
func (a *Analyzer) CheckConsistency(seg Segment) []Finding {
	var findings []Finding
	if len(seg.Records) == 0 {
		return findings
	}

	baseline := seg.First()
	for _, group := range baseline.fieldGroups() {
		for _, cat := range group.Current.Categories() {
			if group.Current[cat].IsNegative() {
				findings = append(findings, Finding{
					Severity:     SeverityWarning,
					Kind:         FindingDataError,
					SubjectDates: []TimePoint{baseline.PayDate},
					Message: fmt.Sprintf("%s: negative current-period %s %s (%s)",
						baseline.PayDate, group.Name, cat, group.Current[cat].StringFixed(2)),
				})
			}
		}
	}

	for i := 1; i < len(seg.Records); i++ {
		prev, rec := seg.Records[i-1], seg.Records[i]
		prevGroups, recGroups := prev.fieldGroups(), rec.fieldGroups()

		for g := range recGroups {
			group := recGroups[g]
			prevYTD := prevGroups[g].YTD

			for _, cat := range unionCategories(group.YTD, prevYTD) {
				expected := group.YTD.Get(cat).Sub(prevYTD.Get(cat))
				reported := group.Current.Get(cat)

				if expected.Neg().GreaterThan(a.Tol.ConsistencyAbs) {
					findings = append(findings, Finding{
						Severity:     SeverityError,
						Kind:         FindingYTDAnomaly,
						SubjectDates: []TimePoint{prev.PayDate, rec.PayDate},
						Message: fmt.Sprintf("%s %s %s: YTD decreased by %s within a segment",
							rec.PayDate, group.Name, cat, expected.Neg().StringFixed(2)),
					})
					continue
				}

				diff := expected.Sub(reported).Abs()
				if !diff.GreaterThan(a.Tol.ConsistencyAbs) || !diff.GreaterThan(expected.Mul(a.Tol.ConsistencyRel)) {
					continue
				}

				severity := SeverityWarning
				// A zero expected delta has no meaningful relative scale;
				// only the absolute threshold escalates it.
				if diff.GreaterThan(a.Tol.ConsistencyErrorAbs) ||
					(expected.IsPositive() && diff.GreaterThan(expected.Mul(a.Tol.ConsistencyErrorRel))) {
					severity = SeverityError
				}
				findings = append(findings, Finding{
					Severity:     severity,
					Kind:         FindingConsistencyMismatch,
					SubjectDates: []TimePoint{prev.PayDate, rec.PayDate},
					Message: fmt.Sprintf("%s %s %s: reported current %s vs YTD increase %s (diff %s)",
						rec.PayDate, group.Name, cat, reported.StringFixed(2),
						expected.StringFixed(2), diff.StringFixed(2)),
				})
			}
		}
	}

	return findings
}

// CheckSegmentTotals cross-checks the sum of a segment's current-period
// amounts against its final YTD figures per category. This aggregate view
// catches defects the pairwise deltas cannot see when intermediate records
// are missing; discrepancies are warnings since the pairwise check is the
// primary one.
func (a *Analyzer) CheckSegmentTotals(seg Segment) []Finding {
	var findings []Finding
	if len(seg.Records) == 0 {
		return findings
	}

	sums := PayPeriodRecord{
		Earnings:      CategoryAmounts{},
		TaxesWithheld: CategoryAmounts{},
		Deductions:    CategoryAmounts{},
	}
	for _, rec := range seg.Records {
		sums.Earnings.AddInto(rec.Earnings)
		sums.TaxesWithheld.AddInto(rec.TaxesWithheld)
		sums.Deductions.AddInto(rec.Deductions)
	}

	last := seg.Last()
	sumGroups := sums.fieldGroups()
	lastGroups := last.fieldGroups()
	for g := range sumGroups {
		for _, cat := range unionCategories(sumGroups[g].Current, lastGroups[g].YTD) {
			diff := sumGroups[g].Current.Get(cat).Sub(lastGroups[g].YTD.Get(cat))
			if diff.Abs().GreaterThan(a.Tol.ConsistencyAbs) {
				findings = append(findings, Finding{
					Severity:     SeverityWarning,
					Kind:         FindingConsistencyMismatch,
					SubjectDates: []TimePoint{seg.FirstDate(), seg.LastDate()},
					Message: fmt.Sprintf("segment %q %s %s: sum of periods %s vs final YTD %s (diff %s)",
						seg.EmployerID, sumGroups[g].Name, cat,
						sumGroups[g].Current.Get(cat).StringFixed(2),
						lastGroups[g].YTD.Get(cat).StringFixed(2), diff.StringFixed(2)),
				})
			}
		}
	}
	return findings
}
