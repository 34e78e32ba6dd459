/*
aggregate.go - AnnualSummary construction and the AnalyzeYear entry point

PURPOSE:
  Reduces validated segments into the final annual summary: combined
  totals summed across segment-final YTD figures, plus the flattened
  event timeline.

KEY INSIGHT:
  YTD resets per employer. In a multi-employer year the annual total for a
  category is the SUM of each segment's final YTD, never the value on any
  single record.

DETERMINISM:
  The timeline sorts by date then category name, and findings follow scan
  order, so identical input yields byte-for-byte identical output.
*/
package engine

import "sort"

// Aggregate builds the AnnualSummary from validated segments. The findings
// slice is carried through verbatim.
func (a *Analyzer) Aggregate(party string, year int, segments []Segment, findings []Finding) AnnualSummary {
	summary := AnnualSummary{
		Party:    party,
		Year:     year,
		Findings: findings,
		CombinedTotals: CombinedTotals{
			Earnings:   CategoryAmounts{},
			Taxes:      CategoryAmounts{},
			Deductions: CategoryAmounts{},
		},
	}

	for _, seg := range segments {
		if len(seg.Records) == 0 {
			continue
		}
		last := seg.Last()
		summary.Segments = append(summary.Segments, SegmentSummary{
			EmployerID:      seg.EmployerID,
			FirstDate:       seg.FirstDate(),
			LastDate:        seg.LastDate(),
			RecordCount:     len(seg.Records),
			FinalEarnings:   last.YTDEarnings.Clone(),
			FinalTaxes:      last.YTDTaxesWithheld.Clone(),
			FinalDeductions: last.YTDDeductions.Clone(),
		})

		summary.CombinedTotals.Earnings.AddInto(last.YTDEarnings)
		summary.CombinedTotals.Taxes.AddInto(last.YTDTaxesWithheld)
		summary.CombinedTotals.Deductions.AddInto(last.YTDDeductions)

		for _, rec := range seg.Records {
			for _, group := range rec.fieldGroups() {
				for _, cat := range group.Current.Categories() {
					if group.Current[cat].IsZero() {
						continue
					}
					summary.EventTimeline = append(summary.EventTimeline, Event{
						Date:     rec.PayDate,
						Category: cat,
						Amount:   group.Current[cat],
					})
				}
			}
		}
	}

	// Sorted by date then category name so identical input always yields
	// an identical timeline.
	sort.SliceStable(summary.EventTimeline, func(i, j int) bool {
		a, b := summary.EventTimeline[i], summary.EventTimeline[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.Category < b.Category
	})
	return summary
}

// AnalyzeYear runs the full validate-and-aggregate phase: continuity,
// per-segment consistency, segment totals, aggregation. A zero asOf
// defaults to the latest record's pay date. Returns ErrInsufficientData
// when no usable record exists.
func (a *Analyzer) AnalyzeYear(party string, year int, records []PayPeriodRecord, asOf TimePoint) (AnnualSummary, error) {
	segments, findings, err := a.ValidateContinuity(records, year, asOf)
	if err != nil {
		return AnnualSummary{Party: party, Year: year, Findings: findings}, err
	}
	for _, seg := range segments {
		findings = append(findings, a.CheckConsistency(seg)...)
		findings = append(findings, a.CheckSegmentTotals(seg)...)
	}
	return a.Aggregate(party, year, segments, findings), nil
}
