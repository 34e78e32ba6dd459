/*
Package engine provides the core pay-period validation and projection engine.

PURPOSE:
  This package contains the algorithms that turn a chronological series of
  per-pay-period financial records for one person in one tax year into a
  validated, reconciled year-to-date summary, and (for partial years) a
  year-end projection.

KEY CONCEPTS IN THIS FILE (types.go):
  - Category: A named earnings/tax/deduction bucket (regular, bonus, ...)
  - CategoryAmounts: A mapping of category to decimal amount
  - PayPeriodRecord: One pay event for one employer, immutable once built
  - Segment: A maximal run of records with one employer and monotonic YTD
  - Finding: A non-fatal validation observation (info/warning/error)
  - AnnualSummary: The validated result for one party/year

DESIGN PRINCIPLES:
  1. Immutability: input records are never mutated, only derived from
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Purity: every call is a pure function of its inputs; no state
     outlives one invocation, so concurrent calls need no coordination

SEE ALSO:
  - continuity.go: Segment detection and gap findings
  - consistency.go: Current-period vs YTD-delta reconciliation
  - aggregate.go: AnnualSummary construction
  - projection.go: Year-end extrapolation
*/
package engine

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CATEGORIES - Named buckets for earnings, taxes, and deductions
// =============================================================================

// Category identifies a single earnings, tax, or deduction bucket.
// The same string type is used for all three groups; the names never collide.
type Category string

// Earnings categories.
const (
	CategoryRegular   Category = "regular"
	CategoryBonus     Category = "bonus"
	CategoryStockVest Category = "stock_vest"
	CategoryOther     Category = "other"
)

// Tax withholding kinds.
const (
	TaxFederalIncome  Category = "federal_income"
	TaxSocialSecurity Category = "social_security"
	TaxMedicare       Category = "medicare"
	TaxState          Category = "state"
)

// Deduction kinds.
const (
	DeductionRetirement   Category = "retirement_401k"
	DeductionPretaxHealth Category = "pretax_health"
	DeductionPostTax      Category = "post_tax"
)

// CategoryTaxesWithheld is the aggregate key used by the Projector for the
// combined tax-withholding projection (individual tax kinds are not
// projected separately; withholding follows an effective rate).
const CategoryTaxesWithheld Category = "taxes_withheld"

// EmployerID is an opaque employer identifier.
type EmployerID string

// =============================================================================
// CATEGORY AMOUNTS - Mapping of category to decimal amount
// =============================================================================

// CategoryAmounts maps a category name to a monetary amount.
// A missing key is equivalent to zero.
type CategoryAmounts map[Category]decimal.Decimal

// Get returns the amount for a category, zero if absent.
func (ca CategoryAmounts) Get(c Category) decimal.Decimal {
	if ca == nil {
		return decimal.Zero
	}
	return ca[c]
}

// Total returns the sum of all category amounts.
func (ca CategoryAmounts) Total() decimal.Decimal {
	total := decimal.Zero
	for _, v := range ca {
		total = total.Add(v)
	}
	return total
}

// Clone returns an independent copy.
func (ca CategoryAmounts) Clone() CategoryAmounts {
	if ca == nil {
		return CategoryAmounts{}
	}
	out := make(CategoryAmounts, len(ca))
	for k, v := range ca {
		out[k] = v
	}
	return out
}

// AddInto accumulates every category of other into ca.
func (ca CategoryAmounts) AddInto(other CategoryAmounts) {
	for k, v := range other {
		ca[k] = ca[k].Add(v)
	}
}

// Categories returns the keys in sorted order, for deterministic iteration.
func (ca CategoryAmounts) Categories() []Category {
	keys := make([]Category, 0, len(ca))
	for k := range ca {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// unionCategories returns the sorted union of keys of two maps.
func unionCategories(a, b CategoryAmounts) []Category {
	seen := make(map[Category]bool, len(a)+len(b))
	for k := range a {
		seen[k] = true
	}
	for k := range b {
		seen[k] = true
	}
	keys := make([]Category, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// =============================================================================
// PAY PERIOD RECORD - One pay event for one employer
// =============================================================================

// PayPeriodRecord is one pay event for one employer, as reported on the
// source document. Current-period and YTD figures are carried separately so
// the Consistency Checker can reconcile them against each other.
//
// Records are immutable once constructed; the engine never mutates an input
// record, only derives new values from it.
type PayPeriodRecord struct {
	PayDate    TimePoint
	EmployerID EmployerID

	// Current-period figures.
	Earnings      CategoryAmounts
	TaxesWithheld CategoryAmounts
	Deductions    CategoryAmounts

	// Cumulative-to-date figures as displayed on the source document.
	YTDEarnings      CategoryAmounts
	YTDTaxesWithheld CategoryAmounts
	YTDDeductions    CategoryAmounts
}

// TotalYTDEarnings is the gross YTD figure used for segment-reset detection.
func (r PayPeriodRecord) TotalYTDEarnings() decimal.Decimal {
	return r.YTDEarnings.Total()
}

// fieldGroup pairs a record's current-period map with its YTD counterpart,
// so validation can iterate the three groups uniformly.
type fieldGroup struct {
	Name    string
	Current CategoryAmounts
	YTD     CategoryAmounts
}

func (r PayPeriodRecord) fieldGroups() []fieldGroup {
	return []fieldGroup{
		{Name: "earnings", Current: r.Earnings, YTD: r.YTDEarnings},
		{Name: "taxes_withheld", Current: r.TaxesWithheld, YTD: r.YTDTaxesWithheld},
		{Name: "deductions", Current: r.Deductions, YTD: r.YTDDeductions},
	}
}

// =============================================================================
// SEGMENT - Maximal run of records with one employer and monotonic YTD
// =============================================================================

// Segment is a maximal run of records sharing an employer with
// non-decreasing YTD totals. A new segment starts when the employer id
// changes or a YTD total resets. The first record is the segment's baseline;
// delta reconciliation runs against the immediately preceding record.
type Segment struct {
	EmployerID EmployerID
	Records    []PayPeriodRecord
}

func (s Segment) First() PayPeriodRecord { return s.Records[0] }
func (s Segment) Last() PayPeriodRecord  { return s.Records[len(s.Records)-1] }
func (s Segment) FirstDate() TimePoint   { return s.Records[0].PayDate }
func (s Segment) LastDate() TimePoint    { return s.Records[len(s.Records)-1].PayDate }

// =============================================================================
// FINDINGS - Non-fatal validation observations
// =============================================================================

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

type FindingKind string

const (
	FindingMissingPeriod          FindingKind = "missing-period"
	FindingSegmentBoundary        FindingKind = "segment-boundary"
	FindingYTDAnomaly             FindingKind = "ytd-anomaly"
	FindingConsistencyMismatch    FindingKind = "consistency-mismatch"
	FindingPossiblyIncompleteYear FindingKind = "possibly-incomplete-year"
	FindingDataError              FindingKind = "data-error"
)

// Finding records one validation observation. Findings never block
// processing; the full set for the full record set is always returned.
type Finding struct {
	Severity     Severity
	Kind         FindingKind
	SubjectDates []TimePoint
	Message      string
}

// HasErrors reports whether any finding carries error severity.
func HasErrors(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

// FilterKind returns the findings of one kind, preserving order.
func FilterKind(findings []Finding, kind FindingKind) []Finding {
	var out []Finding
	for _, f := range findings {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}

// =============================================================================
// ANNUAL SUMMARY - Validated result for one party/year
// =============================================================================

// SegmentSummary is the reduced view of one segment: its employer, date
// range, and the final YTD figures taken from its last record.
type SegmentSummary struct {
	EmployerID      EmployerID
	FirstDate       TimePoint
	LastDate        TimePoint
	RecordCount     int
	FinalEarnings   CategoryAmounts
	FinalTaxes      CategoryAmounts
	FinalDeductions CategoryAmounts
}

// CombinedTotals sums each segment's final YTD per category. Because YTD
// resets per employer, totals must be summed across segments, never taken
// from a single record in a multi-employer year.
type CombinedTotals struct {
	Earnings   CategoryAmounts
	Taxes      CategoryAmounts
	Deductions CategoryAmounts
}

// Event is one dated non-zero per-category amount flattened out of a
// record. The timeline is the structural input to pattern detection and
// projection, and the audit trail a user inspects to verify timing.
type Event struct {
	Date     TimePoint
	Category Category
	Amount   decimal.Decimal
}

// AnnualSummary is the validated, reconciled result for one party/year.
type AnnualSummary struct {
	Party          string
	Year           int
	Segments       []SegmentSummary
	CombinedTotals CombinedTotals
	EventTimeline  []Event
	Findings       []Finding
}
