/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

AMOUNTS:
  Category maps use decimal values end to end. Clients may send amounts
  as JSON numbers or strings; either parses exactly.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/engine"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// RecordDTO represents one pay period record on the wire.
type RecordDTO struct {
	PayDate    string `json:"pay_date"`
	EmployerID string `json:"employer_id"`

	Earnings      map[string]decimal.Decimal `json:"earnings,omitempty"`
	TaxesWithheld map[string]decimal.Decimal `json:"taxes_withheld,omitempty"`
	Deductions    map[string]decimal.Decimal `json:"deductions,omitempty"`

	YTDEarnings      map[string]decimal.Decimal `json:"ytd_earnings,omitempty"`
	YTDTaxesWithheld map[string]decimal.Decimal `json:"ytd_taxes_withheld,omitempty"`
	YTDDeductions    map[string]decimal.Decimal `json:"ytd_deductions,omitempty"`
}

// SubmitRecordsRequest is the request to ingest a batch of records.
type SubmitRecordsRequest struct {
	Records []RecordDTO `json:"records"`
}

// FindingDTO represents a validation finding.
type FindingDTO struct {
	Severity string   `json:"severity"`
	Kind     string   `json:"kind"`
	Dates    []string `json:"dates,omitempty"`
	Message  string   `json:"message"`
}

// SegmentSummaryDTO represents one employment segment in responses.
type SegmentSummaryDTO struct {
	EmployerID      string                     `json:"employer_id"`
	FirstDate       string                     `json:"first_date"`
	LastDate        string                     `json:"last_date"`
	RecordCount     int                        `json:"record_count"`
	FinalEarnings   map[string]decimal.Decimal `json:"final_earnings"`
	FinalTaxes      map[string]decimal.Decimal `json:"final_taxes"`
	FinalDeductions map[string]decimal.Decimal `json:"final_deductions"`
}

// EventDTO is one timeline entry.
type EventDTO struct {
	Date     string          `json:"date"`
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// SummaryDTO is the full annual summary response.
type SummaryDTO struct {
	Party string `json:"party"`
	Year  int    `json:"year"`

	Segments []SegmentSummaryDTO `json:"segments"`

	TotalEarnings   map[string]decimal.Decimal `json:"total_earnings"`
	TotalTaxes      map[string]decimal.Decimal `json:"total_taxes"`
	TotalDeductions map[string]decimal.Decimal `json:"total_deductions"`

	PayTypeCounts map[string]int `json:"pay_type_counts,omitempty"`

	Timeline []EventDTO   `json:"timeline"`
	Findings []FindingDTO `json:"findings"`
}

// CategoryProjectionDTO is the per-category projection outcome.
type CategoryProjectionDTO struct {
	Actual         decimal.Decimal `json:"actual"`
	ProjectedAdd   decimal.Decimal `json:"projected_add"`
	EstimatedTotal decimal.Decimal `json:"estimated_total"`
}

// CadenceDTO describes a detected pay cadence.
type CadenceDTO struct {
	IntervalDays int    `json:"interval_days"`
	Frequency    string `json:"frequency"`
	Observed     int    `json:"observed"`
}

// VestPatternDTO describes a detected vesting pattern.
type VestPatternDTO struct {
	Months     []int `json:"months"`
	StepMonths int   `json:"step_months,omitempty"`
	Periodic   bool  `json:"periodic"`
}

// ProjectionDTO is the year-end projection response.
type ProjectionDTO struct {
	Party string `json:"party"`
	Year  int    `json:"year"`

	AsOf    string `json:"as_of"`
	YearEnd string `json:"year_end"`

	Categories map[string]CategoryProjectionDTO `json:"categories"`
	Skipped    map[string]string                `json:"skipped,omitempty"`

	RemainingPeriods int             `json:"remaining_periods"`
	RemainingVests   int             `json:"remaining_vests"`
	Cadence          *CadenceDTO     `json:"cadence,omitempty"`
	Vest             *VestPatternDTO `json:"vest,omitempty"`

	Limit401k decimal.Decimal `json:"limit_401k"`

	Findings []FindingDTO `json:"findings,omitempty"`
}

// SubmitRecordsResponse reports how many records were stored.
type SubmitRecordsResponse struct {
	Stored int `json:"stored"`
}

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func (d RecordDTO) toRecord() (engine.PayPeriodRecord, error) {
	date, err := engine.ParseTimePoint(d.PayDate)
	if err != nil {
		return engine.PayPeriodRecord{}, fmt.Errorf("invalid pay_date %q (use YYYY-MM-DD): %w", d.PayDate, err)
	}
	return engine.PayPeriodRecord{
		PayDate:          date,
		EmployerID:       engine.EmployerID(d.EmployerID),
		Earnings:         toAmounts(d.Earnings),
		TaxesWithheld:    toAmounts(d.TaxesWithheld),
		Deductions:       toAmounts(d.Deductions),
		YTDEarnings:      toAmounts(d.YTDEarnings),
		YTDTaxesWithheld: toAmounts(d.YTDTaxesWithheld),
		YTDDeductions:    toAmounts(d.YTDDeductions),
	}, nil
}

func toRecordDTO(rec engine.PayPeriodRecord) RecordDTO {
	return RecordDTO{
		PayDate:          rec.PayDate.String(),
		EmployerID:       string(rec.EmployerID),
		Earnings:         fromAmounts(rec.Earnings),
		TaxesWithheld:    fromAmounts(rec.TaxesWithheld),
		Deductions:       fromAmounts(rec.Deductions),
		YTDEarnings:      fromAmounts(rec.YTDEarnings),
		YTDTaxesWithheld: fromAmounts(rec.YTDTaxesWithheld),
		YTDDeductions:    fromAmounts(rec.YTDDeductions),
	}
}

func toAmounts(m map[string]decimal.Decimal) engine.CategoryAmounts {
	out := engine.CategoryAmounts{}
	for cat, v := range m {
		out[engine.Category(cat)] = v
	}
	return out
}

func fromAmounts(amounts engine.CategoryAmounts) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(amounts))
	for cat, v := range amounts {
		out[string(cat)] = v
	}
	return out
}

func toFindingDTOs(findings []engine.Finding) []FindingDTO {
	dtos := make([]FindingDTO, len(findings))
	for i, f := range findings {
		dates := make([]string, len(f.SubjectDates))
		for j, d := range f.SubjectDates {
			dates[j] = d.String()
		}
		dtos[i] = FindingDTO{
			Severity: string(f.Severity),
			Kind:     string(f.Kind),
			Dates:    dates,
			Message:  f.Message,
		}
	}
	return dtos
}

func toSummaryDTO(summary engine.AnnualSummary, payTypeCounts map[string]int) SummaryDTO {
	dto := SummaryDTO{
		Party:           summary.Party,
		Year:            summary.Year,
		TotalEarnings:   fromAmounts(summary.CombinedTotals.Earnings),
		TotalTaxes:      fromAmounts(summary.CombinedTotals.Taxes),
		TotalDeductions: fromAmounts(summary.CombinedTotals.Deductions),
		PayTypeCounts:   payTypeCounts,
		Timeline:        []EventDTO{},
		Findings:        toFindingDTOs(summary.Findings),
	}
	for _, seg := range summary.Segments {
		dto.Segments = append(dto.Segments, SegmentSummaryDTO{
			EmployerID:      string(seg.EmployerID),
			FirstDate:       seg.FirstDate.String(),
			LastDate:        seg.LastDate.String(),
			RecordCount:     seg.RecordCount,
			FinalEarnings:   fromAmounts(seg.FinalEarnings),
			FinalTaxes:      fromAmounts(seg.FinalTaxes),
			FinalDeductions: fromAmounts(seg.FinalDeductions),
		})
	}
	for _, ev := range summary.EventTimeline {
		dto.Timeline = append(dto.Timeline, EventDTO{
			Date:     ev.Date.String(),
			Category: string(ev.Category),
			Amount:   ev.Amount,
		})
	}
	return dto
}

func toProjectionDTO(party string, year int, result engine.ProjectionResult, limit decimal.Decimal, findings []engine.Finding) ProjectionDTO {
	dto := ProjectionDTO{
		Party:            party,
		Year:             year,
		AsOf:             result.AsOf.String(),
		YearEnd:          result.YearEnd.String(),
		Categories:       make(map[string]CategoryProjectionDTO, len(result.Categories)),
		RemainingPeriods: result.RemainingPeriods,
		RemainingVests:   result.RemainingVests,
		Limit401k:        limit,
		Findings:         toFindingDTOs(findings),
	}
	for cat, p := range result.Categories {
		dto.Categories[string(cat)] = CategoryProjectionDTO{
			Actual:         p.Actual,
			ProjectedAdd:   p.ProjectedAdd,
			EstimatedTotal: p.EstimatedTotal,
		}
	}
	if len(result.Skipped) > 0 {
		dto.Skipped = make(map[string]string, len(result.Skipped))
		for cat, reason := range result.Skipped {
			dto.Skipped[string(cat)] = reason
		}
	}
	if result.Cadence != nil {
		dto.Cadence = &CadenceDTO{
			IntervalDays: result.Cadence.IntervalDays,
			Frequency:    string(result.Cadence.Frequency),
			Observed:     result.Cadence.Observed,
		}
	}
	if result.Vest != nil {
		dto.Vest = &VestPatternDTO{
			Months:     result.Vest.Months,
			StepMonths: result.Vest.StepMonths,
			Periodic:   result.Vest.Periodic,
		}
	}
	return dto
}
