/*
errors.go - Centralized error types for the engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers should test with errors.Is().

ERROR CATEGORIES:
  1. Analysis errors - the input cannot support the requested computation
  2. Store errors - record persistence failures

NOTE:
  Continuity gaps, consistency mismatches, and YTD anomalies are NOT
  errors in this sense - they are Findings, collected and returned
  alongside results without ever aborting a scan.
*/
package engine

import "errors"

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInsufficientData is returned when a year has no usable records at
	// all. Returned to the caller, never raised mid-scan.
	ErrInsufficientData = errors.New("insufficient data: no usable records")

	// ErrPatternUndetected is returned when fewer than three qualifying
	// records exist or observed gaps disagree beyond tolerance. Callers
	// must handle this explicitly rather than assuming a default cadence.
	ErrPatternUndetected = errors.New("pattern undetected: irregular or insufficient history")

	// ErrProjectionInsufficientData is returned when no category could be
	// projected. Partial per-category failures are reported through
	// ProjectionResult.Skipped instead.
	ErrProjectionInsufficientData = errors.New("projection: no usable cadence for any category")

	// ErrDuplicateRecord is returned when persisting a record that already
	// exists for the same party, pay date, and employer.
	ErrDuplicateRecord = errors.New("duplicate pay period record")

	// ErrRecordNotFound is returned when a requested party/year has no
	// stored records.
	ErrRecordNotFound = errors.New("no records found")
)

// IsClientError reports whether the error is due to invalid client input
// rather than an internal failure. Used by the API layer for status codes.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrPatternUndetected) ||
		errors.Is(err, ErrProjectionInsufficientData) ||
		errors.Is(err, ErrDuplicateRecord)
}
