/*
store.go - Record persistence interface

PURPOSE:
  The engine itself is pure; records arrive already materialized. This
  interface is the contract with the record-store collaborator: anything
  that can hand back a year's records in PayPeriodRecord shape works,
  whether they originated from document OCR, manual transcription, or
  prior-year archives.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite store
  - engine/store: in-memory store for tests and dev
*/
package engine

import "context"

// RecordStore persists pay period records per party and year.
type RecordStore interface {
	// SaveRecords persists records atomically. A record that already
	// exists for the same party, pay date, and employer yields
	// ErrDuplicateRecord and nothing is written.
	SaveRecords(ctx context.Context, party string, year int, records []PayPeriodRecord) error

	// LoadYear returns all records for a party/year ordered by pay date.
	LoadYear(ctx context.Context, party string, year int) ([]PayPeriodRecord, error)
}
