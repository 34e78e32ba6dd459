/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements engine.RecordStore using SQLite. In production, the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  pay_period_records: One row per pay period record, keyed by
                      (party, year, pay_date, employer_id, ytd_gross).
                      The ytd_gross component lets two checks issued on
                      the same date (a regular run and a vest) coexist.

AMOUNT STORAGE:
  The six category maps (current and year-to-date earnings, taxes and
  deductions) are stored as JSON text. Decimal amounts survive the
  round trip because they are serialized as exact decimal strings, not
  floats.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency.

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - engine/store.go: Interface definition
  - engine/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/payroll-engine/engine"
)

// Store implements engine.RecordStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pay_period_records (
		party TEXT NOT NULL,
		year INTEGER NOT NULL,
		pay_date TEXT NOT NULL,
		employer_id TEXT NOT NULL,
		ytd_gross TEXT NOT NULL,
		earnings_json TEXT NOT NULL,
		taxes_json TEXT NOT NULL,
		deductions_json TEXT NOT NULL,
		ytd_earnings_json TEXT NOT NULL,
		ytd_taxes_json TEXT NOT NULL,
		ytd_deductions_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- One record per (party, year, date, employer, ytd position).
	-- ytd_gross keeps same-day records distinct (regular run + vest).
	CREATE UNIQUE INDEX IF NOT EXISTS idx_records_unique
		ON pay_period_records(party, year, pay_date, employer_id, ytd_gross);

	-- Year loads are the hot path.
	CREATE INDEX IF NOT EXISTS idx_records_party_year
		ON pay_period_records(party, year, pay_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveRecords persists a batch of records atomically. If any record
// collides with a stored one (or another record in the batch), nothing
// is written and engine.ErrDuplicateRecord is returned.
func (s *Store) SaveRecords(ctx context.Context, party string, year int, records []engine.PayPeriodRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Check for duplicates within the batch first.
	seen := make(map[string]bool)
	for _, rec := range records {
		key := rec.PayDate.String() + "|" + string(rec.EmployerID) + "|" + rec.TotalYTDEarnings().String()
		if seen[key] {
			return engine.ErrDuplicateRecord
		}
		seen[key] = true
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, rec := range records {
		if err := s.insertRecord(ctx, sqlTx, party, year, rec); err != nil {
			return err
		}
	}

	return sqlTx.Commit()
}

func (s *Store) insertRecord(ctx context.Context, tx *sql.Tx, party string, year int, rec engine.PayPeriodRecord) error {
	query := `
		INSERT INTO pay_period_records
		(party, year, pay_date, employer_id, ytd_gross,
		 earnings_json, taxes_json, deductions_json,
		 ytd_earnings_json, ytd_taxes_json, ytd_deductions_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := tx.ExecContext(ctx, query,
		party,
		year,
		rec.PayDate.String(),
		string(rec.EmployerID),
		rec.TotalYTDEarnings().String(),
		marshalAmounts(rec.Earnings),
		marshalAmounts(rec.TaxesWithheld),
		marshalAmounts(rec.Deductions),
		marshalAmounts(rec.YTDEarnings),
		marshalAmounts(rec.YTDTaxesWithheld),
		marshalAmounts(rec.YTDDeductions),
		time.Now().UTC().Format(time.RFC3339),
	)

	if err != nil {
		if isUniqueConstraintError(err) {
			return engine.ErrDuplicateRecord
		}
		return fmt.Errorf("failed to insert record: %w", err)
	}

	return nil
}

// LoadYear returns all records for a party and year, ordered by pay
// date then year-to-date gross.
func (s *Store) LoadYear(ctx context.Context, party string, year int) ([]engine.PayPeriodRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT pay_date, employer_id,
		       earnings_json, taxes_json, deductions_json,
		       ytd_earnings_json, ytd_taxes_json, ytd_deductions_json
		FROM pay_period_records
		WHERE party = ? AND year = ?
		ORDER BY pay_date ASC, CAST(ytd_gross AS REAL) ASC
	`

	rows, err := s.db.QueryContext(ctx, query, party, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []engine.PayPeriodRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

func scanRecord(rows *sql.Rows) (engine.PayPeriodRecord, error) {
	var (
		rec           engine.PayPeriodRecord
		payDate       string
		employerID    string
		earnings      string
		taxes         string
		deductions    string
		ytdEarnings   string
		ytdTaxes      string
		ytdDeductions string
	)

	err := rows.Scan(&payDate, &employerID,
		&earnings, &taxes, &deductions,
		&ytdEarnings, &ytdTaxes, &ytdDeductions)
	if err != nil {
		return rec, fmt.Errorf("failed to scan record: %w", err)
	}

	rec.PayDate, err = engine.ParseTimePoint(payDate)
	if err != nil {
		return rec, fmt.Errorf("failed to parse stored pay date %q: %w", payDate, err)
	}
	rec.EmployerID = engine.EmployerID(employerID)

	for _, field := range []struct {
		raw  string
		into *engine.CategoryAmounts
	}{
		{earnings, &rec.Earnings},
		{taxes, &rec.TaxesWithheld},
		{deductions, &rec.Deductions},
		{ytdEarnings, &rec.YTDEarnings},
		{ytdTaxes, &rec.YTDTaxesWithheld},
		{ytdDeductions, &rec.YTDDeductions},
	} {
		if err := unmarshalAmounts(field.raw, field.into); err != nil {
			return rec, err
		}
	}

	return rec, nil
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM pay_period_records")
	return err
}

// Parties returns the distinct parties with stored records for a year.
func (s *Store) Parties(ctx context.Context, year int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT party FROM pay_period_records WHERE year = ? ORDER BY party",
		year,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parties []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		parties = append(parties, p)
	}
	return parties, rows.Err()
}

// Helper functions

func marshalAmounts(amounts engine.CategoryAmounts) string {
	if len(amounts) == 0 {
		return "{}"
	}
	data, _ := json.Marshal(amounts)
	return string(data)
}

func unmarshalAmounts(raw string, into *engine.CategoryAmounts) error {
	if raw == "" || raw == "{}" {
		*into = engine.CategoryAmounts{}
		return nil
	}
	if err := json.Unmarshal([]byte(raw), into); err != nil {
		return fmt.Errorf("failed to decode stored amounts: %w", err)
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
