// Package store provides RecordStore implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/payroll-engine/engine"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	records map[key][]engine.PayPeriodRecord
	seen    map[recordKey]bool
}

type key struct {
	Party string
	Year  int
}

// recordKey identifies a record for idempotent re-imports. The YTD total
// disambiguates legitimate same-day records (a vest and a regular check
// can share a pay date).
type recordKey struct {
	Party    string
	PayDate  string
	Employer engine.EmployerID
	YTDGross string
}

func keyFor(party string, rec engine.PayPeriodRecord) recordKey {
	return recordKey{
		Party:    party,
		PayDate:  rec.PayDate.String(),
		Employer: rec.EmployerID,
		YTDGross: rec.TotalYTDEarnings().String(),
	}
}

func NewMemory() *Memory {
	return &Memory{
		records: make(map[key][]engine.PayPeriodRecord),
		seen:    make(map[recordKey]bool),
	}
}

// SaveRecords appends records atomically: the duplicate check runs over
// the whole batch before anything is written.
func (m *Memory) SaveRecords(_ context.Context, party string, year int, records []engine.PayPeriodRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	batch := make(map[recordKey]bool, len(records))
	for _, rec := range records {
		rk := keyFor(party, rec)
		if m.seen[rk] || batch[rk] {
			return engine.ErrDuplicateRecord
		}
		batch[rk] = true
	}

	k := key{Party: party, Year: year}
	for _, rec := range records {
		i := sort.Search(len(m.records[k]), func(i int) bool {
			return m.records[k][i].PayDate.After(rec.PayDate)
		})
		m.records[k] = append(m.records[k], engine.PayPeriodRecord{})
		copy(m.records[k][i+1:], m.records[k][i:])
		m.records[k][i] = rec
		m.seen[keyFor(party, rec)] = true
	}
	return nil
}

// Reset clears all stored records.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = make(map[key][]engine.PayPeriodRecord)
	m.seen = make(map[recordKey]bool)
	return nil
}

func (m *Memory) LoadYear(_ context.Context, party string, year int) ([]engine.PayPeriodRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	k := key{Party: party, Year: year}
	result := make([]engine.PayPeriodRecord, len(m.records[k]))
	copy(result, m.records[k])
	return result, nil
}
