/*
scheduler.go - Automated validation sweep scheduler

PURPOSE:
  Periodically re-validates every party's stored records for the current
  year and logs continuity/consistency findings. Catches data that was
  clean at import time but has gone stale (e.g. a paycheck that never
  arrived, visible only once enough time has passed).

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Sweeps every party with records in the current year
  - Keeps a bounded in-memory history of recent runs for the API

CONFIGURATION:
  - CheckInterval: How often to sweep (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewValidationScheduler(store, analyzer)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: ListValidationRuns endpoint
  - engine/continuity.go: ValidateContinuity
*/
package api

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/warp/payroll-engine/engine"
)

// sweepStore is the store surface the scheduler needs: record loading plus
// party enumeration. *sqlite.Store satisfies it.
type sweepStore interface {
	engine.RecordStore
	Parties(ctx context.Context, year int) ([]string, error)
}

// ValidationRun records one sweep over one party's year, for audit display.
type ValidationRun struct {
	Party      string    `json:"party"`
	Year       int       `json:"year"`
	RanAt      time.Time `json:"ran_at"`
	Records    int       `json:"records"`
	Warnings   int       `json:"warnings"`
	Errors     int       `json:"errors"`
	SweepError string    `json:"sweep_error,omitempty"`
}

// maxRunHistory bounds the in-memory run log.
const maxRunHistory = 200

// ValidationScheduler handles automated periodic re-validation.
type ValidationScheduler struct {
	Store         sweepStore
	Analyzer      *engine.Analyzer
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex // guards lifecycle (ticker, stop)

	runsMu sync.Mutex // guards runs; separate so sweeps never block Stop
	runs   []ValidationRun
}

// NewValidationScheduler creates a new scheduler.
func NewValidationScheduler(store sweepStore, analyzer *engine.Analyzer) *ValidationScheduler {
	return &ValidationScheduler{
		Store:         store,
		Analyzer:      analyzer,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (vs *ValidationScheduler) Start() {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if !vs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}
	if vs.ticker != nil {
		return // already running
	}

	vs.ticker = time.NewTicker(vs.CheckInterval)
	vs.wg.Add(1)

	go vs.run()

	log.Printf("[Scheduler] Started with check interval: %v", vs.CheckInterval)
}

// Stop stops the scheduler. Safe to call when never started, and
// idempotent: repeat calls are no-ops.
func (vs *ValidationScheduler) Stop() {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if vs.ticker == nil {
		return
	}
	vs.ticker.Stop()
	vs.ticker = nil
	close(vs.stop)
	vs.wg.Wait()
	log.Println("[Scheduler] Stopped")
}

func (vs *ValidationScheduler) run() {
	defer vs.wg.Done()

	// Run immediately on start
	vs.sweep()

	for {
		select {
		case <-vs.ticker.C:
			vs.sweep()
		case <-vs.stop:
			return
		}
	}
}

func (vs *ValidationScheduler) sweep() {
	ctx := context.Background()
	year := time.Now().Year()

	parties, err := vs.Store.Parties(ctx, year)
	if err != nil {
		log.Printf("[Scheduler] Error listing parties: %v", err)
		return
	}

	warningTotal := 0
	errorTotal := 0

	for _, party := range parties {
		run := vs.sweepParty(ctx, party, year)
		warningTotal += run.Warnings
		errorTotal += run.Errors
		vs.record(run)
	}

	if len(parties) > 0 {
		log.Printf("[Scheduler] Swept %d parties for %d: %d warning(s), %d error(s)",
			len(parties), year, warningTotal, errorTotal)
	}
}

func (vs *ValidationScheduler) sweepParty(ctx context.Context, party string, year int) ValidationRun {
	run := ValidationRun{Party: party, Year: year, RanAt: time.Now()}

	records, err := vs.Store.LoadYear(ctx, party, year)
	if err != nil {
		run.SweepError = err.Error()
		log.Printf("[Scheduler] Error loading %s/%d: %v", party, year, err)
		return run
	}
	run.Records = len(records)

	segments, findings, err := vs.Analyzer.ValidateContinuity(records, year, engine.TimePoint{Time: time.Now()})
	if err != nil {
		run.SweepError = err.Error()
		return run
	}
	for _, seg := range segments {
		findings = append(findings, vs.Analyzer.CheckConsistency(seg)...)
		findings = append(findings, vs.Analyzer.CheckSegmentTotals(seg)...)
	}

	for _, f := range findings {
		switch f.Severity {
		case engine.SeverityWarning:
			run.Warnings++
		case engine.SeverityError:
			run.Errors++
			log.Printf("[Scheduler] %s/%d: %s: %s", party, year, f.Kind, f.Message)
		}
	}
	return run
}

func (vs *ValidationScheduler) record(run ValidationRun) {
	vs.runsMu.Lock()
	defer vs.runsMu.Unlock()

	vs.runs = append(vs.runs, run)
	if len(vs.runs) > maxRunHistory {
		vs.runs = vs.runs[len(vs.runs)-maxRunHistory:]
	}
}

// RecentRuns returns the run history, newest last.
func (vs *ValidationScheduler) RecentRuns() []ValidationRun {
	vs.runsMu.Lock()
	defer vs.runsMu.Unlock()

	out := make([]ValidationRun, len(vs.runs))
	copy(out, vs.runs)
	return out
}

// RunNow triggers an immediate sweep (for testing/admin).
func (vs *ValidationScheduler) RunNow() {
	vs.sweep()
}

// GetNextRunTime returns when the next scheduled sweep will occur.
func (vs *ValidationScheduler) GetNextRunTime() time.Time {
	return time.Now().Add(vs.CheckInterval)
}

// ListValidationRuns returns the scheduler's recent sweep history.
func (h *Handler) ListValidationRuns(w http.ResponseWriter, r *http.Request) {
	if h.Scheduler == nil {
		writeJSON(w, http.StatusOK, []ValidationRun{})
		return
	}
	writeJSON(w, http.StatusOK, h.Scheduler.RecentRuns())
}
