/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	pay period data for testing and demos. Each scenario imports a year of
	records for one party that demonstrates specific engine behavior.

AVAILABLE SCENARIOS:

	steady-biweekly:   Single employer, clean biweekly checks
	job-change:        Mid-year employer switch with a YTD reset
	equity-vesting:    Biweekly salary plus quarterly stock vests
	missed-period:     A skipped paycheck producing a continuity warning
	retirement-maxout: Heavy 401k contributor approaching the annual limit

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Build the record series for the scenario's party
 3. Import via the normal store path (same dedup rules as the API)

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "equity-vesting"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, h)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler context, writeJSON/writeError
  - engine/types.go: PayPeriodRecord construction
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/engine"
)

// ScenarioDTO describes one loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Party       string `json:"party"`
}

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "steady-biweekly",
		Name:        "Steady Biweekly",
		Description: "Single employer, clean biweekly paychecks with no findings",
		Party:       "alice",
	},
	{
		ID:          "job-change",
		Name:        "Job Change",
		Description: "Employer switch in June with the YTD reset that comes with it",
		Party:       "bruno",
	},
	{
		ID:          "equity-vesting",
		Name:        "Equity Vesting",
		Description: "Biweekly salary plus quarterly RSU vests (Feb/May/Aug)",
		Party:       "carmen",
	},
	{
		ID:          "missed-period",
		Name:        "Missed Period",
		Description: "One skipped paycheck producing a missing-period warning",
		Party:       "diego",
	},
	{
		ID:          "retirement-maxout",
		Name:        "Retirement Max-Out",
		Description: "Large per-check 401k contributions approaching the annual limit",
		Party:       "elena",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}

	// Scenario ID exists but not in list (shouldn't happen)
	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:          h.currentScenario,
		Name:        h.currentScenario,
		Description: "Currently loaded scenario",
	})
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()

	resettable, ok := h.Store.(Resetter)
	if !ok {
		writeError(w, http.StatusNotImplemented, "Store does not support scenarios", nil)
		return
	}
	if err := resettable.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	var err error
	switch req.ScenarioID {
	case "steady-biweekly":
		err = h.loadSteadyBiweeklyScenario(ctx)
	case "job-change":
		err = h.loadJobChangeScenario(ctx)
	case "equity-vesting":
		err = h.loadEquityVestingScenario(ctx)
	case "missed-period":
		err = h.loadMissedPeriodScenario(ctx)
	case "retirement-maxout":
		err = h.loadRetirementMaxOutScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// demoYear pins scenario data to the current calendar year so projections
// remain meaningful whenever the scenario is loaded.
func demoYear() int { return time.Now().Year() }

func (h *Handler) loadSteadyBiweeklyScenario(ctx context.Context) error {
	year := demoYear()
	b := newSeriesBuilder("acme")
	start := engine.NewTimePoint(year, time.January, 9)
	for i := 0; i < 16; i++ {
		b.regularCheck(start.AddDays(14*i), dm(4200), dm(300))
	}
	return h.Store.SaveRecords(ctx, "alice", year, b.records)
}

func (h *Handler) loadJobChangeScenario(ctx context.Context) error {
	year := demoYear()

	first := newSeriesBuilder("acme")
	start := engine.NewTimePoint(year, time.January, 9)
	for i := 0; i < 11; i++ {
		first.regularCheck(start.AddDays(14*i), dm(3800), dm(250))
	}

	// New employer reports YTD figures from zero again.
	second := newSeriesBuilder("globex")
	restart := engine.NewTimePoint(year, time.June, 15)
	for i := 0; i < 6; i++ {
		second.regularCheck(restart.AddDays(14*i), dm(4600), dm(400))
	}

	records := append(first.records, second.records...)
	return h.Store.SaveRecords(ctx, "bruno", year, records)
}

func (h *Handler) loadEquityVestingScenario(ctx context.Context) error {
	year := demoYear()
	b := newSeriesBuilder("initech")
	start := engine.NewTimePoint(year, time.January, 9)
	for i := 0; i < 17; i++ {
		date := start.AddDays(14 * i)
		b.regularCheck(date, dm(5000), dm(500))
		// Quarterly vests land on the mid-month check in Feb, May, and Aug.
		switch date.Month() {
		case time.February, time.May, time.August:
			if date.Day() >= 14 && date.Day() <= 28 {
				b.stockVest(date, dm(12000))
			}
		}
	}
	return h.Store.SaveRecords(ctx, "carmen", year, b.records)
}

func (h *Handler) loadMissedPeriodScenario(ctx context.Context) error {
	year := demoYear()
	b := newSeriesBuilder("acme")
	start := engine.NewTimePoint(year, time.January, 9)
	for i := 0; i < 12; i++ {
		if i == 6 {
			continue // one check never arrived
		}
		b.regularCheck(start.AddDays(14*i), dm(4200), dm(300))
	}
	return h.Store.SaveRecords(ctx, "diego", year, b.records)
}

func (h *Handler) loadRetirementMaxOutScenario(ctx context.Context) error {
	year := demoYear()
	b := newSeriesBuilder("acme")
	start := engine.NewTimePoint(year, time.January, 9)
	for i := 0; i < 14; i++ {
		b.regularCheck(start.AddDays(14*i), dm(9000), dm(1500))
	}
	return h.Store.SaveRecords(ctx, "elena", year, b.records)
}

// =============================================================================
// RECORD SERIES BUILDER
// =============================================================================

// seriesBuilder accumulates a consistent record series: every YTD figure is
// the running sum of the current-period figures before it, so scenarios load
// without consistency findings unless a loader wants one.
type seriesBuilder struct {
	employer engine.EmployerID
	records  []engine.PayPeriodRecord

	ytdEarnings   engine.CategoryAmounts
	ytdTaxes      engine.CategoryAmounts
	ytdDeductions engine.CategoryAmounts
}

func newSeriesBuilder(employer string) *seriesBuilder {
	return &seriesBuilder{
		employer:      engine.EmployerID(employer),
		ytdEarnings:   engine.CategoryAmounts{},
		ytdTaxes:      engine.CategoryAmounts{},
		ytdDeductions: engine.CategoryAmounts{},
	}
}

func (b *seriesBuilder) regularCheck(date engine.TimePoint, gross, retirement decimal.Decimal) {
	b.add(date,
		engine.CategoryAmounts{engine.CategoryRegular: gross},
		engine.CategoryAmounts{engine.TaxFederalIncome: gross.Mul(decimal.NewFromFloat(0.2))},
		engine.CategoryAmounts{engine.DeductionRetirement: retirement},
	)
}

func (b *seriesBuilder) stockVest(date engine.TimePoint, amount decimal.Decimal) {
	b.add(date,
		engine.CategoryAmounts{engine.CategoryStockVest: amount},
		engine.CategoryAmounts{engine.TaxFederalIncome: amount.Mul(decimal.NewFromFloat(0.22))},
		engine.CategoryAmounts{},
	)
}

func (b *seriesBuilder) add(date engine.TimePoint, earnings, taxes, deductions engine.CategoryAmounts) {
	b.ytdEarnings.AddInto(earnings)
	b.ytdTaxes.AddInto(taxes)
	b.ytdDeductions.AddInto(deductions)

	b.records = append(b.records, engine.PayPeriodRecord{
		PayDate:          date,
		EmployerID:       b.employer,
		Earnings:         earnings.Clone(),
		TaxesWithheld:    taxes.Clone(),
		Deductions:       deductions.Clone(),
		YTDEarnings:      b.ytdEarnings.Clone(),
		YTDTaxesWithheld: b.ytdTaxes.Clone(),
		YTDDeductions:    b.ytdDeductions.Clone(),
	})
}

func dm(v int64) decimal.Decimal { return decimal.NewFromInt(v) }
