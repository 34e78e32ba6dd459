/*
handlers_test.go - End-to-end tests for API handlers

Tests run against the real router with a :memory: SQLite store:
- Record ingestion and listing
- Annual summary
- Year-end projection
- Error statuses (bad input, duplicates, insufficient data)
*/
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/config"
	"github.com/warp/payroll-engine/store/sqlite"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	srv := httptest.NewServer(NewRouter(NewHandler(store, cfg)))
	t.Cleanup(srv.Close)
	return srv
}

func amounts(pairs map[string]float64) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(pairs))
	for cat, v := range pairs {
		out[cat] = decimal.NewFromFloat(v)
	}
	return out
}

// biweeklyRecords builds n clean biweekly records starting Jan 10 2025,
// each with 5000 regular gross, 1000 federal tax, 500 retirement.
func biweeklyRecords(n int) []RecordDTO {
	records := make([]RecordDTO, n)
	date := 10 // Jan 10, stepping 14 days is fine within Jan-Mar for small n
	for i := 0; i < n; i++ {
		day := date + i*14
		month := 1
		for day > 31 {
			day -= 31
			month++
		}
		ytd := float64(i+1) * 5000
		records[i] = RecordDTO{
			PayDate:          fmt.Sprintf("2025-%02d-%02d", month, day),
			EmployerID:       "acme",
			Earnings:         amounts(map[string]float64{"regular": 5000}),
			TaxesWithheld:    amounts(map[string]float64{"federal_income": 1000}),
			Deductions:       amounts(map[string]float64{"retirement_401k": 500}),
			YTDEarnings:      amounts(map[string]float64{"regular": ytd}),
			YTDTaxesWithheld: amounts(map[string]float64{"federal_income": ytd / 5}),
			YTDDeductions:    amounts(map[string]float64{"retirement_401k": float64(i+1) * 500}),
		}
	}
	return records
}

func postRecords(t *testing.T, srv *httptest.Server, party string, records []RecordDTO) *http.Response {
	t.Helper()
	body, err := json.Marshal(SubmitRecordsRequest{Records: records})
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	resp, err := http.Post(
		srv.URL+"/api/parties/"+party+"/years/2025/records",
		"application/json",
		bytes.NewReader(body),
	)
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	return resp
}

func getJSON(t *testing.T, srv *httptest.Server, path string, into any) int {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	defer resp.Body.Close()
	if into != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func TestSubmitAndListRecords(t *testing.T) {
	// GIVEN: A fresh server
	srv := newTestServer(t)

	// WHEN: Submitting four biweekly records
	resp := postRecords(t, srv, "alex", biweeklyRecords(4))
	defer resp.Body.Close()

	// THEN: Created, and listing returns them in date order
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}

	var listed []RecordDTO
	if status := getJSON(t, srv, "/api/parties/alex/years/2025/records", &listed); status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if len(listed) != 4 {
		t.Fatalf("Expected 4 records, got %d", len(listed))
	}
	if listed[0].PayDate != "2025-01-10" {
		t.Errorf("Expected first record 2025-01-10, got %s", listed[0].PayDate)
	}
	if !listed[3].YTDEarnings["regular"].Equal(decimal.NewFromInt(20000)) {
		t.Errorf("Expected final YTD 20000, got %s", listed[3].YTDEarnings["regular"])
	}
}

func TestDuplicateSubmitConflicts(t *testing.T) {
	// GIVEN: A server with records already stored
	srv := newTestServer(t)
	resp := postRecords(t, srv, "alex", biweeklyRecords(2))
	resp.Body.Close()

	// WHEN: Submitting the same batch again
	resp = postRecords(t, srv, "alex", biweeklyRecords(2))
	defer resp.Body.Close()

	// THEN: 409 Conflict
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("Expected 409, got %d", resp.StatusCode)
	}
}

func TestSubmitRejectsBadInput(t *testing.T) {
	srv := newTestServer(t)

	// Malformed date
	bad := biweeklyRecords(1)
	bad[0].PayDate = "01/10/2025"
	resp := postRecords(t, srv, "alex", bad)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected 400 for bad date, got %d", resp.StatusCode)
	}

	// Record outside the requested year
	wrongYear := biweeklyRecords(1)
	wrongYear[0].PayDate = "2024-01-10"
	resp = postRecords(t, srv, "alex", wrongYear)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected 400 for wrong year, got %d", resp.StatusCode)
	}

	// Empty batch
	resp = postRecords(t, srv, "alex", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected 400 for empty batch, got %d", resp.StatusCode)
	}
}

func TestGetSummary(t *testing.T) {
	// GIVEN: Four clean biweekly records
	srv := newTestServer(t)
	resp := postRecords(t, srv, "alex", biweeklyRecords(4))
	resp.Body.Close()

	// WHEN: Fetching the summary as of the last pay date
	var summary SummaryDTO
	status := getJSON(t, srv, "/api/parties/alex/years/2025/summary?as_of=2025-02-21", &summary)

	// THEN: One segment, combined totals from the final YTD figures
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if len(summary.Segments) != 1 {
		t.Fatalf("Expected 1 segment, got %d", len(summary.Segments))
	}
	if summary.Segments[0].EmployerID != "acme" {
		t.Errorf("Expected employer acme, got %s", summary.Segments[0].EmployerID)
	}
	if !summary.TotalEarnings["regular"].Equal(decimal.NewFromInt(20000)) {
		t.Errorf("Expected total earnings 20000, got %s", summary.TotalEarnings["regular"])
	}
	if summary.PayTypeCounts["regular"] != 4 {
		t.Errorf("Expected 4 regular checks, got %d", summary.PayTypeCounts["regular"])
	}
	for _, f := range summary.Findings {
		if f.Severity == "error" {
			t.Errorf("Unexpected error finding: %s", f.Message)
		}
	}
}

func TestSummaryWithNoRecords(t *testing.T) {
	srv := newTestServer(t)
	status := getJSON(t, srv, "/api/parties/nobody/years/2025/summary", nil)
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422, got %d", status)
	}
}

func TestSummaryRejectsBadDates(t *testing.T) {
	srv := newTestServer(t)
	status := getJSON(t, srv, "/api/parties/alex/years/2025/summary?as_of=tomorrow", nil)
	if status != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", status)
	}
	status = getJSON(t, srv, "/api/parties/alex/years/banana/summary", nil)
	if status != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", status)
	}
}

func TestGetProjection(t *testing.T) {
	// GIVEN: Four clean biweekly records
	srv := newTestServer(t)
	resp := postRecords(t, srv, "alex", biweeklyRecords(4))
	resp.Body.Close()

	// WHEN: Projecting to year end
	var projection ProjectionDTO
	status := getJSON(t, srv, "/api/parties/alex/years/2025/projection", &projection)

	// THEN: Biweekly cadence detected, regular earnings extrapolated
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if projection.Cadence == nil {
		t.Fatal("Expected a detected cadence")
	}
	if projection.Cadence.IntervalDays != 14 {
		t.Errorf("Expected 14-day interval, got %d", projection.Cadence.IntervalDays)
	}
	if projection.RemainingPeriods <= 0 {
		t.Errorf("Expected remaining periods, got %d", projection.RemainingPeriods)
	}

	regular, ok := projection.Categories["regular"]
	if !ok {
		t.Fatal("Expected a regular projection")
	}
	expectedAdd := decimal.NewFromInt(5000).Mul(decimal.NewFromInt(int64(projection.RemainingPeriods)))
	if !regular.ProjectedAdd.Equal(expectedAdd) {
		t.Errorf("Expected projected add %s, got %s", expectedAdd, regular.ProjectedAdd)
	}
	if !regular.EstimatedTotal.Equal(regular.Actual.Add(regular.ProjectedAdd)) {
		t.Errorf("Estimated total should equal actual plus add")
	}
	if !projection.Limit401k.Equal(decimal.NewFromInt(23500)) {
		t.Errorf("Expected 2025 limit 23500, got %s", projection.Limit401k)
	}
}

func TestProjectionWithNoRecords(t *testing.T) {
	srv := newTestServer(t)
	status := getJSON(t, srv, "/api/parties/nobody/years/2025/projection", nil)
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422, got %d", status)
	}
}

func TestResetClearsData(t *testing.T) {
	// GIVEN: Stored records
	srv := newTestServer(t)
	resp := postRecords(t, srv, "alex", biweeklyRecords(2))
	resp.Body.Close()

	// WHEN: Resetting
	reset, err := http.Post(srv.URL+"/api/reset", "application/json", nil)
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	reset.Body.Close()
	if reset.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", reset.StatusCode)
	}

	// THEN: No records remain
	var listed []RecordDTO
	if status := getJSON(t, srv, "/api/parties/alex/years/2025/records", &listed); status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if len(listed) != 0 {
		t.Fatalf("Expected no records after reset, got %d", len(listed))
	}
}
