/*
scenarios_test.go - Tests for demo scenario loading

Scenario data is pinned to the current calendar year, so the tests derive
their URLs from time.Now().
*/
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func loadScenario(t *testing.T, srv *httptest.Server, id string) *http.Response {
	t.Helper()
	body, err := json.Marshal(map[string]string{"scenario_id": id})
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	resp, err := http.Post(srv.URL+"/api/scenarios/load", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	return resp
}

func scenarioPath(party, leaf string) string {
	return fmt.Sprintf("/api/parties/%s/years/%d/%s", party, time.Now().Year(), leaf)
}

func TestListScenarios(t *testing.T) {
	srv := newTestServer(t)

	var listed []ScenarioDTO
	if status := getJSON(t, srv, "/api/scenarios", &listed); status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if len(listed) != 5 {
		t.Fatalf("Expected 5 scenarios, got %d", len(listed))
	}
	for _, s := range listed {
		if s.ID == "" || s.Party == "" {
			t.Errorf("Scenario missing id or party: %+v", s)
		}
	}
}

func TestLoadUnknownScenario(t *testing.T) {
	srv := newTestServer(t)

	resp := loadScenario(t, srv, "does-not-exist")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", resp.StatusCode)
	}
}

func TestLoadSteadyBiweeklyScenario(t *testing.T) {
	// GIVEN: A fresh server
	srv := newTestServer(t)

	// WHEN: Loading the clean biweekly scenario
	resp := loadScenario(t, srv, "steady-biweekly")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	// THEN: Alice's summary validates cleanly with one segment
	var summary SummaryDTO
	if status := getJSON(t, srv, scenarioPath("alice", "summary"), &summary); status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if len(summary.Segments) != 1 {
		t.Fatalf("Expected 1 segment, got %d", len(summary.Segments))
	}
	for _, f := range summary.Findings {
		t.Errorf("Unexpected finding: %s %s: %s", f.Severity, f.Kind, f.Message)
	}

	// AND: The current scenario endpoint reflects the load
	var current ScenarioDTO
	if status := getJSON(t, srv, "/api/scenarios/current", &current); status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if current.ID != "steady-biweekly" {
		t.Errorf("Expected current scenario steady-biweekly, got %q", current.ID)
	}
}

func TestLoadJobChangeScenario(t *testing.T) {
	srv := newTestServer(t)
	resp := loadScenario(t, srv, "job-change")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var summary SummaryDTO
	if status := getJSON(t, srv, scenarioPath("bruno", "summary"), &summary); status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if len(summary.Segments) != 2 {
		t.Fatalf("Expected 2 segments, got %d", len(summary.Segments))
	}
	if summary.Segments[0].EmployerID != "acme" || summary.Segments[1].EmployerID != "globex" {
		t.Errorf("Expected acme then globex, got %s then %s",
			summary.Segments[0].EmployerID, summary.Segments[1].EmployerID)
	}
	for _, f := range summary.Findings {
		if f.Severity == "error" {
			t.Errorf("Unexpected error finding: %s", f.Message)
		}
	}
}

func TestLoadMissedPeriodScenario(t *testing.T) {
	srv := newTestServer(t)
	resp := loadScenario(t, srv, "missed-period")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var summary SummaryDTO
	if status := getJSON(t, srv, scenarioPath("diego", "summary"), &summary); status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}

	found := false
	for _, f := range summary.Findings {
		if f.Kind == "missing-period" {
			found = true
		}
	}
	if !found {
		t.Error("Expected a missing-period finding")
	}
}

func TestLoadScenarioReplacesPreviousData(t *testing.T) {
	// GIVEN: The equity scenario loaded
	srv := newTestServer(t)
	resp := loadScenario(t, srv, "equity-vesting")
	resp.Body.Close()

	// WHEN: Loading a different scenario
	resp = loadScenario(t, srv, "steady-biweekly")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	// THEN: Carmen's records are gone
	var listed []RecordDTO
	if status := getJSON(t, srv, scenarioPath("carmen", "records"), &listed); status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if len(listed) != 0 {
		t.Fatalf("Expected no records for carmen after reload, got %d", len(listed))
	}
}

func TestEquityVestingScenarioProjects(t *testing.T) {
	srv := newTestServer(t)
	resp := loadScenario(t, srv, "equity-vesting")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var projection ProjectionDTO
	if status := getJSON(t, srv, scenarioPath("carmen", "projection"), &projection); status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if projection.Cadence == nil || projection.Cadence.IntervalDays != 14 {
		t.Fatalf("Expected a 14-day cadence, got %+v", projection.Cadence)
	}
	if projection.Vest == nil {
		t.Fatal("Expected a detected vest pattern")
	}
	if _, ok := projection.Categories["stock_vest"]; !ok {
		t.Error("Expected a stock_vest projection")
	}
}
