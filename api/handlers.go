/*
handlers.go - HTTP API handlers for the payroll analysis engine

PURPOSE:
  Exposes record ingestion, annual summaries, and year-end projections
  via REST API. Handles HTTP request/response, JSON serialization, and
  delegates to the engine.

ENDPOINTS:
  Records:
    POST   /api/parties/{party}/years/{year}/records    Ingest a batch
    GET    /api/parties/{party}/years/{year}/records    List stored records

  Analysis:
    GET    /api/parties/{party}/years/{year}/summary    Annual summary
    GET    /api/parties/{party}/years/{year}/projection Year-end projection

  Demo & Admin:
    GET    /api/scenarios                               List demo scenarios
    POST   /api/scenarios/load                          Load a demo scenario
    GET    /api/validation/runs                         Background sweep history
    POST   /api/reset                                   Clear all data (dev only)

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (analyzer, projector)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 409: Duplicate records
  - 422: Not enough data to analyze or project
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/warp/payroll-engine/config"
	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    engine.RecordStore
	Analyzer *engine.Analyzer
	Cfg      config.Config

	// Optional background validation sweep, nil when not running.
	Scheduler *ValidationScheduler

	// ID of the demo scenario currently loaded, "" when none.
	currentScenario string
}

// NewHandler creates a new handler with the given store and config.
func NewHandler(store engine.RecordStore, cfg config.Config) *Handler {
	return &Handler{
		Store:    store,
		Analyzer: engine.NewAnalyzer(cfg.Tolerances()),
		Cfg:      cfg,
	}
}

// =============================================================================
// RECORD HANDLERS
// =============================================================================

// SubmitRecords ingests a batch of pay period records.
func (h *Handler) SubmitRecords(w http.ResponseWriter, r *http.Request) {
	party, year, ok := h.pathParams(w, r)
	if !ok {
		return
	}

	var req SubmitRecordsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Records) == 0 {
		writeError(w, http.StatusBadRequest, "No records provided", nil)
		return
	}

	records := make([]engine.PayPeriodRecord, 0, len(req.Records))
	for _, dto := range req.Records {
		rec, err := dto.toRecord()
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid record", err)
			return
		}
		if rec.PayDate.Year() != year {
			writeError(w, http.StatusBadRequest, "Record pay_date outside requested year", nil)
			return
		}
		records = append(records, rec)
	}

	if err := h.Store.SaveRecords(r.Context(), party, year, records); err != nil {
		if errors.Is(err, engine.ErrDuplicateRecord) {
			writeError(w, http.StatusConflict, "Duplicate record", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to save records", err)
		return
	}

	writeJSON(w, http.StatusCreated, SubmitRecordsResponse{Stored: len(records)})
}

// ListRecords returns the stored records for a party and year.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	party, year, ok := h.pathParams(w, r)
	if !ok {
		return
	}

	records, err := h.Store.LoadYear(r.Context(), party, year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load records", err)
		return
	}

	dtos := make([]RecordDTO, len(records))
	for i, rec := range records {
		dtos[i] = toRecordDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ANALYSIS HANDLERS
// =============================================================================

// GetSummary returns the validated annual summary for a party and year.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	party, year, ok := h.pathParams(w, r)
	if !ok {
		return
	}
	asOf, ok := h.queryDate(w, r, "as_of")
	if !ok {
		return
	}

	records, err := h.Store.LoadYear(r.Context(), party, year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load records", err)
		return
	}

	summary, err := h.Analyzer.AnalyzeYear(party, year, records, asOf)
	if err != nil {
		if errors.Is(err, engine.ErrInsufficientData) {
			writeError(w, http.StatusUnprocessableEntity, "Not enough records to analyze", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Analysis failed", err)
		return
	}

	counts := make(map[string]int)
	for payType, n := range payroll.CountByType(records) {
		counts[string(payType)] = n
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(summary, counts))
}

// GetProjection returns estimated year-end totals for a partial year.
func (h *Handler) GetProjection(w http.ResponseWriter, r *http.Request) {
	party, year, ok := h.pathParams(w, r)
	if !ok {
		return
	}
	asOf, ok := h.queryDate(w, r, "as_of")
	if !ok {
		return
	}
	yearEnd, ok := h.queryDate(w, r, "year_end")
	if !ok {
		return
	}

	records, err := h.Store.LoadYear(r.Context(), party, year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load records", err)
		return
	}

	segments, findings, err := h.Analyzer.ValidateContinuity(records, year, asOf)
	if err != nil {
		if errors.Is(err, engine.ErrInsufficientData) {
			writeError(w, http.StatusUnprocessableEntity, "Not enough records to project", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Analysis failed", err)
		return
	}
	for _, seg := range segments {
		findings = append(findings, h.Analyzer.CheckConsistency(seg)...)
		findings = append(findings, h.Analyzer.CheckSegmentTotals(seg)...)
	}
	summary := h.Analyzer.Aggregate(party, year, segments, findings)

	in := engine.ProjectionInput{
		Summary:           summary,
		AsOf:              asOf,
		YearEnd:           yearEnd,
		Limit401k:         h.Cfg.Limit401kFor(year, payroll.Limit401k),
		TaxableCategories: h.Cfg.Taxable(),
	}

	// Cadence comes from the current employment, the last segment.
	if cadence, err := h.Analyzer.DetectPayCadence(segments[len(segments)-1]); err == nil {
		in.Cadence = &cadence
	}
	if vest, err := h.Analyzer.DetectVestMonths(segments); err == nil {
		in.Vest = &vest
	}

	result, err := engine.Project(in)
	if err != nil {
		if errors.Is(err, engine.ErrProjectionInsufficientData) {
			writeError(w, http.StatusUnprocessableEntity, "Not enough data to project", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Projection failed", err)
		return
	}

	writeJSON(w, http.StatusOK, toProjectionDTO(party, year, result, in.Limit401k, findings))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// Resetter is implemented by stores that support clearing all data.
type Resetter interface {
	Reset(ctx context.Context) error
}

// ResetDatabase clears all stored data. Dev only.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	resettable, ok := h.Store.(Resetter)
	if !ok {
		writeError(w, http.StatusNotImplemented, "Store does not support reset", nil)
		return
	}
	if err := resettable.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) pathParams(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	party := chi.URLParam(r, "party")
	if party == "" {
		writeError(w, http.StatusBadRequest, "Missing party", nil)
		return "", 0, false
	}
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1900 || year > 9999 {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return "", 0, false
	}
	return party, year, true
}

func (h *Handler) queryDate(w http.ResponseWriter, r *http.Request, name string) (engine.TimePoint, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return engine.TimePoint{}, true
	}
	tp, err := engine.ParseTimePoint(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid "+name+" (use YYYY-MM-DD)", err)
		return engine.TimePoint{}, false
	}
	return tp, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
