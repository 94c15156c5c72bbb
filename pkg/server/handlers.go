package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"github.com/nirmalj2002/batchlens/pkg/catalog"
	"github.com/nirmalj2002/batchlens/pkg/httpx"
	"github.com/nirmalj2002/batchlens/pkg/report"
	"github.com/nirmalj2002/batchlens/pkg/variance"
)

// runRequest is the POST /v1/analysis/run body. Threshold and top-N
// settings come from the server configuration; the request picks the
// dates and region.
type runRequest struct {
	BaselineDate string `json:"baseline_date"`
	CompareDate  string `json:"compare_date"`
	Region       string `json:"region,omitempty"`
	TopN         *int   `json:"top_n,omitempty"`

	// SkipReport suppresses artifact files for callers that only want
	// the JSON result.
	SkipReport bool `json:"skip_report,omitempty"`
}

// Percentages in responses are x100 values; undefined ones are null.
type flaggedDTO struct {
	Region         string `json:"region"`
	ParameterGroup string `json:"parameter_group"`
	InstanceName   string `json:"instance_name"`
	ModelName      string `json:"model_name"`

	DeltaRaw float64  `json:"delta_raw_hours"`
	DeltaCPU float64  `json:"delta_cpu_hours"`
	DeltaSec float64  `json:"delta_sec_thousands"`
	PctRaw   *float64 `json:"pct_raw_hours"`
	PctCPU   *float64 `json:"pct_cpu_hours"`
	PctSec   *float64 `json:"pct_sec_thousands"`

	RawFlag bool `json:"raw_flag"`
	CPUFlag bool `json:"cpu_flag"`
	SecFlag bool `json:"sec_flag"`
}

type groupDTO struct {
	ParameterGroup   string   `json:"parameter_group"`
	WeightedPctRaw   *float64 `json:"weighted_pct_raw_hours"`
	WeightedPctCPU   *float64 `json:"weighted_pct_cpu_hours"`
	WeightedPctSec   *float64 `json:"weighted_pct_sec_thousands"`
	TotalWeightedAbs float64  `json:"total_weighted_abs"`
}

type modelDTO struct {
	ModelName      string   `json:"model_name"`
	MeanAbsPctCPU  *float64 `json:"mean_abs_pct_cpu_hours"`
	SumAbsDeltaCPU float64  `json:"sum_abs_delta_cpu_hours"`
}

type runResponse struct {
	RunID        string `json:"run_id"`
	BaselineDate string `json:"baseline_date"`
	CompareDate  string `json:"compare_date"`
	Region       string `json:"region,omitempty"`
	Outcome      string `json:"outcome"`

	RowsJoined  int `json:"rows_joined"`
	RowsFlagged int `json:"rows_flagged"`

	Flagged   []flaggedDTO `json:"flagged"`
	TopGroups []groupDTO   `json:"top_groups"`
	TopModels []modelDTO   `json:"top_models"`

	Report *report.Manifest `json:"report,omitempty"`
}

func (s *Server) handleAnalysisRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.RespondErrorString(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	runCfg := s.cfg.AnalysisConfigFor(req.BaselineDate, req.CompareDate, req.Region)
	if req.TopN != nil {
		runCfg.TopN = *req.TopN
	}

	result, err := variance.Run(r.Context(), s.src, runCfg)
	if err != nil {
		httpx.RespondError(w, httpx.StatusFor(err), err)
		return
	}

	resp := buildRunResponse(result)
	if !req.SkipReport {
		manifest, err := s.reportSink(result.RunID).WriteAll(result, runCfg.Thresholds)
		if err != nil {
			httpx.RespondError(w, http.StatusInternalServerError, err)
			return
		}
		resp.Report = manifest
	}

	httpx.RespondJSON(w, http.StatusOK, resp)
}

func buildRunResponse(res *variance.Result) *runResponse {
	resp := &runResponse{
		RunID:        res.RunID,
		BaselineDate: res.BaselineDate,
		CompareDate:  res.CompareDate,
		Region:       res.Region,
		Outcome:      res.Outcome.String(),
		RowsJoined:   len(res.Rows),
		RowsFlagged:  len(res.Flagged),
		Flagged:      make([]flaggedDTO, 0, len(res.Flagged)),
		TopGroups:    make([]groupDTO, 0, len(res.TopGroups)),
		TopModels:    make([]modelDTO, 0, len(res.TopModels)),
	}

	for _, f := range res.Flagged {
		resp.Flagged = append(resp.Flagged, flaggedDTO{
			Region:         f.Region,
			ParameterGroup: f.ParameterGroup,
			InstanceName:   f.InstanceName,
			ModelName:      f.ModelName,
			DeltaRaw:       f.DeltaRaw,
			DeltaCPU:       f.DeltaCPU,
			DeltaSec:       f.DeltaSec,
			PctRaw:         scaledPct(f.PctRaw),
			PctCPU:         scaledPct(f.PctCPU),
			PctSec:         scaledPct(f.PctSec),
			RawFlag:        f.RawFlag,
			CPUFlag:        f.CPUFlag,
			SecFlag:        f.SecFlag,
		})
	}
	for _, g := range res.TopGroups {
		resp.TopGroups = append(resp.TopGroups, groupDTO{
			ParameterGroup:   g.ParameterGroup,
			WeightedPctRaw:   definedPct(g.WeightedPctRaw),
			WeightedPctCPU:   definedPct(g.WeightedPctCPU),
			WeightedPctSec:   definedPct(g.WeightedPctSec),
			TotalWeightedAbs: g.TotalWeightedAbs,
		})
	}
	for _, m := range res.TopModels {
		resp.TopModels = append(resp.TopModels, modelDTO{
			ModelName:      m.ModelName,
			MeanAbsPctCPU:  scaledPct(m.MeanAbsPctCPU),
			SumAbsDeltaCPU: m.SumAbsDeltaCPU,
		})
	}
	return resp
}

// scaledPct turns an internal fractional ratio into an x100 JSON value,
// nil when undefined.
func scaledPct(v float64) *float64 {
	if !variance.PctDefined(v) {
		return nil
	}
	scaled := v * 100
	return &scaled
}

// definedPct passes through an already-scaled percentage, nil when NaN.
func definedPct(v float64) *float64 {
	if !variance.PctDefined(v) {
		return nil
	}
	return &v
}

type catalogSummaryResponse struct {
	Stats   *catalog.Stats         `json:"stats"`
	Summary []catalog.TableSummary `json:"summary"`
}

func (s *Server) handleCatalogSummary(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, err)
		return
	}
	summary, err := s.store.Summary(r.Context())
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, catalogSummaryResponse{Stats: stats, Summary: summary})
}

func (s *Server) handleCatalogTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.store.Tables(r.Context())
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, map[string][]string{"tables": tables})
}

func (s *Server) handleCatalogDates(w http.ResponseWriter, r *http.Request) {
	table := mux.Vars(r)["table"]
	dates, err := s.store.Dates(r.Context(), table)
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"table": table,
		"dates": dates,
	})
}

// handleCatalogFiles prunes a table's file listing by region, date
// range, and an optional column-statistics predicate
// (column, op, value query parameters).
func (s *Server) handleCatalogFiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	table := q.Get("table")
	if table == "" {
		httpx.RespondErrorString(w, http.StatusBadRequest, "table parameter is required")
		return
	}

	fq := catalog.FileQuery{
		Region:   q.Get("region"),
		DateFrom: q.Get("from"),
		DateTo:   q.Get("to"),
	}
	if col := q.Get("column"); col != "" {
		value, err := strconv.ParseFloat(q.Get("value"), 64)
		if err != nil {
			httpx.RespondErrorString(w, http.StatusBadRequest, "value parameter must be a number")
			return
		}
		op := q.Get("op")
		if op == "" {
			op = ">"
		}
		fq.Predicate = &catalog.ColumnPredicate{Column: col, Op: op, Value: value}
	}

	files, err := s.pruner.Files(r.Context(), table, fq)
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"table": table,
		"count": len(files),
		"files": files,
	})
}

// syncRunning guards against overlapping catalog syncs.
var syncRunning atomic.Bool

func (s *Server) handleCatalogSync(w http.ResponseWriter, r *http.Request) {
	if s.loader == nil {
		httpx.RespondErrorString(w, http.StatusServiceUnavailable, "no lake configured")
		return
	}
	if !syncRunning.CompareAndSwap(false, true) {
		httpx.RespondErrorString(w, http.StatusConflict, "a sync is already running")
		return
	}
	defer syncRunning.Store(false)

	rep, err := s.loader.Sync(r.Context(), func(p catalog.Progress) {
		s.hub.Broadcast(p)
	})
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, rep)
}

type healthResponse struct {
	Status  string         `json:"status"`
	Version string         `json:"version"`
	Uptime  string         `json:"uptime"`
	Catalog *catalog.Stats `json:"catalog"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		httpx.RespondError(w, http.StatusServiceUnavailable, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, healthResponse{
		Status:  "healthy",
		Version: "1.0.0",
		Uptime:  time.Since(startTime).String(),
		Catalog: stats,
	})
}
