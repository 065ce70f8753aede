package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"a3p/internal/charts"
	"a3p/internal/core"
	"a3p/internal/coverage"
	"a3p/internal/dataset"
	"a3p/internal/log"
	"a3p/internal/services"
)

type snapshotResponse struct {
	ID          string        `json:"id"`
	Source      string        `json:"source"`
	Fingerprint string        `json:"fingerprint"`
	LoadedAt    time.Time     `json:"loaded_at"`
	Records     int           `json:"records"`
	Stats       dataset.Stats `json:"stats"`
}

func snapshotInfo(snap *dataset.Snapshot) snapshotResponse {
	return snapshotResponse{
		ID:          snap.ID,
		Source:      snap.Source,
		Fingerprint: snap.Fingerprint,
		LoadedAt:    snap.LoadedAt,
		Records:     len(snap.Records),
		Stats:       snap.Stats,
	}
}

type dashboardResponse struct {
	SnapshotID string    `json:"snapshot_id"`
	LoadedAt   time.Time `json:"loaded_at"`
	Today      core.Date `json:"today"`

	Powers  []string `json:"powers"`
	Spheres []string `json:"spheres"`
	Power   string   `json:"power"`
	Sphere  string   `json:"sphere"`
	State   string   `json:"state,omitempty"`

	Groups    []core.GroupCount `json:"groups"`
	Selection []core.GroupCount `json:"selection"`
	SpherePie []core.LabelCount `json:"sphere_totals"`
	PowerBar  []core.LabelCount `json:"power_spheres"`
	States    []core.StateCount `json:"states"`

	Daily        []core.DailyCount `json:"daily"`
	DailyFrom    core.Date         `json:"daily_from"`
	DailyTo      core.Date         `json:"daily_to"`
	DailyWarning string            `json:"daily_warning,omitempty"`

	Granularity     string             `json:"granularity"`
	Coverage        []core.PeriodPoint `json:"coverage"`
	Summary         coverage.Summary   `json:"summary"`
	CoverageWarning string             `json:"coverage_warning,omitempty"`
}

func dashboardJSON(d *services.Dashboard) dashboardResponse {
	return dashboardResponse{
		SnapshotID:      d.SnapshotID,
		LoadedAt:        d.LoadedAt,
		Today:           d.Today,
		Powers:          d.Powers,
		Spheres:         d.Spheres,
		Power:           d.Power,
		Sphere:          d.Sphere,
		State:           d.State,
		Groups:          d.Groups,
		Selection:       d.Selection,
		SpherePie:       d.SpherePie,
		PowerBar:        d.PowerBar,
		States:          d.States,
		Daily:           d.Daily,
		DailyFrom:       d.DailyFrom,
		DailyTo:         d.DailyTo,
		DailyWarning:    d.DailyWarning,
		Granularity:     d.Granularity.String(),
		Coverage:        d.Coverage,
		Summary:         d.Summary,
		CoverageWarning: d.CoverageWarning,
	}
}

// writeServiceError maps service failures to JSON error responses.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	var loadErr *services.LoadError
	switch {
	case errors.Is(err, services.ErrInvalidQuery):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &loadErr):
		log.FromContext(ctx).ErrorContext(ctx, "Failed to load records",
			log.NewFields().WithError(err).WithOperation(log.OpLoad).ToSlice()...)
		writeJSONError(w, http.StatusServiceUnavailable, loadErr.Message)
	default:
		log.FromContext(ctx).ErrorContext(ctx, "API request failed",
			log.NewFields().WithError(err).WithOperation(log.OpCompute).ToSlice()...)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

// handleAPIDashboard returns every panel as JSON.
func (s *Server) handleAPIDashboard(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	q, err := ParseDashboardQuery(r.URL.Query())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	d, err := s.dashboard.Build(r.Context(), q)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboardJSON(d))
}

type coverageResponse struct {
	SnapshotID  string               `json:"snapshot_id"`
	State       string               `json:"state,omitempty"`
	Floor       core.Date            `json:"floor"`
	Ceiling     core.Date            `json:"ceiling"`
	Records     int                  `json:"records"`
	Granularity string               `json:"granularity"`
	Periods     []core.PeriodPoint   `json:"periods"`
	Summary     coverage.Summary     `json:"summary"`
	Daily       []core.CoveragePoint `json:"daily,omitempty"`
	Warning     string               `json:"warning,omitempty"`
}

// coverageRequest is the parsed query of the coverage endpoints.
type coverageRequest struct {
	state       string
	ceiling     core.Date
	granularity coverage.Granularity
}

func (s *Server) parseCoverageRequest(r *http.Request) (coverageRequest, error) {
	query := r.URL.Query()
	var (
		req coverageRequest
		err error
	)
	req.state = strings.ToUpper(sanitizeInput(query.Get(paramState)))
	if req.state != "" && !core.IsValidUF(req.state) {
		return req, fmt.Errorf("%w: unknown state %q", services.ErrInvalidQuery, req.state)
	}
	if req.ceiling, err = parseCeiling(query, s.dashboard.Today(), s.horizon); err != nil {
		return req, err
	}
	if req.granularity, err = coverage.ParseGranularity(query.Get(paramGranularity)); err != nil {
		return req, fmt.Errorf("%w: %v", services.ErrInvalidQuery, err)
	}
	return req, nil
}

// handleAPICoverage returns the coverage roll-up through a ceiling,
// optionally with the daily series (?daily=1).
func (s *Server) handleAPICoverage(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	req, err := s.parseCoverageRequest(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	snap, err := s.dashboard.Snapshot(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	resp := coverageResponse{
		SnapshotID:  snap.ID,
		State:       req.state,
		Ceiling:     req.ceiling,
		Granularity: req.granularity.String(),
		Periods:     []core.PeriodPoint{},
	}
	series, err := s.dashboard.Coverage(snap, req.state, req.ceiling)
	switch {
	case errors.Is(err, core.ErrNoValidRecords):
		resp.Warning = services.NoDataMessage
		writeJSON(w, http.StatusOK, resp)
		return
	case err != nil:
		s.writeServiceError(w, r, err)
		return
	}

	resp.Floor = series.Floor()
	resp.Records = series.Records()
	resp.Periods = coverage.Rollup(series.All(), req.granularity)
	resp.Summary = coverage.Summarize(series.All())
	if r.URL.Query().Get("daily") != "" {
		resp.Daily = series.Points()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleAPISnapshot describes the snapshot in memory.
func (s *Server) handleAPISnapshot(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	snap, err := s.dashboard.Snapshot(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotInfo(snap))
}

// handleCoveragePNG renders the daily coverage series as a PNG image.
func (s *Server) handleCoveragePNG(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	req, err := s.parseCoverageRequest(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	snap, err := s.dashboard.Snapshot(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	series, err := s.dashboard.Coverage(snap, req.state, req.ceiling)
	if errors.Is(err, core.ErrNoValidRecords) {
		writeJSONError(w, http.StatusNotFound, services.NoDataMessage)
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	title := "Adesões vigentes"
	if req.state != "" {
		title += " - " + req.state
	}
	var buf bytes.Buffer
	err = charts.WritePNG(&buf, series.Points(), charts.PlotOptions{
		Title:   title,
		Periods: coverage.Rollup(series.All(), req.granularity),
	})
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Coverage plot failed",
			log.NewFields().WithError(err).WithComponent(log.ComponentCharts).WithOperation(log.OpRender).ToSlice()...)
		writeJSONError(w, http.StatusInternalServerError, "plot failed")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=60")
	_, _ = w.Write(buf.Bytes())
}

// handleChartsPage renders every chart as a standalone go-echarts page.
func (s *Server) handleChartsPage(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	q, err := ParseDashboardQuery(r.URL.Query())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	d, err := s.dashboard.Build(r.Context(), q)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := s.charts.Page(d).Render(&buf); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Chart page render failed",
			log.NewFields().WithError(err).WithComponent(log.ComponentCharts).WithOperation(log.OpRender).ToSlice()...)
		writeJSONError(w, http.StatusInternalServerError, "render failed")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
