package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"a3p/internal/charts"
	"a3p/internal/coverage"
	"a3p/internal/log"
	"a3p/internal/services"
)

type granularityOption struct {
	Value    string
	Label    string
	Selected bool
}

var granularityLabels = []struct {
	g     coverage.Granularity
	label string
}{
	{coverage.Day, "Dia"},
	{coverage.Week, "Semana"},
	{coverage.Month, "Mês"},
	{coverage.Quarter, "Trimestre"},
	{coverage.Year, "Ano"},
}

func granularityOptions(selected coverage.Granularity) []granularityOption {
	out := make([]granularityOption, 0, len(granularityLabels))
	for _, gl := range granularityLabels {
		out = append(out, granularityOption{Value: gl.g.String(), Label: gl.label, Selected: gl.g == selected})
	}
	return out
}

// pageData feeds index.html and panels.html.
type pageData struct {
	Dashboard     *services.Dashboard
	Panels        charts.Panels
	Granularities []granularityOption
	Error         string
	Query         string
	AssetsHost    string
	MapScript     string
}

func (s *Server) newPageData(r *http.Request) *pageData {
	return &pageData{
		Granularities: granularityOptions(coverage.DefaultGranularity),
		Query:         r.URL.RawQuery,
		AssetsHost:    s.charts.AssetsHost(),
		MapScript:     s.charts.MapScript(),
	}
}

// buildPage computes the dashboard for r. It returns the status to answer
// with; on failure data.Error holds the banner text.
func (s *Server) buildPage(r *http.Request) (*pageData, int) {
	data := s.newPageData(r)
	ctx := r.Context()

	q, err := ParseDashboardQuery(r.URL.Query())
	if err == nil {
		data.Granularities = granularityOptions(q.Granularity)
		var d *services.Dashboard
		d, err = s.dashboard.Build(ctx, q)
		if err == nil {
			data.Dashboard = d
			data.Panels = s.charts.Panels(d)
			return data, http.StatusOK
		}
	}

	var loadErr *services.LoadError
	switch {
	case errors.Is(err, services.ErrInvalidQuery):
		log.FromContext(ctx).WarnContext(ctx, "Invalid dashboard query", "error", err, "query", r.URL.RawQuery)
		data.Error = "Filtro inválido: " + err.Error()
		return data, http.StatusBadRequest
	case errors.As(err, &loadErr):
		log.FromContext(ctx).ErrorContext(ctx, "Failed to load records",
			log.NewFields().WithError(err).WithOperation(log.OpLoad).ToSlice()...)
		data.Error = loadErr.Message
		return data, http.StatusServiceUnavailable
	default:
		log.FromContext(ctx).ErrorContext(ctx, "Dashboard build failed",
			log.NewFields().WithError(err).WithOperation(log.OpCompute).ToSlice()...)
		data.Error = "Erro ao montar o painel."
		return data, http.StatusInternalServerError
	}
}

// render executes a template into a buffer first so a failure never leaves
// a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, status int, data interface{}) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			log.FieldComponent, log.ComponentTemplate)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			"error", err,
			"template", name,
			log.FieldComponent, log.ComponentTemplate,
			log.FieldOperation, log.OpRender)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// handleIndex renders the full dashboard page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead); resp != nil {
		resp.Write(w)
		return
	}
	data, status := s.buildPage(r)
	s.render(w, r, "index.html", status, data)
}

// handlePanels renders the panels partial swapped in by htmx when a filter
// changes. Errors are shown inside the partial so htmx still swaps it.
func (s *Server) handlePanels(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	data, _ := s.buildPage(r)
	if isHTMX(r) && data.Dashboard != nil {
		// Keep the address bar in sync with the selection.
		w.Header().Set("HX-Push-Url", dashboardURL("/", r.URL.Query()))
	}
	s.render(w, r, "panels.html", http.StatusOK, data)
}

// handleReload forces a re-read of the source.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	snap, err := s.dashboard.Reload(ctx)
	if err != nil {
		var loadErr *services.LoadError
		msg := "Erro ao recarregar os dados."
		if errors.As(err, &loadErr) {
			msg = loadErr.Message
		}
		log.FromContext(ctx).ErrorContext(ctx, "Reload failed",
			log.NewFields().WithError(err).WithOperation(log.OpReload).ToSlice()...)
		if isHTMX(r) {
			NewHTMXResponse().
				Status(http.StatusServiceUnavailable).
				TriggerErrorNotification(msg).
				Write(w)
			return
		}
		writeJSONError(w, http.StatusServiceUnavailable, msg)
		return
	}

	if isHTMX(r) {
		NewHTMXResponse().
			Status(http.StatusNoContent).
			TriggerSnapshotReloaded(snap.ID, len(snap.Records)).
			TriggerSuccessNotification("Dados recarregados: " + formatInt(len(snap.Records)) + " registros").
			Write(w)
		return
	}
	writeJSON(w, http.StatusOK, snapshotInfo(snap))
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})
	fail := func(name string, detail string) {
		checks[name] = "failed: " + detail
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	if s.templates == nil {
		fail("templates", "templates not loaded")
	} else {
		checks["templates"] = "ok"
	}

	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			fail("source", err.Error())
		} else {
			checks["source"] = "ok"
		}
	}

	snap, err := s.dashboard.Snapshot(ctx)
	if err != nil {
		var loadErr *services.LoadError
		if errors.As(err, &loadErr) {
			fail("snapshot", loadErr.Message)
		} else {
			fail("snapshot", err.Error())
		}
	} else {
		checks["snapshot"] = map[string]interface{}{
			"id":      snap.ID,
			"records": len(snap.Records),
			"status":  "ok",
		}
	}

	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.limiter.ActiveClients(),
		"status":         "ok",
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// dashboardURL builds a page URL for the given query values.
func dashboardURL(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
