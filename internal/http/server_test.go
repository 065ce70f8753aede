package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"a3p/internal/core"
	"a3p/internal/dataset"
	"a3p/internal/log"
	"a3p/internal/services"
	"a3p/internal/sheets"
	"a3p/internal/timeutil"
)

type fakeSnapshots struct {
	mu      sync.Mutex
	snap    *dataset.Snapshot
	err     error
	reloads int
}

func (f *fakeSnapshots) Get(context.Context) (*dataset.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.snap, nil
}

func (f *fakeSnapshots) Reload(ctx context.Context) (*dataset.Snapshot, error) {
	f.mu.Lock()
	f.reloads++
	f.mu.Unlock()
	return f.Get(ctx)
}

func (f *fakeSnapshots) Invalidate() {}

func (f *fakeSnapshots) Current() *dataset.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func testSnapshot() *dataset.Snapshot {
	d := core.NewDate
	records := []core.Record{
		{Row: 2, Power: "Executivo", Sphere: "Federal", State: "DF", Start: d(2023, 1, 10), End: d(2028, 1, 9)},
		{Row: 3, Power: "Judiciário", Sphere: "Estadual", State: "SP", Start: d(2022, 6, 1), End: d(2025, 6, 1)},
		{Row: 4, Power: "Legislativo", Sphere: "Municipal", State: "SP", Start: d(2024, 3, 1), End: d(2024, 6, 30)},
		{Row: 5, Power: "Judiciário", Sphere: "Federal", State: "RJ", Start: d(2025, 1, 1), End: d(2027, 1, 1)},
	}
	snap := dataset.NewSnapshot("memory", "fp-1", records, dataset.Stats{Rows: len(records)},
		time.Date(2024, 8, 15, 9, 0, 0, 0, time.UTC))
	snap.ID = "snap-1"
	return snap
}

type testServer struct {
	*Server
	snaps *fakeSnapshots
}

func newTestServer(t *testing.T, o Options) *testServer {
	t.Helper()
	snaps := &fakeSnapshots{snap: testSnapshot()}
	clock := timeutil.NewMockClock(time.Date(2024, 8, 15, 15, 0, 0, 0, time.UTC))
	logger := log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
	svc := services.NewDashboardService(snaps, services.DashboardOptions{
		Today:    timeutil.Today{Clock: clock, Location: time.UTC},
		Logger:   logger,
		Location: "adesoes.xlsx",
		Sheet:    "Adesões à A3P",
	})
	o.Logger = logger
	s := NewServer(":0", svc, o)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return &testServer{Server: s, snaps: snaps}
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ts.Handler.ServeHTTP(w, req)
	return w
}

func (ts *testServer) get(path string) *httptest.ResponseRecorder {
	return ts.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func TestIndexRendersDashboard(t *testing.T) {
	ts := newTestServer(t, Options{})

	w := ts.get("/")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()

	assert.Contains(t, body, "Adesões à A3P")
	assert.Contains(t, body, `id="sphere_pie"`)
	assert.Contains(t, body, `id="states_map"`)
	assert.Contains(t, body, `id="coverage_line"`)
	assert.Contains(t, body, "15/08/2024")
	// Default selection is the second power and the first sphere.
	assert.Contains(t, body, `<option value="Judiciário" selected>`)
	assert.Contains(t, body, `<option value="Federal" selected>`)

	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.NotEmpty(t, w.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
}

func TestIndexUnknownPath(t *testing.T) {
	ts := newTestServer(t, Options{})
	assert.Equal(t, http.StatusNotFound, ts.get("/nope").Code)
}

func TestIndexInvalidQuery(t *testing.T) {
	ts := newTestServer(t, Options{})

	w := ts.get("/?state=ZZ")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Filtro inválido")

	w = ts.get("/?from=2024-05-01&to=2024-01-01")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIndexLoadErrorBanner(t *testing.T) {
	ts := newTestServer(t, Options{})
	ts.snaps.err = errors.Join(errors.New("open adesoes.xlsx"), sheets.ErrSourceNotFound)

	w := ts.get("/")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "Arquivo &#39;adesoes.xlsx&#39; não encontrado")
}

func TestPanelsPartial(t *testing.T) {
	ts := newTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodGet, "/ui/panels?power=Executivo&state=SP", nil)
	req.Header.Set("HX-Request", "true")
	w := ts.do(req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "<html")
	assert.Contains(t, w.Body.String(), "Esferas para o Poder Executivo")
	assert.Equal(t, "/?power=Executivo&state=SP", w.Header().Get("HX-Push-Url"))
}

func TestPanelsPartialKeepsErrorsInline(t *testing.T) {
	ts := newTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodGet, "/ui/panels?granularity=fortnight", nil)
	req.Header.Set("HX-Request", "true")
	w := ts.do(req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `class="error"`)
	assert.Empty(t, w.Header().Get("HX-Push-Url"))
}

func TestAPIDashboard(t *testing.T) {
	ts := newTestServer(t, Options{})

	w := ts.get("/api/dashboard?power=Executivo")
	require.Equal(t, http.StatusOK, w.Code)

	var got dashboardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "snap-1", got.SnapshotID)
	assert.Equal(t, core.NewDate(2024, 8, 15), got.Today)
	assert.Equal(t, "Executivo", got.Power)
	assert.Equal(t, "quarter", got.Granularity)
	assert.Equal(t, []core.GroupCount{{Power: "Executivo", Sphere: "Federal", Total: 1}}, got.Selection)
	assert.Contains(t, got.States, core.StateCount{State: "SP", Total: 2})
	assert.Equal(t, core.NewDate(2022, 6, 1), got.DailyFrom)
}

func TestAPIDashboardErrors(t *testing.T) {
	ts := newTestServer(t, Options{})

	w := ts.get("/api/dashboard?state=XX")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	ts.snaps.err = sheets.ErrSheetNotFound
	w = ts.get("/api/dashboard")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body.Message, "A aba 'Adesões à A3P' não foi encontrada")

	w = ts.do(httptest.NewRequest(http.MethodPost, "/api/dashboard", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestAPICoverage(t *testing.T) {
	ts := newTestServer(t, Options{})

	w := ts.get("/api/coverage?state=sp&ceiling=2024-08-15&granularity=year&daily=1")
	require.Equal(t, http.StatusOK, w.Code)

	var got coverageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "SP", got.State)
	assert.Equal(t, core.NewDate(2022, 6, 1), got.Floor)
	assert.Equal(t, core.NewDate(2024, 8, 15), got.Ceiling)
	assert.Equal(t, 2, got.Records)
	assert.Equal(t, "year", got.Granularity)
	require.Len(t, got.Periods, 3)
	assert.Equal(t, 2, got.Periods[2].Max)
	assert.Equal(t, 2, got.Summary.Peak)
	assert.Equal(t, core.NewDate(2024, 3, 1), got.Summary.PeakDate)
	assert.Equal(t, 1, got.Summary.Current)
	assert.Len(t, got.Daily, got.Floor.DaysUntil(got.Ceiling)+1)
}

func TestAPICoverageNoData(t *testing.T) {
	ts := newTestServer(t, Options{})

	w := ts.get("/api/coverage?state=AC")
	require.Equal(t, http.StatusOK, w.Code)

	var got coverageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, services.NoDataMessage, got.Warning)
	assert.Empty(t, got.Periods)

	assert.Equal(t, http.StatusBadRequest, ts.get("/api/coverage?ceiling=amanhã").Code)
}

func TestAPICoverageCeilingBeyondHorizon(t *testing.T) {
	ts := newTestServer(t, Options{CeilingHorizonDays: 365})

	w := ts.get("/api/coverage?ceiling=2025-08-15&granularity=day")
	assert.Equal(t, http.StatusOK, w.Code)

	for _, ceiling := range []string{"2025-08-16", "2262-12-31", "9999-12-31"} {
		w = ts.get("/api/coverage?granularity=day&daily=1&ceiling=" + ceiling)
		assert.Equal(t, http.StatusBadRequest, w.Code, "ceiling %s", ceiling)
	}
	assert.Equal(t, http.StatusBadRequest, ts.get("/charts/coverage.png?ceiling=2262-12-31").Code)
}

func TestAPISnapshot(t *testing.T) {
	ts := newTestServer(t, Options{})

	w := ts.get("/api/snapshot")
	require.Equal(t, http.StatusOK, w.Code)
	var got snapshotResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "snap-1", got.ID)
	assert.Equal(t, "fp-1", got.Fingerprint)
	assert.Equal(t, 4, got.Records)
}

func TestCoveragePNG(t *testing.T) {
	ts := newTestServer(t, Options{})

	w := ts.get("/charts/coverage.png?state=SP")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	assert.Equal(t, http.StatusNotFound, ts.get("/charts/coverage.png?state=AC").Code)
}

func TestChartsPage(t *testing.T) {
	ts := newTestServer(t, Options{})

	w := ts.get("/charts/page")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "echarts.min.js")
}

func TestReload(t *testing.T) {
	ts := newTestServer(t, Options{ReloadPerMinute: 2})

	w := ts.do(httptest.NewRequest(http.MethodPost, "/admin/reload", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	var got snapshotResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "snap-1", got.ID)

	req := httptest.NewRequest(http.MethodPost, "/admin/reload", nil)
	req.Header.Set("HX-Request", "true")
	w = ts.do(req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("HX-Trigger"), "snapshot:reloaded")

	w = ts.do(httptest.NewRequest(http.MethodPost, "/admin/reload", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, 2, ts.snaps.reloads)

	w = ts.get("/admin/reload")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestReloadFailure(t *testing.T) {
	ts := newTestServer(t, Options{})
	ts.snaps.err = sheets.ErrSourceNotFound

	req := httptest.NewRequest(http.MethodPost, "/admin/reload", nil)
	req.Header.Set("HX-Request", "true")
	w := ts.do(req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Header().Get("HX-Trigger"), "show-notification")
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, Options{})

	w := ts.get("/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = ts.get("/readyz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ready"`)

	failing := newTestServer(t, Options{Ready: func(context.Context) error {
		return errors.New("source unreachable")
	}})
	w = failing.get("/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "source unreachable")
}

func TestStaticAssets(t *testing.T) {
	ts := newTestServer(t, Options{})

	w := ts.get("/static/css/app.css")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Cache-Control"), "max-age=3600")

	w = ts.get("/static/js/brazil-map.js")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "registerMap"))
}

func TestBlockedMethod(t *testing.T) {
	ts := newTestServer(t, Options{})
	w := ts.do(httptest.NewRequest(http.MethodTrace, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
