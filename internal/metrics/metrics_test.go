package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapHandlerCountsByStatus(t *testing.T) {
	m := New()
	h := m.WrapHandler("/api/coverage", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("fail") != "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte("ok"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/coverage", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/coverage?fail=1", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/coverage", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("/api/coverage", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("/api/coverage", "400")))
}

func TestCacheAndLoadCounters(t *testing.T) {
	m := New()
	m.CacheHit("coverage")
	m.CacheHit("coverage")
	m.CacheMiss("coverage")
	m.SourceLoad(120*time.Millisecond, nil)
	m.SourceLoad(time.Second, errors.New("boom"))
	m.SetSnapshotRecords(42)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheHits.WithLabelValues("coverage")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheMisses.WithLabelValues("coverage")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loadErrors))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.snapshotRecords))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "a3p_source_load_duration_seconds_count 2")
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.CacheHit("x")
	m.SourceLoad(time.Second, nil)
	m.SetSnapshotRecords(1)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	rec := httptest.NewRecorder()
	m.WrapHandler("/", next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
