package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/trucks/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	h := m.Middleware(mux)

	for _, id := range []string{"a", "b", "c"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/trucks/"+id, nil))
	}
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "GET /api/trucks/{id}", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "unmatched", "404")))
}

func TestObserveView(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveView("recorded")
	m.ObserveView("recorded")
	m.ObserveView("duplicate")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.views.WithLabelValues("recorded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.views.WithLabelValues("duplicate")))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.ObserveView("recorded") })
}

func TestHandlerExposition(t *testing.T) {
	reg := NewRegistry()
	m := New(reg)
	m.ObserveView("skipped_admin")

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `trucks_truck_views_total{outcome="skipped_admin"} 1`), body)
	assert.Contains(t, body, "go_goroutines")
}
