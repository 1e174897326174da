package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/tabrestore/internal/tabs"
)

// value returns the sum of every sample of the named family whose labels
// include want.
func value(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			match := true
			for k, v := range want {
				if labels[k] != v {
					match = false
				}
			}
			if !match {
				continue
			}
			switch {
			case m.Counter != nil:
				total += m.GetCounter().GetValue()
			case m.Gauge != nil:
				total += m.GetGauge().GetValue()
			case m.Histogram != nil:
				total += float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return total
}

func TestObserveDecisionAndEvent(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.ObserveDecision(tabs.Decision{Outcome: tabs.OutcomeRestore, Moved: true})
	m.ObserveDecision(tabs.Decision{Outcome: tabs.OutcomeAmbient})
	m.ObserveEvent(tabs.EventRemoved, tabs.Stats{Windows: 2, Cached: 5, Closed: 1})

	reg := m.Registry()
	assert.Equal(t, 1.0, value(t, reg, "tabrestore_decisions_total", map[string]string{"outcome": "restore"}))
	assert.Equal(t, 1.0, value(t, reg, "tabrestore_decisions_total", map[string]string{"outcome": "ambient"}))
	assert.Equal(t, 1.0, value(t, reg, "tabrestore_moves_total", nil))
	assert.Equal(t, 1.0, value(t, reg, "tabrestore_events_total", map[string]string{"kind": "removed"}))
	assert.Equal(t, 5.0, value(t, reg, "tabrestore_cached_tabs", nil))
	assert.Equal(t, 1.0, value(t, reg, "tabrestore_closed_records", nil))
}

func TestBridgeRecorder(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	m.CallDone("tabs.get", "ok", 3*time.Millisecond)
	m.CallDone("tabs.get", "BRIDGE_TIMEOUT", 2*time.Second)
	m.EventReceived("tabs.onCreated")

	reg := m.Registry()
	assert.Equal(t, 1.0, value(t, reg, "tabrestore_bridge_sessions_active", nil))
	assert.Equal(t, 2.0, value(t, reg, "tabrestore_bridge_sessions_total", nil))
	assert.Equal(t, 1.0, value(t, reg, "tabrestore_bridge_calls_total", map[string]string{"code": "BRIDGE_TIMEOUT"}))
	assert.Equal(t, 2.0, value(t, reg, "tabrestore_bridge_call_duration_seconds", map[string]string{"method": "tabs.get"}))
	assert.Equal(t, 1.0, value(t, reg, "tabrestore_bridge_events_total", nil))
}

func TestMiddlewareLabelsByRoute(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/v1/closed/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", m.Handler())

	for _, id := range []string{"1", "2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/closed/"+id, nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}

	assert.Equal(t, 2.0, value(t, m.Registry(), "tabrestore_http_requests_total", map[string]string{
		"route":  "/api/v1/closed/{id}",
		"status": "404",
	}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "tabrestore_http_requests_total"))
}

func TestNewIncludesRuntimeCollectors(t *testing.T) {
	m := New()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	var names []string
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, names, "go_goroutines")
}
