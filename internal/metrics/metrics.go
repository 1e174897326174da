package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dgnsrekt/tabrestore/internal/bridge"
	"github.com/dgnsrekt/tabrestore/internal/tabs"
)

const namespace = "tabrestore"

// Metrics holds the daemon's Prometheus collectors.
type Metrics struct {
	reg *prometheus.Registry

	// Engine
	Events    *prometheus.CounterVec
	Decisions *prometheus.CounterVec
	Moves     prometheus.Counter
	Windows   prometheus.Gauge
	Cached    prometheus.Gauge
	Closed    prometheus.Gauge

	// Bridge
	BridgeSessions     prometheus.Gauge
	BridgeSessionsSeen prometheus.Counter
	BridgeCalls        *prometheus.CounterVec
	BridgeCallDuration *prometheus.HistogramVec
	BridgeEvents       *prometheus.CounterVec

	// HTTP
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

var (
	_ tabs.Observer      = (*Metrics)(nil)
	_ tabs.EventObserver = (*Metrics)(nil)
	_ bridge.Recorder    = (*Metrics)(nil)
)

// New registers every collector on a fresh registry, along with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,

		Events: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Host tab events handled by the engine",
			},
			[]string{"kind"},
		),
		Decisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decisions_total",
				Help:      "Tab creation decisions by outcome",
			},
			[]string{"outcome"},
		),
		Moves: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "moves_total",
				Help:      "Move commands issued to the host",
			},
		),
		Windows: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "tracked_windows",
				Help:      "Windows with a known active tab",
			},
		),
		Cached: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "cached_tabs",
				Help:      "Tabs held in the metadata cache",
			},
		),
		Closed: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "closed_records",
				Help:      "Records held in the recently-closed ledger",
			},
		),

		BridgeSessions: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "bridge",
				Name:      "sessions_active",
				Help:      "Live extension sessions",
			},
		),
		BridgeSessionsSeen: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "bridge",
				Name:      "sessions_total",
				Help:      "Extension sessions accepted",
			},
		),
		BridgeCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "bridge",
				Name:      "calls_total",
				Help:      "Commands sent to the extension by method and result code",
			},
			[]string{"method", "code"},
		),
		BridgeCallDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "bridge",
				Name:      "call_duration_seconds",
				Help:      "Command round trip time",
				Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"method"},
		),
		BridgeEvents: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "bridge",
				Name:      "events_total",
				Help:      "Events received from the extension",
			},
			[]string{"method"},
		),

		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) ObserveDecision(d tabs.Decision) {
	m.Decisions.WithLabelValues(string(d.Outcome)).Inc()
	if d.Moved {
		m.Moves.Inc()
	}
}

func (m *Metrics) ObserveEvent(kind tabs.EventKind, st tabs.Stats) {
	m.Events.WithLabelValues(string(kind)).Inc()
	m.Windows.Set(float64(st.Windows))
	m.Cached.Set(float64(st.Cached))
	m.Closed.Set(float64(st.Closed))
}

func (m *Metrics) SessionOpened() {
	m.BridgeSessions.Inc()
	m.BridgeSessionsSeen.Inc()
}

func (m *Metrics) SessionClosed() { m.BridgeSessions.Dec() }

func (m *Metrics) CallDone(method, code string, elapsed time.Duration) {
	m.BridgeCalls.WithLabelValues(method, code).Inc()
	m.BridgeCallDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (m *Metrics) EventReceived(method string) {
	m.BridgeEvents.WithLabelValues(method).Inc()
}

// Middleware records request counts and latency labelled by chi route
// pattern. Long-lived streams are counted once they end.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
