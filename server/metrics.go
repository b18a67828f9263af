package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	renders  *prometheus.HistogramVec
	rows     *prometheus.GaugeVec
	sessions prometheus.GaugeFunc
}

func newMetrics(sessions *sessionStore) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "grantlens",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "grantlens",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		renders: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "grantlens",
			Name:      "page_render_seconds",
			Help:      "Time spent computing a page.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"page"}),
		rows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "grantlens",
			Name:      "dataset_rows",
			Help:      "Rows loaded per table.",
		}, []string{"table"}),
		sessions: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "grantlens",
			Name:      "sessions",
			Help:      "Sessions with stored selections.",
		}, func() float64 { return float64(sessions.len()) }),
	}
	m.registry.MustRegister(m.requests, m.latency, m.renders, m.rows, m.sessions)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *metrics) setRows(stats map[string]int) {
	for table, n := range stats {
		m.rows.WithLabelValues(table).Set(float64(n))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument counts and times requests under a fixed route label.
func (m *metrics) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		m.requests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		m.latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
