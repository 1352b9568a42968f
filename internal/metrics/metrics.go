// Package metrics exposes Prometheus instruments for the calendar service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors of one process. Each instance owns its own
// registry so tests can create as many as they like.
type Metrics struct {
	reg *prometheus.Registry

	GridBuilds       prometheus.Counter
	Submissions      *prometheus.CounterVec
	EventsAdded      *prometheus.CounterVec
	StoredEvents     prometheus.Gauge
	FeedRefreshes    *prometheus.CounterVec
	FeedRefreshTime  prometheus.Gauge
	HTTPRequestTotal *prometheus.CounterVec
}

// New registers all collectors on a fresh registry, plus the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		GridBuilds: f.NewCounter(prometheus.CounterOpts{
			Name: "calgrid_grid_builds_total",
			Help: "Number of month grids built for rendering",
		}),
		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "calgrid_submissions_total",
			Help: "Add-event submissions by outcome (accepted, busy, rejected, closed)",
		}, []string{"outcome"}),
		EventsAdded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "calgrid_events_added_total",
			Help: "Event records appended to the registry by origin (user, feed)",
		}, []string{"origin"}),
		StoredEvents: f.NewGauge(prometheus.GaugeOpts{
			Name: "calgrid_stored_events",
			Help: "Event records currently held in memory",
		}),
		FeedRefreshes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "calgrid_feed_refreshes_total",
			Help: "ICS feed refreshes by result (ok, error)",
		}, []string{"result"}),
		FeedRefreshTime: f.NewGauge(prometheus.GaugeOpts{
			Name: "calgrid_feed_refresh_microsec",
			Help: "Latency of the last ICS feed refresh in microseconds",
		}),
		HTTPRequestTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "calgrid_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// ObserveRefresh records one feed refresh.
func (m *Metrics) ObserveRefresh(took time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.FeedRefreshes.WithLabelValues(result).Inc()
	m.FeedRefreshTime.Set(float64(took.Microseconds()))
}
