// Package metrics holds the harvest counters.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides observability for a harvest run. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	PagesFetched      prometheus.Counter
	PageRetries       prometheus.Counter
	RecordsEmitted    *prometheus.CounterVec
	RecordsSkipped    *prometheus.CounterVec
	LinksRejected     prometheus.Counter
	LinkProbeDuration prometheus.Histogram
}

// New creates a Metrics instance registered on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PagesFetched: f.NewCounter(prometheus.CounterOpts{
			Name: "orangetheses_pages_fetched_total",
			Help: "Total number of collection pages fetched and parsed",
		}),
		PageRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "orangetheses_page_retries_total",
			Help: "Total number of page requests repeated after a failure",
		}),
		RecordsEmitted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "orangetheses_records_emitted_total",
			Help: "Total number of documents assembled, by source variant",
		}, []string{"variant"}),
		RecordsSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "orangetheses_records_skipped_total",
			Help: "Total number of records skipped after a mapping failure, by source variant",
		}, []string{"variant"}),
		LinksRejected: f.NewCounter(prometheus.CounterOpts{
			Name: "orangetheses_links_rejected_total",
			Help: "Total number of visual material links dropped after probing",
		}),
		LinkProbeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "orangetheses_link_probe_duration_seconds",
			Help:    "Duration of visual material link probes",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

// NewRegistry returns a private registry with a fresh Metrics on it.
func NewRegistry() (*prometheus.Registry, *Metrics) {
	reg := prometheus.NewRegistry()
	return reg, New(reg)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// IncrementPagesFetched records a successfully parsed page.
func (m *Metrics) IncrementPagesFetched() {
	if m == nil {
		return
	}
	m.PagesFetched.Inc()
}

// IncrementPageRetries records a page request that will be repeated.
func (m *Metrics) IncrementPageRetries() {
	if m == nil {
		return
	}
	m.PageRetries.Inc()
}

// IncrementRecordsEmitted records an assembled document.
func (m *Metrics) IncrementRecordsEmitted(variant string) {
	if m == nil {
		return
	}
	m.RecordsEmitted.WithLabelValues(variant).Inc()
}

// IncrementRecordsSkipped records a record dropped after a mapping failure.
func (m *Metrics) IncrementRecordsSkipped(variant string) {
	if m == nil {
		return
	}
	m.RecordsSkipped.WithLabelValues(variant).Inc()
}

// IncrementLinksRejected records a link dropped after probing.
func (m *Metrics) IncrementLinksRejected() {
	if m == nil {
		return
	}
	m.LinksRejected.Inc()
}

// ObserveLinkProbe records the duration of a link probe.
// Call with time.Now() at the start of the probe.
func (m *Metrics) ObserveLinkProbe(start time.Time) {
	if m == nil {
		return
	}
	m.LinkProbeDuration.Observe(time.Since(start).Seconds())
}
