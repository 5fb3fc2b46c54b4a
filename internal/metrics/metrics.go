// Package metrics exposes prometheus collectors for the addon and proxy
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "svetserialu"

// Outcomes of a stream request
const (
	OutcomeCached   = "cached"
	OutcomeResolved = "resolved"
	OutcomeEmpty    = "empty"
	OutcomeInvalid  = "invalid"
)

// Metrics groups every collector on a private registry
type Metrics struct {
	Registry *prometheus.Registry

	StreamRequests  *prometheus.CounterVec
	StreamsReturned prometheus.Counter
	ResolveDuration prometheus.Histogram
	HosterResults   *prometheus.CounterVec
	ProxyRequests   *prometheus.CounterVec
	CacheEntries    prometheus.GaugeFunc
}

// New registers the collectors. cacheLen may be nil.
func New(cacheLen func() int) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	if cacheLen == nil {
		cacheLen = func() int { return 0 }
	}

	return &Metrics{
		Registry: reg,
		StreamRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_requests_total",
			Help:      "Stream requests by outcome.",
		}, []string{"outcome"}),
		StreamsReturned: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "streams_returned_total",
			Help:      "Stream records returned to clients.",
		}),
		ResolveDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolve_duration_seconds",
			Help:      "Time spent resolving an episode without cache.",
			Buckets:   []float64{1, 5, 10, 20, 30, 60, 120},
		}),
		HosterResults: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hoster_resolutions_total",
			Help:      "Hoster resolutions by kind and result.",
		}, []string{"kind", "result"}),
		ProxyRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proxy_requests_total",
			Help:      "Proxied requests by endpoint and upstream status class.",
		}, []string{"endpoint", "status"}),
		CacheEntries: f.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Episodes currently cached.",
		}, func() float64 { return float64(cacheLen()) }),
	}
}

// Handler serves the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// StatusClass buckets an HTTP status for labels: "2xx", "4xx", "error"
func StatusClass(code int) string {
	switch {
	case code <= 0:
		return "error"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
