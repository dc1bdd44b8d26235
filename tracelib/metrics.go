package tracelib

import "github.com/prometheus/client_golang/prometheus"

const metricsNamespace = "tracemap"

// Lookup outcomes used as a label value of Metrics.Lookups.
const (
	LookupOutcomeCacheHit    = "cache_hit"
	LookupOutcomeBlacklisted = "blacklisted"
	LookupOutcomeSuccess     = "success"
	LookupOutcomeNotFound    = "not_found"
	LookupOutcomeError       = "error"
)

// Metrics holds Prometheus collectors of the resolver and the tracer.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Lookups         *prometheus.CounterVec // labels: outcome
	Traces          *prometheus.CounterVec // labels: outcome={ok,error}
	TraceHops       prometheus.Histogram
	TraceDuration   prometheus.Histogram
	CachedLocations prometheus.Gauge
}

func (m *Metrics) lookup(outcome string) {
	if m != nil {
		m.Lookups.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) cacheSize(size int) {
	if m != nil {
		m.CachedLocations.Set(float64(size))
	}
}

func (m *Metrics) trace(err error, hops int, seconds float64) {
	if m == nil {
		return
	}

	if err != nil {
		m.Traces.WithLabelValues("error").Inc()

		return
	}

	m.Traces.WithLabelValues("ok").Inc()
	m.TraceHops.Observe(float64(hops))
	m.TraceDuration.Observe(seconds)
}

// NewMetrics creates collectors and registers them within a given
// registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "lookups_total",
			Help:      "Coordinate resolutions by outcome.",
		}, []string{"outcome"}),
		Traces: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "traces_total",
			Help:      "Traces by outcome.",
		}, []string{"outcome"}),
		TraceHops: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "trace_hops",
			Help:      "Number of resolved hops in a route.",
			Buckets:   []float64{1, 2, 4, 8, 12, 16, 24, 32},
		}),
		TraceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "trace_duration_seconds",
			Help:      "Duration of a complete trace including probing and resolving.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		CachedLocations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "cached_locations",
			Help:      "Number of addresses with known coordinates.",
		}),
	}

	registerer.MustRegister(
		m.Lookups,
		m.Traces,
		m.TraceHops,
		m.TraceDuration,
		m.CachedLocations,
	)

	return m
}
