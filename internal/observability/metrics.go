package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Resolution outcome label values.
const (
	OutcomeMatched   = "matched"
	OutcomeDefault   = "default"
	OutcomeNotFound  = "not_found"
	OutcomeUnmatched = "unmatched"
	OutcomeDuplicate = "duplicate"
	OutcomePaused    = "paused"
	OutcomeDestroyed = "destroyed"
	OutcomeCancelled = "cancelled"
)

// unnamedRoute is the route label used for dispatches without a route
// pattern (default and not-found handlers), keeping cardinality bounded.
const unnamedRoute = "none"

// Metrics holds all Prometheus metrics for a router.
type Metrics struct {
	resolutionsTotal *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	navigationsTotal *prometheus.CounterVec
	guardDecisions   *prometheus.CounterVec
	routes           prometheus.Gauge
	configReloads    *prometheus.CounterVec
	buildInfo        *prometheus.GaugeVec
	startTime        prometheus.Gauge
	registry         *prometheus.Registry
}

// NewMetrics creates a new Metrics instance with its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "navroute"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.resolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Total number of resolution attempts by outcome",
		},
		[]string{"outcome"},
	)

	m.dispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent running hooks and handlers for a dispatch",
			Buckets: []float64{
				.0001, .0005, .001, .005, .01,
				.05, .1, .5, 1, 5,
			},
		},
		[]string{"route"},
	)

	m.navigationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "navigations_total",
			Help:      "Total number of navigation requests",
		},
		[]string{"mode", "result"},
	)

	m.guardDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_decisions_total",
			Help:      "Total number of before-guard decisions",
		},
		[]string{"decision"},
	)

	m.routes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "routes",
			Help:      "Number of registered routes",
		},
	)

	m.configReloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "config_reloads_total",
			Help:      "Total number of configuration reloads",
		},
		[]string{"result"},
	)

	m.buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information",
		},
		[]string{"version", "commit", "build_time"},
	)

	m.startTime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "start_time_seconds",
			Help:      "Start time of the process in unix seconds",
		},
	)

	m.registerCollectors()

	m.startTime.SetToCurrentTime()

	return m
}

// registerCollectors registers all metric collectors with the
// Prometheus registry.
func (m *Metrics) registerCollectors() {
	m.registry.MustRegister(
		m.resolutionsTotal,
		m.dispatchDuration,
		m.navigationsTotal,
		m.guardDecisions,
		m.routes,
		m.configReloads,
		m.buildInfo,
		m.startTime,
	)

	m.registry.MustRegister(collectors.NewGoCollector())
	m.registry.MustRegister(
		collectors.NewProcessCollector(
			collectors.ProcessCollectorOpts{},
		),
	)
}

// RecordResolution records the outcome of a resolution attempt.
// A nil receiver is a no-op so the router can run without metrics.
func (m *Metrics) RecordResolution(outcome string) {
	if m == nil {
		return
	}
	m.resolutionsTotal.WithLabelValues(outcome).Inc()
}

// RecordDispatch records the duration of a dispatch. The route label must be
// the route pattern, never the resolved path.
func (m *Metrics) RecordDispatch(route string, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = unnamedRoute
	}
	m.dispatchDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordNavigation records a navigation request.
func (m *Metrics) RecordNavigation(mode, result string) {
	if m == nil {
		return
	}
	m.navigationsTotal.WithLabelValues(mode, result).Inc()
}

// RecordGuardDecision records a before-guard decision.
func (m *Metrics) RecordGuardDecision(allowed bool) {
	if m == nil {
		return
	}
	decision := "denied"
	if allowed {
		decision = "allowed"
	}
	m.guardDecisions.WithLabelValues(decision).Inc()
}

// SetRoutes sets the registered routes gauge.
func (m *Metrics) SetRoutes(n int) {
	if m == nil {
		return
	}
	m.routes.Set(float64(n))
}

// RecordConfigReload records a configuration reload attempt.
func (m *Metrics) RecordConfigReload(success bool) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	m.configReloads.WithLabelValues(result).Inc()
}

// SetBuildInfo sets the build information metric.
func (m *Metrics) SetBuildInfo(version, commit, buildTime string) {
	m.buildInfo.WithLabelValues(version, commit, buildTime).Set(1)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(
		m.registry,
		promhttp.HandlerOpts{EnableOpenMetrics: true},
	)
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterCollector registers an additional collector with the custom
// registry. It returns an error if the collector is already registered
// or conflicts with an existing one.
func (m *Metrics) RegisterCollector(c prometheus.Collector) error {
	return m.registry.Register(c)
}
