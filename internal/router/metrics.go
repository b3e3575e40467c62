package router

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// patternCacheMetrics are process-wide because the compile cache is.
type patternCacheMetrics struct {
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	cacheEvictions prometheus.Counter
	cacheSize      prometheus.Gauge
}

var (
	patternCacheMetricsInstance *patternCacheMetrics
	patternCacheMetricsOnce     sync.Once
)

// getPatternCacheMetrics returns the singleton compile cache metrics,
// registered with the default Prometheus registerer.
func getPatternCacheMetrics() *patternCacheMetrics {
	patternCacheMetricsOnce.Do(func() {
		patternCacheMetricsInstance = &patternCacheMetrics{
			cacheHits: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "navroute",
				Subsystem: "router",
				Name:      "pattern_cache_hits_total",
				Help:      "Total number of literal pattern compile cache hits",
			}),
			cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "navroute",
				Subsystem: "router",
				Name:      "pattern_cache_misses_total",
				Help:      "Total number of literal pattern compile cache misses",
			}),
			cacheEvictions: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "navroute",
				Subsystem: "router",
				Name:      "pattern_cache_evictions_total",
				Help:      "Total number of literal pattern compile cache evictions",
			}),
			cacheSize: promauto.NewGauge(prometheus.GaugeOpts{
				Namespace: "navroute",
				Subsystem: "router",
				Name:      "pattern_cache_size",
				Help:      "Current number of compiled literal patterns cached",
			}),
		}
	})
	return patternCacheMetricsInstance
}

// PatternCacheCollectors returns the compile cache metrics so they can be
// added to a private registry as well.
func PatternCacheCollectors() []prometheus.Collector {
	m := getPatternCacheMetrics()
	return []prometheus.Collector{m.cacheHits, m.cacheMisses, m.cacheEvictions, m.cacheSize}
}
