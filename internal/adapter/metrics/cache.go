package metrics

import "github.com/prometheus/client_golang/prometheus"

// CacheMetrics holds Prometheus metrics for the category tree cache.
type CacheMetrics struct {
	Hits    prometheus.Counter
	Misses  prometheus.Counter
	Reloads *prometheus.CounterVec
}

// NewCacheMetrics creates and registers cache metrics on the given registry.
func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	m := &CacheMetrics{
		Hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "category_cache",
			Name:      "hits_total",
			Help:      "Total number of category tree cache hits.",
		}),
		Misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "category_cache",
			Name:      "misses_total",
			Help:      "Total number of category tree cache misses.",
		}),
		Reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "category_cache",
			Name:      "reloads_total",
			Help:      "Total number of category tree reloads, by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(m.Hits, m.Misses, m.Reloads)
	return m
}
