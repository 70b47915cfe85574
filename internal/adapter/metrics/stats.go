package metrics

import "github.com/prometheus/client_golang/prometheus"

// StatsMetrics holds Prometheus metrics for accumulator writes, dashboard
// rollups and scheduled snapshots.
type StatsMetrics struct {
	Writes          *prometheus.CounterVec
	WriteDuration   *prometheus.HistogramVec
	RollupDuration  *prometheus.HistogramVec
	RollupNodes     prometheus.Gauge
	SnapshotsSaved  prometheus.Counter
	SnapshotsFailed prometheus.Counter
	SnapshotRuns    *prometheus.CounterVec
}

// NewStatsMetrics creates and registers stats metrics on the given registry.
func NewStatsMetrics(reg prometheus.Registerer) *StatsMetrics {
	m := &StatsMetrics{
		Writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stats",
			Name:      "writes_total",
			Help:      "Total number of accumulator writes, by source, operation and result.",
		}, []string{"source", "op", "result"}),
		WriteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "stats",
			Name:      "write_duration_seconds",
			Help:      "Duration of accumulator writes including ancestor propagation.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"op"}),
		RollupDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "rollup_duration_seconds",
			Help:      "Duration of dashboard rollups, by window.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"window"}),
		RollupNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "rollup_nodes",
			Help:      "Number of category nodes in the most recent rollup.",
		}),
		SnapshotsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "persisted_total",
			Help:      "Total number of category snapshots persisted.",
		}),
		SnapshotsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "failed_total",
			Help:      "Total number of category snapshots that failed to persist.",
		}),
		SnapshotRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "runs_total",
			Help:      "Total number of snapshot runs, by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(m.Writes, m.WriteDuration, m.RollupDuration, m.RollupNodes,
		m.SnapshotsSaved, m.SnapshotsFailed, m.SnapshotRuns)
	return m
}
