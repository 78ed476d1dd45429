// Package metrics exposes edo's own Prometheus metrics: scheduler
// throughput, storage growth and resolver latency. Grounded on
// pkg/metrics/metrics.go's package-level prometheus.New*/MustRegister
// style and its Timer helper, repurposed here from cluster/Raft counters
// to build-graph counters.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SchedulerInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "edo_scheduler_inflight",
			Help: "Number of transforms currently executing",
		},
	)

	SchedulerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "edo_scheduler_queue_depth",
			Help: "Number of transforms queued but not yet dispatched",
		},
	)

	TransformsRun = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edo_transforms_run_total",
			Help: "Total number of transform runs by outcome",
		},
		[]string{"outcome"},
	)

	TransformDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "edo_transform_duration_seconds",
			Help:    "Transform run duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"addr"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edo_build_cache_lookups_total",
			Help: "Total build-cache lookups by result",
		},
		[]string{"result"},
	)

	StorageBlobsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "edo_storage_blobs_total",
			Help: "Total number of blobs written to the local store",
		},
	)

	StorageBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "edo_storage_bytes_total",
			Help: "Total number of bytes written to the local store",
		},
	)

	ResolverSolveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "edo_resolver_solve_seconds",
			Help:    "Dependency resolution duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(SchedulerInflight)
	prometheus.MustRegister(SchedulerQueueDepth)
	prometheus.MustRegister(TransformsRun)
	prometheus.MustRegister(TransformDuration)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(StorageBlobsTotal)
	prometheus.MustRegister(StorageBytesTotal)
	prometheus.MustRegister(ResolverSolveDuration)
}

// Handler returns the Prometheus scrape handler, wired into cmd/edo's
// `run --metrics-addr`.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer times a single operation and reports it to a histogram when done.
type Timer struct {
	start time.Time
}

func NewTimer() *Timer { return &Timer{start: time.Now()} }

func (t *Timer) ObserveDuration(h prometheus.Histogram) {
	h.Observe(time.Since(t.start).Seconds())
}

func (t *Timer) ObserveDurationVec(h prometheus.ObserverVec, labels ...string) {
	h.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}
