package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	spreadDuration   prometheus.Histogram
	spreadActivated  prometheus.Histogram
	syncDuration     prometheus.Histogram
	syncAddedTotal   prometheus.Counter
	hebbianPairs     prometheus.Counter
	pruneDuration    prometheus.Histogram
	prunedEdges      prometheus.Counter
	autoLinkDuration prometheus.Histogram
	autoLinkedPairs  prometheus.Counter
	conceptsTotal    prometheus.Gauge
	edgesTotal       prometheus.Gauge

	maintenanceRuns     *prometheus.CounterVec
	maintenanceDuration *prometheus.HistogramVec
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			spreadDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "brain_spread_duration_seconds",
					Help:    "Spreading activation duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			spreadActivated: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "brain_spread_activated",
					Help:    "Number of concepts returned per spread.",
					Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
				},
			),
			syncDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "brain_sync_duration_seconds",
					Help:    "Bulk sync duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			syncAddedTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "brain_sync_added_total",
					Help: "Total concepts added by bulk sync.",
				},
			),
			hebbianPairs: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "brain_hebbian_pairs_total",
					Help: "Total ordered pairs reinforced by Hebbian learning.",
				},
			),
			pruneDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "brain_prune_duration_seconds",
					Help:    "Synaptic pruning duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			prunedEdges: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "brain_pruned_edges_total",
					Help: "Total edges deleted by pruning.",
				},
			),
			autoLinkDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "brain_autolink_duration_seconds",
					Help:    "Auto-link duration in seconds.",
					Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
				},
			),
			autoLinkedPairs: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "brain_autolinked_pairs_total",
					Help: "Total concept pairs linked by lexical overlap.",
				},
			),
			conceptsTotal: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "brain_concepts",
					Help: "Current number of concepts.",
				},
			),
			edgesTotal: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "brain_edges",
					Help: "Current number of edges.",
				},
			),
			maintenanceRuns: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "maintenance_runs_total",
					Help: "Total maintenance job runs by job and status.",
				},
				[]string{"job", "status"},
			),
			maintenanceDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "maintenance_duration_seconds",
					Help:    "Maintenance job duration in seconds by job.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"job"},
			),
		}

		prometheus.MustRegister(
			m.spreadDuration,
			m.spreadActivated,
			m.syncDuration,
			m.syncAddedTotal,
			m.hebbianPairs,
			m.pruneDuration,
			m.prunedEdges,
			m.autoLinkDuration,
			m.autoLinkedPairs,
			m.conceptsTotal,
			m.edgesTotal,
			m.maintenanceRuns,
			m.maintenanceDuration,
		)

		metricsInst = m
	})

	return metricsInst
}

func RecordBrainSpread(duration time.Duration, activated int) {
	m := getMetrics()
	m.spreadDuration.Observe(duration.Seconds())
	m.spreadActivated.Observe(float64(activated))
}

func RecordBrainSync(duration time.Duration, added int) {
	m := getMetrics()
	m.syncDuration.Observe(duration.Seconds())
	m.syncAddedTotal.Add(float64(added))
}

func RecordBrainHebbian(pairs int) {
	getMetrics().hebbianPairs.Add(float64(pairs))
}

func RecordBrainPrune(duration time.Duration, removed int) {
	m := getMetrics()
	m.pruneDuration.Observe(duration.Seconds())
	m.prunedEdges.Add(float64(removed))
}

func RecordBrainAutoLink(duration time.Duration, linked int) {
	m := getMetrics()
	m.autoLinkDuration.Observe(duration.Seconds())
	m.autoLinkedPairs.Add(float64(linked))
}

func SetBrainSize(concepts, edges int) {
	m := getMetrics()
	m.conceptsTotal.Set(float64(concepts))
	m.edgesTotal.Set(float64(edges))
}

func RecordMaintenanceRun(job string, duration time.Duration, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.maintenanceRuns.WithLabelValues(job, status).Inc()
	m.maintenanceDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}
