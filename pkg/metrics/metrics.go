package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Workbook loading
	WorkbookLoads        *prometheus.CounterVec
	WorkbookLoadLatency  prometheus.Histogram
	WorkbookCacheHits    prometheus.Counter
	WorkbookCacheMisses  prometheus.Counter
	RecordsLoaded        prometheus.Gauge
	ProceduresPerformed  prometheus.Gauge
	SecondarySheetErrors prometheus.Counter

	// Aggregation
	ViewRequests *prometheus.CounterVec
	ViewLatency  *prometheus.HistogramVec
}

// NewMetrics creates and registers all application metrics on reg.
func NewMetrics(reg prometheus.Registerer, namespace, subsystem string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		WorkbookLoads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "workbook_loads_total",
			Help:      "Total number of workbook reads by result",
		}, []string{"result"}),
		WorkbookLoadLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "workbook_load_duration_seconds",
			Help:      "Time spent reading and normalizing the workbook",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		WorkbookCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "workbook_cache_hits_total",
			Help:      "Dataset requests served from the cache",
		}),
		WorkbookCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "workbook_cache_misses_total",
			Help:      "Dataset requests that required a workbook read",
		}),
		RecordsLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "appointment_records",
			Help:      "Number of appointment records in the current dataset",
		}),
		ProceduresPerformed: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "procedures_performed",
			Help:      "Total procedures performed from the Patients Seen Report",
		}),
		SecondarySheetErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "patients_seen_errors_total",
			Help:      "Loads where the Patients Seen Report could not be processed",
		}),
		ViewRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "view_requests_total",
			Help:      "Dashboard view computations by view and result",
		}, []string{"view", "result"}),
		ViewLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "view_duration_seconds",
			Help:      "Duration of the filter and aggregate stages per view",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"view"}),
	}
}
