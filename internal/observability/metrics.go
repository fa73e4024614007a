package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the risk
// engine pipeline.
type Metrics struct {
	ReadingsConsumed prometheus.Counter
	ReadingsDropped  *prometheus.CounterVec // labels: reason={parse_error,unknown_indicator}
	ScoresComputed   prometheus.Counter
	RegionsSkipped   *prometheus.CounterVec // labels: reason={insufficient_indicators,out_of_order}
	TransitionsTotal *prometheus.CounterVec // labels: to_level
	RegionsPerLevel  *prometheus.GaugeVec   // labels: level
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.ReadingsConsumed,
		m.ReadingsDropped,
		m.ScoresComputed,
		m.RegionsSkipped,
		m.TransitionsTotal,
		m.RegionsPerLevel,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ReadingsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "risk_engine",
			Name:      "readings_consumed_total",
			Help:      "Total indicator readings read from the source topic.",
		}),
		ReadingsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "risk_engine",
			Name:      "readings_dropped_total",
			Help:      "Readings dropped before scoring, by reason.",
		}, []string{"reason"}),
		ScoresComputed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "risk_engine",
			Name:      "scores_computed_total",
			Help:      "Total composite risk scores computed.",
		}),
		RegionsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "risk_engine",
			Name:      "region_updates_skipped_total",
			Help:      "Region/timestamp assessments skipped, by reason.",
		}, []string{"reason"}),
		TransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "risk_engine",
			Name:      "transitions_total",
			Help:      "Committed alert-level transitions, by destination level.",
		}, []string{"to_level"}),
		RegionsPerLevel: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "risk_engine",
			Name:      "regions_per_level",
			Help:      "Number of tracked regions currently at each alert level.",
		}, []string{"level"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "risk_engine",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "risk_engine",
			Name:      "batch_size",
			Help:      "Number of readings per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "risk_engine",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete extract-assess-emit cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
	}
}
