package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder exposes the pipeline's Prometheus metrics.
type Recorder struct {
	registry *prometheus.Registry

	runsTotal       *prometheus.CounterVec
	recordsIngested *prometheus.CounterVec
	sourceFailures  *prometheus.CounterVec
	anomaliesTotal  prometheus.Counter
	stageDuration   *prometheus.HistogramVec
	tickersTracked  prometheus.Gauge
	lastRunAnoms    prometheus.Gauge
}

// New creates a Recorder backed by its own registry.
func New() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradewatch_runs_total",
				Help: "Pipeline runs by terminal outcome",
			},
			[]string{"outcome"},
		),
		recordsIngested: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradewatch_records_ingested_total",
				Help: "Daily records ingested, by serving source",
			},
			[]string{"source"},
		),
		sourceFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradewatch_source_failures_total",
				Help: "Fetch attempts that failed, by source",
			},
			[]string{"source"},
		),
		anomaliesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tradewatch_anomalies_detected_total",
				Help: "Anomalies detected across all runs",
			},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradewatch_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		tickersTracked: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tradewatch_tickers_tracked",
				Help: "Tickers with a stored baseline",
			},
		),
		lastRunAnoms: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tradewatch_last_run_anomalies",
				Help: "Anomalies found by the most recent run",
			},
		),
	}
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// RecordRun counts a finished run by outcome.
func (r *Recorder) RecordRun(outcome string) {
	r.runsTotal.WithLabelValues(outcome).Inc()
}

// RecordIngested counts records served by a source.
func (r *Recorder) RecordIngested(source string, n int) {
	r.recordsIngested.WithLabelValues(source).Add(float64(n))
}

// RecordSourceFailure counts a failed fetch attempt.
func (r *Recorder) RecordSourceFailure(source string) {
	r.sourceFailures.WithLabelValues(source).Inc()
}

// RecordAnomalies counts detected anomalies and updates the last-run
// gauge.
func (r *Recorder) RecordAnomalies(n int) {
	r.anomaliesTotal.Add(float64(n))
	r.lastRunAnoms.Set(float64(n))
}

// RecordStageDuration observes one stage's wall time.
func (r *Recorder) RecordStageDuration(stage string, seconds float64) {
	r.stageDuration.WithLabelValues(stage).Observe(seconds)
}

// SetTickersTracked updates the tracked-ticker gauge.
func (r *Recorder) SetTickersTracked(n int) {
	r.tickersTracked.Set(float64(n))
}
