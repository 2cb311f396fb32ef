// Package metrics exposes Prometheus collectors for ticket runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for the support pipeline. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	// Runs
	RunsTotal   *prometheus.CounterVec
	RunDuration *prometheus.HistogramVec
	RunRetries  prometheus.Histogram
	Interrupted *prometheus.CounterVec

	// Stages
	StageDuration *prometheus.HistogramVec
	StageErrors   *prometheus.CounterVec
	Fallbacks     *prometheus.CounterVec

	// Persistence
	SinkFailures       *prometheus.CounterVec
	CheckpointFailures prometheus.Counter
}

// New creates the collectors and registers them with reg. A nil reg uses the
// default registerer. Register against a fresh prometheus.NewRegistry when
// more than one Metrics may exist in a process, as tests do.
//
// Metrics:
//   - supportflow_runs_total{status,category} - completed runs
//   - supportflow_run_duration_seconds{status} - wall time per run
//   - supportflow_run_retries - refinement cycles per completed run
//   - supportflow_runs_interrupted_total{stage} - cancelled runs
//   - supportflow_stage_duration_seconds{stage} - handler execution time
//   - supportflow_stage_errors_total{stage} - internal handler failures
//   - supportflow_fallbacks_total{stage,reason} - capability fallbacks taken
//   - supportflow_escalation_sink_failures_total{sink} - failed escalation writes
//   - supportflow_checkpoint_failures_total - failed checkpoint saves
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		RunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "supportflow_runs_total",
				Help: "Total number of completed ticket runs",
			},
			[]string{"status", "category"},
		),
		RunDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "supportflow_run_duration_seconds",
				Help:    "Duration of ticket runs in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
			},
			[]string{"status"},
		),
		RunRetries: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "supportflow_run_retries",
				Help:    "Refinement cycles per completed run",
				Buckets: []float64{0, 1, 2, 3},
			},
		),
		Interrupted: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "supportflow_runs_interrupted_total",
				Help: "Total number of runs cancelled mid-stage",
			},
			[]string{"stage"},
		),
		StageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "supportflow_stage_duration_seconds",
				Help:    "Duration of stage execution in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 16), // 1ms to ~30s
			},
			[]string{"stage"},
		),
		StageErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "supportflow_stage_errors_total",
				Help: "Total number of internal stage failures",
			},
			[]string{"stage"},
		),
		Fallbacks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "supportflow_fallbacks_total",
				Help: "Total number of fallbacks taken after a capability was missing or failed",
			},
			[]string{"stage", "reason"}, // "unavailable" or "failed"
		),
		SinkFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "supportflow_escalation_sink_failures_total",
				Help: "Total number of escalation records that could not be written",
			},
			[]string{"sink"},
		),
		CheckpointFailures: f.NewCounter(
			prometheus.CounterOpts{
				Name: "supportflow_checkpoint_failures_total",
				Help: "Total number of checkpoint saves that failed",
			},
		),
	}
}

// RecordRun records a completed run.
func (m *Metrics) RecordRun(status, category string, retries int, d time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status, category).Inc()
	m.RunDuration.WithLabelValues(status).Observe(d.Seconds())
	m.RunRetries.Observe(float64(retries))
}

// RecordInterrupted records a run cancelled during stage.
func (m *Metrics) RecordInterrupted(stage string) {
	if m == nil {
		return
	}
	m.Interrupted.WithLabelValues(stage).Inc()
}

// RecordStage records one stage execution.
func (m *Metrics) RecordStage(stage string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
	if err != nil {
		m.StageErrors.WithLabelValues(stage).Inc()
	}
}

// RecordFallback records a fallback taken by stage.
func (m *Metrics) RecordFallback(stage, reason string) {
	if m == nil {
		return
	}
	m.Fallbacks.WithLabelValues(stage, reason).Inc()
}

// RecordSinkFailure records a failed escalation write.
func (m *Metrics) RecordSinkFailure(sink string) {
	if m == nil {
		return
	}
	m.SinkFailures.WithLabelValues(sink).Inc()
}

// RecordCheckpointFailure records a failed checkpoint save.
func (m *Metrics) RecordCheckpointFailure() {
	if m == nil {
		return
	}
	m.CheckpointFailures.Inc()
}
