package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// StepMetrics records timings and outcomes of pipeline steps.
type StepMetrics struct {
	gatherer prometheus.Gatherer
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	rows     *prometheus.GaugeVec
}

// NewStepMetrics registers the step metrics on the provided registry.
// A nil registry yields a no-op recorder.
func NewStepMetrics(reg *prometheus.Registry) *StepMetrics {
	if reg == nil {
		return &StepMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "etl_step_duration_seconds",
		Help:    "Duration of pipeline steps in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
	}, []string{"step", "phase"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "etl_step_success_total",
		Help: "Successful pipeline steps.",
	}, []string{"step"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "etl_step_failure_total",
		Help: "Failed pipeline steps.",
	}, []string{"step", "code"})
	rows := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "etl_table_rows",
		Help: "Row count of a table after the step that wrote it.",
	}, []string{"table"})
	reg.MustRegister(duration, success, failure, rows)
	return &StepMetrics{
		gatherer: reg,
		duration: duration,
		success:  success,
		failure:  failure,
		rows:     rows,
	}
}

// ObserveDuration records how long a step took.
func (m *StepMetrics) ObserveDuration(step, phase string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(step), normalizeLabel(phase)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the step.
func (m *StepMetrics) IncSuccess(step string) {
	if m == nil || m.success == nil {
		return
	}
	m.success.WithLabelValues(normalizeLabel(step)).Inc()
}

// IncFailure increments the failure counter for the step and error code.
func (m *StepMetrics) IncFailure(step, code string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(step), normalizeLabel(code)).Inc()
}

// SetRows records the row count of a table.
func (m *StepMetrics) SetRows(table string, rows int64) {
	if m == nil || m.rows == nil {
		return
	}
	m.rows.WithLabelValues(normalizeLabel(table)).Set(float64(rows))
}

// Push sends every registered metric to a Pushgateway, grouped by run.
func (m *StepMetrics) Push(ctx context.Context, url, job, runID string) error {
	if m == nil || m.gatherer == nil {
		return errors.New("metrics registry not initialized")
	}
	if job == "" {
		job = "sparkify_etl"
	}
	return push.New(url, job).
		Gatherer(m.gatherer).
		Grouping("run_id", runID).
		PushContext(ctx)
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
