// Package metrics exposes Prometheus metrics for task firings, executions,
// and parser cache behavior.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type PrometheusMetrics struct {
	registry          prometheus.Registerer
	firingsTotal      *prometheus.CounterVec
	executionsTotal   *prometheus.CounterVec
	executionDuration *prometheus.HistogramVec
	parseTotal        *prometheus.CounterVec
	tasksScheduled    prometheus.Gauge
}

func InitPrometheusMetrics(namespace string, reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &PrometheusMetrics{
		registry: reg,
		firingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "task_firings_total",
				Help:      "Total number of task firings by trigger source",
			},
			[]string{"trigger"},
		),
		executionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "task_executions_total",
				Help:      "Total number of task executions by final status",
			},
			[]string{"status"},
		),
		executionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "task_execution_duration_seconds",
				Help:      "Duration of task executions",
				Buckets:   []float64{.5, 1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"status"},
		),
		parseTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "parse_requests_total",
				Help:      "Total number of task description parses by outcome",
			},
			[]string{"result"},
		),
		tasksScheduled: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "tasks_scheduled",
				Help:      "Number of tasks currently registered in the scheduler",
			},
		),
	}

	reg.MustRegister(
		m.firingsTotal,
		m.executionsTotal,
		m.executionDuration,
		m.parseTotal,
		m.tasksScheduled,
	)

	return m
}

func (m *PrometheusMetrics) RecordFiring(trigger string) {
	m.firingsTotal.WithLabelValues(trigger).Inc()
}

func (m *PrometheusMetrics) RecordExecution(status string, duration time.Duration) {
	m.executionsTotal.WithLabelValues(status).Inc()
	m.executionDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordParse(result string) {
	m.parseTotal.WithLabelValues(result).Inc()
}

func (m *PrometheusMetrics) SetScheduledCount(count int) {
	m.tasksScheduled.Set(float64(count))
}
