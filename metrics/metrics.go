// Package metrics exposes the Prometheus collectors updated by the
// dispatcher, the workers and the value iteration task.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	TasksRouted = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "markov_tasks_routed_total", Help: "Tasks moved from an input queue to a worker"},
		[]string{"queue"},
	)
	TasksProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "markov_tasks_processed_total", Help: "Tasks executed by workers"},
		[]string{"status"},
	)
	TaskLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "markov_task_duration_seconds", Help: "Task execution time"},
	)
	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "markov_queue_depth", Help: "Pending tasks per input queue"},
		[]string{"queue"},
	)
	ValueIterations = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "markov_value_iterations_total", Help: "Value iteration steps committed"},
	)
	ValueDiff = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "markov_value_diff", Help: "Mean absolute change of the last value iteration step"},
	)
	Values = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "markov_value", Help: "Current value table"},
		[]string{"state"},
	)
)

// Collectors returns every collector of the package for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{TasksRouted, TasksProcessed, TaskLatency, QueueDepth, ValueIterations, ValueDiff, Values}
}
