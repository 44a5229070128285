// Package metrics provides Prometheus instrumentation for fanflow components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "fanflow"

// Registry holds all metric instances for fanflow components.
// A nil *Registry disables instrumentation; components check before use.
type Registry struct {
	// Aggregation Metrics
	ChunksDispatched    *prometheus.CounterVec
	PartialsContributed *prometheus.CounterVec
	ChunkFailures       *prometheus.CounterVec
	AggregationDuration *prometheus.HistogramVec

	// Worker Pool Metrics
	WorkerPoolSize   *prometheus.GaugeVec
	WorkerPoolActive *prometheus.GaugeVec
	WorkerPoolQueued *prometheus.GaugeVec
	TasksCompleted   *prometheus.CounterVec
	TasksFailed      *prometheus.CounterVec
	TaskDuration     *prometheus.HistogramVec

	// Fan-out Metrics
	FieldsComputed *prometheus.CounterVec
	FieldFailures  *prometheus.CounterVec
	RecordsDerived *prometheus.CounterVec
	RecordsFailed  *prometheus.CounterVec

	// Concurrency Limiter Metrics
	ConcurrencyActive  *prometheus.GaugeVec
	ConcurrencyWaiting *prometheus.GaugeVec

	// Pipeline Metrics
	StepsCompleted   *prometheus.CounterVec
	StepsFailed      *prometheus.CounterVec
	StepDuration     *prometheus.HistogramVec
	PipelineRuns     *prometheus.CounterVec
	PipelineDuration *prometheus.HistogramVec
	BatchRuns        *prometheus.CounterVec
	BatchDuration    *prometheus.HistogramVec

	// Output Metrics
	SinkLines   *prometheus.CounterVec
	SinkFlushes *prometheus.CounterVec
	SinkBytes   *prometheus.CounterVec

	// Scheduler Metrics
	JobsScheduled *prometheus.CounterVec
	JobRuns       *prometheus.CounterVec
	JobFailures   *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	counter := func(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		}, labels)
	}
	gauge := func(subsystem, name, help string, labels ...string) *prometheus.GaugeVec {
		return factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		}, labels)
	}
	histogram := func(subsystem, name, help string, labels ...string) *prometheus.HistogramVec {
		return factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
			Buckets:   prometheus.DefBuckets,
		}, labels)
	}

	return &Registry{
		ChunksDispatched:    counter("aggregate", "chunks_dispatched_total", "Total number of chunks dispatched to workers", "strategy"),
		PartialsContributed: counter("aggregate", "partials_total", "Total number of partial results folded into aggregates", "strategy"),
		ChunkFailures:       counter("aggregate", "chunk_failures_total", "Total number of chunks whose worker failed", "strategy"),
		AggregationDuration: histogram("aggregate", "duration_seconds", "Wall-clock time of an aggregation run", "strategy"),

		WorkerPoolSize:   gauge("workerpool", "size", "Current worker pool size", "pool_name"),
		WorkerPoolActive: gauge("workerpool", "active_workers", "Number of active workers", "pool_name"),
		WorkerPoolQueued: gauge("workerpool", "queued_tasks", "Number of queued tasks", "pool_name"),
		TasksCompleted:   counter("workerpool", "tasks_completed_total", "Total number of tasks completed successfully", "pool_name"),
		TasksFailed:      counter("workerpool", "tasks_failed_total", "Total number of tasks that failed", "pool_name"),
		TaskDuration:     histogram("workerpool", "task_duration_seconds", "Time spent executing tasks", "pool_name"),

		FieldsComputed: counter("fanout", "fields_computed_total", "Total number of derived fields computed", "field"),
		FieldFailures:  counter("fanout", "field_failures_total", "Total number of derived fields that failed", "field"),
		RecordsDerived: counter("fanout", "records_derived_total", "Total number of records joined", "deriver"),
		RecordsFailed:  counter("fanout", "records_failed_total", "Total number of records that failed derivation", "deriver"),

		ConcurrencyActive:  gauge("concurrency", "active", "Number of active concurrent operations", "limiter_name"),
		ConcurrencyWaiting: gauge("concurrency", "waiting", "Number of operations waiting for concurrency slot", "limiter_name"),

		StepsCompleted:   counter("pipeline", "steps_completed_total", "Total number of pipeline steps completed", "step"),
		StepsFailed:      counter("pipeline", "steps_failed_total", "Total number of pipeline steps that failed", "step"),
		StepDuration:     histogram("pipeline", "step_duration_seconds", "Time spent in each pipeline step", "step"),
		PipelineRuns:     counter("pipeline", "runs_total", "Total number of pipeline executions", "pipeline"),
		PipelineDuration: histogram("pipeline", "run_duration_seconds", "Wall-clock time of a pipeline execution", "pipeline"),
		BatchRuns:        counter("pipeline", "batches_total", "Total number of task batches run", "mode"),
		BatchDuration:    histogram("pipeline", "batch_duration_seconds", "Wall-clock time of a task batch", "mode"),

		SinkLines:   counter("output", "lines_total", "Total number of lines written to the console", "mode"),
		SinkFlushes: counter("output", "flushes_total", "Total number of buffered blocks flushed", "mode"),
		SinkBytes:   counter("output", "bytes_written_total", "Total bytes written to the console", "mode"),

		JobsScheduled: counter("scheduler", "jobs_scheduled_total", "Total number of jobs scheduled", "scheduler_name"),
		JobRuns:       counter("scheduler", "job_runs_total", "Total number of job executions", "scheduler_name"),
		JobFailures:   counter("scheduler", "job_failures_total", "Total number of job executions that failed", "scheduler_name"),
	}
}

// NewIsolated creates a Registry backed by its own prometheus.Registry so
// several instances can coexist, for example one per test.
func NewIsolated() (*Registry, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewRegistry(reg), reg
}
