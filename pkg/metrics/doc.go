// Package metrics exposes Prometheus instrumentation for the fanflow
// aggregation, fan-out, pipeline and output components.
//
// Components accept a *Registry and skip instrumentation when it is nil, so
// metrics are strictly opt-in:
//
//	reg := prometheus.NewRegistry()
//	m := metrics.NewRegistry(reg)
//
//	res, err := aggregate.Run(ctx, scores, 4, aggregate.WithMetrics(m))
//
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
//
// All metric names carry the "fanflow" namespace, for example
// fanflow_aggregate_chunks_dispatched_total and
// fanflow_pipeline_step_duration_seconds.
package metrics
