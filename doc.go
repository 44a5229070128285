/*
Package fanflow is a library for concurrent chunked aggregation whose
console output stays ordered and never interleaves.

Aggregation (pkg/partition, pkg/aggregate):
  - partition: split a sequence into contiguous chunks, one per worker
  - aggregate: run a worker per chunk and fold partial sums under a lock

Fan-out (pkg/fanout, pkg/payroll):
  - fanout: compute independent fields of one value concurrently and join them
  - payroll: SSS, PhilHealth, Pag-IBIG and tax deductions per employee,
    derived in bounded-concurrency batches

Output and pipelines (pkg/output, pkg/agent):
  - output: a locked console with direct and buffered sinks
  - agent: five-step git workflow tasks run sequentially or concurrently

Scheduling and limits (pkg/scheduling, pkg/ratelimit):
  - workerpool: indexed background task processing
  - pipeline: ordered multi-stage execution with tracing
  - scheduler: cron and interval re-runs
  - concurrency: counting semaphore

Example usage:

	import "github.com/vnykmshr/fanflow/pkg/aggregate"

	res, err := aggregate.Run(ctx, []float64{85, 90, 78, 92}, 2)
	if err != nil {
		return err
	}
	gwa, _ := res.Average() // 86.25
*/
package fanflow
