/*
Package workerpool provides a fixed-size pool of goroutines executing indexed,
value-returning tasks.

Each submitted task carries a caller-assigned index that is echoed back in its
Result, so callers can restore submission order regardless of which worker
finished first:

	pool, err := workerpool.NewWithConfig[int](workerpool.Config{
		WorkerCount:  4,
		QueueSize:    len(items),
		ResultBuffer: len(items),
	})
	if err != nil {
		return err
	}

	for i, item := range items {
		item := item
		_ = pool.Submit(i, workerpool.TaskFunc[int](func(ctx context.Context) (int, error) {
			return process(ctx, item)
		}))
	}
	<-pool.Shutdown()

	out := make([]int, len(items))
	for r := range pool.Results() {
		out[r.Index] = r.Value
	}

Key properties:
  - Every accepted task produces exactly one Result; results are never dropped.
  - Panics are recovered and reported as the task's Error.
  - Shutdown is graceful: queued tasks still run, then Results is closed.
  - TaskTimeout bounds each execution; the task context also inherits the
    submission context.

Workers block while delivering a result until it is received. Callers that
submit every task before draining Results must size ResultBuffer to the task
count, or drain from a separate goroutine.
*/
package workerpool
