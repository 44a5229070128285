/*
Package scheduling groups the execution primitives fanflow builds on:

  - workerpool: a fixed pool of goroutines that executes indexed tasks and
    delivers every result, used to dispatch one worker per chunk.
  - pipeline: an ordered list of stages with per-stage results, used for
    each agent task's Analyze → Stage → Commit → Push → OpenRequest run.
  - scheduler: one-time, interval and cron jobs, used to re-run agent
    batches.

Worker pool:

	pool, err := workerpool.NewWithConfig[float64](workerpool.Config{
		WorkerCount:  4,
		QueueSize:    len(chunks),
		ResultBuffer: len(chunks),
	})
	for i, c := range chunks {
		pool.Submit(i, workerpool.TaskFunc[float64](func(ctx context.Context) (float64, error) {
			return sum(c), nil
		}))
	}
	<-pool.Shutdown()
	for r := range pool.Results() {
		// r.Index identifies the chunk
	}

Scheduler:

	s := scheduler.New()
	s.Start(ctx)
	defer func() { <-s.Stop() }()
	s.ScheduleCron("batch", "@every 30s", job, scheduler.Options{MaxRuns: 3})
*/
package scheduling
