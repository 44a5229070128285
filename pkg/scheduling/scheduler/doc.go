/*
Package scheduler runs jobs once, at a fixed interval, or on a cron
schedule, executing them on a worker pool.

	s := scheduler.NewWithConfig(scheduler.Config{Name: "agents", Logger: logger})
	if err := s.Start(ctx); err != nil {
		return err
	}
	defer func() { <-s.Stop() }()

	err := s.ScheduleCron("batch", "@every 30s", runBatch, scheduler.Options{
		MaxRuns:       3,
		SkipIfRunning: true,
		OnFinish:      func(string) { close(finished) },
	})

Cron expressions accept the standard five fields, an optional leading
seconds field and descriptors such as @hourly or @every 1m30s.

Due jobs are checked every Config.TickInterval. A job that is still running
when it falls due again is started a second time unless SkipIfRunning is
set. MaxRuns counts completed runs; once reached the entry is removed and
OnFinish is called.

Stop cancels the context passed to running jobs and waits for them to
return.
*/
package scheduler
