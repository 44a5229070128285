package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/vnykmshr/fanflow/pkg/agent"
	"github.com/vnykmshr/fanflow/pkg/scheduling/scheduler"
)

var scheduleCommand = command{
	name:    "schedule",
	summary: "re-run the agent batch on a cron schedule",
	flags: func(fs *pflag.FlagSet) map[string]string {
		d := defaults()
		fs.String("cron", d.Schedule.Cron, "cron expression or descriptor, seconds optional")
		fs.Int("runs", d.Schedule.Runs, "stop after this many runs, 0 to run until interrupted")
		fs.String("mode", d.Schedule.Mode, "sequential or concurrent")
		fs.Float64("speed", d.Agents.Speed, "divide every step duration by this factor")
		return map[string]string{
			"cron":  "schedule.cron",
			"runs":  "schedule.runs",
			"mode":  "schedule.mode",
			"speed": "agents.speed",
		}
	},
	run: runSchedule,
}

const scheduleJobID = "agents"

func runSchedule(ctx context.Context, a *app, _ []string) error {
	mode, err := agent.ParseMode(a.cfg.Schedule.Mode)
	if err != nil {
		return err
	}

	cfg := scheduler.DefaultConfig()
	cfg.Name = "fanflow"
	cfg.Workers = 1
	cfg.Metrics = a.metrics
	cfg.Logger = a.logger
	s := scheduler.NewWithConfig(cfg)

	r := a.runner()
	tasks := a.cfg.Agents.TaskList()
	finished := make(chan struct{})

	// Workers is 1, so job never runs concurrently with itself.
	runs := 0
	job := func(ctx context.Context) error {
		runs++
		_ = a.console.WriteLine(fmt.Sprintf("\n--- scheduled run %d (%s) ---", runs, mode))
		elapsed, err := r.RunPipelines(ctx, tasks, mode)
		_ = a.console.WriteLine(fmt.Sprintf("run %d finished in %.2f seconds", runs, elapsed.Seconds()))
		return err
	}

	err = s.ScheduleCron(scheduleJobID, a.cfg.Schedule.Cron, job, scheduler.Options{
		MaxRuns:       a.cfg.Schedule.Runs,
		SkipIfRunning: true,
		OnError: func(id string, err error) {
			a.logger.Warn("scheduled run failed", zap.String("job", id), zap.Error(err))
		},
		OnFinish: func(string) { close(finished) },
	})
	if err != nil {
		return err
	}
	if err := s.Start(ctx); err != nil {
		return err
	}

	for _, e := range s.List() {
		a.logger.Info("scheduled", zap.String("job", e.ID), zap.String("spec", e.Spec),
			zap.Time("next", e.Next), zap.Int("max_runs", e.MaxRuns))
		_ = a.console.WriteLine(fmt.Sprintf("next run at %s", e.Next.Format(time.RFC3339)))
	}

	select {
	case <-finished:
	case <-ctx.Done():
	}
	<-s.Stop()
	return nil
}
