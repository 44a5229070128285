package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/vnykmshr/fanflow/internal/config"
	"github.com/vnykmshr/fanflow/pkg/agent"
)

var agentsCommand = command{
	name:    "agents",
	summary: "run the git workflow agent tasks sequentially, concurrently or both",
	flags: func(fs *pflag.FlagSet) map[string]string {
		d := defaults()
		fs.String("mode", d.Agents.Mode, "sequential, concurrent or both")
		fs.Bool("spinner", d.Agents.Spinner, "animate waits in sequential mode")
		fs.Float64("speed", d.Agents.Speed, "divide every step duration by this factor")
		return map[string]string{
			"mode":    "agents.mode",
			"spinner": "agents.spinner",
			"speed":   "agents.speed",
		}
	},
	run: runAgents,
}

func (a *app) runner() *agent.Runner {
	return &agent.Runner{
		Console:   a.console,
		Durations: a.cfg.Agents.StepDurations(),
		Spinner:   a.cfg.Agents.Spinner,
		Logger:    a.logger,
		Metrics:   a.metrics,
		Tracer:    a.tracer,
	}
}

func runAgents(ctx context.Context, a *app, _ []string) error {
	modes, err := config.ParseAgentModes(a.cfg.Agents.Mode)
	if err != nil {
		return err
	}

	r := a.runner()
	tasks := a.cfg.Agents.TaskList()
	elapsed := make(map[agent.Mode]time.Duration, len(modes))

	var errs []error
	for i, mode := range modes {
		if i > 0 {
			_ = a.console.WriteLine("\n" + strings.Repeat("=", 60) + "\n")
		}
		_ = a.console.WriteLine(fmt.Sprintf("Running %s execution...", mode))

		d, err := r.RunPipelines(ctx, tasks, mode)
		elapsed[mode] = d
		if err != nil {
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
		}
	}

	_ = a.console.WriteLine("")
	for _, mode := range modes {
		if d, ok := elapsed[mode]; ok {
			_ = a.console.WriteLine(fmt.Sprintf("%s execution time: %.2f seconds", label(mode), d.Seconds()))
		}
	}
	seq, okSeq := elapsed[agent.Sequential]
	conc, okConc := elapsed[agent.Concurrent]
	if okSeq && okConc && conc > 0 {
		_ = a.console.WriteLine(fmt.Sprintf("Speedup: %.1fx", seq.Seconds()/conc.Seconds()))
	}
	return errors.Join(errs...)
}

func label(m agent.Mode) string {
	s := m.String()
	return strings.ToUpper(s[:1]) + s[1:]
}
