package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/vnykmshr/fanflow/pkg/aggregate"
	"github.com/vnykmshr/fanflow/pkg/output"
	"github.com/vnykmshr/fanflow/pkg/partition"
	"github.com/vnykmshr/fanflow/pkg/report"
)

var gwaCommand = command{
	name:    "gwa",
	summary: "compute a grade-weighted average over concurrent chunks",
	flags: func(fs *pflag.FlagSet) map[string]string {
		d := defaults()
		fs.IntP("workers", "w", d.GWA.Workers, "number of chunks/workers")
		fs.String("strategy", d.GWA.Strategy, "partition strategy: ceil or even")
		return map[string]string{"workers": "gwa.workers", "strategy": "gwa.strategy"}
	},
	run: runGWA,
}

func runGWA(ctx context.Context, a *app, args []string) error {
	grades, err := parseGrades(args)
	if err != nil {
		return err
	}
	if len(grades) == 0 {
		grades = a.cfg.GWA.Grades
	}
	if len(grades) == 0 {
		return errors.New("no grades given")
	}

	strategy, err := partition.ParseStrategy(a.cfg.GWA.Strategy)
	if err != nil {
		return err
	}

	sink := a.console.NewSink(output.ModeDirect)
	defer sink.Close()

	res, runErr := aggregate.Run(ctx, grades, a.cfg.GWA.Workers,
		aggregate.WithStrategy(strategy),
		aggregate.WithLogger(a.logger),
		aggregate.WithMetrics(a.metrics),
		aggregate.WithObserver(func(p aggregate.Partial) {
			mean, err := p.Mean()
			if err != nil {
				_ = sink.Line(fmt.Sprintf("[Worker %d] %s: no grades", p.Chunk.Index+1, p.Chunk))
				return
			}
			_ = sink.Line(fmt.Sprintf("[Worker %d] %s: %d grade(s), partial GWA %.2f",
				p.Chunk.Index+1, p.Chunk, p.Count, mean))
		}),
	)
	if res.Count == 0 && runErr != nil {
		return runErr
	}

	_ = sink.Line("")
	if err := report.GWASummary(a.console.Writer(), res); err != nil {
		return err
	}
	return runErr
}

func parseGrades(args []string) ([]float64, error) {
	grades := make([]float64, 0, len(args))
	for _, arg := range args {
		g, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, fmt.Errorf("grade %q: not a number", arg)
		}
		grades = append(grades, g)
	}
	return grades, nil
}
