/*
Package pipeline runs an ordered list of stages, feeding each stage's
output into the next.

Stages never overlap: a stage starts only after the previous one has
returned. Independent pipelines may run concurrently; a Pipeline value
itself is safe to execute from several goroutines.

# Quick Start

	p := pipeline.New().
		AddStageFunc("stage", func(ctx context.Context, in any) (any, error) {
			return files, nil
		}).
		AddStageFunc("commit", func(ctx context.Context, in any) (any, error) {
			return commit(in.([]string))
		})

	result, err := p.Execute(ctx, nil)

# Configuration

	p := pipeline.NewWithConfig(pipeline.Config{
		Name:        "agent",
		Timeout:     30 * time.Second,
		StopOnError: true,
		Metrics:     reg,
		Tracer:      otel.Tracer("fanflow"),
	})

With StopOnError the first failing stage ends the run and the error is
returned as an *errors.OperationError naming the stage. Otherwise the
failure is recorded in Result.StageResults and the previous output is
passed to the next stage.

# Observability

Every stage runs inside its own span when a Tracer is configured. Metrics
count completed and failed steps by stage name and runs by pipeline name.
Stats keeps the same numbers in memory, along with durations.
*/
package pipeline
