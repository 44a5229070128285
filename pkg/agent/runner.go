package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	ffErrors "github.com/vnykmshr/fanflow/pkg/common/errors"
	"github.com/vnykmshr/fanflow/pkg/metrics"
	"github.com/vnykmshr/fanflow/pkg/output"
)

// Mode selects how a batch of tasks is run.
type Mode int

const (
	// Sequential runs tasks one after another through a direct sink.
	Sequential Mode = iota
	// Concurrent runs every task in its own goroutine with a buffered sink.
	Concurrent
)

func (m Mode) String() string {
	switch m {
	case Sequential:
		return "sequential"
	case Concurrent:
		return "concurrent"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses "sequential" or "concurrent". "parallel" is accepted
// as an alias for concurrent.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sequential":
		return Sequential, nil
	case "concurrent", "parallel":
		return Concurrent, nil
	default:
		return 0, ffErrors.NewValidationError("agent", "mode", s, "unknown run mode").
			WithHint("use sequential or concurrent")
	}
}

// Runner executes agent tasks against a shared console.
type Runner struct {
	Console   *output.Console
	Durations Durations

	// Spinner animates waits in sequential mode. Concurrent runs always
	// print a static loading line so their output can be buffered.
	Spinner bool

	Logger  *zap.Logger
	Metrics *metrics.Registry
	Tracer  trace.Tracer

	// Check, when set, runs before each step's simulated operation. A
	// non-nil error fails the step and ends the task.
	Check func(task TaskSpec, step Step) error
}

// NewRunner creates a runner with default durations and no
// instrumentation.
func NewRunner(console *output.Console) *Runner {
	return &Runner{
		Console:   console,
		Durations: DefaultDurations(),
	}
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func (r *Runner) tracer() trace.Tracer {
	if r.Tracer == nil {
		return noop.NewTracerProvider().Tracer("")
	}
	return r.Tracer
}

// RunPipelines runs tasks in the given mode and returns the wall-clock
// time of the whole batch.
func (r *Runner) RunPipelines(ctx context.Context, tasks []TaskSpec, mode Mode) (time.Duration, error) {
	switch mode {
	case Sequential:
		return r.RunSequential(ctx, tasks)
	case Concurrent:
		return r.RunConcurrent(ctx, tasks)
	default:
		return 0, ffErrors.NewValidationError("agent", "mode", mode, "unknown run mode")
	}
}

// RunSequential runs tasks one after another, writing straight to the
// console. A failed task does not stop the ones after it; cancellation
// does.
func (r *Runner) RunSequential(ctx context.Context, tasks []TaskSpec) (time.Duration, error) {
	if err := r.validate(tasks); err != nil {
		return 0, err
	}

	start := time.Now()
	sink := r.Console.NewSink(output.ModeDirect)
	defer sink.Close()

	var errs []error
	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := r.runTask(ctx, i, task, sink, r.Spinner); err != nil {
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
		}
	}

	elapsed := time.Since(start)
	r.finishBatch(Sequential, len(tasks), elapsed, errs)
	return elapsed, r.batchError(Sequential, len(tasks), errs)
}

// RunConcurrent runs each task in its own goroutine. Every task writes to
// a private buffered sink that is published as one block when the task
// ends, so task outputs never interleave. It waits for all tasks.
func (r *Runner) RunConcurrent(ctx context.Context, tasks []TaskSpec) (time.Duration, error) {
	if err := r.validate(tasks); err != nil {
		return 0, err
	}

	start := time.Now()
	results := make([]error, len(tasks))

	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task TaskSpec) {
			defer wg.Done()

			sink := r.Console.NewSink(output.ModeBuffered)
			err := r.runTask(ctx, i, task, sink, false)
			if cerr := sink.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("task %q: flush output: %w", task.Prompt, cerr)
			}
			results[i] = err
		}(i, task)
	}
	wg.Wait()

	var errs []error
	for _, err := range results {
		if err != nil {
			errs = append(errs, err)
		}
	}

	elapsed := time.Since(start)
	r.finishBatch(Concurrent, len(tasks), elapsed, errs)
	return elapsed, r.batchError(Concurrent, len(tasks), errs)
}

// runTask executes one task between its opening and closing banners.
func (r *Runner) runTask(ctx context.Context, index int, task TaskSpec, sink output.Sink, spin bool) error {
	runID := uuid.NewString()
	log := r.logger().With(
		zap.String("run_id", runID),
		zap.Int("task", index),
		zap.String("prompt", task.Prompt),
	)

	ctx, span := r.tracer().Start(ctx, "agent.task", trace.WithAttributes(
		attribute.String("agent.run_id", runID),
		attribute.String("agent.prompt", task.Prompt),
		attribute.String("agent.branch", task.Branch),
	))
	defer span.End()

	if err := sink.Emit(startBanner()); err != nil {
		return err
	}

	tr := &taskRun{runner: r, task: task, sink: sink, spinner: spin}
	log.Debug("task started")
	result, err := tr.pipeline().Execute(ctx, task)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Warn("task failed", zap.Error(err))
		_ = sink.Emit(failedBanner(err))
		return fmt.Errorf("task %q: %w", task.Prompt, err)
	}

	log.Info("task completed", zap.Duration("duration", result.Duration))
	return sink.Emit(completeBanner())
}

func (r *Runner) validate(tasks []TaskSpec) error {
	if r.Console == nil {
		return ffErrors.NewValidationError("agent", "Console", nil, "cannot be nil")
	}
	for i, t := range tasks {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("task %d: %w", i, err)
		}
	}
	return nil
}

func (r *Runner) finishBatch(mode Mode, n int, elapsed time.Duration, errs []error) {
	if m := r.Metrics; m != nil {
		m.BatchRuns.WithLabelValues(mode.String()).Inc()
		m.BatchDuration.WithLabelValues(mode.String()).Observe(elapsed.Seconds())
	}
	r.logger().Info("batch finished",
		zap.Stringer("mode", mode),
		zap.Int("tasks", n),
		zap.Int("failed", len(errs)),
		zap.Duration("elapsed", elapsed),
	)
}

func (r *Runner) batchError(mode Mode, n int, errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	op := "RunSequential"
	if mode == Concurrent {
		op = "RunConcurrent"
	}
	return ffErrors.NewOperationError("agent", op, errors.Join(errs...)).
		WithContext(fmt.Sprintf("%d of %d tasks failed", len(errs), n))
}
