package pipeline

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vnykmshr/fanflow/pkg/common/errors"
	"github.com/vnykmshr/fanflow/pkg/metrics"
)

// Stage is one step of a pipeline. Its output becomes the next stage's input.
type Stage interface {
	Execute(ctx context.Context, input any) (any, error)
	Name() string
}

// StageFunc adapts a function to the Stage interface.
type StageFunc struct {
	name string
	fn   func(ctx context.Context, input any) (any, error)
}

// Execute implements Stage.
func (sf *StageFunc) Execute(ctx context.Context, input any) (any, error) {
	return sf.fn(ctx, input)
}

// Name implements Stage.
func (sf *StageFunc) Name() string {
	return sf.name
}

// NewStageFunc creates a stage from a function.
func NewStageFunc(name string, fn func(ctx context.Context, input any) (any, error)) Stage {
	return &StageFunc{name: name, fn: fn}
}

// Pipeline runs its stages strictly in order, passing each output forward.
type Pipeline interface {
	// Execute runs every stage and returns once the last one finishes or
	// one of them fails.
	Execute(ctx context.Context, input any) (*Result, error)

	// ExecuteAsync runs Execute in a new goroutine.
	ExecuteAsync(ctx context.Context, input any) <-chan *Result

	AddStage(stage Stage) Pipeline
	AddStageFunc(name string, fn func(ctx context.Context, input any) (any, error)) Pipeline
	SetTimeout(timeout time.Duration) Pipeline
	GetStages() []Stage
	Stats() Stats
}

// Result is the outcome of one execution.
type Result struct {
	Input        any
	Output       any
	Error        error
	Duration     time.Duration
	StageResults []StageResult
	StartTime    time.Time
	EndTime      time.Time
}

// StageResult is the outcome of one stage.
type StageResult struct {
	StageName string
	Input     any
	Output    any
	Error     error
	Duration  time.Duration
	StartTime time.Time
	EndTime   time.Time
}

// Stats holds execution counters across runs.
type Stats struct {
	TotalExecutions int64
	SuccessfulRuns  int64
	FailedRuns      int64
	TotalDuration   time.Duration
	AverageDuration time.Duration
	StageStats      map[string]StageStats
	LastExecutionAt time.Time
}

// StageStats holds counters for one stage.
type StageStats struct {
	Name            string
	ExecutionCount  int64
	SuccessCount    int64
	ErrorCount      int64
	TotalDuration   time.Duration
	AverageDuration time.Duration
}

// Config holds pipeline configuration options.
type Config struct {
	// Name labels run metrics and the span of each stage.
	Name string

	// Timeout bounds a whole execution. Zero means no bound.
	Timeout time.Duration

	// StopOnError stops at the first failed stage. When false, a failed
	// stage is recorded and the previous output is passed on.
	StopOnError bool

	// Metrics enables step and run counters.
	Metrics *metrics.Registry

	// Tracer starts one span per stage. Nil means no tracing.
	Tracer trace.Tracer

	OnStageStart       func(stageName string, input any)
	OnStageComplete    func(result StageResult)
	OnPipelineStart    func(input any)
	OnPipelineComplete func(result Result)
	OnError            func(stageName string, err error)
}

type pipeline struct {
	stages []Stage
	config Config
	stats  Stats
	mu     sync.RWMutex
}

// New creates a pipeline that stops on the first error.
func New() Pipeline {
	return NewWithConfig(Config{StopOnError: true})
}

// NewWithConfig creates a pipeline with config.
func NewWithConfig(config Config) Pipeline {
	if config.Name == "" {
		config.Name = "pipeline"
	}
	if config.Tracer == nil {
		config.Tracer = noop.NewTracerProvider().Tracer("")
	}
	return &pipeline{
		config: config,
		stats:  Stats{StageStats: make(map[string]StageStats)},
	}
}

func (p *pipeline) Execute(ctx context.Context, input any) (*Result, error) {
	if ctx == nil {
		return nil, errors.NewValidationError("pipeline", "ctx", nil, "cannot be nil")
	}

	p.mu.RLock()
	stages := make([]Stage, len(p.stages))
	copy(stages, p.stages)
	timeout := p.config.Timeout
	p.mu.RUnlock()

	result := &Result{
		Input:        input,
		StartTime:    time.Now(),
		StageResults: make([]StageResult, 0, len(stages)),
	}

	if p.config.OnPipelineStart != nil {
		p.config.OnPipelineStart(input)
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result.Output, result.Error = p.executeStages(ctx, stages, input, result)
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	p.updateStats(result)

	if p.config.OnPipelineComplete != nil {
		p.config.OnPipelineComplete(*result)
	}
	return result, result.Error
}

func (p *pipeline) ExecuteAsync(ctx context.Context, input any) <-chan *Result {
	resultCh := make(chan *Result, 1)
	go func() {
		defer close(resultCh)
		result, err := p.Execute(ctx, input)
		if result == nil {
			result = &Result{Input: input, Error: err}
		}
		resultCh <- result
	}()
	return resultCh
}

func (p *pipeline) executeStages(ctx context.Context, stages []Stage, input any, result *Result) (any, error) {
	current := input

	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return current, err
		}

		sr := p.executeStage(ctx, stage, current)
		result.StageResults = append(result.StageResults, sr)

		if sr.Error != nil {
			if p.config.OnError != nil {
				p.config.OnError(stage.Name(), sr.Error)
			}
			if p.config.StopOnError {
				return current, errors.NewOperationError("pipeline", stage.Name(), sr.Error)
			}
			continue
		}
		current = sr.Output
	}
	return current, nil
}

func (p *pipeline) executeStage(ctx context.Context, stage Stage, input any) StageResult {
	start := time.Now()
	if p.config.OnStageStart != nil {
		p.config.OnStageStart(stage.Name(), input)
	}

	ctx, span := p.config.Tracer.Start(ctx, stage.Name(),
		trace.WithAttributes(attribute.String("pipeline.name", p.config.Name)))
	output, err := stage.Execute(ctx, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()

	end := time.Now()
	sr := StageResult{
		StageName: stage.Name(),
		Input:     input,
		Output:    output,
		Error:     err,
		Duration:  end.Sub(start),
		StartTime: start,
		EndTime:   end,
	}

	p.updateStageStats(sr)
	if p.config.OnStageComplete != nil {
		p.config.OnStageComplete(sr)
	}
	return sr
}

func (p *pipeline) AddStage(stage Stage) Pipeline {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stages = append(p.stages, stage)
	if _, ok := p.stats.StageStats[stage.Name()]; !ok {
		p.stats.StageStats[stage.Name()] = StageStats{Name: stage.Name()}
	}
	return p
}

func (p *pipeline) AddStageFunc(name string, fn func(ctx context.Context, input any) (any, error)) Pipeline {
	return p.AddStage(NewStageFunc(name, fn))
}

func (p *pipeline) SetTimeout(timeout time.Duration) Pipeline {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.config.Timeout = timeout
	return p
}

func (p *pipeline) GetStages() []Stage {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stages := make([]Stage, len(p.stages))
	copy(stages, p.stages)
	return stages
}

func (p *pipeline) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s := p.stats
	s.StageStats = make(map[string]StageStats, len(p.stats.StageStats))
	for k, v := range p.stats.StageStats {
		s.StageStats[k] = v
	}
	if s.TotalExecutions > 0 {
		s.AverageDuration = time.Duration(int64(s.TotalDuration) / s.TotalExecutions)
	}
	return s
}

func (p *pipeline) updateStats(result *Result) {
	p.mu.Lock()
	p.stats.TotalExecutions++
	p.stats.TotalDuration += result.Duration
	p.stats.LastExecutionAt = result.EndTime
	if result.Error == nil {
		p.stats.SuccessfulRuns++
	} else {
		p.stats.FailedRuns++
	}
	p.mu.Unlock()

	if m := p.config.Metrics; m != nil {
		m.PipelineRuns.WithLabelValues(p.config.Name).Inc()
		m.PipelineDuration.WithLabelValues(p.config.Name).Observe(result.Duration.Seconds())
	}
}

func (p *pipeline) updateStageStats(sr StageResult) {
	p.mu.Lock()
	stats, ok := p.stats.StageStats[sr.StageName]
	if !ok {
		stats = StageStats{Name: sr.StageName}
	}
	stats.ExecutionCount++
	stats.TotalDuration += sr.Duration
	if sr.Error == nil {
		stats.SuccessCount++
	} else {
		stats.ErrorCount++
	}
	stats.AverageDuration = time.Duration(int64(stats.TotalDuration) / stats.ExecutionCount)
	p.stats.StageStats[sr.StageName] = stats
	p.mu.Unlock()

	if m := p.config.Metrics; m != nil {
		if sr.Error == nil {
			m.StepsCompleted.WithLabelValues(sr.StageName).Inc()
		} else {
			m.StepsFailed.WithLabelValues(sr.StageName).Inc()
		}
		m.StepDuration.WithLabelValues(sr.StageName).Observe(sr.Duration.Seconds())
	}
}
