package aggregate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	ffErrors "github.com/vnykmshr/fanflow/pkg/common/errors"
	"github.com/vnykmshr/fanflow/pkg/common/validation"
	"github.com/vnykmshr/fanflow/pkg/metrics"
	"github.com/vnykmshr/fanflow/pkg/partition"
	"github.com/vnykmshr/fanflow/pkg/scheduling/workerpool"
)

type options struct {
	worker   Worker
	strategy partition.Strategy
	logger   *zap.Logger
	metrics  *metrics.Registry
	observer func(Partial)
}

// Option configures Run.
type Option func(*options)

// WithWorker replaces the default SumCount worker.
func WithWorker(w Worker) Option {
	return func(o *options) {
		if w != nil {
			o.worker = w
		}
	}
}

// WithStrategy selects the partition strategy.
func WithStrategy(s partition.Strategy) Option {
	return func(o *options) { o.strategy = s }
}

// WithLogger sets the logger used for run and chunk events.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Registry) Option {
	return func(o *options) { o.metrics = m }
}

// WithObserver registers fn to receive each partial as it is collected.
// fn is invoked from a single goroutine, in completion order.
func WithObserver(fn func(Partial)) Option {
	return func(o *options) { o.observer = fn }
}

// Run partitions values over workerCount workers, computes one Partial per
// chunk concurrently, and waits for every worker before returning the
// aggregate.
//
// An invalid worker count or a non-finite value is rejected before any work
// is dispatched. Workers that fail or are canceled contribute nothing; they
// are listed in Result.Failures and the returned error wraps each of them,
// while the partials of the other chunks are still aggregated.
func Run(ctx context.Context, values []float64, workerCount int, opts ...Option) (Result, error) {
	o := options{
		worker:   SumCount,
		strategy: partition.StrategyCeil,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	if err := validation.ValidatePositive("aggregate", "workerCount", workerCount); err != nil {
		return Result{}, err
	}
	for i, v := range values {
		if err := validation.ValidateFinite("aggregate", fmt.Sprintf("values[%d]", i), v); err != nil {
			return Result{}, err
		}
	}

	chunks, err := partition.PartitionWith(len(values), workerCount, o.strategy)
	if err != nil {
		return Result{}, err
	}

	runID := uuid.NewString()
	log := o.logger.With(zap.String("run_id", runID))
	start := time.Now()

	if len(chunks) == 0 {
		log.Debug("no chunks to aggregate")
		return Result{RunID: runID}, nil
	}

	pool, err := workerpool.NewWithConfig[Partial](workerpool.Config{
		Name:         "aggregate",
		WorkerCount:  workerCount,
		QueueSize:    len(chunks),
		ResultBuffer: len(chunks),
		Metrics:      o.metrics,
	})
	if err != nil {
		return Result{}, err
	}

	agg := NewAggregator()
	label := o.strategy.String()
	if o.metrics != nil {
		o.metrics.ChunksDispatched.WithLabelValues(label).Add(float64(len(chunks)))
	}

	for _, c := range chunks {
		c := c
		task := workerpool.TaskFunc[Partial](func(taskCtx context.Context) (Partial, error) {
			return computeChunk(taskCtx, o.worker, c, partition.Of(c, values), agg)
		})
		if err := pool.SubmitWithContext(ctx, c.Index, task); err != nil {
			agg.Fail(c, err)
			log.Warn("chunk not dispatched", zap.Stringer("chunk", c), zap.Error(err))
		}
	}
	<-pool.Shutdown()

	for r := range pool.Results() {
		c := chunks[r.Index]
		if r.Error != nil {
			agg.Fail(c, r.Error)
			log.Warn("chunk failed", zap.Stringer("chunk", c), zap.Error(r.Error))
			continue
		}
		log.Debug("chunk aggregated",
			zap.Stringer("chunk", c),
			zap.Float64("sum", r.Value.Sum),
			zap.Int("count", r.Value.Count),
			zap.Int("worker_id", r.WorkerID),
		)
		if o.observer != nil {
			o.observer(r.Value)
		}
	}

	res := agg.Result()
	res.RunID = runID
	res.Duration = time.Since(start)

	if o.metrics != nil {
		o.metrics.PartialsContributed.WithLabelValues(label).Add(float64(len(res.Partials)))
		o.metrics.ChunkFailures.WithLabelValues(label).Add(float64(len(res.Failures)))
		o.metrics.AggregationDuration.WithLabelValues(label).Observe(res.Duration.Seconds())
	}

	log.Info("aggregation complete",
		zap.Int("chunks", len(chunks)),
		zap.Int("failures", len(res.Failures)),
		zap.Float64("sum", res.Sum),
		zap.Int("count", res.Count),
		zap.Duration("duration", res.Duration),
	)

	if len(res.Failures) > 0 {
		errs := make([]error, len(res.Failures))
		for i, f := range res.Failures {
			errs[i] = f
		}
		return res, ffErrors.NewOperationError("aggregate", "Run", errors.Join(errs...)).
			WithContext(fmt.Sprintf("%d of %d chunks failed", len(res.Failures), len(chunks)))
	}
	return res, nil
}

// computeChunk runs the worker for one chunk and contributes its partial,
// unless the context ended first.
func computeChunk(ctx context.Context, w Worker, c partition.Chunk, values []float64, agg *Aggregator) (Partial, error) {
	if err := ctx.Err(); err != nil {
		return Partial{}, err
	}

	p, err := w(ctx, c, values)
	if err != nil {
		return Partial{}, err
	}
	if err := ctx.Err(); err != nil {
		return Partial{}, err
	}

	p.Chunk = c
	agg.Contribute(p)
	return p, nil
}

// Average runs the aggregation and returns the overall mean.
// ErrUndefinedResult is returned when there is no data.
func Average(ctx context.Context, values []float64, workerCount int, opts ...Option) (float64, error) {
	res, err := Run(ctx, values, workerCount, opts...)
	if err != nil {
		return 0, err
	}
	return res.Average()
}
