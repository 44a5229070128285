package aggregate

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	ffErrors "github.com/vnykmshr/fanflow/pkg/common/errors"
	"github.com/vnykmshr/fanflow/pkg/partition"
)

// Partial is one worker's contribution: the sum and count of its chunk.
type Partial struct {
	Chunk partition.Chunk
	Sum   float64
	Count int
}

// Mean returns the chunk-local average, or ErrUndefinedResult for an empty chunk.
func (p Partial) Mean() (float64, error) {
	if p.Count == 0 {
		return 0, ffErrors.ErrUndefinedResult
	}
	return p.Sum / float64(p.Count), nil
}

// ChunkError records a worker that failed and therefore contributed nothing.
type ChunkError struct {
	Chunk partition.Chunk
	Err   error
}

func (e ChunkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Chunk, e.Err)
}

func (e ChunkError) Unwrap() error {
	return e.Err
}

// Result is the reduction of every contributed Partial.
// Sum and Count always equal the totals over Partials.
type Result struct {
	RunID    string
	Sum      float64
	Count    int
	Partials []Partial
	Failures []ChunkError
	Duration time.Duration
}

// Defined reports whether the aggregate has data to average.
func (r Result) Defined() bool {
	return r.Count > 0
}

// Average returns Sum/Count. A zero count yields ErrUndefinedResult instead
// of a division.
func (r Result) Average() (float64, error) {
	if !r.Defined() {
		return 0, ffErrors.ErrUndefinedResult
	}
	return r.Sum / float64(r.Count), nil
}

// Aggregator folds partial results from concurrent workers.
// All methods are safe for concurrent use.
type Aggregator struct {
	mu       sync.Mutex
	sum      float64
	count    int
	partials []Partial
	failures []ChunkError
}

// NewAggregator creates an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Contribute folds p into the aggregate.
func (a *Aggregator) Contribute(p Partial) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.sum += p.Sum
	a.count += p.Count
	a.partials = append(a.partials, p)
}

// Fail records that the worker for c produced no partial.
func (a *Aggregator) Fail(c partition.Chunk, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.failures = append(a.failures, ChunkError{Chunk: c, Err: err})
}

// Result snapshots the aggregate with partials and failures in chunk order.
func (a *Aggregator) Result() Result {
	a.mu.Lock()
	defer a.mu.Unlock()

	partials := make([]Partial, len(a.partials))
	copy(partials, a.partials)
	sort.Slice(partials, func(i, j int) bool {
		return partials[i].Chunk.Index < partials[j].Chunk.Index
	})

	failures := make([]ChunkError, len(a.failures))
	copy(failures, a.failures)
	sort.Slice(failures, func(i, j int) bool {
		return failures[i].Chunk.Index < failures[j].Chunk.Index
	})

	return Result{
		Sum:      a.sum,
		Count:    a.count,
		Partials: partials,
		Failures: failures,
	}
}

// Reduce folds partials in the given order. Any order yields the same
// Sum and Count.
func Reduce(partials ...Partial) Result {
	agg := NewAggregator()
	for _, p := range partials {
		agg.Contribute(p)
	}
	return agg.Result()
}

// Worker computes the partial result of one chunk.
type Worker func(ctx context.Context, c partition.Chunk, values []float64) (Partial, error)

// SumCount is the default Worker. An empty chunk yields the neutral
// partial (0, 0).
func SumCount(_ context.Context, c partition.Chunk, values []float64) (Partial, error) {
	p := Partial{Chunk: c, Count: len(values)}
	for _, v := range values {
		p.Sum += v
	}
	return p, nil
}
