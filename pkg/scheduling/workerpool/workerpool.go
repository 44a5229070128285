package workerpool

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	ffErrors "github.com/vnykmshr/fanflow/pkg/common/errors"
)

// Submit adds a task to the pool for execution.
// The task will be executed with context.Background().
// Use SubmitWithContext to provide a custom context.
func (p *workerPool[T]) Submit(index int, task Task[T]) error {
	return p.SubmitWithContext(context.Background(), index, task)
}

// SubmitWithContext adds a task to the pool for execution with the given context.
// The context is passed to the task's Execute method, enabling timeout and
// cancellation propagation. If the pool has a TaskTimeout configured, the
// effective timeout will be the minimum of the context deadline and TaskTimeout.
func (p *workerPool[T]) SubmitWithContext(ctx context.Context, index int, task Task[T]) error {
	if task == nil {
		return ffErrors.NewValidationError("workerpool", "task", nil, "cannot be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.isShutdown {
		return fmt.Errorf("cannot submit task: %w", ffErrors.ErrClosed)
	}

	// A pre-canceled context is rejected before it can race a free slot.
	select {
	case <-ctx.Done():
		return fmt.Errorf("cannot submit task: context canceled: %w", ctx.Err())
	default:
	}

	select {
	case p.taskQueue <- queuedTask[T]{index: index, task: task, ctx: ctx}:
		p.totalSubmitted.Add(1)
		p.observeQueue()
		return nil
	case <-p.shutdownCh:
		return fmt.Errorf("cannot submit task: %w", ffErrors.ErrClosed)
	case <-ctx.Done():
		return fmt.Errorf("cannot submit task: context canceled: %w", ctx.Err())
	}
}

// Results returns a channel of task results.
func (p *workerPool[T]) Results() <-chan Result[T] {
	return p.resultQueue
}

// Shutdown initiates a graceful shutdown of the pool.
func (p *workerPool[T]) Shutdown() <-chan struct{} {
	p.shutdownOnce.Do(func() {
		// Unblock submitters waiting on a full queue before taking the write lock.
		close(p.shutdownCh)

		p.mu.Lock()
		p.isShutdown = true
		close(p.taskQueue)
		p.mu.Unlock()

		go func() {
			p.workerWg.Wait()
			close(p.resultQueue)
			close(p.done)
		}()
	})

	return p.done
}

// Size returns the number of workers in the pool.
func (p *workerPool[T]) Size() int {
	return p.config.WorkerCount
}

// QueueSize returns the current number of queued tasks waiting for execution.
func (p *workerPool[T]) QueueSize() int {
	return len(p.taskQueue)
}

// ActiveWorkers returns the number of workers currently executing tasks.
func (p *workerPool[T]) ActiveWorkers() int {
	return int(p.activeWorkers.Load())
}

// TotalSubmitted returns the total number of tasks submitted to the pool.
func (p *workerPool[T]) TotalSubmitted() int64 {
	return p.totalSubmitted.Load()
}

// TotalCompleted returns the total number of tasks completed by the pool.
func (p *workerPool[T]) TotalCompleted() int64 {
	return p.totalCompleted.Load()
}

// run is the main loop for a worker. It drains the queue until Shutdown
// closes it.
func (p *workerPool[T]) run(id int) {
	defer p.workerWg.Done()

	for qt := range p.taskQueue {
		p.observeQueue()
		p.resultQueue <- p.executeTask(id, qt)
	}
}

// executeTask executes a single task with the provided context.
func (p *workerPool[T]) executeTask(workerID int, qt queuedTask[T]) (result Result[T]) {
	start := time.Now()
	p.activeWorkers.Add(1)
	if m := p.config.Metrics; m != nil {
		m.WorkerPoolActive.WithLabelValues(p.config.Name).Inc()
	}
	if p.config.OnTaskStart != nil {
		p.config.OnTaskStart(workerID, qt.index)
	}

	result = Result[T]{Index: qt.index, WorkerID: workerID}

	// Handle panics during task execution
	defer func() {
		if r := recover(); r != nil {
			var zero T
			result.Value = zero
			result.Error = fmt.Errorf("task panicked: %v\nStack trace:\n%s", r, debug.Stack())
		}
		result.Duration = time.Since(start)

		p.activeWorkers.Add(-1)
		p.totalCompleted.Add(1)
		p.observeCompletion(result)

		if p.config.OnTaskComplete != nil {
			p.config.OnTaskComplete(workerID, qt.index, result.Error)
		}
	}()

	ctx := qt.ctx
	if p.config.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.TaskTimeout)
		defer cancel()
	}

	result.Value, result.Error = qt.task.Execute(ctx)
	return result
}

func (p *workerPool[T]) observeQueue() {
	if m := p.config.Metrics; m != nil {
		m.WorkerPoolQueued.WithLabelValues(p.config.Name).Set(float64(len(p.taskQueue)))
	}
}

func (p *workerPool[T]) observeCompletion(result Result[T]) {
	m := p.config.Metrics
	if m == nil {
		return
	}
	m.WorkerPoolActive.WithLabelValues(p.config.Name).Dec()
	m.TaskDuration.WithLabelValues(p.config.Name).Observe(result.Duration.Seconds())
	if result.Error != nil {
		m.TasksFailed.WithLabelValues(p.config.Name).Inc()
	} else {
		m.TasksCompleted.WithLabelValues(p.config.Name).Inc()
	}
}
