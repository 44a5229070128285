package workerpool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vnykmshr/fanflow/pkg/common/validation"
	"github.com/vnykmshr/fanflow/pkg/metrics"
)

// Task represents a unit of work producing a value of type T.
type Task[T any] interface {
	// Execute runs the task with the given context.
	// It should respect context cancellation and return any error encountered.
	Execute(ctx context.Context) (T, error)
}

// TaskFunc is a function type that implements the Task interface.
type TaskFunc[T any] func(ctx context.Context) (T, error)

// Execute implements the Task interface for TaskFunc.
func (f TaskFunc[T]) Execute(ctx context.Context) (T, error) {
	return f(ctx)
}

// Result represents the result of a task execution.
type Result[T any] struct {
	// Index is the caller-assigned position of the task, used to restore
	// submission order after completion order has scrambled it
	Index int

	// Value is the task output; the zero value when Error is set
	Value T

	// Error is any error that occurred during task execution, including
	// recovered panics and context cancellation
	Error error

	// Duration is how long the task took to execute
	Duration time.Duration

	// WorkerID identifies which worker executed the task
	WorkerID int
}

// Pool executes indexed tasks on a fixed set of workers.
type Pool[T any] interface {
	// Submit adds a task to the pool for execution.
	// Returns an error if the pool is shut down.
	Submit(index int, task Task[T]) error

	// SubmitWithContext submits a task whose execution context derives from ctx.
	// Queueing also gives up when ctx is done.
	SubmitWithContext(ctx context.Context, index int, task Task[T]) error

	// Results returns a channel of task results.
	// The channel is closed when the pool is shut down and all tasks are complete.
	Results() <-chan Result[T]

	// Shutdown stops accepting tasks, lets queued tasks finish, and returns
	// a channel that closes once every worker has exited.
	Shutdown() <-chan struct{}

	// Size returns the number of workers in the pool.
	Size() int

	// QueueSize returns the current number of queued tasks waiting for execution.
	QueueSize() int

	// ActiveWorkers returns the number of workers currently executing tasks.
	ActiveWorkers() int

	// TotalSubmitted returns the total number of tasks submitted to the pool.
	TotalSubmitted() int64

	// TotalCompleted returns the total number of tasks completed by the pool.
	TotalCompleted() int64
}

// Config holds configuration options for creating a worker pool.
type Config struct {
	// Name labels the pool in metrics.
	Name string

	// WorkerCount is the number of workers in the pool.
	// Must be greater than 0.
	WorkerCount int

	// QueueSize is the maximum number of tasks that can be queued.
	// Zero means submissions hand off directly to an idle worker.
	QueueSize int

	// ResultBuffer is the capacity of the results channel. Workers block
	// until their result is received, so callers that submit everything
	// before draining results should size this to the task count.
	ResultBuffer int

	// TaskTimeout is the default timeout for individual task execution.
	// Zero means no timeout.
	TaskTimeout time.Duration

	// Metrics receives pool instrumentation. Nil disables it.
	Metrics *metrics.Registry

	// OnTaskStart is called before a task begins execution.
	OnTaskStart func(workerID, index int)

	// OnTaskComplete is called after a task completes (success or failure).
	OnTaskComplete func(workerID int, index int, err error)
}

// workerPool implements the Pool interface.
type workerPool[T any] struct {
	config Config

	taskQueue    chan queuedTask[T]
	resultQueue  chan Result[T]
	shutdownCh   chan struct{}
	done         chan struct{}
	shutdownOnce sync.Once

	mu         sync.RWMutex
	isShutdown bool

	activeWorkers  atomic.Int32
	totalSubmitted atomic.Int64
	totalCompleted atomic.Int64

	workerWg sync.WaitGroup
}

type queuedTask[T any] struct {
	index int
	task  Task[T]
	ctx   context.Context
}

// New creates a worker pool with the given number of workers and queue size.
func New[T any](workerCount, queueSize int) (Pool[T], error) {
	return NewWithConfig[T](Config{
		WorkerCount: workerCount,
		QueueSize:   queueSize,
	})
}

// NewWithConfig creates a worker pool with the specified configuration.
// Invalid sizes are reported as validation errors; nothing is started.
func NewWithConfig[T any](config Config) (Pool[T], error) {
	if err := validation.ValidatePositive("workerpool", "WorkerCount", config.WorkerCount); err != nil {
		return nil, err
	}
	if config.QueueSize < 0 {
		config.QueueSize = 0
	}
	if config.ResultBuffer < 0 {
		config.ResultBuffer = 0
	}
	if config.Name == "" {
		config.Name = "default"
	}

	pool := &workerPool[T]{
		config:      config,
		taskQueue:   make(chan queuedTask[T], config.QueueSize),
		resultQueue: make(chan Result[T], config.ResultBuffer),
		shutdownCh:  make(chan struct{}),
		done:        make(chan struct{}),
	}

	if m := config.Metrics; m != nil {
		m.WorkerPoolSize.WithLabelValues(config.Name).Set(float64(config.WorkerCount))
	}

	for i := 0; i < config.WorkerCount; i++ {
		pool.workerWg.Add(1)
		go pool.run(i)
	}

	return pool, nil
}
