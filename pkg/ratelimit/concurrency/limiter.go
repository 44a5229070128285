package concurrency

import (
	"context"
	"sync"

	"github.com/vnykmshr/fanflow/pkg/common/errors"
	"github.com/vnykmshr/fanflow/pkg/metrics"
)

// Limiter controls how many operations run at the same time.
// It acts as a counting semaphore with context support and state inspection.
type Limiter interface {
	// Acquire attempts to acquire one permit without blocking.
	Acquire() bool

	// AcquireN attempts to acquire n permits without blocking.
	AcquireN(n int) bool

	// Wait blocks until a permit is available or ctx is done.
	Wait(ctx context.Context) error

	// WaitN blocks until n permits are available or ctx is done.
	WaitN(ctx context.Context, n int) error

	// Release returns one permit.
	// It panics if more permits are released than were acquired.
	Release()

	// ReleaseN returns n permits.
	ReleaseN(n int)

	// Do runs fn while holding one permit.
	Do(ctx context.Context, fn func(ctx context.Context) error) error

	// SetCapacity changes the number of permits. A reduction below current
	// usage takes effect as permits are released.
	SetCapacity(capacity int)

	Capacity() int
	Available() int
	InUse() int
}

// Config holds configuration options for a Limiter.
type Config struct {
	// Name labels the limiter's metrics.
	Name string

	// Capacity is the maximum number of concurrent operations.
	Capacity int

	// InitialAvailable is the number of permits available at creation.
	// Negative or larger than Capacity means Capacity.
	InitialAvailable int

	// Metrics enables gauges for active and waiting operations.
	Metrics *metrics.Registry
}

// DefaultConfig returns a configuration with the given capacity.
func DefaultConfig(capacity int) Config {
	return Config{
		Name:             "default",
		Capacity:         capacity,
		InitialAvailable: -1,
	}
}

type concurrencyLimiter struct {
	mu        sync.Mutex
	name      string
	capacity  int
	available int
	inUse     int
	waiting   int
	waiters   []waiter
	metrics   *metrics.Registry
}

type waiter struct {
	n      int
	ready  chan struct{}
	cancel <-chan struct{}
}

// New creates a limiter allowing capacity concurrent operations.
func New(capacity int) (Limiter, error) {
	return NewWithConfig(DefaultConfig(capacity))
}

// NewWithConfig creates a limiter from config. An invalid capacity is
// returned as a validation error.
func NewWithConfig(config Config) (Limiter, error) {
	if config.Capacity <= 0 {
		return nil, errors.NewValidationError("concurrency", "capacity", config.Capacity, "capacity must be positive").
			WithHint("capacity determines how many concurrent operations are allowed")
	}

	initialAvailable := config.InitialAvailable
	if initialAvailable < 0 || initialAvailable > config.Capacity {
		initialAvailable = config.Capacity
	}

	name := config.Name
	if name == "" {
		name = "default"
	}

	cl := &concurrencyLimiter{
		name:      name,
		capacity:  config.Capacity,
		available: initialAvailable,
		inUse:     config.Capacity - initialAvailable,
		metrics:   config.Metrics,
	}
	cl.observe()
	return cl, nil
}
