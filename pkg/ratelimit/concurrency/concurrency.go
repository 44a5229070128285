package concurrency

import (
	"context"
)

func (cl *concurrencyLimiter) Acquire() bool {
	return cl.AcquireN(1)
}

func (cl *concurrencyLimiter) AcquireN(n int) bool {
	if n <= 0 {
		return true
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.available >= n {
		cl.available -= n
		cl.inUse += n
		cl.observe()
		return true
	}
	return false
}

func (cl *concurrencyLimiter) Wait(ctx context.Context) error {
	return cl.WaitN(ctx, 1)
}

func (cl *concurrencyLimiter) WaitN(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	cl.mu.Lock()
	if cl.available >= n {
		cl.available -= n
		cl.inUse += n
		cl.observe()
		cl.mu.Unlock()
		return nil
	}

	ready := make(chan struct{})
	cl.waiters = append(cl.waiters, waiter{n: n, ready: ready, cancel: ctx.Done()})
	cl.waiting++
	cl.observe()
	cl.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		if !cl.cancelWaiter(ready) {
			// Permits were granted while ctx was being canceled.
			cl.ReleaseN(n)
		}
		return ctx.Err()
	}
}

func (cl *concurrencyLimiter) Release() {
	cl.ReleaseN(1)
}

func (cl *concurrencyLimiter) ReleaseN(n int) {
	if n <= 0 {
		return
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.inUse < n {
		panic("concurrency: released more permits than acquired")
	}

	cl.available += n
	cl.inUse -= n
	if cl.available > cl.capacity {
		cl.available = cl.capacity
	}
	cl.notifyWaiters()
	cl.observe()
}

func (cl *concurrencyLimiter) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := cl.Wait(ctx); err != nil {
		return err
	}
	defer cl.Release()
	return fn(ctx)
}

func (cl *concurrencyLimiter) SetCapacity(newCapacity int) {
	if newCapacity <= 0 {
		panic("concurrency: capacity must be positive")
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	delta := newCapacity - cl.capacity
	cl.capacity = newCapacity

	switch {
	case delta > 0:
		cl.available += delta
		cl.notifyWaiters()
	case delta < 0:
		cl.available += delta
		if cl.available < 0 {
			cl.available = 0
		}
	}
	cl.observe()
}

func (cl *concurrencyLimiter) Capacity() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.capacity
}

func (cl *concurrencyLimiter) Available() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.available
}

func (cl *concurrencyLimiter) InUse() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.inUse
}

// notifyWaiters hands permits to waiters in FIFO order.
// Must be called with cl.mu held.
func (cl *concurrencyLimiter) notifyWaiters() {
	remaining := cl.waiters[:0]
	for _, w := range cl.waiters {
		select {
		case <-w.cancel:
			// The waiter removes itself; leave it for cancelWaiter.
			remaining = append(remaining, w)
			continue
		default:
		}

		if cl.available >= w.n {
			cl.available -= w.n
			cl.inUse += w.n
			cl.waiting--
			close(w.ready)
		} else {
			remaining = append(remaining, w)
		}
	}
	cl.waiters = remaining
}

// cancelWaiter removes the waiter identified by ready. It reports false when
// the waiter had already been granted its permits.
func (cl *concurrencyLimiter) cancelWaiter(ready chan struct{}) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	for i, w := range cl.waiters {
		if w.ready == ready {
			cl.waiters = append(cl.waiters[:i], cl.waiters[i+1:]...)
			cl.waiting--
			cl.observe()
			return true
		}
	}
	return false
}

// observe publishes gauges. Must be called with cl.mu held.
func (cl *concurrencyLimiter) observe() {
	if cl.metrics == nil {
		return
	}
	cl.metrics.ConcurrencyActive.WithLabelValues(cl.name).Set(float64(cl.inUse))
	cl.metrics.ConcurrencyWaiting.WithLabelValues(cl.name).Set(float64(cl.waiting))
}
