/*
Package ratelimit groups the limiters fanflow uses to bound concurrent work.

  - concurrency: a counting semaphore with FIFO waiters, used by payroll
    batch derivation to cap how many records are derived at once

Example:

	limiter := concurrency.New(4)
	err := limiter.Do(ctx, func(ctx context.Context) error {
		return deriveOne(ctx)
	})

The limiter is context-aware: Wait and Do return ctx.Err() when the context
ends before a permit is granted, and never leak a permit in that case.
*/
package ratelimit
