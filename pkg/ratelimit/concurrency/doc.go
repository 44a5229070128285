/*
Package concurrency provides a counting semaphore that bounds how many
operations run at once.

Batch derivation uses it to cap record-level parallelism while each record
still fans out over its own fields:

	limiter, err := concurrency.New(4)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	for i, rec := range records {
		wg.Add(1)
		go func(i int, rec Record) {
			defer wg.Done()
			errs[i] = limiter.Do(ctx, func(ctx context.Context) error {
				out[i], err = derive(ctx, rec)
				return err
			})
		}(i, rec)
	}
	wg.Wait()

Acquire and AcquireN never block. Wait and WaitN block until permits are
available or the context is done; a waiter that is canceled never keeps a
permit. Waiters are served in arrival order.

When Config.Metrics is set, the limiter publishes the number of permits in
use and the number of blocked waiters, labelled by Config.Name.
*/
package concurrency
