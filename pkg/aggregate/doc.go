/*
Package aggregate computes a global sum, count and average by splitting a
sequence into chunks, running one worker per chunk concurrently and folding
their partial results under a lock.

Each worker reports a Partial holding the sum and count of its chunk. The
Aggregator merges partials in whatever order they complete; addition is
commutative and associative so the totals do not depend on scheduling.
The overall average is computed once from the global sum and count, never
as an average of chunk averages.

Basic usage:

	res, err := aggregate.Run(ctx, []float64{85, 90, 78, 92}, 2)
	if err != nil {
		return err
	}
	avg, err := res.Average() // 86.25

Empty input yields a Result with zero count, and Average reports
errors.ErrUndefinedResult rather than dividing by zero.

A custom Worker replaces the default sum-and-count computation:

	res, err := aggregate.Run(ctx, values, 4,
		aggregate.WithWorker(myWorker),
		aggregate.WithStrategy(partition.StrategyEven),
		aggregate.WithLogger(logger),
	)

A failing or canceled worker contributes nothing. Run still waits for every
other worker, returns the partial aggregate, and reports the failed chunks in
Result.Failures and in the returned error.
*/
package aggregate
