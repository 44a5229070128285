/*
Package partition splits an ordered sequence into contiguous, non-overlapping
chunks for concurrent workers.

	chunks, err := partition.Partition(len(values), 3)
	if err != nil {
		return err // worker count < 1
	}
	for _, c := range chunks {
		go work(c, partition.Of(c, values))
	}

Chunks are disjoint and ordered; concatenating them in Index order
reconstructs the input. With StrategyCeil the last chunk may be short, and
fewer chunks than workers are returned whenever the input is too small to
give every worker data. An empty sequence yields zero chunks, which callers
treat as "no work" rather than as an error.
*/
package partition
