package partition

import (
	"fmt"

	ffErrors "github.com/vnykmshr/fanflow/pkg/common/errors"
	"github.com/vnykmshr/fanflow/pkg/common/validation"
)

// Strategy selects how the chunk size is derived from the input length and
// the requested worker count.
type Strategy int

const (
	// StrategyCeil uses ceil(len/workers). It never produces more chunks than
	// workers, and produces fewer when the data cannot fill them all.
	StrategyCeil Strategy = iota

	// StrategyEven uses max(1, len/workers) and keeps emitting chunks until
	// the input is covered, so a remainder becomes one or more extra chunks.
	StrategyEven
)

// String returns the strategy name used in configuration.
func (s Strategy) String() string {
	switch s {
	case StrategyCeil:
		return "ceil"
	case StrategyEven:
		return "even"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy parses a strategy name as accepted by String.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "", "ceil":
		return StrategyCeil, nil
	case "even":
		return StrategyEven, nil
	default:
		return StrategyCeil, ffErrors.NewValidationError("partition", "strategy", name, "unknown strategy").
			WithHint("use ceil or even")
	}
}

// Chunk is the half-open range [Start, End) of an input sequence assigned to
// one worker. Index is the chunk's position in partition order.
type Chunk struct {
	Index int
	Start int
	End   int
}

// Len returns the number of elements covered by the chunk.
func (c Chunk) Len() int {
	return c.End - c.Start
}

// Empty reports whether the chunk covers no elements.
func (c Chunk) Empty() bool {
	return c.End <= c.Start
}

func (c Chunk) String() string {
	return fmt.Sprintf("chunk#%d[%d:%d)", c.Index, c.Start, c.End)
}

// Of returns the sub-slice of seq covered by c. The result aliases seq.
func Of[T any](c Chunk, seq []T) []T {
	return seq[c.Start:c.End]
}

// Partition splits a sequence of the given length into at most workerCount
// contiguous chunks of size ceil(length/workerCount).
// An empty sequence yields no chunks and no error.
func Partition(length, workerCount int) ([]Chunk, error) {
	return PartitionWith(length, workerCount, StrategyCeil)
}

// PartitionWith splits a sequence of the given length using strategy.
// workerCount must be at least 1; the check happens before any chunk is built.
func PartitionWith(length, workerCount int, strategy Strategy) ([]Chunk, error) {
	if err := validation.ValidatePositive("partition", "workerCount", workerCount); err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, ffErrors.NewValidationError("partition", "length", length, "cannot be negative")
	}
	if length == 0 {
		return nil, nil
	}

	var size, limit int
	switch strategy {
	case StrategyCeil:
		size = (length + workerCount - 1) / workerCount
		limit = workerCount
	case StrategyEven:
		size = max(1, length/workerCount)
		limit = (length + size - 1) / size
	default:
		return nil, ffErrors.NewValidationError("partition", "strategy", strategy, "unknown strategy")
	}
	if size <= 0 {
		return nil, ffErrors.NewValidationError("partition", "chunkSize", size, "must be positive")
	}

	chunks := make([]Chunk, 0, min(limit, length))
	for i := 0; i < limit; i++ {
		start := i * size
		if start >= length {
			break
		}
		chunks = append(chunks, Chunk{
			Index: i,
			Start: start,
			End:   min(start+size, length),
		})
	}
	return chunks, nil
}

// Split partitions seq and returns the chunk sub-slices alongside their
// ranges. Sub-slices alias seq and must be treated as read-only.
func Split[T any](seq []T, workerCount int) ([][]T, []Chunk, error) {
	chunks, err := Partition(len(seq), workerCount)
	if err != nil {
		return nil, nil, err
	}
	parts := make([][]T, len(chunks))
	for i, c := range chunks {
		parts[i] = Of(c, seq)
	}
	return parts, chunks, nil
}
