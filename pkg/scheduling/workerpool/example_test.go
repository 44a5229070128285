package workerpool_test

import (
	"context"
	"fmt"

	"github.com/vnykmshr/fanflow/pkg/scheduling/workerpool"
)

// Example demonstrates restoring submission order from indexed results.
func Example() {
	words := []string{"stage", "commit", "push"}

	pool, err := workerpool.NewWithConfig[int](workerpool.Config{
		WorkerCount:  3,
		QueueSize:    len(words),
		ResultBuffer: len(words),
	})
	if err != nil {
		fmt.Println(err)
		return
	}

	for i, w := range words {
		w := w
		_ = pool.Submit(i, workerpool.TaskFunc[int](func(ctx context.Context) (int, error) {
			return len(w), nil
		}))
	}
	<-pool.Shutdown()

	lengths := make([]int, len(words))
	for r := range pool.Results() {
		lengths[r.Index] = r.Value
	}
	fmt.Println(lengths)

	// Output: [5 6 4]
}
