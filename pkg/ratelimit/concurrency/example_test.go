package concurrency_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/vnykmshr/fanflow/pkg/ratelimit/concurrency"
)

func ExampleLimiter_Do() {
	limiter, err := concurrency.New(2)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	results := make([]int, 5)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = limiter.Do(context.Background(), func(context.Context) error {
				results[i] = i * i
				return nil
			})
		}(i)
	}
	wg.Wait()

	fmt.Println(results)
	// Output: [0 1 4 9 16]
}

func ExampleLimiter_Acquire() {
	limiter, _ := concurrency.New(1)

	fmt.Println(limiter.Acquire())
	fmt.Println(limiter.Acquire())
	limiter.Release()
	fmt.Println(limiter.Available())

	// Output:
	// true
	// false
	// 1
}
