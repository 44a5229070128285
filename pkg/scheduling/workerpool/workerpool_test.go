package workerpool

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vnykmshr/fanflow/internal/testutil"
	ffErrors "github.com/vnykmshr/fanflow/pkg/common/errors"
	"github.com/vnykmshr/fanflow/pkg/metrics"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		workerCount int
		queueSize   int
		wantErr     bool
	}{
		{"valid params", 2, 10, false},
		{"single worker", 1, 5, false},
		{"direct handoff", 3, 0, false},
		{"zero workers", 0, 10, true},
		{"negative workers", -1, 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, err := New[int](tt.workerCount, tt.queueSize)
			if tt.wantErr {
				testutil.AssertErrorIs(t, err, ffErrors.ErrInvalidArgument)
				return
			}
			testutil.AssertNoError(t, err)
			testutil.AssertEqual(t, pool.Size(), tt.workerCount)
			<-pool.Shutdown()
		})
	}
}

func TestBasicTaskExecution(t *testing.T) {
	pool, err := New[string](2, 5)
	testutil.AssertNoError(t, err)
	defer pool.Shutdown()

	err = pool.Submit(7, TaskFunc[string](func(ctx context.Context) (string, error) {
		time.Sleep(5 * time.Millisecond)
		return "done", nil
	}))
	testutil.AssertNoError(t, err)

	select {
	case result := <-pool.Results():
		testutil.AssertNoError(t, result.Error)
		testutil.AssertEqual(t, result.Index, 7)
		testutil.AssertEqual(t, result.Value, "done")
		testutil.AssertEqual(t, result.WorkerID >= 0, true)
		testutil.AssertEqual(t, result.Duration >= 5*time.Millisecond, true)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for result")
	}
}

func TestEveryTaskYieldsOneResult(t *testing.T) {
	const numTasks = 50
	pool, err := NewWithConfig[int](Config{
		WorkerCount:  4,
		QueueSize:    numTasks,
		ResultBuffer: numTasks,
	})
	testutil.AssertNoError(t, err)

	for i := 0; i < numTasks; i++ {
		i := i
		err := pool.Submit(i, TaskFunc[int](func(ctx context.Context) (int, error) {
			return i * i, nil
		}))
		testutil.AssertNoError(t, err)
	}
	<-pool.Shutdown()

	var indexes []int
	for r := range pool.Results() {
		testutil.AssertEqual(t, r.Value, r.Index*r.Index)
		indexes = append(indexes, r.Index)
	}
	sort.Ints(indexes)
	testutil.AssertEqual(t, len(indexes), numTasks)
	for i, idx := range indexes {
		testutil.AssertEqual(t, idx, i)
	}
	testutil.AssertEqual(t, pool.TotalSubmitted(), int64(numTasks))
	testutil.AssertEqual(t, pool.TotalCompleted(), int64(numTasks))
}

func TestTaskError(t *testing.T) {
	pool, err := New[int](1, 1)
	testutil.AssertNoError(t, err)
	defer pool.Shutdown()

	sentinel := errors.New("chunk failed")
	testutil.AssertNoError(t, pool.Submit(0, TaskFunc[int](func(ctx context.Context) (int, error) {
		return 0, sentinel
	})))

	result := <-pool.Results()
	testutil.AssertErrorIs(t, result.Error, sentinel)
}

func TestPanicRecovery(t *testing.T) {
	pool, err := New[int](1, 1)
	testutil.AssertNoError(t, err)
	defer pool.Shutdown()

	testutil.AssertNoError(t, pool.Submit(3, TaskFunc[int](func(ctx context.Context) (int, error) {
		panic("boom")
	})))

	result := <-pool.Results()
	testutil.AssertError(t, result.Error)
	testutil.AssertEqual(t, strings.Contains(result.Error.Error(), "task panicked: boom"), true)
	testutil.AssertEqual(t, result.Index, 3)
}

func TestTaskTimeout(t *testing.T) {
	pool, err := NewWithConfig[int](Config{
		WorkerCount: 1,
		QueueSize:   1,
		TaskTimeout: 10 * time.Millisecond,
	})
	testutil.AssertNoError(t, err)
	defer pool.Shutdown()

	testutil.AssertNoError(t, pool.Submit(0, TaskFunc[int](func(ctx context.Context) (int, error) {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(time.Second):
			return 1, nil
		}
	})))

	result := <-pool.Results()
	testutil.AssertErrorIs(t, result.Error, context.DeadlineExceeded)
}

func TestSubmitAfterShutdown(t *testing.T) {
	pool, err := New[int](1, 1)
	testutil.AssertNoError(t, err)
	<-pool.Shutdown()

	err = pool.Submit(0, TaskFunc[int](func(ctx context.Context) (int, error) { return 0, nil }))
	testutil.AssertErrorIs(t, err, ffErrors.ErrClosed)
}

func TestSubmitCanceledContext(t *testing.T) {
	pool, err := New[int](1, 1)
	testutil.AssertNoError(t, err)
	defer pool.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = pool.SubmitWithContext(ctx, 0, TaskFunc[int](func(ctx context.Context) (int, error) { return 0, nil }))
	testutil.AssertErrorIs(t, err, context.Canceled)
	testutil.AssertEqual(t, pool.TotalSubmitted(), int64(0))
}

func TestSubmitNilTask(t *testing.T) {
	pool, err := New[int](1, 1)
	testutil.AssertNoError(t, err)
	defer pool.Shutdown()

	err = pool.Submit(0, nil)
	testutil.AssertErrorIs(t, err, ffErrors.ErrInvalidArgument)
}

func TestHooksAndMetrics(t *testing.T) {
	m, _ := metrics.NewIsolated()
	var started, completed atomic.Int32

	pool, err := NewWithConfig[int](Config{
		Name:         "hooks",
		WorkerCount:  2,
		QueueSize:    4,
		ResultBuffer: 4,
		Metrics:      m,
		OnTaskStart:  func(workerID, index int) { started.Add(1) },
		OnTaskComplete: func(workerID, index int, err error) {
			completed.Add(1)
		},
	})
	testutil.AssertNoError(t, err)

	for i := 0; i < 4; i++ {
		fail := i%2 == 0
		testutil.AssertNoError(t, pool.Submit(i, TaskFunc[int](func(ctx context.Context) (int, error) {
			if fail {
				return 0, errors.New("odd one out")
			}
			return 1, nil
		})))
	}
	<-pool.Shutdown()
	for range pool.Results() {
	}

	testutil.AssertEqual(t, started.Load(), int32(4))
	testutil.AssertEqual(t, completed.Load(), int32(4))
	testutil.AssertEqual(t, promtest.ToFloat64(m.TasksCompleted.WithLabelValues("hooks")), 2.0)
	testutil.AssertEqual(t, promtest.ToFloat64(m.TasksFailed.WithLabelValues("hooks")), 2.0)
	testutil.AssertEqual(t, promtest.ToFloat64(m.WorkerPoolSize.WithLabelValues("hooks")), 2.0)
	testutil.AssertEqual(t, pool.ActiveWorkers(), 0)
}
