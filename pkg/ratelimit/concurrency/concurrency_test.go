package concurrency

import (
	"context"
	"errors"
	"sync"
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
		name     string
		capacity int
		wantErr  bool
	}{
		{"valid capacity", 10, false},
		{"capacity one", 1, false},
		{"zero capacity", 0, true},
		{"negative capacity", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter, err := New(tt.capacity)
			if tt.wantErr {
				if !ffErrors.IsValidationError(err) {
					t.Errorf("expected validation error, got %v", err)
				}
				if limiter != nil {
					t.Error("expected nil limiter on error")
				}
				return
			}
			testutil.AssertNoError(t, err)
			testutil.AssertEqual(t, limiter.Capacity(), tt.capacity)
			testutil.AssertEqual(t, limiter.Available(), tt.capacity)
			testutil.AssertEqual(t, limiter.InUse(), 0)
		})
	}
}

func TestNewWithConfigInitialAvailable(t *testing.T) {
	tests := []struct {
		name          string
		config        Config
		wantAvailable int
	}{
		{"default", Config{Capacity: 10, InitialAvailable: -1}, 10},
		{"partial", Config{Capacity: 10, InitialAvailable: 5}, 5},
		{"clamped", Config{Capacity: 5, InitialAvailable: 10}, 5},
		{"none", Config{Capacity: 10, InitialAvailable: 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter, err := NewWithConfig(tt.config)
			testutil.AssertNoError(t, err)
			testutil.AssertEqual(t, limiter.Available(), tt.wantAvailable)
			testutil.AssertEqual(t, limiter.InUse(), tt.config.Capacity-tt.wantAvailable)
		})
	}
}

func TestAcquireRelease(t *testing.T) {
	limiter, err := New(2)
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, limiter.Acquire(), true)
	testutil.AssertEqual(t, limiter.Acquire(), true)
	testutil.AssertEqual(t, limiter.Acquire(), false)
	testutil.AssertEqual(t, limiter.InUse(), 2)

	limiter.Release()
	testutil.AssertEqual(t, limiter.Available(), 1)

	testutil.AssertEqual(t, limiter.AcquireN(2), false)
	testutil.AssertEqual(t, limiter.AcquireN(1), true)
	testutil.AssertEqual(t, limiter.AcquireN(0), true)

	limiter.ReleaseN(2)
	testutil.AssertEqual(t, limiter.Available(), 2)
}

func TestReleaseMoreThanAcquired(t *testing.T) {
	limiter, err := New(1)
	testutil.AssertNoError(t, err)

	defer func() {
		if recover() == nil {
			t.Error("expected panic when releasing unacquired permit")
		}
	}()
	limiter.Release()
}

func TestWaitCanceled(t *testing.T) {
	limiter, err := New(1)
	testutil.AssertNoError(t, err)
	limiter.Acquire()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err = limiter.Wait(ctx)
	testutil.AssertErrorIs(t, err, context.DeadlineExceeded)
	testutil.AssertEqual(t, limiter.InUse(), 1)

	limiter.Release()
	testutil.AssertEqual(t, limiter.Available(), 1)
}

func TestWaitUnblocksOnRelease(t *testing.T) {
	limiter, err := New(1)
	testutil.AssertNoError(t, err)
	limiter.Acquire()

	done := make(chan error, 1)
	go func() {
		done <- limiter.Wait(context.Background())
	}()

	time.Sleep(10 * time.Millisecond)
	limiter.Release()

	select {
	case err := <-done:
		testutil.AssertNoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("waiter was not released")
	}
	testutil.AssertEqual(t, limiter.InUse(), 1)
	limiter.Release()
}

func TestSetCapacity(t *testing.T) {
	limiter, err := New(2)
	testutil.AssertNoError(t, err)
	limiter.AcquireN(2)

	limiter.SetCapacity(4)
	testutil.AssertEqual(t, limiter.Available(), 2)

	limiter.SetCapacity(1)
	testutil.AssertEqual(t, limiter.Available(), 0)

	limiter.ReleaseN(2)
	testutil.AssertEqual(t, limiter.Available(), 1)
}

func TestDoBoundsConcurrency(t *testing.T) {
	const capacity = 3
	limiter, err := New(capacity)
	testutil.AssertNoError(t, err)

	var active, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := limiter.Do(context.Background(), func(ctx context.Context) error {
				n := atomic.AddInt32(&active, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				atomic.AddInt32(&active, -1)
				return nil
			})
			if err != nil {
				t.Errorf("Do: %v", err)
			}
		}()
	}
	wg.Wait()

	if peak > capacity {
		t.Errorf("peak concurrency %d exceeded capacity %d", peak, capacity)
	}
	testutil.AssertEqual(t, limiter.InUse(), 0)
}

func TestDoReturnsError(t *testing.T) {
	limiter, err := New(1)
	testutil.AssertNoError(t, err)

	boom := errors.New("boom")
	err = limiter.Do(context.Background(), func(context.Context) error { return boom })
	testutil.AssertErrorIs(t, err, boom)
	testutil.AssertEqual(t, limiter.Available(), 1)
}

func TestCanceledWaitersDoNotLeakPermits(t *testing.T) {
	limiter, err := New(1)
	testutil.AssertNoError(t, err)
	limiter.Acquire()

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := limiter.Wait(ctx); err == nil {
				limiter.Release()
			}
		}()
	}

	time.Sleep(10 * time.Millisecond)
	cancel()
	limiter.Release()
	wg.Wait()

	testutil.AssertEqual(t, limiter.InUse(), 0)
	testutil.AssertEqual(t, limiter.Available(), 1)
}

func TestMetrics(t *testing.T) {
	m, _ := metrics.NewIsolated()
	limiter, err := NewWithConfig(Config{Name: "records", Capacity: 2, InitialAvailable: -1, Metrics: m})
	testutil.AssertNoError(t, err)

	limiter.Acquire()
	testutil.AssertEqual(t, promtest.ToFloat64(m.ConcurrencyActive.WithLabelValues("records")), 1.0)

	limiter.Release()
	testutil.AssertEqual(t, promtest.ToFloat64(m.ConcurrencyActive.WithLabelValues("records")), 0.0)
	testutil.AssertEqual(t, promtest.ToFloat64(m.ConcurrencyWaiting.WithLabelValues("records")), 0.0)
}
