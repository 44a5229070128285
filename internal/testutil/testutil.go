package testutil

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// TestTimeout is the default timeout for tests
const TestTimeout = 5 * time.Second

// WithTimeout creates a context with the default test timeout
func WithTimeout(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), TestTimeout)
}

// AssertNoError fails the test if err is not nil
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertErrorIs fails the test unless errors.Is(err, target)
func AssertErrorIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("got error %v, want %v in chain", err, target)
	}
}

// AssertEqual fails the test if got != want
func AssertEqual[T comparable](t *testing.T, got, want T) {
	t.Helper()
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

// Eventually polls cond every tick until it returns true or timeout elapses.
func Eventually(t *testing.T, cond func() bool, timeout, tick time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %v", timeout)
		}
		time.Sleep(tick)
	}
}

// AssertContiguous checks that, in the rendered output, all lines carrying
// each tag appear as one uninterrupted run of exactly want lines.
// A line belongs to a tag when it contains "[tag]".
func AssertContiguous(t *testing.T, output string, tags []string, want int) {
	t.Helper()
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")

	for _, tag := range tags {
		marker := "[" + tag + "]"
		first, last, count := -1, -1, 0
		for i, line := range lines {
			if !strings.Contains(line, marker) {
				continue
			}
			if first < 0 {
				first = i
			}
			last = i
			count++
		}
		if count != want {
			t.Fatalf("tag %s: got %d lines, want %d", tag, count, want)
		}
		if last-first+1 != count {
			t.Fatalf("tag %s: lines %d..%d are interleaved with other output", tag, first, last)
		}
	}
}
