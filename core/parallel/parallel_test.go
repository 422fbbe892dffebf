package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/YuminosukeSato/gobm/pkg/errors"
)

// TestParallelizeCoversAllItems tests that every index is visited exactly once
func TestParallelizeCoversAllItems(t *testing.T) {
	const items = 1000
	visited := make([]int32, items)
	Parallelize(items, func(start, end int) {
		for i := start; i < end; i++ {
			atomic.AddInt32(&visited[i], 1)
		}
	})
	for i, n := range visited {
		if n != 1 {
			t.Fatalf("item %d visited %d times", i, n)
		}
	}
}

// TestParallelizeZeroItems tests the empty case
func TestParallelizeZeroItems(t *testing.T) {
	called := false
	Parallelize(0, func(start, end int) { called = true })
	if called {
		t.Error("worker called for zero items")
	}
}

// TestParallelizeWithThreshold tests the sequential fallback
func TestParallelizeWithThreshold(t *testing.T) {
	var ranges [][2]int
	ParallelizeWithThreshold(5, 10, func(start, end int) {
		ranges = append(ranges, [2]int{start, end})
	})
	if len(ranges) != 1 || ranges[0] != [2]int{0, 5} {
		t.Errorf("below threshold should run one sequential range, got %v", ranges)
	}
}

// TestParallelizeRecoversWorkerPanic tests that a panicking worker re-raises
// a structured error on the calling goroutine instead of killing the process
func TestParallelizeRecoversWorkerPanic(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("worker panic was not re-raised on the caller")
		}
		err, ok := r.(error)
		if !ok {
			t.Fatalf("re-raised value is %T, want error", r)
		}
		var panicErr *errors.PanicError
		if !errors.As(err, &panicErr) {
			t.Fatalf("expected PanicError, got %v", err)
		}
		if panicErr.Operation != "parallel.Parallelize" {
			t.Errorf("Operation = %s, want parallel.Parallelize", panicErr.Operation)
		}
	}()
	Parallelize(100, func(start, end int) {
		panic("worker blew up")
	})
}

// TestParallelizeIndexedRecoversWorkerPanic tests the per-item variant's recovery
func TestParallelizeIndexedRecoversWorkerPanic(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("worker panic was not re-raised on the caller")
		}
		err, ok := r.(error)
		if !ok {
			t.Fatalf("re-raised value is %T, want error", r)
		}
		var panicErr *errors.PanicError
		if !errors.As(err, &panicErr) {
			t.Fatalf("expected PanicError, got %v", err)
		}
	}()
	ParallelizeIndexed(16, func(i int) {
		if i == 7 {
			panic("indexed worker blew up")
		}
	})
}

// TestParallelizeIndexed tests the per-item variant
func TestParallelizeIndexed(t *testing.T) {
	const items = 64
	visited := make([]int32, items)
	ParallelizeIndexed(items, func(i int) {
		atomic.AddInt32(&visited[i], 1)
	})
	for i, n := range visited {
		if n != 1 {
			t.Fatalf("item %d visited %d times", i, n)
		}
	}
}
