package parallel

import (
	"runtime"
	"sync"

	"github.com/YuminosukeSato/gobm/pkg/errors"
)

// Parallelize divides the specified total number (items) according to the number of CPU cores,
// and executes the specified function (fn) in parallel for each range (start, end).
//
// A panic inside a worker is recovered into a structured PanicError and
// re-raised on the calling goroutine after all workers finish, so callers can
// recover it instead of the process dying on an unrelated goroutine.
func Parallelize(items int, fn func(start, end int)) {
	if items == 0 {
		return
	}

	// Get the number of available CPU cores
	numWorkers := runtime.NumCPU()
	if numWorkers > items {
		numWorkers = items // No need for more workers than items
	}

	// Calculate the number of items each worker handles (ceiling division)
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	var panicOnce sync.Once
	var panicErr error

	// Start workers equal to the number of CPU cores
	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}

		// Skip if there's no range to handle
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			var err error
			func() {
				defer errors.Recover(&err, "parallel.Parallelize")
				fn(s, e)
			}()
			if err != nil {
				panicOnce.Do(func() { panicErr = err })
			}
		}(start, end)
	}

	// Wait for all workers to finish processing
	wg.Wait()

	if panicErr != nil {
		panic(panicErr)
	}
}

// ParallelizeWithThreshold performs parallelization only when the number of items exceeds the threshold
// If below threshold, normal sequential processing is performed
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		// Sequential processing when below threshold
		fn(0, items)
		return
	}

	// Parallel processing when above threshold
	Parallelize(items, fn)
}

// ParallelizeIndexed runs fn once per item index in parallel. Unlike
// Parallelize it does not chunk, so per-item work of very different sizes
// (e.g. partitions of a dataset) balances across cores.
//
// Worker panics are recovered and re-raised on the calling goroutine the
// same way as in Parallelize.
func ParallelizeIndexed(items int, fn func(i int)) {
	if items == 0 {
		return
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > items {
		numWorkers = items
	}

	next := make(chan int, items)
	for i := 0; i < items; i++ {
		next <- i
	}
	close(next)

	var wg sync.WaitGroup
	var panicOnce sync.Once
	var panicErr error
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				var err error
				func() {
					defer errors.Recover(&err, "parallel.ParallelizeIndexed")
					fn(i)
				}()
				if err != nil {
					panicOnce.Do(func() { panicErr = err })
					return
				}
			}
		}()
	}
	wg.Wait()

	if panicErr != nil {
		panic(panicErr)
	}
}
