package exec

import "sync"

// AllGather reshapes a dataset into n output partitions, each holding the
// full row stream in the canonical (sourcePartition, rowOrdinal) order. The
// gathered stream is materialized once and shared between the output
// partitions, which makes column-partitioned consumers see all gradients in
// a stable order regardless of evaluation timing.
func AllGather[T any](d *Dataset[T], n int) *Dataset[T] {
	if n <= 0 {
		n = d.NumPartitions()
	}

	var once sync.Once
	var gathered []T
	gather := func() []T {
		once.Do(func() {
			gathered = d.Collect()
		})
		return gathered
	}

	return Generate(n, func(int) []T {
		return gather()
	})
}
