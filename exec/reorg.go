package exec

// Reorganize defines a dataset whose partition i is the concatenation of the
// parent partitions named by groups[i], in the given order. This is a narrow
// dependency: no row moves between groups, so the parents' evaluation order
// is preserved. Used to fuse column-partitioned histogram computation.
func Reorganize[T any](d *Dataset[T], groups [][]int) *Dataset[T] {
	// Capture the group layout so later mutation of the caller's slice
	// cannot change the lineage.
	layout := make([][]int, len(groups))
	for i, g := range groups {
		layout[i] = append([]int(nil), g...)
	}
	return Generate(len(layout), func(p int) []T {
		var out []T
		for _, parent := range layout[p] {
			out = append(out, d.Partition(parent)...)
		}
		return out
	})
}

// Extend replicates parent partitions round-robin to reach n partitions
// without shuffling rows. Partition i of the result is parent partition
// i mod parent count. n below the parent count is clamped up.
func Extend[T any](d *Dataset[T], n int) *Dataset[T] {
	if n < d.NumPartitions() {
		n = d.NumPartitions()
	}
	parents := d.NumPartitions()
	return Generate(n, func(p int) []T {
		return d.Partition(p % parents)
	})
}
