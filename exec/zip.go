package exec

// Zip3Partitions combines three datasets with identical partitioning.
func Zip3Partitions[A, B, C, D any](a *Dataset[A], b *Dataset[B], c *Dataset[C], f func(p int, as []A, bs []B, cs []C) []D) *Dataset[D] {
	return Generate(a.numPartitions, func(p int) []D {
		return f(p, a.Partition(p), b.Partition(p), c.Partition(p))
	})
}
