package exec

import (
	"math/rand"
)

// partitionRNG returns the seeded PRNG of one partition. Sampling decisions
// depend only on (seed, partition), never on evaluation order.
func partitionRNG(seed int64, p int) *rand.Rand {
	return rand.New(rand.NewSource(seed + int64(p)*2654435761))
}

// SamplePartitions filters a dataset by per-partition weights: weight 1
// keeps the whole partition, weight 0 drops it, anything in between keeps
// each row with that probability under the partition's seeded PRNG. The
// partition count is preserved; dropped partitions become empty.
func SamplePartitions[T any](d *Dataset[T], weights []float64, seed int64) *Dataset[T] {
	ws := append([]float64(nil), weights...)
	return Generate(d.NumPartitions(), func(p int) []T {
		w := 1.0
		if p < len(ws) {
			w = ws[p]
		}
		rows := d.Partition(p)
		switch {
		case w >= 1:
			return rows
		case w <= 0:
			return nil
		default:
			rng := partitionRNG(seed, p)
			out := make([]T, 0, int(float64(len(rows))*w)+1)
			for _, row := range rows {
				if rng.Float64() < w {
					out = append(out, row)
				}
			}
			return out
		}
	})
}

// InstanceMask draws one Bernoulli coin per row. counts gives the row count
// of each partition; the result has the same partitioning, true marking a
// retained row. fraction >= 1 returns all-true masks without consuming the
// PRNG, so the no-sampling path is bit-identical to not sampling at all.
func InstanceMask(counts []int, fraction float64, seed int64) *Dataset[bool] {
	return Generate(len(counts), func(p int) []bool {
		mask := make([]bool, counts[p])
		if fraction >= 1 {
			for i := range mask {
				mask[i] = true
			}
			return mask
		}
		rng := partitionRNG(seed, p)
		for i := range mask {
			mask[i] = rng.Float64() < fraction
		}
		return mask
	})
}

// BlockMask draws one Bernoulli coin per block of blockSize consecutive rows
// and repeats it across the block. Cheaper than InstanceMask (one coin per
// block) at the cost of granularity.
func BlockMask(counts []int, blockSize int, fraction float64, seed int64) *Dataset[bool] {
	if blockSize <= 1 {
		return InstanceMask(counts, fraction, seed)
	}
	return Generate(len(counts), func(p int) []bool {
		mask := make([]bool, counts[p])
		if fraction >= 1 {
			for i := range mask {
				mask[i] = true
			}
			return mask
		}
		rng := partitionRNG(seed, p)
		for begin := 0; begin < len(mask); begin += blockSize {
			keep := rng.Float64() < fraction
			end := begin + blockSize
			if end > len(mask) {
				end = len(mask)
			}
			for i := begin; i < end; i++ {
				mask[i] = keep
			}
		}
		return mask
	})
}
