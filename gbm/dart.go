package gbm

import (
	"math"
	"math/rand"
)

// dropoutStream is the tree-index offset of the driver-side dropout PRNG,
// keeping it disjoint from the per-tree column sampling streams.
const dropoutStream = 1 << 20

// dropout is the result of one DART dropout draw.
type dropout struct {
	// trees maps dropped global tree indices; nil when no dropout happened.
	trees map[int]bool
	// k is the number of dropped base models.
	k int
}

func (d dropout) happened() bool { return len(d.trees) > 0 }

// sampleDropout draws the dropped base-model set of one round. With
// probability dropSkip no dropout happens. Otherwise
// k = clamp(ceil(numBaseModels*dropRate), minDrop, maxDrop, numBaseModels)
// distinct base models are drawn uniformly without replacement and expanded
// by rawSize into per-tree indices. The draw depends only on (seed,
// iteration), so a continued run replays the stream of the equivalent
// single run.
func sampleDropout(conf *BoostConfig, iteration, numBaseModels, rawSize int) dropout {
	if conf.BoostType != Dart || numBaseModels == 0 {
		return dropout{}
	}
	rng := rand.New(rand.NewSource(seedFor(conf.Seed, iteration, dropoutStream)))
	if rng.Float64() < conf.DropSkip {
		return dropout{}
	}
	k := int(math.Ceil(float64(numBaseModels) * conf.DropRate))
	if k < conf.MinDrop {
		k = conf.MinDrop
	}
	if k > conf.MaxDrop {
		k = conf.MaxDrop
	}
	if k > numBaseModels {
		k = numBaseModels
	}
	if k <= 0 {
		return dropout{}
	}
	bases := rng.Perm(numBaseModels)[:k]
	trees := make(map[int]bool, k*rawSize)
	for _, b := range bases {
		for c := 0; c < rawSize; c++ {
			trees[b*rawSize+c] = true
		}
	}
	return dropout{trees: trees, k: k}
}

// dartWeights applies the DART weight rule after a round: every new tree
// gets 1/(k+stepSize) and every dropped tree's weight is rescaled by
// k/(k+stepSize). Without dropout new trees get weight 1.
func dartWeights(weights []float64, drop dropout, stepSize float64, numNew int) []float64 {
	if !drop.happened() {
		for i := 0; i < numNew; i++ {
			weights = append(weights, 1)
		}
		return weights
	}
	k := float64(drop.k)
	scale := k / (k + stepSize)
	for j := range weights {
		if drop.trees[j] {
			weights[j] *= scale
		}
	}
	for i := 0; i < numNew; i++ {
		weights = append(weights, 1/(k+stepSize))
	}
	return weights
}
