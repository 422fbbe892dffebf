package gbm

import (
	"math"
	"testing"
)

// histFromBins builds a single-feature node histogram for split tests.
func histFromBins(feature int, bins []GradPair) *nodeHist {
	h := &nodeHist{Feats: map[int][]GradPair{feature: bins}}
	for _, p := range bins {
		h.Total = h.Total.Add(p)
	}
	return h
}

func finderWith(lambda, alpha, minHess float64) *splitFinder {
	conf := NewBoostConfig()
	conf.RegLambda = lambda
	conf.RegAlpha = alpha
	conf.MinNodeHess = minHess
	return newSplitFinder(conf)
}

// TestNumericSplitBasic tests that an obvious boundary is found
func TestNumericSplitBasic(t *testing.T) {
	// Bins 1-2 pull down, bins 3-4 pull up; the boundary sits at bin 2.
	bins := []GradPair{
		{},              // missing
		{Grad: -4, Hess: 4},
		{Grad: -4, Hess: 4},
		{Grad: 4, Hess: 4},
		{Grad: 4, Hess: 4},
	}
	finder := finderWith(0, 0, 0)
	split := finder.find(histFromBins(0, bins), []int{0})

	if !split.Valid {
		t.Fatal("expected a valid split")
	}
	if split.Kind != NumericThreshold || split.Threshold != 2 {
		t.Errorf("split at bin %d, want threshold 2", split.Threshold)
	}
	if split.Gain <= 0 {
		t.Errorf("gain = %g, want positive", split.Gain)
	}
	if split.LeftSum.Hess != 8 || split.RightSum.Hess != 8 {
		t.Errorf("child sums = %v / %v, want hess 8 each", split.LeftSum, split.RightSum)
	}
}

// TestGainLambdaMonotonic tests the invariant: with regAlpha=0, increasing
// regLambda monotonically decreases the best gain
func TestGainLambdaMonotonic(t *testing.T) {
	bins := []GradPair{
		{},
		{Grad: -10, Hess: 5},
		{Grad: -2, Hess: 5},
		{Grad: 3, Hess: 5},
		{Grad: 9, Hess: 5},
	}
	prev := math.Inf(1)
	for _, lambda := range []float64{0, 0.5, 1, 2, 4, 8} {
		finder := finderWith(lambda, 0, 0)
		split := finder.find(histFromBins(0, bins), []int{0})
		if !split.Valid {
			t.Fatalf("lambda %g: expected a valid split", lambda)
		}
		if split.Gain > prev {
			t.Errorf("gain increased from %g to %g when lambda rose to %g", prev, split.Gain, lambda)
		}
		prev = split.Gain
	}
}

// TestTieBreakLowerFeature tests deterministic feature preference on equal gain
func TestTieBreakLowerFeature(t *testing.T) {
	bins := []GradPair{
		{},
		{Grad: -6, Hess: 3},
		{Grad: 6, Hess: 3},
	}
	same := make([]GradPair, len(bins))
	copy(same, bins)

	h := &nodeHist{Feats: map[int][]GradPair{2: bins, 5: same}}
	for _, p := range bins {
		h.Total = h.Total.Add(p)
	}
	finder := finderWith(1, 0, 0)
	split := finder.find(h, []int{2, 5})
	if !split.Valid {
		t.Fatal("expected a valid split")
	}
	if split.Feature != 2 {
		t.Errorf("tie broke to feature %d, want lower feature 2", split.Feature)
	}
}

// TestMinNodeHessRejection tests the child mass constraint
func TestMinNodeHessRejection(t *testing.T) {
	bins := []GradPair{
		{},
		{Grad: -1, Hess: 0.5},
		{Grad: 1, Hess: 0.5},
	}
	finder := finderWith(0, 0, 1.0)
	split := finder.find(histFromBins(0, bins), []int{0})
	if split.Valid {
		t.Error("split should be rejected when a child's hessian is below minNodeHess")
	}
}

// TestMissingDirection tests that the missing bin lands on the profitable side
func TestMissingDirection(t *testing.T) {
	// Missing mass agrees with the right (positive gradient) side, so
	// routing it right must score higher.
	bins := []GradPair{
		{Grad: 5, Hess: 2}, // missing
		{Grad: -6, Hess: 3},
		{Grad: 6, Hess: 3},
	}
	finder := finderWith(0, 0, 0)
	split := finder.find(histFromBins(0, bins), []int{0})
	if !split.Valid {
		t.Fatal("expected a valid split")
	}
	if split.DefaultLeft {
		t.Error("missing mass should default to the right side here")
	}
}

// TestCategoricalBruteForce tests exact bipartition enumeration
func TestCategoricalBruteForce(t *testing.T) {
	// Categories 1 and 3 pull down, 2 and 4 pull up; the best bipartition
	// is not an interval, so only the exact enumeration finds it.
	bins := []GradPair{
		{},
		{Grad: -5, Hess: 2},
		{Grad: 5, Hess: 2},
		{Grad: -5, Hess: 2},
		{Grad: 5, Hess: 2},
	}
	conf := NewBoostConfig()
	conf.RegLambda = 0
	conf.CategoricalCols = []int{0}
	finder := newSplitFinder(conf)

	split := finder.find(histFromBins(0, bins), []int{0})
	if !split.Valid {
		t.Fatal("expected a valid split")
	}
	if split.Kind != CategoricalSet {
		t.Fatalf("split kind = %d, want categorical", split.Kind)
	}
	got := map[int]bool{}
	for _, c := range split.LeftCats {
		got[c] = true
	}
	sameSide := got[1] == got[3] && got[2] == got[4] && got[1] != got[2]
	if !sameSide {
		t.Errorf("left set %v does not separate {1,3} from {2,4}", split.LeftCats)
	}
}

// TestCategoricalSortedScan tests the g/h-ratio fallback above maxBruteBins
func TestCategoricalSortedScan(t *testing.T) {
	bins := make([]GradPair, 13)
	for b := 1; b < 13; b++ {
		g := float64(b) - 6.5
		bins[b] = GradPair{Grad: g, Hess: 1}
	}
	conf := NewBoostConfig()
	conf.RegLambda = 0
	conf.MaxBruteBins = 4
	conf.CategoricalCols = []int{0}
	finder := newSplitFinder(conf)

	split := finder.find(histFromBins(0, bins), []int{0})
	if !split.Valid {
		t.Fatal("expected a valid split")
	}
	if len(split.LeftCats) == 0 || len(split.LeftCats) == 12 {
		t.Errorf("degenerate left set %v", split.LeftCats)
	}
	// The ratio ordering is the value ordering here, so the left set must
	// be a prefix of the categories.
	maxLeft := 0
	for _, c := range split.LeftCats {
		if c > maxLeft {
			maxLeft = c
		}
	}
	if maxLeft != len(split.LeftCats) {
		t.Errorf("left set %v is not a ratio-order prefix", split.LeftCats)
	}
}

// TestDegenerateDemotedToLeaf tests that NaN and non-positive denominators
// never produce a split or a non-finite leaf
func TestDegenerateDemotedToLeaf(t *testing.T) {
	bins := []GradPair{
		{},
		{Grad: math.NaN(), Hess: 1},
		{Grad: 1, Hess: 1},
	}
	finder := finderWith(0, 0, 0)
	split := finder.find(histFromBins(0, bins), []int{0})
	if split.Valid && (math.IsNaN(split.Gain) || math.IsInf(split.Gain, 0)) {
		t.Error("degenerate split must be demoted, not surfaced")
	}

	if w := leafWeight(GradPair{Grad: 1, Hess: -2}, 0, 1); w != 0 {
		t.Errorf("leafWeight with non-positive denominator = %g, want 0", w)
	}
	if w := leafWeight(GradPair{Grad: math.Inf(1), Hess: 1}, 0, 0); w != 0 {
		t.Errorf("leafWeight with infinite gradient = %g, want 0", w)
	}
}

// TestLeafWeightSoftThreshold tests the L1 shrinkage of the leaf fit
func TestLeafWeightSoftThreshold(t *testing.T) {
	if w := leafWeight(GradPair{Grad: 5, Hess: 4}, 1, 1); math.Abs(w-(-0.8)) > 1e-12 {
		t.Errorf("leafWeight = %g, want -0.8", w)
	}
	if w := leafWeight(GradPair{Grad: 0.5, Hess: 4}, 1, 1); w != 0 {
		t.Errorf("gradient inside the alpha band should give a zero leaf, got %g", w)
	}
	if w := leafWeight(GradPair{Grad: -5, Hess: 4}, 1, 1); math.Abs(w-0.8) > 1e-12 {
		t.Errorf("leafWeight = %g, want 0.8", w)
	}
}
