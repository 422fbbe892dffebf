package gbm

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/gobm/pkg/errors"
)

// SplitInfo describes the best candidate split of one node.
type SplitInfo struct {
	Feature     int
	Kind        SplitKind
	Threshold   int
	LeftCats    []int
	DefaultLeft bool
	Gain        float64
	LeftSum     GradPair
	RightSum    GradPair
	Valid       bool
}

// soft applies L1 shrinkage: sign(g) * max(0, |g| - alpha).
func soft(g, alpha float64) float64 {
	if g > alpha {
		return g - alpha
	}
	if g < -alpha {
		return g + alpha
	}
	return 0
}

// nodeScore is S(g, h) = soft(g, alpha)^2 / (h + lambda). Degenerate sums
// score zero so they can never win a split.
func nodeScore(p GradPair, alpha, lambda float64) float64 {
	if errors.IsDegenerate(p.Grad, p.Hess, lambda) {
		return 0
	}
	s := soft(p.Grad, alpha)
	return s * s / (p.Hess + lambda)
}

// leafWeight is the regularized optimum -soft(g, alpha) / (h + lambda).
// Degenerate sums yield a zero leaf.
func leafWeight(p GradPair, alpha, lambda float64) float64 {
	if errors.IsDegenerate(p.Grad, p.Hess, lambda) {
		return 0
	}
	w := -soft(p.Grad, alpha) / (p.Hess + lambda)
	if math.IsNaN(w) || math.IsInf(w, 0) {
		return 0
	}
	return w
}

// splitFinder evaluates candidate splits for one node histogram. Candidates
// are scanned features-ascending, positions-ascending, missing-left before
// missing-right, and only a strictly larger gain replaces the incumbent, so
// the tie-break (higher gain, then lower feature, then lower position) falls
// out of the scan order.
type splitFinder struct {
	alpha        float64
	lambda       float64
	minGain      float64
	minNodeHess  float64
	maxBruteBins int
	catCols      map[int]bool
}

func newSplitFinder(conf *BoostConfig) *splitFinder {
	catCols := make(map[int]bool, len(conf.CategoricalCols))
	for _, c := range conf.CategoricalCols {
		catCols[c] = true
	}
	return &splitFinder{
		alpha:        conf.RegAlpha,
		lambda:       conf.RegLambda,
		minGain:      conf.MinGain,
		minNodeHess:  conf.MinNodeHess,
		maxBruteBins: conf.MaxBruteBins,
		catCols:      catCols,
	}
}

// find returns the best split of the node over the given features, or an
// invalid SplitInfo when no candidate clears the constraints.
func (s *splitFinder) find(h *nodeHist, feats []int) SplitInfo {
	best := SplitInfo{Gain: math.Inf(-1)}
	baseScore := nodeScore(h.Total, s.alpha, s.lambda)
	for _, f := range feats {
		bins, ok := h.Feats[f]
		if !ok {
			continue
		}
		if s.catCols[f] {
			s.findCategorical(&best, f, bins, h.Total, baseScore)
		} else {
			s.findNumeric(&best, f, bins, h.Total, baseScore)
		}
	}
	return best
}

// consider evaluates one candidate partition of the non-missing mass with
// the missing bin tried on both sides.
func (s *splitFinder) consider(best *SplitInfo, cand SplitInfo, left GradPair, total GradPair, missing GradPair, baseScore float64) {
	// Missing on the left, then on the right; the first strictly better
	// candidate wins so the left direction is preferred on exact ties.
	for _, defaultLeft := range []bool{true, false} {
		l := left
		if defaultLeft {
			l = l.Add(missing)
		}
		r := total.Sub(l)
		if l.Hess < s.minNodeHess || r.Hess < s.minNodeHess {
			continue
		}
		// Numerically degenerate children demote the candidate to
		// "no split" rather than surfacing an error.
		if errors.IsDegenerate(l.Grad, l.Hess, s.lambda) || errors.IsDegenerate(r.Grad, r.Hess, s.lambda) {
			continue
		}
		gain := 0.5 * (nodeScore(l, s.alpha, s.lambda) + nodeScore(r, s.alpha, s.lambda) - baseScore)
		if math.IsNaN(gain) || math.IsInf(gain, 0) {
			continue
		}
		if gain < s.minGain || gain <= best.Gain {
			continue
		}
		out := cand
		out.DefaultLeft = defaultLeft
		out.Gain = gain
		out.LeftSum = l
		out.RightSum = r
		out.Valid = true
		*best = out
	}
}

// findNumeric scans bin positions left to right with a running prefix.
func (s *splitFinder) findNumeric(best *SplitInfo, f int, bins []GradPair, total GradPair, baseScore float64) {
	missing := bins[0]
	var prefix GradPair
	for pos := 1; pos < len(bins)-1; pos++ {
		prefix = prefix.Add(bins[pos])
		s.consider(best, SplitInfo{
			Feature:   f,
			Kind:      NumericThreshold,
			Threshold: pos,
		}, prefix, total, missing, baseScore)
	}
}

// findCategorical enumerates bipartitions outright for few populated bins
// and falls back to a scan over the g/h-sorted bin order otherwise.
func (s *splitFinder) findCategorical(best *SplitInfo, f int, bins []GradPair, total GradPair, baseScore float64) {
	missing := bins[0]
	populated := make([]int, 0, len(bins)-1)
	for b := 1; b < len(bins); b++ {
		if bins[b].Grad != 0 || bins[b].Hess != 0 {
			populated = append(populated, b)
		}
	}
	if len(populated) < 2 {
		return
	}

	if len(populated) <= s.maxBruteBins {
		// Fix the last category to the right side; masks then cover every
		// non-trivial bipartition exactly once.
		k := len(populated)
		for mask := 1; mask < 1<<(k-1); mask++ {
			var left GradPair
			cats := make([]int, 0, k-1)
			for i := 0; i < k-1; i++ {
				if mask&(1<<i) != 0 {
					left = left.Add(bins[populated[i]])
					cats = append(cats, populated[i])
				}
			}
			s.consider(best, SplitInfo{
				Feature:  f,
				Kind:     CategoricalSet,
				LeftCats: cats,
			}, left, total, missing, baseScore)
		}
		return
	}

	// Many categories: order bins by their g/h ratio (a one-dimensional
	// embedding of the category effect) and scan like a numeric feature.
	order := append([]int(nil), populated...)
	sort.SliceStable(order, func(i, j int) bool {
		ri := ratio(bins[order[i]])
		rj := ratio(bins[order[j]])
		if ri != rj {
			return ri < rj
		}
		return order[i] < order[j]
	})
	var prefix GradPair
	for pos := 0; pos < len(order)-1; pos++ {
		prefix = prefix.Add(bins[order[pos]])
		cats := append([]int(nil), order[:pos+1]...)
		sortInts(cats)
		s.consider(best, SplitInfo{
			Feature:  f,
			Kind:     CategoricalSet,
			LeftCats: cats,
		}, prefix, total, missing, baseScore)
	}
}

func ratio(p GradPair) float64 {
	if p.Hess == 0 {
		return math.Inf(1)
	}
	return p.Grad / p.Hess
}
