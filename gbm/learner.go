package gbm

import (
	"math/rand"

	"github.com/YuminosukeSato/gobm/exec"
)

// gradRow is one row's gradient pair vector for the current iteration,
// already scaled by the instance weight and the subsampling mask.
type gradRow struct {
	Grad []float64
	Hess []float64
}

// treeBuilder accumulates one tree of the round during level-wise growth.
type treeBuilder struct {
	nodes     []Node
	leafCount int
	class     int
	treeFeats []int
	rng       *rand.Rand
	frontier  []int32
	// splits committed at the previous level, used for the sibling
	// subtraction bookkeeping.
	prevSplits []committedSplit
}

type committedSplit struct {
	parent int32
	left   int32
	right  int32
	// computeLeft marks which child gets a direct histogram pass; the
	// sibling derives as parent minus child.
	computeLeft bool
}

func (b *treeBuilder) active() bool { return len(b.frontier) > 0 }

// seedFor derives the deterministic stream seed of one (iteration, tree).
// Every per-iteration random decision reseeds from scratch so a continued
// training run replays the exact stream of the equivalent single run.
func seedFor(seed int64, iteration, tree int) int64 {
	return seed*2654435761 + int64(iteration)*1000003 + int64(tree)*7919
}

// sampleColumns retains each column with the given ratio, at least one. A
// ratio of one returns the input untouched without consuming the generator,
// keeping the no-sampling path bit-identical to not sampling.
func sampleColumns(cols []int, ratio float64, rng *rand.Rand) []int {
	if ratio >= 1 {
		return cols
	}
	n := int(float64(len(cols)) * ratio)
	if n < 1 {
		n = 1
	}
	perm := rng.Perm(len(cols))[:n]
	sortInts(perm)
	out := make([]int, n)
	for i, p := range perm {
		out[i] = cols[p]
	}
	return out
}

// buildRound grows baseModelParallelism x rawSize trees level-wise over one
// shared pass per level. Histograms of one child derive from the parent by
// subtraction whenever the level feature set is stable (no per-level column
// sampling); otherwise both children get direct passes on their fresh
// feature selection.
func buildRound(ts *TrainSet, grads *exec.Dataset[gradRow], conf *BoostConfig, iteration int, rec *exec.ResourceRecorder) []Tree {
	rawSize := conf.Objective.RawSize()
	numTrees := conf.BaseModelParallelism * rawSize

	allCols := make([]int, ts.NumCols())
	for i := range allCols {
		allCols[i] = i
	}

	builders := make([]*treeBuilder, numTrees)
	classOf := make([]int, numTrees)
	for t := 0; t < numTrees; t++ {
		classOf[t] = t % rawSize
		rng := rand.New(rand.NewSource(seedFor(conf.Seed, iteration, t)))
		builders[t] = &treeBuilder{
			nodes:     []Node{{IsLeaf: true, Left: -1, Right: -1}},
			leafCount: 1,
			class:     classOf[t],
			treeFeats: sampleColumns(allCols, conf.ColSampleByTree, rng),
			rng:       rng,
			frontier:  []int32{0},
		}
	}

	// Row-to-node assignment, one node index per (row, tree of the round).
	assign := exec.MapPartitions(ts.data, func(_ int, rows []Instance) [][]int32 {
		out := make([][]int32, len(rows))
		for i := range rows {
			out[i] = make([]int32, numTrees)
		}
		return out
	}).Persist()
	rec.Track(assign)

	subtraction := conf.ColSampleByLevel >= 1
	finder := newSplitFinder(conf)
	var prevHists histMap

	for depth := 0; depth < conf.MaxDepth; depth++ {
		anyActive := false
		for _, b := range builders {
			if b.active() {
				anyActive = true
			}
		}
		if !anyActive {
			break
		}

		// Per-level column selection and direct histogram targets.
		levelFeats := make([][]int, numTrees)
		targets := map[nodeKey]bool{}
		type derived struct {
			tree    int
			parent  int32
			child   int32
			sibling int32
		}
		var deferred []derived
		for t, b := range builders {
			if !b.active() {
				levelFeats[t] = nil
				continue
			}
			levelFeats[t] = sampleColumns(b.treeFeats, conf.ColSampleByLevel, b.rng)
			if depth == 0 {
				targets[nodeKey{Tree: t, Node: 0}] = true
				continue
			}
			for _, sp := range b.prevSplits {
				if subtraction {
					direct, sibling := sp.left, sp.right
					if !sp.computeLeft {
						direct, sibling = sp.right, sp.left
					}
					targets[nodeKey{Tree: t, Node: direct}] = true
					deferred = append(deferred, derived{tree: t, parent: sp.parent, child: direct, sibling: sibling})
				} else {
					targets[nodeKey{Tree: t, Node: sp.left}] = true
					targets[nodeKey{Tree: t, Node: sp.right}] = true
				}
			}
		}

		histRows := exec.Zip3Partitions(ts.data, grads, assign,
			func(_ int, rows []Instance, gs []gradRow, ns [][]int32) []histRow {
				out := make([]histRow, len(rows))
				for i := range rows {
					out[i] = histRow{
						Bins:  rows[i].Bins,
						Grad:  gs[i].Grad,
						Hess:  gs[i].Hess,
						Nodes: ns[i],
					}
				}
				return out
			})

		spec := histSpec{
			targets:      targets,
			featsPerTree: levelFeats,
			classOf:      classOf,
			numBins:      ts.numBins,
		}
		var hists histMap
		if conf.VerticalHistogram {
			hists = buildVertical(histRows, spec, conf.AggregationDepth, conf.NumPartitions)
		} else {
			hists = buildHorizontal(histRows, spec, conf.AggregationDepth)
		}
		for _, d := range deferred {
			parent := prevHists[nodeKey{Tree: d.tree, Node: d.parent}]
			child := hists[nodeKey{Tree: d.tree, Node: d.child}]
			if parent == nil {
				continue
			}
			if child == nil {
				child = newNodeHist(levelFeats[d.tree], ts.numBins)
				hists[nodeKey{Tree: d.tree, Node: d.child}] = child
			}
			hists[nodeKey{Tree: d.tree, Node: d.sibling}] = parent.sub(child)
		}

		// Split search and commit, per tree, frontier nodes ascending.
		for t, b := range builders {
			if !b.active() {
				continue
			}
			var splits []committedSplit
			var nextFrontier []int32
			for _, n := range b.frontier {
				h := hists[nodeKey{Tree: t, Node: n}]
				if h == nil {
					continue
				}
				b.nodes[n].LeafValue = leafWeight(h.Total, conf.RegAlpha, conf.RegLambda)

				// Nothing reached this node; it stays a leaf.
				if h.Total.Hess == 0 && h.Total.Grad == 0 {
					continue
				}
				if b.leafCount+1 > conf.MaxLeaves {
					continue
				}
				split := finder.find(h, levelFeats[t])
				if !split.Valid {
					continue
				}

				left := int32(len(b.nodes))
				right := left + 1
				b.nodes[n] = Node{
					Feature:     split.Feature,
					Kind:        split.Kind,
					Threshold:   split.Threshold,
					LeftCats:    split.LeftCats,
					DefaultLeft: split.DefaultLeft,
					Gain:        split.Gain,
					Left:        int(left),
					Right:       int(right),
				}
				b.nodes = append(b.nodes,
					Node{IsLeaf: true, Left: -1, Right: -1,
						LeafValue: leafWeight(split.LeftSum, conf.RegAlpha, conf.RegLambda)},
					Node{IsLeaf: true, Left: -1, Right: -1,
						LeafValue: leafWeight(split.RightSum, conf.RegAlpha, conf.RegLambda)})
				b.leafCount++
				splits = append(splits, committedSplit{
					parent:      n,
					left:        left,
					right:       right,
					computeLeft: split.LeftSum.Hess <= split.RightSum.Hess,
				})
				nextFrontier = append(nextFrontier, left, right)
			}
			b.prevSplits = splits
			b.frontier = nextFrontier
		}

		// Route rows through the freshly committed splits.
		routing := make([]map[int32]Node, numTrees)
		anySplit := false
		for t, b := range builders {
			m := make(map[int32]Node, len(b.prevSplits))
			for _, sp := range b.prevSplits {
				m[sp.parent] = b.nodes[sp.parent]
			}
			routing[t] = m
			if len(m) > 0 {
				anySplit = true
			}
		}
		if !anySplit {
			break
		}
		newAssign := exec.ZipPartitions(ts.data, assign,
			func(_ int, rows []Instance, ns [][]int32) [][]int32 {
				out := make([][]int32, len(rows))
				for i := range rows {
					cur := ns[i]
					next := make([]int32, numTrees)
					for t := range next {
						n := cur[t]
						if node, ok := routing[t][n]; ok {
							next[t] = int32(node.route(rows[i].Bins.At(node.Feature)))
						} else {
							next[t] = n
						}
					}
					out[i] = next
				}
				return out
			}).Persist()
		rec.Track(newAssign)
		assign = newAssign
		prevHists = hists
	}

	trees := make([]Tree, numTrees)
	for t, b := range builders {
		trees[t] = Tree{Nodes: b.nodes, ClassIndex: b.class}
	}
	return trees
}
