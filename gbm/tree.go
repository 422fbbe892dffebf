package gbm

import (
	"github.com/YuminosukeSato/gobm/binmat"
)

// SplitKind distinguishes numeric-threshold and categorical-set splits.
type SplitKind int

const (
	// NumericThreshold routes bins <= Threshold to the left child.
	NumericThreshold SplitKind = iota
	// CategoricalSet routes bins contained in LeftCats to the left child.
	CategoricalSet
)

// Node is one tree node. Nodes live in a flat array in level order, so the
// node id is its index plus one (the root is id 1) and children are plain
// indices; no back-pointers are needed for training or prediction.
type Node struct {
	IsLeaf      bool
	Feature     int
	Kind        SplitKind
	Threshold   int
	LeftCats    []int
	DefaultLeft bool
	Gain        float64
	Left        int
	Right       int
	LeafValue   float64
}

// nodeID returns the level-order node id (root = 1) for the node at index i.
func nodeID(i int) int { return i + 1 }

// Tree is one regression tree of the ensemble. Each tree contributes to a
// single raw output dimension, ClassIndex.
type Tree struct {
	Nodes      []Node
	ClassIndex int
}

// IsEmpty reports whether the tree never committed a split. Empty trees
// terminate the boosting loop.
func (t *Tree) IsEmpty() bool {
	return len(t.Nodes) <= 1 && (len(t.Nodes) == 0 || t.Nodes[0].IsLeaf)
}

// NumLeaves returns the leaf count.
func (t *Tree) NumLeaves() int {
	n := 0
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf {
			n++
		}
	}
	return n
}

// route returns the child index for one bin value at an internal node.
func (n *Node) route(bin int) int {
	if bin == 0 {
		// Missing bin follows the default direction recorded at fit time.
		if n.DefaultLeft {
			return n.Left
		}
		return n.Right
	}
	switch n.Kind {
	case NumericThreshold:
		if bin <= n.Threshold {
			return n.Left
		}
		return n.Right
	default:
		for _, c := range n.LeftCats {
			if bin == c {
				return n.Left
			}
		}
		return n.Right
	}
}

// leafAt walks the tree for one discretized row and returns the leaf's node
// index.
func (t *Tree) leafAt(bins binmat.Row) int {
	i := 0
	for !t.Nodes[i].IsLeaf {
		i = t.Nodes[i].route(bins.At(t.Nodes[i].Feature))
	}
	return i
}

// PredictBins returns the raw contribution of the tree for one discretized
// row, before any ensemble weight is applied.
func (t *Tree) PredictBins(bins binmat.Row) float64 {
	if len(t.Nodes) == 0 {
		return 0
	}
	return t.Nodes[t.leafAt(bins)].LeafValue
}

// LeafIndex returns the ordinal of the leaf reached by the row, counting
// leaves in level order.
func (t *Tree) LeafIndex(bins binmat.Row) int {
	if len(t.Nodes) == 0 {
		return 0
	}
	target := t.leafAt(bins)
	ordinal := 0
	for i := 0; i < target; i++ {
		if t.Nodes[i].IsLeaf {
			ordinal++
		}
	}
	return ordinal
}

// intSliceRow adapts a plain bin slice to the binmat row view, for callers
// that discretized a single row outside a packed matrix.
type intSliceRow []int

func (r intSliceRow) At(col int) int { return r[col] }
func (r intSliceRow) Len() int       { return len(r) }
