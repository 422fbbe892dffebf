package gbm

import (
	"github.com/YuminosukeSato/gobm/binmat"
	"github.com/YuminosukeSato/gobm/exec"
)

// histRow is the per-row view consumed by histogram construction: the packed
// bins, the per-output gradient pair, and the current node index of the row
// in every tree of the round.
type histRow struct {
	Bins  binmat.Row
	Grad  []float64
	Hess  []float64
	Nodes []int32
}

// nodeKey identifies one (tree of the round, node index) aggregation target.
type nodeKey struct {
	Tree int
	Node int32
}

// nodeHist holds the per-feature bin sums and the node total. The invariant
// that every feature's bins sum to Total is what enables deriving a sibling
// histogram as parent minus child.
type nodeHist struct {
	Total GradPair
	Feats map[int][]GradPair
}

func newNodeHist(feats []int, numBins []int) *nodeHist {
	h := &nodeHist{Feats: make(map[int][]GradPair, len(feats))}
	for _, f := range feats {
		h.Feats[f] = make([]GradPair, numBins[f])
	}
	return h
}

// add accumulates one row into the histogram.
func (h *nodeHist) add(bins binmat.Row, g GradPair) {
	h.Total = h.Total.Add(g)
	for f, slot := range h.Feats {
		b := bins.At(f)
		slot[b] = slot[b].Add(g)
	}
}

// merge sums another histogram over the same feature set into this one.
func (h *nodeHist) merge(o *nodeHist) {
	h.Total = h.Total.Add(o.Total)
	for f, bins := range o.Feats {
		dst, ok := h.Feats[f]
		if !ok {
			h.Feats[f] = bins
			continue
		}
		for b := range bins {
			dst[b] = dst[b].Add(bins[b])
		}
	}
}

// sub derives the sibling histogram parent − child over the child's feature
// set.
func (h *nodeHist) sub(child *nodeHist) *nodeHist {
	out := &nodeHist{
		Total: h.Total.Sub(child.Total),
		Feats: make(map[int][]GradPair, len(child.Feats)),
	}
	for f, childBins := range child.Feats {
		parentBins := h.Feats[f]
		bins := make([]GradPair, len(childBins))
		for b := range childBins {
			bins[b] = parentBins[b].Sub(childBins[b])
		}
		out.Feats[f] = bins
	}
	return out
}

// histMap collects the histograms of one level.
type histMap map[nodeKey]*nodeHist

func (m histMap) mergeAll(o histMap) histMap {
	for k, h := range o {
		if dst, ok := m[k]; ok {
			dst.merge(h)
		} else {
			m[k] = h
		}
	}
	return m
}

// unionAll merges histograms whose feature sets are disjoint (the vertical
// path: each shard owns different columns of the same nodes). Totals are
// identical across shards and kept from the first occurrence.
func (m histMap) unionAll(o histMap) histMap {
	for k, h := range o {
		if dst, ok := m[k]; ok {
			for f, bins := range h.Feats {
				dst.Feats[f] = bins
			}
		} else {
			m[k] = h
		}
	}
	return m
}

// histSpec describes one level's aggregation targets.
type histSpec struct {
	targets map[nodeKey]bool
	// featsPerTree lists the selected feature indices of each tree of the
	// round, ascending.
	featsPerTree [][]int
	// classOf maps each tree of the round to its raw output index.
	classOf []int
	numBins []int
}

// buildHorizontal computes every target histogram with one pass per row
// partition followed by a tree-reduce of the partial maps.
func buildHorizontal(rows *exec.Dataset[histRow], spec histSpec, aggDepth int) histMap {
	zero := func() histMap { return histMap{} }
	seq := func(m histMap, row histRow) histMap {
		for t, node := range row.Nodes {
			key := nodeKey{Tree: t, Node: node}
			if !spec.targets[key] {
				continue
			}
			h, ok := m[key]
			if !ok {
				h = newNodeHist(spec.featsPerTree[t], spec.numBins)
				m[key] = h
			}
			c := spec.classOf[t]
			h.add(row.Bins, GradPair{Grad: row.Grad[c], Hess: row.Hess[c]})
		}
		return m
	}
	return exec.TreeAggregate(rows, zero, seq, histMap.mergeAll, aggDepth)
}

// buildVertical computes target histograms with column-partitioned shards:
// the selected features split into one group per shard, the gradient rows
// are allgathered so every shard sees the full stream in the canonical
// (sourcePartition, rowOrdinal) order, and each shard builds the complete
// histograms for the columns it owns. Row partitions are first fused into at
// most numShards partitions with a narrow reorganization so the gather has a
// bounded source count.
func buildVertical(rows *exec.Dataset[histRow], spec histSpec, aggDepth, numShards int) histMap {
	allFeats := map[int]bool{}
	for _, feats := range spec.featsPerTree {
		for _, f := range feats {
			allFeats[f] = true
		}
	}
	if numShards < 1 {
		numShards = 1
	}
	if numShards > len(allFeats) && len(allFeats) > 0 {
		numShards = len(allFeats)
	}
	groups := columnGroups(allFeats, numShards)

	// Fuse row partitions into at most numShards contiguous groups; keeping
	// the groups contiguous preserves the canonical (sourcePartition,
	// rowOrdinal) order through the gather.
	fused := rows
	if rows.NumPartitions() > numShards {
		layout := make([][]int, numShards)
		per := (rows.NumPartitions() + numShards - 1) / numShards
		for p := 0; p < rows.NumPartitions(); p++ {
			layout[p/per] = append(layout[p/per], p)
		}
		fused = exec.Reorganize(rows, layout)
	}

	// Every column shard consumes the full gathered gradient stream and
	// owns the histograms of its column group outright.
	gathered := exec.AllGather(fused, numShards)
	shards := exec.MapPartitions(gathered, func(g int, stream []histRow) []histMap {
		group := groups[g]
		if len(group) == 0 {
			return []histMap{{}}
		}
		groupSet := make(map[int]bool, len(group))
		for _, f := range group {
			groupSet[f] = true
		}
		m := histMap{}
		for _, row := range stream {
			for t, node := range row.Nodes {
				key := nodeKey{Tree: t, Node: node}
				if !spec.targets[key] {
					continue
				}
				h, ok := m[key]
				if !ok {
					h = newNodeHist(intersect(spec.featsPerTree[t], groupSet), spec.numBins)
					m[key] = h
				}
				c := spec.classOf[t]
				h.add(row.Bins, GradPair{Grad: row.Grad[c], Hess: row.Hess[c]})
			}
		}
		return []histMap{m}
	})

	return exec.TreeAggregate(shards,
		func() histMap { return histMap{} },
		func(m histMap, part histMap) histMap { return m.unionAll(part) },
		histMap.unionAll,
		aggDepth)
}

// columnGroups deals the selected features into contiguous shard groups.
func columnGroups(feats map[int]bool, numShards int) [][]int {
	sorted := make([]int, 0, len(feats))
	for f := range feats {
		sorted = append(sorted, f)
	}
	sortInts(sorted)
	groups := make([][]int, numShards)
	per := (len(sorted) + numShards - 1) / numShards
	for i, f := range sorted {
		g := i / per
		groups[g] = append(groups[g], f)
	}
	return groups
}

func intersect(feats []int, set map[int]bool) []int {
	out := make([]int, 0, len(feats))
	for _, f := range feats {
		if set[f] {
			out = append(out, f)
		}
	}
	return out
}

func sortInts(v []int) {
	for i := 1; i < len(v); i++ {
		for j := i; j > 0 && v[j] < v[j-1]; j-- {
			v[j], v[j-1] = v[j-1], v[j]
		}
	}
}
