package gbm

import (
	"sync"

	"github.com/YuminosukeSato/gobm/core/parallel"
	"github.com/YuminosukeSato/gobm/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Predict scores one raw feature row with the first firstN trees (all trees
// when firstN < 0) and returns the raw prediction vector. Missing and
// unseen feature values route through each node's default direction.
func (m *Model) Predict(row []float64, firstN int) ([]float64, error) {
	if err := m.check("Predict"); err != nil {
		return nil, err
	}
	bins, err := m.Disc.Transform(row)
	if err != nil {
		return nil, err
	}
	return m.predictBins(intSliceRow(bins), firstN), nil
}

func (m *Model) predictBins(bins intSliceRow, firstN int) []float64 {
	if firstN < 0 || firstN > len(m.Trees) {
		firstN = len(m.Trees)
	}
	raw := append([]float64(nil), m.BaseScore...)
	for i := 0; i < firstN; i++ {
		raw[m.Trees[i].ClassIndex] += m.Weights[i] * m.Trees[i].PredictBins(bins)
	}
	return raw
}

// PredictTransformed scores one row and applies the objective's link
// inverse.
func (m *Model) PredictTransformed(row []float64, firstN int) ([]float64, error) {
	raw, err := m.Predict(row, firstN)
	if err != nil {
		return nil, err
	}
	if m.Objective == nil {
		return raw, nil
	}
	return m.Objective.Transform(raw), nil
}

// PredictMatrix scores every row of X with the whole ensemble and returns
// the raw predictions as an n x rawSize dense matrix. Rows score in
// parallel across CPU cores.
func (m *Model) PredictMatrix(X mat.Matrix) (*mat.Dense, error) {
	if err := m.check("PredictMatrix"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if cols != m.NumFeatures {
		return nil, errors.NewDimensionError("Model.PredictMatrix", m.NumFeatures, cols, 1)
	}
	out := mat.NewDense(rows, m.RawSize, nil)
	var firstErr error
	var errOnce sync.Once
	parallel.Parallelize(rows, func(start, end int) {
		raw := make([]float64, cols)
		for i := start; i < end; i++ {
			mat.Row(raw, i, X)
			pred, err := m.Predict(raw, -1)
			if err != nil {
				errOnce.Do(func() { firstErr = err })
				return
			}
			out.SetRow(i, pred)
		}
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// Leaf returns the per-tree leaf assignment of one row. Without oneHot the
// result holds one leaf ordinal per tree. With oneHot the ordinals expand
// into a single indicator vector whose per-tree segments are offset by the
// cumulative leaf counts of the preceding trees.
func (m *Model) Leaf(row []float64, oneHot bool) ([]float64, error) {
	if err := m.check("Leaf"); err != nil {
		return nil, err
	}
	bins, err := m.Disc.Transform(row)
	if err != nil {
		return nil, err
	}
	view := intSliceRow(bins)

	if !oneHot {
		out := make([]float64, len(m.Trees))
		for i := range m.Trees {
			out[i] = float64(m.Trees[i].LeafIndex(view))
		}
		return out, nil
	}

	total := 0
	offsets := make([]int, len(m.Trees))
	for i := range m.Trees {
		offsets[i] = total
		total += m.Trees[i].NumLeaves()
	}
	out := make([]float64, total)
	for i := range m.Trees {
		out[offsets[i]+m.Trees[i].LeafIndex(view)] = 1
	}
	return out, nil
}
