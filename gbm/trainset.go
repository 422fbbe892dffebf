package gbm

import (
	"github.com/YuminosukeSato/gobm/binmat"
	"github.com/YuminosukeSato/gobm/discretizer"
	"github.com/YuminosukeSato/gobm/exec"
	"github.com/YuminosukeSato/gobm/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Instance is one immutable training row after discretization: a weight, a
// label vector, and a packed view of its bin indices.
type Instance struct {
	Weight float64
	Label  []float64
	Bins   binmat.Row
}

// TrainSet is a partitioned, discretized dataset. Instances are immutable
// after construction; the per-partition bin matrices stay packed at the
// width chosen by the discretizer.
type TrainSet struct {
	data       *exec.Dataset[Instance]
	disc       *discretizer.Discretizer
	numRows    int
	numCols    int
	numBins    []int
	rowCounts  []int
	labelWidth int
}

// NewTrainSet fits a discretizer over X according to the config and builds
// the partitioned bin dataset. y may have one column (scalar label or class
// index) or several (multi-output).
func NewTrainSet(X, y mat.Matrix, weights []float64, conf *BoostConfig) (*TrainSet, error) {
	_, cols := X.Dims()
	disc, err := discretizer.FitMatrix(X, conf.NumPartitions, discretizer.Config{
		MaxBins:          conf.MaxBins,
		NumericBinType:   conf.numericKind(),
		CategoricalCols:  conf.CategoricalCols,
		RankCols:         conf.RankCols,
		ZeroAsMissing:    conf.ZeroAsMissing,
		AggregationDepth: conf.AggregationDepth,
	})
	if err != nil {
		return nil, errors.Wrap(err, "gbm: discretizer fit failed")
	}
	if disc.NumColumns() != cols {
		return nil, errors.NewDimensionError("gbm.NewTrainSet", cols, disc.NumColumns(), 1)
	}
	return NewTrainSetWithDiscretizer(X, y, weights, disc, conf.NumPartitions)
}

// NewTrainSetWithDiscretizer builds a partitioned dataset against an
// already-fitted discretizer. Used for evaluation sets and model
// continuation, which must share the training discretization.
func NewTrainSetWithDiscretizer(X, y mat.Matrix, weights []float64, disc *discretizer.Discretizer, numPartitions int) (*TrainSet, error) {
	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if rows == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "gbm.NewTrainSet")
	}
	if yRows != rows {
		return nil, errors.NewDimensionError("gbm.NewTrainSet", rows, yRows, 0)
	}
	if cols != disc.NumColumns() {
		return nil, errors.NewDimensionError("gbm.NewTrainSet", disc.NumColumns(), cols, 1)
	}
	if weights != nil && len(weights) != rows {
		return nil, errors.NewDimensionError("gbm.NewTrainSet", rows, len(weights), 0)
	}
	for i := range weights {
		if err := errors.CheckScalar("instance_weight", weights[i], 0); err != nil {
			return nil, err
		}
		if weights[i] < 0 {
			return nil, errors.NewValueError("gbm.NewTrainSet", "instance weights must be non-negative")
		}
	}

	if numPartitions < 1 {
		numPartitions = 1
	}
	if numPartitions > rows {
		numPartitions = rows
	}
	per := (rows + numPartitions - 1) / numPartitions

	numBins := disc.NumBins()
	parts := make([][]Instance, numPartitions)
	rowCounts := make([]int, numPartitions)
	for p := 0; p < numPartitions; p++ {
		begin := p * per
		end := begin + per
		if end > rows {
			end = rows
		}
		m := binmat.NewMatrixForBins(cols, numBins)
		instances := make([]Instance, 0, end-begin)
		raw := make([]float64, cols)
		for i := begin; i < end; i++ {
			mat.Row(raw, i, X)
			bins, err := disc.Transform(raw)
			if err != nil {
				return nil, err
			}
			if err := m.AppendRow(bins); err != nil {
				return nil, err
			}
			w := 1.0
			if weights != nil {
				w = weights[i]
			}
			label := make([]float64, yCols)
			for j := 0; j < yCols; j++ {
				label[j] = y.At(i, j)
			}
			if err := errors.CheckNumericalStability("label", label, 0); err != nil {
				return nil, err
			}
			instances = append(instances, Instance{
				Weight: w,
				Label:  label,
				Bins:   m.Row(i - begin),
			})
		}
		parts[p] = instances
		rowCounts[p] = len(instances)
	}

	return &TrainSet{
		data:       exec.FromPartitions(parts),
		disc:       disc,
		numRows:    rows,
		numCols:    cols,
		numBins:    numBins,
		rowCounts:  rowCounts,
		labelWidth: yCols,
	}, nil
}

// Data returns the partitioned instance dataset.
func (ts *TrainSet) Data() *exec.Dataset[Instance] { return ts.data }

// Discretizer returns the bound discretizer.
func (ts *TrainSet) Discretizer() *discretizer.Discretizer { return ts.disc }

// NumRows returns the total row count.
func (ts *TrainSet) NumRows() int { return ts.numRows }

// NumCols returns the feature count.
func (ts *TrainSet) NumCols() int { return ts.numCols }

// NumBins returns the per-column bin counts.
func (ts *TrainSet) NumBins() []int { return ts.numBins }

// RowCounts returns the per-partition row counts.
func (ts *TrainSet) RowCounts() []int { return append([]int(nil), ts.rowCounts...) }

// meanLabel returns the weighted mean of the label vector, used for the
// automatic base score.
func (ts *TrainSet) meanLabel(aggDepth int) []float64 {
	type acc struct {
		sum    []float64
		weight float64
	}
	res := exec.TreeAggregate(ts.data,
		func() acc { return acc{sum: make([]float64, ts.labelWidth)} },
		func(a acc, row Instance) acc {
			for j, v := range row.Label {
				a.sum[j] += row.Weight * v
			}
			a.weight += row.Weight
			return a
		},
		func(a, b acc) acc {
			for j := range a.sum {
				a.sum[j] += b.sum[j]
			}
			a.weight += b.weight
			return a
		},
		aggDepth)
	out := make([]float64, ts.labelWidth)
	if res.weight > 0 {
		for j := range out {
			out[j] = res.sum[j] / res.weight
		}
	}
	return out
}
