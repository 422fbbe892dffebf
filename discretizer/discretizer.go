// Package discretizer converts raw feature rows into compact integer bin
// indices. Each column is summarized independently during a single
// partition-parallel pass whose partial summaries merge through a
// tree-reduce; the fitted summaries then transform rows deterministically.
//
// Bin index 0 is reserved for missing on every column kind: NaN always maps
// to 0, and an input zero maps to 0 when ZeroAsMissing is set. Numeric bin
// ordinals therefore start at 1.
package discretizer

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/gobm/binmat"
	"github.com/YuminosukeSato/gobm/exec"
	"github.com/YuminosukeSato/gobm/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ColumnKind identifies the summary type of one column.
type ColumnKind int

const (
	// NumericQuantile partitions a numeric column by approximate quantiles.
	NumericQuantile ColumnKind = iota
	// NumericWidth partitions a numeric column uniformly between min and max.
	NumericWidth
	// Categorical maps raw category values to dense codes.
	Categorical
	// Rank maps raw ordinal values to codes preserving their order.
	Rank
)

// String returns the persisted name of the column kind.
func (k ColumnKind) String() string {
	switch k {
	case NumericQuantile:
		return "quantile"
	case NumericWidth:
		return "width"
	case Categorical:
		return "categorical"
	default:
		return "rank"
	}
}

// ColumnSummary transforms one raw column value into a bin index.
type ColumnSummary interface {
	Kind() ColumnKind
	// NumBins returns the number of bin indices, including the missing
	// bin 0. Transform never returns an index >= NumBins.
	NumBins() int
	Transform(v float64) int
}

// QuantileColumn bins by strictly increasing thresholds t_1 < ... < t_{k-1};
// bin i covers [t_{i-1}, t_i).
type QuantileColumn struct {
	Thresholds []float64
}

func (c *QuantileColumn) Kind() ColumnKind { return NumericQuantile }
func (c *QuantileColumn) NumBins() int     { return len(c.Thresholds) + 2 }

func (c *QuantileColumn) Transform(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return 1 + sort.Search(len(c.Thresholds), func(i int) bool { return c.Thresholds[i] > v })
}

// WidthColumn bins uniformly between Min and Max with Bins non-missing bins.
type WidthColumn struct {
	Min   float64
	Max   float64
	Bins  int
	width float64
}

func (c *WidthColumn) Kind() ColumnKind { return NumericWidth }
func (c *WidthColumn) NumBins() int     { return c.Bins + 1 }

// BinWidth returns the uniform bin width.
func (c *WidthColumn) BinWidth() float64 {
	if c.width == 0 && c.Bins > 0 {
		c.width = (c.Max - c.Min) / float64(c.Bins)
	}
	return c.width
}

func (c *WidthColumn) Transform(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	if c.Bins == 1 || c.Max <= c.Min {
		return 1
	}
	ord := int(math.Floor((v - c.Min) / c.BinWidth()))
	if ord < 0 {
		ord = 0
	}
	if ord >= c.Bins {
		ord = c.Bins - 1
	}
	return 1 + ord
}

// CategoricalColumn maps raw category values to dense codes 1..k. Values seen
// at fit time but below the frequency cut share the catch-all code; values
// never seen map to the missing bin 0.
type CategoricalColumn struct {
	Codes    map[float64]int
	CatchAll int // 0 when every seen category got its own code
}

func (c *CategoricalColumn) Kind() ColumnKind { return Categorical }

func (c *CategoricalColumn) NumBins() int {
	// Codes map raw values, several of which may share the catch-all, so
	// the bin count is the largest dense code plus the missing bin.
	maxCode := 0
	for _, code := range c.Codes {
		if code > maxCode {
			maxCode = code
		}
	}
	return maxCode + 1
}

func (c *CategoricalColumn) Transform(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	if code, ok := c.Codes[v]; ok {
		return code
	}
	return 0
}

// RankColumn maps raw ordinal values to codes 1..k preserving their order.
type RankColumn struct {
	Codes map[float64]int
}

func (c *RankColumn) Kind() ColumnKind { return Rank }
func (c *RankColumn) NumBins() int     { return len(c.Codes) + 1 }

func (c *RankColumn) Transform(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	if code, ok := c.Codes[v]; ok {
		return code
	}
	return 0
}

// Config controls the fit pass.
type Config struct {
	// MaxBins bounds the non-missing bin count of quantile, width and
	// categorical columns. Rank columns are not capped: every distinct
	// non-missing value gets its own code.
	MaxBins int
	// NumericBinType selects NumericQuantile ("depth") or NumericWidth
	// ("width") summaries for numeric columns.
	NumericBinType ColumnKind
	// CategoricalCols and RankCols name the non-numeric column indices.
	// The two sets must be disjoint.
	CategoricalCols []int
	RankCols        []int
	// ZeroAsMissing encodes an input zero as the missing bin on every
	// column kind.
	ZeroAsMissing bool
	// AggregationDepth is the tree-reduce depth of the fit pass.
	AggregationDepth int
}

// Discretizer is an ordered sequence of fitted per-column summaries.
type Discretizer struct {
	Columns       []ColumnSummary
	ZeroAsMissing bool
}

// NumColumns returns the expected raw row width.
func (d *Discretizer) NumColumns() int { return len(d.Columns) }

// NumBins returns the per-column bin counts, missing bin included.
func (d *Discretizer) NumBins() []int {
	out := make([]int, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = c.NumBins()
	}
	return out
}

// Transform converts one raw row into bin indices.
func (d *Discretizer) Transform(row []float64) ([]int, error) {
	if len(row) != len(d.Columns) {
		return nil, errors.NewDimensionError("Discretizer.Transform", len(d.Columns), len(row), 1)
	}
	bins := make([]int, len(row))
	for i, v := range row {
		bins[i] = d.transformValue(i, v)
	}
	return bins, nil
}

func (d *Discretizer) transformValue(col int, v float64) int {
	if d.ZeroAsMissing && v == 0 {
		return 0
	}
	return d.Columns[col].Transform(v)
}

// TransformMatrix discretizes a gonum matrix into a packed bin matrix whose
// width is chosen from the fitted bin counts.
func (d *Discretizer) TransformMatrix(X mat.Matrix) (binmat.Matrix, error) {
	rows, cols := X.Dims()
	if cols != len(d.Columns) {
		return nil, errors.NewDimensionError("Discretizer.TransformMatrix", len(d.Columns), cols, 1)
	}
	m := binmat.NewMatrixForBins(cols, d.NumBins())
	raw := make([]float64, cols)
	bins := make([]int, cols)
	for i := 0; i < rows; i++ {
		mat.Row(raw, i, X)
		for j, v := range raw {
			bins[j] = d.transformValue(j, v)
		}
		if err := m.AppendRow(bins); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// columnAgg is the partial summary of one column during the fit pass.
type columnAgg struct {
	kind   ColumnKind
	sketch *quantileSketch
	min    float64
	max    float64
	seen   bool
	freq   map[float64]float64
}

func newColumnAgg(kind ColumnKind, maxBins int) *columnAgg {
	a := &columnAgg{kind: kind, min: math.Inf(1), max: math.Inf(-1)}
	switch kind {
	case NumericQuantile:
		a.sketch = newQuantileSketch(maxBins * 8)
	case NumericWidth:
	default:
		a.freq = make(map[float64]float64)
	}
	return a
}

func (a *columnAgg) update(v float64, zeroAsMissing bool) {
	if math.IsNaN(v) || (zeroAsMissing && v == 0) {
		return
	}
	switch a.kind {
	case NumericQuantile:
		a.sketch.Update(v)
	case NumericWidth:
		if v < a.min {
			a.min = v
		}
		if v > a.max {
			a.max = v
		}
		a.seen = true
	default:
		a.freq[v]++
	}
}

func (a *columnAgg) merge(b *columnAgg) *columnAgg {
	switch a.kind {
	case NumericQuantile:
		a.sketch.Merge(b.sketch)
	case NumericWidth:
		if b.min < a.min {
			a.min = b.min
		}
		if b.max > a.max {
			a.max = b.max
		}
		a.seen = a.seen || b.seen
	default:
		for v, n := range b.freq {
			a.freq[v] += n
		}
	}
	return a
}

func (a *columnAgg) summary(maxBins int) ColumnSummary {
	switch a.kind {
	case NumericQuantile:
		return &QuantileColumn{Thresholds: a.sketch.Thresholds(maxBins)}
	case NumericWidth:
		if !a.seen || a.max <= a.min {
			lo := a.min
			if !a.seen {
				lo = 0
			}
			return &WidthColumn{Min: lo, Max: lo, Bins: 1}
		}
		return &WidthColumn{Min: a.min, Max: a.max, Bins: maxBins}
	case Categorical:
		return a.categoricalSummary(maxBins)
	default:
		return a.rankSummary()
	}
}

// categoricalSummary keeps the top maxBins-1 categories by frequency and
// folds the remainder into a catch-all code. Frequency ties break on the
// raw value so the codes are deterministic.
func (a *columnAgg) categoricalSummary(maxBins int) ColumnSummary {
	type catFreq struct {
		value float64
		count float64
	}
	cats := make([]catFreq, 0, len(a.freq))
	for v, n := range a.freq {
		cats = append(cats, catFreq{value: v, count: n})
	}
	sort.Slice(cats, func(i, j int) bool {
		if cats[i].count != cats[j].count {
			return cats[i].count > cats[j].count
		}
		return cats[i].value < cats[j].value
	})

	keep := len(cats)
	catchAll := 0
	if keep > maxBins-1 {
		keep = maxBins - 1
		catchAll = keep + 1
	}
	codes := make(map[float64]int, len(cats))
	for i, c := range cats {
		if i < keep {
			codes[c.value] = i + 1
		} else {
			codes[c.value] = catchAll
		}
	}
	return &CategoricalColumn{Codes: codes, CatchAll: catchAll}
}

// rankSummary assigns codes 1..k in raw value order.
func (a *columnAgg) rankSummary() ColumnSummary {
	values := make([]float64, 0, len(a.freq))
	for v := range a.freq {
		values = append(values, v)
	}
	sort.Float64s(values)
	codes := make(map[float64]int, len(values))
	for i, v := range values {
		codes[v] = i + 1
	}
	return &RankColumn{Codes: codes}
}

// Fit summarizes every column of a partitioned dataset of raw rows in one
// pass. The per-partition partial summaries merge through a tree-reduce of
// the configured depth; the result is deterministic for a fixed partition
// layout and row order.
func Fit(rows *exec.Dataset[[]float64], numCols int, conf Config) (*Discretizer, error) {
	if conf.MaxBins < 2 {
		return nil, errors.NewConfigurationError("maxBins", "must be at least 2", conf.MaxBins)
	}
	kinds := make([]ColumnKind, numCols)
	for i := range kinds {
		kinds[i] = conf.NumericBinType
	}
	catSet := make(map[int]bool, len(conf.CategoricalCols))
	for _, c := range conf.CategoricalCols {
		if c < 0 || c >= numCols {
			return nil, errors.NewConfigurationError("categoricalCols", "column index out of range", c)
		}
		catSet[c] = true
		kinds[c] = Categorical
	}
	for _, c := range conf.RankCols {
		if c < 0 || c >= numCols {
			return nil, errors.NewConfigurationError("rankCols", "column index out of range", c)
		}
		if catSet[c] {
			return nil, errors.NewConfigurationError("rankCols", "column is also categorical", c)
		}
		kinds[c] = Rank
	}

	zero := func() []*columnAgg {
		aggs := make([]*columnAgg, numCols)
		for i := range aggs {
			aggs[i] = newColumnAgg(kinds[i], conf.MaxBins)
		}
		return aggs
	}
	seq := func(aggs []*columnAgg, row []float64) []*columnAgg {
		for i, v := range row {
			if i < numCols {
				aggs[i].update(v, conf.ZeroAsMissing)
			}
		}
		return aggs
	}
	comb := func(a, b []*columnAgg) []*columnAgg {
		for i := range a {
			a[i] = a[i].merge(b[i])
		}
		return a
	}

	depth := conf.AggregationDepth
	if depth < 1 {
		depth = 2
	}
	aggs := exec.TreeAggregate(rows, zero, seq, comb, depth)

	columns := make([]ColumnSummary, numCols)
	for i, a := range aggs {
		columns[i] = a.summary(conf.MaxBins)
	}
	return &Discretizer{Columns: columns, ZeroAsMissing: conf.ZeroAsMissing}, nil
}

// FitMatrix fits a discretizer over a gonum matrix split into numPartitions
// row slices.
func FitMatrix(X mat.Matrix, numPartitions int, conf Config) (*Discretizer, error) {
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "discretizer.FitMatrix")
	}
	if numPartitions < 1 {
		numPartitions = 1
	}
	if numPartitions > rows {
		numPartitions = rows
	}
	per := (rows + numPartitions - 1) / numPartitions
	ds := exec.Generate(numPartitions, func(p int) [][]float64 {
		begin := p * per
		end := begin + per
		if end > rows {
			end = rows
		}
		out := make([][]float64, 0, end-begin)
		for i := begin; i < end; i++ {
			out = append(out, mat.Row(nil, i, X))
		}
		return out
	})
	return Fit(ds, cols, conf)
}
