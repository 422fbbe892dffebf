package discretizer

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func fitMatrix(t *testing.T, X mat.Matrix, conf Config) *Discretizer {
	t.Helper()
	_, cols := X.Dims()
	_ = cols
	d, err := FitMatrix(X, 3, conf)
	if err != nil {
		t.Fatalf("FitMatrix failed: %v", err)
	}
	return d
}

// TestQuantileTransformBounds tests the core invariant: every transformed
// index stays inside [0, numBins)
func TestQuantileTransformBounds(t *testing.T) {
	X := mat.NewDense(200, 2, nil)
	for i := 0; i < 200; i++ {
		X.Set(i, 0, float64(i%17)*0.3)
		X.Set(i, 1, float64(i)*float64(i)/50)
	}
	d := fitMatrix(t, X, Config{MaxBins: 8, NumericBinType: NumericQuantile})

	numBins := d.NumBins()
	probe := []float64{-1e9, -1, 0, 0.5, 3, 100, 1e9, math.NaN()}
	for _, v := range probe {
		bins, err := d.Transform([]float64{v, v})
		if err != nil {
			t.Fatalf("Transform failed: %v", err)
		}
		for c, b := range bins {
			if b < 0 || b >= numBins[c] {
				t.Errorf("Transform(%g) column %d = %d, outside [0, %d)", v, c, b, numBins[c])
			}
		}
	}

	// NaN is the missing bin.
	bins, _ := d.Transform([]float64{math.NaN(), 1})
	if bins[0] != 0 {
		t.Errorf("NaN mapped to bin %d, want 0", bins[0])
	}
}

// TestQuantileOrderPreserving tests that larger values never land in lower bins
func TestQuantileOrderPreserving(t *testing.T) {
	X := mat.NewDense(100, 1, nil)
	for i := 0; i < 100; i++ {
		X.Set(i, 0, float64(i))
	}
	d := fitMatrix(t, X, Config{MaxBins: 10, NumericBinType: NumericQuantile})

	prev := 0
	for v := 0.0; v <= 99; v++ {
		bins, _ := d.Transform([]float64{v})
		if bins[0] < prev {
			t.Fatalf("bin order violated at value %g: %d < %d", v, bins[0], prev)
		}
		prev = bins[0]
	}
	if prev < 2 {
		t.Errorf("expected multiple quantile bins, last value landed in bin %d", prev)
	}
}

// TestWidthColumn tests uniform binning
func TestWidthColumn(t *testing.T) {
	X := mat.NewDense(100, 1, nil)
	for i := 0; i < 100; i++ {
		X.Set(i, 0, float64(i)) // range [0, 99]
	}
	d := fitMatrix(t, X, Config{MaxBins: 10, NumericBinType: NumericWidth})

	col, ok := d.Columns[0].(*WidthColumn)
	if !ok {
		t.Fatalf("expected WidthColumn, got %T", d.Columns[0])
	}
	if col.Min != 0 || col.Max != 99 || col.Bins != 10 {
		t.Errorf("width summary = [%g, %g] x %d, want [0, 99] x 10", col.Min, col.Max, col.Bins)
	}

	bins, _ := d.Transform([]float64{0})
	if bins[0] != 1 {
		t.Errorf("min value bin = %d, want 1", bins[0])
	}
	bins, _ = d.Transform([]float64{99})
	if bins[0] != 10 {
		t.Errorf("max value bin = %d, want 10", bins[0])
	}
	bins, _ = d.Transform([]float64{-5})
	if bins[0] != 1 {
		t.Errorf("below-range value bin = %d, want clamp to 1", bins[0])
	}
}

// TestCategoricalTopK tests frequency cut and missing code
func TestCategoricalTopK(t *testing.T) {
	// Category v appears 10-v times for v in 0..5: frequent categories get
	// low dense codes, the rare ones share the catch-all.
	var rows []float64
	for v := 0; v < 6; v++ {
		for n := 0; n < 10-v; n++ {
			rows = append(rows, float64(v))
		}
	}
	X := mat.NewDense(len(rows), 1, rows)
	d := fitMatrix(t, X, Config{MaxBins: 4, CategoricalCols: []int{0}})

	col, ok := d.Columns[0].(*CategoricalColumn)
	if !ok {
		t.Fatalf("expected CategoricalColumn, got %T", d.Columns[0])
	}
	if col.CatchAll == 0 {
		t.Fatal("expected a catch-all bucket with 6 categories and maxBins 4")
	}
	if col.NumBins() > 5 {
		t.Errorf("NumBins() = %d, want at most maxBins+1", col.NumBins())
	}

	// Most frequent category gets code 1.
	bins, _ := d.Transform([]float64{0})
	if bins[0] != 1 {
		t.Errorf("most frequent category code = %d, want 1", bins[0])
	}
	// Rare categories fold into the catch-all code.
	bins, _ = d.Transform([]float64{5})
	if bins[0] != col.CatchAll {
		t.Errorf("rare category code = %d, want catch-all %d", bins[0], col.CatchAll)
	}
	// Unseen raw values are missing.
	bins, _ = d.Transform([]float64{42})
	if bins[0] != 0 {
		t.Errorf("unseen category code = %d, want 0", bins[0])
	}
}

// TestRankColumn tests ordinal-preserving codes
func TestRankColumn(t *testing.T) {
	values := []float64{30, 10, 20, 10, 30, 20, 10}
	X := mat.NewDense(len(values), 1, values)
	d := fitMatrix(t, X, Config{MaxBins: 8, RankCols: []int{0}})

	for i, v := range []float64{10, 20, 30} {
		bins, _ := d.Transform([]float64{v})
		if bins[0] != i+1 {
			t.Errorf("rank code of %g = %d, want %d", v, bins[0], i+1)
		}
	}
}

// TestZeroAsMissing tests the sparsity flag across column kinds
func TestZeroAsMissing(t *testing.T) {
	X := mat.NewDense(10, 2, nil)
	for i := 0; i < 10; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64(i%3))
	}
	d := fitMatrix(t, X, Config{
		MaxBins:         8,
		NumericBinType:  NumericQuantile,
		CategoricalCols: []int{1},
		ZeroAsMissing:   true,
	})

	bins, _ := d.Transform([]float64{0, 0})
	if bins[0] != 0 || bins[1] != 0 {
		t.Errorf("zero should encode as missing, got %v", bins)
	}
	bins, _ = d.Transform([]float64{1, 1})
	if bins[0] == 0 || bins[1] == 0 {
		t.Errorf("non-zero values must not be missing, got %v", bins)
	}
}

// TestDisjointColumnSets tests the categorical/rank overlap rejection
func TestDisjointColumnSets(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 1, 2})
	_, err := FitMatrix(X, 1, Config{MaxBins: 4, CategoricalCols: []int{0}, RankCols: []int{0}})
	if err == nil {
		t.Fatal("expected configuration error for overlapping categorical and rank columns")
	}
}

// TestTransformDimensionError tests the shape check
func TestTransformDimensionError(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{1, 2, 3, 4, 5, 6, 7, 8})
	d := fitMatrix(t, X, Config{MaxBins: 4, NumericBinType: NumericQuantile})
	if _, err := d.Transform([]float64{1}); err == nil {
		t.Fatal("expected dimension error for short row")
	}
}

// TestSketchMergeDeterminism tests that partitioned fits are reproducible
func TestSketchMergeDeterminism(t *testing.T) {
	X := mat.NewDense(500, 1, nil)
	for i := 0; i < 500; i++ {
		X.Set(i, 0, math.Sin(float64(i))*100)
	}
	a, err := FitMatrix(X, 4, Config{MaxBins: 16, NumericBinType: NumericQuantile})
	if err != nil {
		t.Fatal(err)
	}
	b, err := FitMatrix(X, 4, Config{MaxBins: 16, NumericBinType: NumericQuantile})
	if err != nil {
		t.Fatal(err)
	}
	ca := a.Columns[0].(*QuantileColumn)
	cb := b.Columns[0].(*QuantileColumn)
	if len(ca.Thresholds) != len(cb.Thresholds) {
		t.Fatalf("threshold counts differ: %d vs %d", len(ca.Thresholds), len(cb.Thresholds))
	}
	for i := range ca.Thresholds {
		if ca.Thresholds[i] != cb.Thresholds[i] {
			t.Errorf("threshold %d differs: %g vs %g", i, ca.Thresholds[i], cb.Thresholds[i])
		}
	}
	for i := 1; i < len(ca.Thresholds); i++ {
		if ca.Thresholds[i] <= ca.Thresholds[i-1] {
			t.Errorf("thresholds not strictly increasing at %d", i)
		}
	}
}
