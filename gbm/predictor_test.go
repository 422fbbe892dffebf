package gbm

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// TestPredictFirstN tests the tree-count prefix argument
func TestPredictFirstN(t *testing.T) {
	model, _ := trainSmallModel(t)

	row := []float64{3, 2}
	zero, err := model.Predict(row, 0)
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	if zero[0] != model.BaseScore[0] {
		t.Errorf("firstN=0 prediction %g, want base score %g", zero[0], model.BaseScore[0])
	}

	all, _ := model.Predict(row, -1)
	capped, _ := model.Predict(row, len(model.Trees)+5)
	if all[0] != capped[0] {
		t.Errorf("oversized firstN must clamp: %g vs %g", capped[0], all[0])
	}

	// Prefix predictions accumulate tree by tree.
	prev := zero[0]
	for n := 1; n <= len(model.Trees); n++ {
		p, _ := model.Predict(row, n)
		expect := prev + model.Weights[n-1]*model.Trees[n-1].PredictBins(mustBins(t, model, row))
		if math.Abs(p[0]-expect) > 1e-12 {
			t.Fatalf("firstN=%d prediction %g, want %g", n, p[0], expect)
		}
		prev = p[0]
	}
}

func mustBins(t *testing.T, m *Model, row []float64) intSliceRow {
	t.Helper()
	bins, err := m.Disc.Transform(row)
	if err != nil {
		t.Fatalf("transform failed: %v", err)
	}
	return intSliceRow(bins)
}

// TestPredictMatrix tests batch scoring against single-row scoring
func TestPredictMatrix(t *testing.T) {
	model, X := trainSmallModel(t)

	preds, err := model.PredictMatrix(X)
	if err != nil {
		t.Fatalf("PredictMatrix failed: %v", err)
	}
	rows, cols := X.Dims()
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, X)
		single, err := model.Predict(row, -1)
		if err != nil {
			t.Fatalf("predict failed: %v", err)
		}
		if preds.At(i, 0) != single[0] {
			t.Fatalf("row %d: batch %g vs single %g", i, preds.At(i, 0), single[0])
		}
		if math.IsNaN(preds.At(i, 0)) || math.IsInf(preds.At(i, 0), 0) {
			t.Fatalf("non-finite prediction at row %d", i)
		}
	}
}

// TestPredictShapeMismatch tests the fatal shape error
func TestPredictShapeMismatch(t *testing.T) {
	model, _ := trainSmallModel(t)
	if _, err := model.Predict([]float64{1}, -1); err == nil {
		t.Fatal("expected shape mismatch error")
	}
}

// TestLeafAssignments tests per-tree leaf ids and the one-hot expansion
func TestLeafAssignments(t *testing.T) {
	model, _ := trainSmallModel(t)

	ids, err := model.Leaf([]float64{3, 2}, false)
	if err != nil {
		t.Fatalf("leaf failed: %v", err)
	}
	if len(ids) != len(model.Trees) {
		t.Fatalf("got %d leaf ids, want %d", len(ids), len(model.Trees))
	}
	for i, id := range ids {
		leaves := model.Trees[i].NumLeaves()
		if id < 0 || int(id) >= leaves {
			t.Errorf("tree %d leaf id %g outside [0, %d)", i, id, leaves)
		}
	}

	oneHot, err := model.Leaf([]float64{3, 2}, true)
	if err != nil {
		t.Fatalf("leaf one-hot failed: %v", err)
	}
	totalLeaves := 0
	for i := range model.Trees {
		totalLeaves += model.Trees[i].NumLeaves()
	}
	if len(oneHot) != totalLeaves {
		t.Fatalf("one-hot length %d, want cumulative leaf count %d", len(oneHot), totalLeaves)
	}
	ones := 0.0
	for _, v := range oneHot {
		ones += v
	}
	if ones != float64(len(model.Trees)) {
		t.Errorf("one-hot sums to %g, want one hit per tree (%d)", ones, len(model.Trees))
	}
}

// TestFeatureImportance tests normalization and mode validation
func TestFeatureImportance(t *testing.T) {
	model, _ := trainSmallModel(t)

	for _, mode := range []string{"gain", "split"} {
		imp, err := model.FeatureImportance(mode, -1)
		if err != nil {
			t.Fatalf("importance %s failed: %v", mode, err)
		}
		if len(imp) != model.NumFeatures {
			t.Fatalf("importance length %d, want %d", len(imp), model.NumFeatures)
		}
		sum := 0.0
		for _, v := range imp {
			if v < 0 {
				t.Errorf("negative importance %g in mode %s", v, mode)
			}
			sum += v
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("importance sums to %g in mode %s, want 1", sum, mode)
		}
	}

	if _, err := model.FeatureImportance("cover", -1); err == nil {
		t.Error("unknown importance type must be rejected")
	}
}

// TestTreeDrawGraph tests the graphviz export of a fitted tree
func TestTreeDrawGraph(t *testing.T) {
	model, _ := trainSmallModel(t)
	gv, graph, err := model.Trees[0].DrawGraph()
	if err != nil {
		t.Fatalf("DrawGraph failed: %v", err)
	}
	if gv == nil || graph == nil {
		t.Fatal("DrawGraph returned nil handles")
	}
}
