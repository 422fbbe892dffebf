package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// TestMSE tests the mean squared error computation
func TestMSE(t *testing.T) {
	yTrue := mat.NewVecDense(4, []float64{1, 2, 3, 4})
	yPred := mat.NewVecDense(4, []float64{1, 2, 3, 6})

	mse, err := MSE(yTrue, yPred)
	if err != nil {
		t.Fatalf("MSE failed: %v", err)
	}
	if math.Abs(mse-1.0) > 1e-12 {
		t.Errorf("MSE = %g, want 1.0", mse)
	}

	rmse, err := RMSE(yTrue, yPred)
	if err != nil {
		t.Fatalf("RMSE failed: %v", err)
	}
	if math.Abs(rmse-1.0) > 1e-12 {
		t.Errorf("RMSE = %g, want 1.0", rmse)
	}
}

// TestMSEDimensionMismatch tests input validation
func TestMSEDimensionMismatch(t *testing.T) {
	yTrue := mat.NewVecDense(3, []float64{1, 2, 3})
	yPred := mat.NewVecDense(2, []float64{1, 2})
	if _, err := MSE(yTrue, yPred); err == nil {
		t.Fatal("expected dimension error")
	}
}

// TestMAE tests the mean absolute error computation
func TestMAE(t *testing.T) {
	yTrue := mat.NewVecDense(3, []float64{1, -2, 3})
	yPred := mat.NewVecDense(3, []float64{2, -2, 1})
	mae, err := MAE(yTrue, yPred)
	if err != nil {
		t.Fatalf("MAE failed: %v", err)
	}
	if math.Abs(mae-1.0) > 1e-12 {
		t.Errorf("MAE = %g, want 1.0", mae)
	}
}

// TestR2Score tests the coefficient of determination
func TestR2Score(t *testing.T) {
	yTrue := mat.NewVecDense(4, []float64{1, 2, 3, 4})

	perfect, err := R2Score(yTrue, yTrue)
	if err != nil {
		t.Fatalf("R2Score failed: %v", err)
	}
	if math.Abs(perfect-1.0) > 1e-12 {
		t.Errorf("perfect R2 = %g, want 1.0", perfect)
	}

	mean := mat.NewVecDense(4, []float64{2.5, 2.5, 2.5, 2.5})
	baseline, err := R2Score(yTrue, mean)
	if err != nil {
		t.Fatalf("R2Score failed: %v", err)
	}
	if math.Abs(baseline) > 1e-12 {
		t.Errorf("mean-prediction R2 = %g, want 0", baseline)
	}
}

// TestErrorRate tests the misclassification rate
func TestErrorRate(t *testing.T) {
	yTrue := mat.NewVecDense(4, []float64{0, 1, 1, 0})
	yPred := mat.NewVecDense(4, []float64{0.2, 0.9, 0.3, 0.1})
	rate, err := ErrorRate(yTrue, yPred)
	if err != nil {
		t.Fatalf("ErrorRate failed: %v", err)
	}
	if math.Abs(rate-0.25) > 1e-12 {
		t.Errorf("error rate = %g, want 0.25", rate)
	}
}

// TestLogLoss tests the binary cross entropy
func TestLogLoss(t *testing.T) {
	yTrue := mat.NewVecDense(2, []float64{1, 0})
	yPred := mat.NewVecDense(2, []float64{0.5, 0.5})
	loss, err := LogLoss(yTrue, yPred)
	if err != nil {
		t.Fatalf("LogLoss failed: %v", err)
	}
	if math.Abs(loss-math.Log(2)) > 1e-12 {
		t.Errorf("logloss = %g, want ln 2", loss)
	}
}
