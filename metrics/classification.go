package metrics

import (
	"github.com/YuminosukeSato/gobm/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrorRate は誤分類率を計算する（0.5を閾値とする二値分類）
func ErrorRate(yTrue, yPred *mat.VecDense) (float64, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("ErrorRate", "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError("ErrorRate", n, yPred.Len(), 0)
	}

	wrong := 0
	for i := 0; i < n; i++ {
		label := yTrue.AtVec(i) >= 0.5
		pred := yPred.AtVec(i) >= 0.5
		if label != pred {
			wrong++
		}
	}
	return float64(wrong) / float64(n), nil
}

// LogLoss は二値分類の交差エントロピー損失を計算する
// yPredは確率（0..1）であること
func LogLoss(yTrue, yPred *mat.VecDense) (float64, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("LogLoss", "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError("LogLoss", n, yPred.Len(), 0)
	}

	var sum float64
	for i := 0; i < n; i++ {
		p := yPred.AtVec(i)
		if yTrue.AtVec(i) >= 0.5 {
			sum -= errors.StabilizeLog(p)
		} else {
			sum -= errors.StabilizeLog(1 - p)
		}
	}
	return sum / float64(n), nil
}
