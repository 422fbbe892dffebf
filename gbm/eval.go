package gbm

import (
	"math"

	"github.com/YuminosukeSato/gobm/metrics"
	"github.com/YuminosukeSato/gobm/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// EvalState is the partial state of an incremental evaluation fold.
type EvalState struct {
	Sum    float64
	Weight float64
}

// Evaluator names a real-valued metric computed on train (and test) data
// every iteration. Concrete evaluators implement IncrementalEvaluator,
// BatchEvaluator, or both.
type Evaluator interface {
	Name() string
}

// IncrementalEvaluator folds rows commutatively; partial states merge
// through a tree-reduce of configurable depth.
type IncrementalEvaluator interface {
	Evaluator
	Update(st EvalState, weight float64, label, raw, score []float64) EvalState
	Merge(a, b EvalState) EvalState
	Result(st EvalState) float64
}

// BatchEvaluator consumes a persisted (weight, label, raw, score) set.
type BatchEvaluator interface {
	Evaluator
	Compute(weights []float64, labels, raws, scores [][]float64) float64
}

// MSEEval is the weighted mean squared error on transformed scores.
type MSEEval struct{}

func (MSEEval) Name() string { return "mse" }

func (MSEEval) Update(st EvalState, weight float64, label, raw, score []float64) EvalState {
	diff := score[0] - label[0]
	st.Sum += weight * diff * diff
	st.Weight += weight
	return st
}

func (MSEEval) Merge(a, b EvalState) EvalState {
	return EvalState{Sum: a.Sum + b.Sum, Weight: a.Weight + b.Weight}
}

func (MSEEval) Result(st EvalState) float64 {
	return errors.SafeDivide(st.Sum, st.Weight)
}

// RMSEEval is the square root of MSEEval.
type RMSEEval struct{ MSEEval }

func (RMSEEval) Name() string { return "rmse" }

func (e RMSEEval) Result(st EvalState) float64 {
	return math.Sqrt(e.MSEEval.Result(st))
}

// MAEEval is the weighted mean absolute error on transformed scores.
type MAEEval struct{}

func (MAEEval) Name() string { return "mae" }

func (MAEEval) Update(st EvalState, weight float64, label, raw, score []float64) EvalState {
	st.Sum += weight * math.Abs(score[0]-label[0])
	st.Weight += weight
	return st
}

func (MAEEval) Merge(a, b EvalState) EvalState {
	return EvalState{Sum: a.Sum + b.Sum, Weight: a.Weight + b.Weight}
}

func (MAEEval) Result(st EvalState) float64 {
	return errors.SafeDivide(st.Sum, st.Weight)
}

// ErrorRateEval is the weighted misclassification rate. For scalar scores
// the decision threshold is 0.5; for vector scores the argmax class is
// compared against the label class index.
type ErrorRateEval struct{}

func (ErrorRateEval) Name() string { return "error" }

func (ErrorRateEval) Update(st EvalState, weight float64, label, raw, score []float64) EvalState {
	wrong := false
	if len(score) == 1 {
		wrong = (score[0] >= 0.5) != (label[0] >= 0.5)
	} else {
		best := 0
		for k, p := range score {
			if p > score[best] {
				best = k
			}
		}
		wrong = best != int(label[0])
	}
	if wrong {
		st.Sum += weight
	}
	st.Weight += weight
	return st
}

func (ErrorRateEval) Merge(a, b EvalState) EvalState {
	return EvalState{Sum: a.Sum + b.Sum, Weight: a.Weight + b.Weight}
}

func (ErrorRateEval) Result(st EvalState) float64 {
	return errors.SafeDivide(st.Sum, st.Weight)
}

// LogLossEval is the weighted binary cross entropy on probabilities.
type LogLossEval struct{}

func (LogLossEval) Name() string { return "logloss" }

func (LogLossEval) Update(st EvalState, weight float64, label, raw, score []float64) EvalState {
	p := score[0]
	if p < 1e-15 {
		p = 1e-15
	}
	if p > 1-1e-15 {
		p = 1 - 1e-15
	}
	if label[0] >= 0.5 {
		st.Sum -= weight * math.Log(p)
	} else {
		st.Sum -= weight * math.Log(1-p)
	}
	st.Weight += weight
	return st
}

func (LogLossEval) Merge(a, b EvalState) EvalState {
	return EvalState{Sum: a.Sum + b.Sum, Weight: a.Weight + b.Weight}
}

func (LogLossEval) Result(st EvalState) float64 {
	return errors.SafeDivide(st.Sum, st.Weight)
}

// R2Eval is the coefficient of determination. It needs the label mean, so it
// runs as a batch evaluator over the persisted evaluation set.
type R2Eval struct{}

func (R2Eval) Name() string { return "r2" }

func (R2Eval) Compute(weights []float64, labels, raws, scores [][]float64) float64 {
	n := len(labels)
	yTrue := mat.NewVecDense(n, nil)
	yPred := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		yTrue.SetVec(i, labels[i][0])
		yPred.SetVec(i, scores[i][0])
	}
	r2, err := metrics.R2Score(yTrue, yPred)
	if err != nil {
		return math.NaN()
	}
	return r2
}
