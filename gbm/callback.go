package gbm

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// CallbackEnv is the state handed to callbacks after every iteration. The
// model is a snapshot; Config is the live driver-side config, which
// callbacks may mutate between iterations.
type CallbackEnv struct {
	Config       *BoostConfig
	Model        *Model
	Iteration    int
	EvalResults  map[string]float64
	TrainHistory map[string][]float64
	TestHistory  map[string][]float64
	StopTraining bool
}

// Callback runs after each boosting iteration and may request early
// termination by setting StopTraining.
type Callback func(env *CallbackEnv) error

// PrintEvaluation prints the evaluation results every period iterations.
func PrintEvaluation(period int) Callback {
	if period < 1 {
		period = 1
	}
	return func(env *CallbackEnv) error {
		if env.Iteration%period == 0 {
			fmt.Printf("[%d] ", env.Iteration)
			for name, value := range env.EvalResults {
				fmt.Printf("%s: %.6f ", name, value)
			}
			fmt.Println()
		}
		return nil
	}
}

// RecordEvaluation copies the train evaluation history into the given map.
func RecordEvaluation(history *map[string][]float64) Callback {
	return func(env *CallbackEnv) error {
		if *history == nil {
			*history = make(map[string][]float64)
		}
		for name, values := range env.TrainHistory {
			(*history)[name] = append([]float64(nil), values...)
		}
		return nil
	}
}

// EarlyStopping stops training when the metric has not improved for the
// given number of rounds. The test history is preferred when present.
func EarlyStopping(rounds int, metric string, minimize bool) Callback {
	bestScore := math.Inf(1)
	if !minimize {
		bestScore = math.Inf(-1)
	}
	bestIteration := 0
	noImprove := 0

	return func(env *CallbackEnv) error {
		history := env.TestHistory[metric]
		if len(history) == 0 {
			history = env.TrainHistory[metric]
		}
		if len(history) == 0 {
			return nil
		}
		value := history[len(history)-1]

		improved := value < bestScore
		if !minimize {
			improved = value > bestScore
		}
		if improved {
			bestScore = value
			bestIteration = env.Iteration
			noImprove = 0
		} else {
			noImprove++
		}

		if noImprove >= rounds {
			fmt.Printf("Early stopping at iteration %d, best iteration was %d with %s = %.6f\n",
				env.Iteration, bestIteration, metric, bestScore)
			env.StopTraining = true
		}
		return nil
	}
}

// TimeLimit stops training after the given duration.
func TimeLimit(maxDuration time.Duration) Callback {
	startTime := time.Now()
	return func(env *CallbackEnv) error {
		if time.Since(startTime) > maxDuration {
			fmt.Printf("Time limit reached at iteration %d\n", env.Iteration)
			env.StopTraining = true
		}
		return nil
	}
}

// PlotEvaluation redraws the learning curves of one metric to a PNG every
// period iterations: the train history, plus the test history when present.
func PlotEvaluation(metric, filename string, period int) Callback {
	if period < 1 {
		period = 1
	}
	return func(env *CallbackEnv) error {
		if (env.Iteration+1)%period != 0 {
			return nil
		}
		train := env.TrainHistory[metric]
		if len(train) == 0 {
			return nil
		}

		p := plot.New()
		p.Title.Text = metric
		p.X.Label.Text = "iteration"
		p.Y.Label.Text = metric

		args := []interface{}{"train", historyXYs(train)}
		if test := env.TestHistory[metric]; len(test) > 0 {
			args = append(args, "test", historyXYs(test))
		}
		if err := plotutil.AddLinePoints(p, args...); err != nil {
			return err
		}
		return p.Save(6*vg.Inch, 4*vg.Inch, filename)
	}
}

func historyXYs(values []float64) plotter.XYs {
	xys := make(plotter.XYs, len(values))
	for i, v := range values {
		xys[i].X = float64(i)
		xys[i].Y = v
	}
	return xys
}
