package gbm

import (
	"time"

	"github.com/YuminosukeSato/gobm/exec"
	"github.com/YuminosukeSato/gobm/pkg/errors"
	"github.com/YuminosukeSato/gobm/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// Fit is the convenience front-end: it validates the config, fits a
// discretizer over X, builds the partitioned train set and runs the
// boosting loop.
func Fit(conf *BoostConfig, X, y mat.Matrix, callbacks ...Callback) (*Model, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	train, err := NewTrainSet(X, y, nil, conf)
	if err != nil {
		return nil, err
	}
	return Train(conf, train, nil, callbacks...)
}

// Train runs the boosting loop from scratch.
func Train(conf *BoostConfig, train, test *TrainSet, callbacks ...Callback) (*Model, error) {
	return TrainContinue(conf, nil, train, test, callbacks...)
}

// TrainContinue runs the boosting loop starting from an initial model. The
// train set must have been built with the initial model's discretizer; the
// combined run is deterministic and equal to a single longer run with the
// same seed and config.
func TrainContinue(conf *BoostConfig, initial *Model, train, test *TrainSet, callbacks ...Callback) (*Model, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if train == nil || train.NumRows() == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "gbm.Train")
	}

	objective := conf.Objective
	rawSize := objective.RawSize()
	treesPerRound := conf.BaseModelParallelism * rawSize
	logger := log.GetLoggerWithName("gbm.boost")

	baseScore := conf.BaseScore
	var trees []Tree
	var weights []float64
	startRound := 0
	if initial != nil {
		if len(initial.Trees) != len(initial.Weights) {
			return nil, errors.NewPersistenceError("gbm.TrainContinue", "initial model tree and weight counts differ")
		}
		if initial.NumFeatures != train.NumCols() {
			return nil, errors.NewDimensionError("gbm.TrainContinue", initial.NumFeatures, train.NumCols(), 1)
		}
		trees = append(trees, initial.Trees...)
		weights = append(weights, initial.Weights...)
		if baseScore == nil {
			baseScore = append([]float64(nil), initial.BaseScore...)
		}
		startRound = len(trees) / treesPerRound
	}
	if baseScore == nil {
		baseScore = objective.InitScore(train.meanLabel(conf.AggregationDepth))
	}
	if len(baseScore) != rawSize {
		return nil, errors.NewConfigurationError("baseScore", "length must equal the objective raw size", len(baseScore))
	}
	if err := errors.CheckNumericalStability("base_score", baseScore, 0); err != nil {
		return nil, err
	}

	dart := conf.BoostType == Dart
	trainScores := newScoreState(train, rawSize, dart, baseScore, trees, weights)
	var testScores *scoreState
	if test != nil {
		testScores = newScoreState(test, rawSize, dart, baseScore, trees, weights)
	}

	trainHistory := map[string][]float64{}
	testHistory := map[string][]float64{}
	stopped := false

	for iteration := startRound; iteration < conf.MaxIter && !stopped; iteration++ {
		begin := time.Now()
		snap := conf.snapshot()
		rec := exec.NewResourceRecorder()

		drop := sampleDropout(&snap, iteration, len(trees)/rawSize, rawSize)

		eff := trainScores.effective(weights, drop)
		grads := computeGradients(train, eff, &snap, iteration)
		grads.Persist()
		rec.Track(grads)

		newTrees := buildRound(train, grads, &snap, iteration, rec)

		allEmpty := true
		for i := range newTrees {
			if !newTrees[i].IsEmpty() {
				allEmpty = false
				break
			}
		}
		if allEmpty {
			errors.Warn(errors.NewEmptyIterationWarning(iteration))
			rec.ReleaseAll()
			break
		}

		newWeights := make([]float64, 0, len(newTrees))
		reweighted := false
		if dart {
			before := len(weights)
			weights = dartWeights(weights, drop, snap.StepSize, len(newTrees))
			newWeights = append(newWeights, weights[before:]...)
			reweighted = drop.happened()
		} else {
			for range newTrees {
				weights = append(weights, snap.StepSize)
				newWeights = append(newWeights, snap.StepSize)
			}
		}
		trees = append(trees, newTrees...)

		trainScores.append(newTrees, newWeights, weights, reweighted)
		if testScores != nil {
			testScores.append(newTrees, newWeights, weights, reweighted)
		}

		trainEval := evaluate(train, trainScores.scores, objective, snap.Evaluators, snap.AggregationDepth)
		for name, v := range trainEval {
			trainHistory[name] = append(trainHistory[name], v)
		}
		var testEval map[string]float64
		if testScores != nil {
			testEval = evaluate(test, testScores.scores, objective, snap.Evaluators, snap.AggregationDepth)
			for name, v := range testEval {
				testHistory[name] = append(testHistory[name], v)
			}
		}

		trainScores.maybeCheckpoint(iteration, snap.CheckpointInterval)
		if testScores != nil {
			testScores.maybeCheckpoint(iteration, snap.CheckpointInterval)
		}
		rec.ReleaseAll()

		if snap.Verbosity > 0 {
			logger.Info("boosting round finished",
				log.IterationKey, iteration,
				log.TreesKey, len(trees),
				log.DroppedKey, drop.k,
				log.DurationMsKey, time.Since(begin).Milliseconds())
		}

		if len(callbacks) > 0 {
			env := &CallbackEnv{
				Config:       conf,
				Model:        assembleModel(conf, train, objective, trees, weights, baseScore),
				Iteration:    iteration,
				EvalResults:  trainEval,
				TrainHistory: trainHistory,
				TestHistory:  testHistory,
			}
			for _, cb := range callbacks {
				if err := cb(env); err != nil {
					return nil, errors.Wrapf(err, "callback failed at iteration %d", iteration)
				}
			}
			if env.StopTraining {
				logger.Info("training stopped by callback", log.IterationKey, iteration)
				stopped = true
			}
		}
	}

	return assembleModel(conf, train, objective, trees, weights, baseScore), nil
}

// computeGradients derives the per-row gradient pairs of one round: the
// objective runs against the transformed effective scores, the result is
// scaled by the instance weight, and subsampled rows are zeroed through the
// block or instance mask. With subSample=1 the mask path is skipped
// entirely, so the no-sampling run is bit-identical.
func computeGradients(ts *TrainSet, eff *exec.Dataset[[]float64], conf *BoostConfig, iteration int) *exec.Dataset[gradRow] {
	objective := conf.Objective
	rawSize := objective.RawSize()
	single := conf.FloatPrecision == PrecisionSingle

	var mask *exec.Dataset[bool]
	if conf.SubSample < 1 {
		if conf.SampleBlocks {
			mask = exec.BlockMask(ts.rowCounts, conf.BlockSize, conf.SubSample, conf.Seed+int64(iteration))
		} else {
			mask = exec.InstanceMask(ts.rowCounts, conf.SubSample, conf.Seed+int64(iteration))
		}
	}

	compute := func(row Instance, raw []float64, keep bool) gradRow {
		g := make([]float64, rawSize)
		h := make([]float64, rawSize)
		if keep && row.Weight > 0 {
			score := objective.Transform(raw)
			objective.Compute(row.Label, score, g, h)
			for k := 0; k < rawSize; k++ {
				g[k] *= row.Weight
				h[k] *= row.Weight
				if single {
					g[k] = float64(float32(g[k]))
					h[k] = float64(float32(h[k]))
				}
			}
		}
		return gradRow{Grad: g, Hess: h}
	}

	if mask == nil {
		return exec.ZipPartitions(ts.data, eff,
			func(_ int, rows []Instance, raws [][]float64) []gradRow {
				out := make([]gradRow, len(rows))
				for i := range rows {
					out[i] = compute(rows[i], raws[i], true)
				}
				return out
			})
	}
	return exec.Zip3Partitions(ts.data, eff, mask,
		func(_ int, rows []Instance, raws [][]float64, keep []bool) []gradRow {
			out := make([]gradRow, len(rows))
			for i := range rows {
				out[i] = compute(rows[i], raws[i], keep[i])
			}
			return out
		})
}

// evaluate folds every configured evaluator over the dataset. Incremental
// evaluators merge through a tree-reduce of the configured depth; batch
// evaluators receive the collected (weight, label, raw, score) set.
func evaluate(ts *TrainSet, scores *exec.Dataset[scoreRow], objective Objective, evaluators []Evaluator, aggDepth int) map[string]float64 {
	if len(evaluators) == 0 {
		return map[string]float64{}
	}

	type evalRow struct {
		weight float64
		label  []float64
		raw    []float64
		score  []float64
	}
	rows := exec.ZipPartitions(ts.data, scores,
		func(_ int, data []Instance, sc []scoreRow) []evalRow {
			out := make([]evalRow, len(data))
			for i := range data {
				out[i] = evalRow{
					weight: data[i].Weight,
					label:  data[i].Label,
					raw:    sc[i].Acc,
					score:  objective.Transform(sc[i].Acc),
				}
			}
			return out
		}).Persist()

	results := make(map[string]float64, len(evaluators))
	var collected []evalRow
	for _, ev := range evaluators {
		switch e := ev.(type) {
		case IncrementalEvaluator:
			st := exec.TreeAggregate(rows,
				func() EvalState { return EvalState{} },
				func(st EvalState, r evalRow) EvalState {
					return e.Update(st, r.weight, r.label, r.raw, r.score)
				},
				e.Merge,
				aggDepth)
			results[e.Name()] = e.Result(st)
		case BatchEvaluator:
			if collected == nil {
				collected = rows.Collect()
			}
			weights := make([]float64, len(collected))
			labels := make([][]float64, len(collected))
			raws := make([][]float64, len(collected))
			transformed := make([][]float64, len(collected))
			for i, r := range collected {
				weights[i] = r.weight
				labels[i] = r.label
				raws[i] = r.raw
				transformed[i] = r.score
			}
			results[e.Name()] = e.Compute(weights, labels, raws, transformed)
		}
	}
	rows.Unpersist()
	return results
}

// assembleModel snapshots the driver state into an immutable model.
func assembleModel(conf *BoostConfig, train *TrainSet, objective Objective, trees []Tree, weights []float64, baseScore []float64) *Model {
	return &Model{
		Trees:       append([]Tree(nil), trees...),
		Weights:     append([]float64(nil), weights...),
		BaseScore:   append([]float64(nil), baseScore...),
		Objective:   objective,
		BoostType:   conf.BoostType,
		RawSize:     objective.RawSize(),
		NumFeatures: train.NumCols(),
		Disc:        train.Discretizer(),
	}
}
