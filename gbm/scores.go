package gbm

import (
	"github.com/YuminosukeSato/gobm/exec"
)

// scoreRow is the running raw-score state of one row. Acc always holds
// baseScore plus the full weighted ensemble contribution. Under DART,
// TreeRaw additionally keeps every tree's unweighted raw contribution so
// dropped trees can be excluded and rescaled weights re-applied.
type scoreRow struct {
	Acc     []float64
	TreeRaw []float64
}

// scoreState maintains the chained raw-scores dataset of one TrainSet. Every
// iteration derives a new dataset from the previous one; periodic
// checkpoints materialize the chain and truncate its lineage.
type scoreState struct {
	ts      *TrainSet
	rawSize int
	dart    bool
	base    []float64
	scores  *exec.Dataset[scoreRow]
	chain   *exec.CheckpointChain
}

// newScoreState seeds the raw scores from the base score and any initial
// model trees (model continuation recomputes their raw contributions).
func newScoreState(ts *TrainSet, rawSize int, dart bool, base []float64, trees []Tree, weights []float64) *scoreState {
	s := &scoreState{
		ts:      ts,
		rawSize: rawSize,
		dart:    dart,
		base:    append([]float64(nil), base...),
		chain:   exec.NewCheckpointChain(),
	}
	initTrees := append([]Tree(nil), trees...)
	initWeights := append([]float64(nil), weights...)
	s.scores = exec.Map(ts.data, func(row Instance) scoreRow {
		acc := append([]float64(nil), s.base...)
		var raws []float64
		if dart {
			raws = make([]float64, len(initTrees))
		}
		for j := range initTrees {
			raw := initTrees[j].PredictBins(row.Bins)
			acc[initTrees[j].ClassIndex] += initWeights[j] * raw
			if dart {
				raws[j] = raw
			}
		}
		return scoreRow{Acc: acc, TreeRaw: raws}
	}).Persist()
	return s
}

// effective returns the per-row raw scores seen by the objective this round:
// the full accumulation, or, under DART dropout, the ensemble without the
// dropped trees.
func (s *scoreState) effective(weights []float64, drop dropout) *exec.Dataset[[]float64] {
	if !s.dart || !drop.happened() {
		return exec.Map(s.scores, func(r scoreRow) []float64 { return r.Acc })
	}
	w := append([]float64(nil), weights...)
	dropped := drop.trees
	rawSize := s.rawSize
	base := s.base
	return exec.Map(s.scores, func(r scoreRow) []float64 {
		eff := append([]float64(nil), base...)
		for j, raw := range r.TreeRaw {
			if dropped[j] {
				continue
			}
			eff[j%rawSize] += w[j] * raw
		}
		return eff
	})
}

// append folds the round's new trees into the running scores. newWeights is
// aligned with newTrees. When reweighted is set (a DART dropout round
// rescaled earlier weights), the accumulation is recomputed from the
// per-tree raws with the final weight vector; otherwise it advances
// incrementally.
func (s *scoreState) append(newTrees []Tree, newWeights []float64, allWeights []float64, reweighted bool) {
	trees := append([]Tree(nil), newTrees...)
	weights := append([]float64(nil), newWeights...)
	full := append([]float64(nil), allWeights...)
	base := s.base
	rawSize := s.rawSize
	dart := s.dart

	s.scores = exec.ZipPartitions(s.ts.data, s.scores,
		func(_ int, rows []Instance, old []scoreRow) []scoreRow {
			out := make([]scoreRow, len(rows))
			for i := range rows {
				preds := make([]float64, len(trees))
				for j := range trees {
					preds[j] = trees[j].PredictBins(rows[i].Bins)
				}
				var raws []float64
				if dart {
					raws = make([]float64, 0, len(old[i].TreeRaw)+len(trees))
					raws = append(raws, old[i].TreeRaw...)
					raws = append(raws, preds...)
				}
				acc := make([]float64, rawSize)
				if reweighted {
					copy(acc, base)
					for j, raw := range raws {
						acc[j%rawSize] += full[j] * raw
					}
				} else {
					copy(acc, old[i].Acc)
					for j := range trees {
						acc[trees[j].ClassIndex] += weights[j] * preds[j]
					}
				}
				out[i] = scoreRow{Acc: acc, TreeRaw: raws}
			}
			return out
		}).Persist()
}

// maybeCheckpoint advances the checkpoint chain when the iteration hits the
// configured interval. A non-positive interval disables checkpointing.
func (s *scoreState) maybeCheckpoint(iteration, interval int) {
	if interval <= 0 {
		return
	}
	if (iteration+1)%interval == 0 {
		exec.Advance(s.chain, s.scores)
	}
}
