package gbm

import (
	"github.com/YuminosukeSato/gobm/discretizer"
	"github.com/YuminosukeSato/gobm/pkg/errors"
)

// Model is the trained ensemble: ordered trees and weights, the base score,
// and the bound discretizer. Trees and weights always have equal length;
// under DART the tree count is a multiple of the raw size.
type Model struct {
	Trees       []Tree
	Weights     []float64
	BaseScore   []float64
	Objective   Objective
	BoostType   BoostType
	RawSize     int
	NumFeatures int
	Disc        *discretizer.Discretizer
}

// NumTrees returns the ensemble size.
func (m *Model) NumTrees() int { return len(m.Trees) }

// check verifies the structural invariants shared by every entry point.
func (m *Model) check(method string) error {
	if m.Disc == nil {
		return errors.NewNotFittedError("Model", method)
	}
	if len(m.Trees) != len(m.Weights) {
		return errors.NewPersistenceError("Model."+method, "tree and weight counts differ")
	}
	return nil
}

// FeatureImportance returns per-feature importance over the first firstN
// trees (all trees when firstN < 0), normalized to sum one. importanceType
// "gain" sums weight-scaled split gains; "split" counts split occurrences.
func (m *Model) FeatureImportance(importanceType string, firstN int) ([]float64, error) {
	if err := m.check("FeatureImportance"); err != nil {
		return nil, err
	}
	if importanceType != "gain" && importanceType != "split" {
		return nil, errors.NewValueError("Model.FeatureImportance", "importance type must be gain or split")
	}
	if firstN < 0 || firstN > len(m.Trees) {
		firstN = len(m.Trees)
	}

	importance := make([]float64, m.NumFeatures)
	for i := 0; i < firstN; i++ {
		w := m.Weights[i]
		for _, node := range m.Trees[i].Nodes {
			if node.IsLeaf {
				continue
			}
			switch importanceType {
			case "split":
				importance[node.Feature]++
			case "gain":
				importance[node.Feature] += w * node.Gain
			}
		}
	}

	total := 0.0
	for _, v := range importance {
		total += v
	}
	if total > 0 {
		for i := range importance {
			importance[i] /= total
		}
	}
	return importance, nil
}
