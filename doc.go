// Package gobm provides a histogram-based gradient boosting machine for Go,
// designed around a partition-parallel execution plane so the same training
// code scales from a laptop to many cores.
//
// gobm learns an additive ensemble of regression trees over a feature matrix
// pre-discretized into compact integer bins. It supports plain gradient
// boosting (gbtree) and dropout-regularized boosting (dart), numeric and
// categorical splits with L1/L2 regularization, row and column subsampling,
// and deterministic training for a fixed seed and partitioning.
//
// # Quick Start
//
// Train a regression model over a gonum matrix:
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/gobm/gbm"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
//	    y := mat.NewDense(4, 1, []float64{2, 4, 6, 8})
//
//	    conf := gbm.NewBoostConfig()
//	    conf.MaxIter = 30
//
//	    model, err := gbm.Fit(conf, X, y)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    pred, _ := model.Predict([]float64{2.5}, -1)
//	    fmt.Println(pred[0])
//	}
//
// # Packages
//
//   - gbm: boosting driver, tree learner, split finder, model and predictor
//   - discretizer: per-column quantile/width/categorical/rank summaries
//   - binmat: packed bin-index matrices with 8/16/32 bit storage
//   - exec: partitioned datasets, tree-reduce, allgather, sampling
//   - metrics: regression and classification metrics
//   - pkg/errors, pkg/log: structured errors, warnings and logging
package gobm
