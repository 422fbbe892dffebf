// Command gobm trains a gradient boosting model from .npy feature and label
// matrices, driven by flags and an optional YAML config file, and writes the
// fitted model as JSON.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gobm/gbm"
	"github.com/YuminosukeSato/gobm/pkg/log"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML file overriding the default boosting config")
		trainX     = flag.String("train-x", "", "training feature matrix (.npy)")
		trainY     = flag.String("train-y", "", "training label matrix (.npy)")
		testX      = flag.String("test-x", "", "optional test feature matrix (.npy)")
		testY      = flag.String("test-y", "", "optional test label matrix (.npy)")
		objective  = flag.String("objective", "squared_error", "objective: squared_error, logistic or softmax")
		numClass   = flag.Int("num-class", 1, "class count for the softmax objective")
		modelOut   = flag.String("model-out", "model.json", "output path of the fitted model")
		treeOut    = flag.String("tree-png", "", "optional PNG path rendering the first tree")
		curveOut   = flag.String("curve-png", "", "optional PNG path of the learning curve")
		logLevel   = flag.String("log-level", "info", "log level: debug, info, warn or error")
	)
	flag.Parse()

	log.SetupLogger(*logLevel)
	log.SetLevel(log.Level(log.ToLogLevel(*logLevel)))
	logger := log.GetLoggerWithName("gobm.cli")

	if *trainX == "" || *trainY == "" {
		fmt.Fprintln(os.Stderr, "gobm: -train-x and -train-y are required")
		flag.Usage()
		os.Exit(2)
	}

	conf := gbm.NewBoostConfig()
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			fatal(logger, "config read failed", err)
		}
		if err := yaml.Unmarshal(data, conf); err != nil {
			fatal(logger, "config parse failed", err)
		}
	}

	obj, err := gbm.CreateObjective(*objective, *numClass)
	if err != nil {
		fatal(logger, "objective setup failed", err)
	}
	conf.Objective = obj
	if len(conf.Evaluators) == 0 {
		if *objective == "squared_error" {
			conf.Evaluators = []gbm.Evaluator{gbm.RMSEEval{}}
		} else {
			conf.Evaluators = []gbm.Evaluator{gbm.ErrorRateEval{}}
		}
	}

	X := readNpy(logger, *trainX)
	y := readNpy(logger, *trainY)
	rows, cols := X.Dims()
	logger.Info("training data loaded",
		log.SamplesKey, rows,
		log.FeaturesKey, cols)

	train, err := gbm.NewTrainSet(X, y, nil, conf)
	if err != nil {
		fatal(logger, "train set construction failed", err)
	}

	var test *gbm.TrainSet
	if *testX != "" && *testY != "" {
		test, err = gbm.NewTrainSetWithDiscretizer(readNpy(logger, *testX), readNpy(logger, *testY), nil,
			train.Discretizer(), conf.NumPartitions)
		if err != nil {
			fatal(logger, "test set construction failed", err)
		}
	}

	var callbacks []gbm.Callback
	if conf.Verbosity > 0 {
		callbacks = append(callbacks, gbm.PrintEvaluation(1))
	}
	if *curveOut != "" && len(conf.Evaluators) > 0 {
		callbacks = append(callbacks, gbm.PlotEvaluation(conf.Evaluators[0].Name(), *curveOut, conf.MaxIter))
	}

	model, err := gbm.Train(conf, train, test, callbacks...)
	if err != nil {
		fatal(logger, "training failed", err)
	}
	logger.Info("training finished", log.TreesKey, model.NumTrees())

	if err := model.SaveToFile(*modelOut); err != nil {
		fatal(logger, "model save failed", err)
	}
	logger.Info("model saved", "path", *modelOut)

	if *treeOut != "" && model.NumTrees() > 0 {
		if err := model.RenderTree(0, *treeOut); err != nil {
			fatal(logger, "tree render failed", err)
		}
	}
}

func readNpy(logger log.Logger, path string) *mat.Dense {
	f, err := os.Open(path)
	if err != nil {
		fatal(logger, "npy open failed", err)
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		fatal(logger, "npy header read failed", err)
	}
	m := &mat.Dense{}
	if err := r.Read(m); err != nil {
		fatal(logger, "npy read failed", err)
	}
	return m
}

func fatal(logger log.Logger, msg string, err error) {
	logger.Error(msg, log.ErrAttr(err))
	os.Exit(1)
}
