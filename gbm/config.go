// Package gbm implements a distributed-style histogram gradient boosting
// machine: a boosting driver with GBTree and DART modes, a level-wise
// histogram tree learner with numeric and categorical splits, and a
// predictor over an ensemble of regression trees bound to a feature
// discretizer.
package gbm

import (
	"math"

	"github.com/YuminosukeSato/gobm/discretizer"
	"github.com/YuminosukeSato/gobm/pkg/errors"
)

// BoostType selects the boosting algorithm.
type BoostType string

const (
	// GBTree is plain gradient boosting with a constant step size.
	GBTree BoostType = "gbtree"
	// Dart drops a random subset of earlier trees each round and rescales
	// their weights when a new tree lands.
	Dart BoostType = "dart"
	// Goss is recognized as a planned mode but not implemented; setting it
	// is a configuration error.
	Goss BoostType = "goss"
)

// FloatPrecision selects the storage precision of gradient pairs.
type FloatPrecision string

const (
	PrecisionSingle FloatPrecision = "single"
	PrecisionDouble FloatPrecision = "double"
)

// BoostConfig carries every tunable of the booster. Fields may be set
// directly and validated with Validate, or through the checked setters which
// reject invalid values immediately. Callbacks may mutate the config between
// iterations on the driver; each iteration trains against an immutable
// snapshot.
type BoostConfig struct {
	MaxIter              int            `json:"maxIter" yaml:"maxIter"`
	MaxDepth             int            `json:"maxDepth" yaml:"maxDepth"`
	MaxLeaves            int            `json:"maxLeaves" yaml:"maxLeaves"`
	MaxBins              int            `json:"maxBins" yaml:"maxBins"`
	MinGain              float64        `json:"minGain" yaml:"minGain"`
	MinNodeHess          float64        `json:"minNodeHess" yaml:"minNodeHess"`
	StepSize             float64        `json:"stepSize" yaml:"stepSize"`
	RegAlpha             float64        `json:"regAlpha" yaml:"regAlpha"`
	RegLambda            float64        `json:"regLambda" yaml:"regLambda"`
	BaseScore            []float64      `json:"baseScore,omitempty" yaml:"baseScore,omitempty"`
	SubSample            float64        `json:"subSample" yaml:"subSample"`
	ColSampleByTree      float64        `json:"colSampleByTree" yaml:"colSampleByTree"`
	ColSampleByLevel     float64        `json:"colSampleByLevel" yaml:"colSampleByLevel"`
	BoostType            BoostType      `json:"boostType" yaml:"boostType"`
	DropRate             float64        `json:"dropRate" yaml:"dropRate"`
	DropSkip             float64        `json:"dropSkip" yaml:"dropSkip"`
	MinDrop              int            `json:"minDrop" yaml:"minDrop"`
	MaxDrop              int            `json:"maxDrop" yaml:"maxDrop"`
	MaxBruteBins         int            `json:"maxBruteBins" yaml:"maxBruteBins"`
	NumericalBinType     string         `json:"numericalBinType" yaml:"numericalBinType"`
	ZeroAsMissing        bool           `json:"zeroAsMissing" yaml:"zeroAsMissing"`
	CheckpointInterval   int            `json:"checkpointInterval" yaml:"checkpointInterval"`
	AggregationDepth     int            `json:"aggregationDepth" yaml:"aggregationDepth"`
	Seed                 int64          `json:"seed" yaml:"seed"`
	BaseModelParallelism int            `json:"baseModelParallelism" yaml:"baseModelParallelism"`
	BlockSize            int            `json:"blockSize" yaml:"blockSize"`
	SampleBlocks         bool           `json:"sampleBlocks" yaml:"sampleBlocks"`
	FloatPrecision       FloatPrecision `json:"floatPrecision" yaml:"floatPrecision"`

	// CategoricalCols and RankCols name the non-numeric feature columns
	// handed to the discretizer. The sets must be disjoint.
	CategoricalCols []int `json:"categoricalCols,omitempty" yaml:"categoricalCols,omitempty"`
	RankCols        []int `json:"rankCols,omitempty" yaml:"rankCols,omitempty"`

	// NumPartitions is the partition count of the training dataset.
	NumPartitions int `json:"numPartitions" yaml:"numPartitions"`

	// VerticalHistogram switches histogram construction to the
	// column-partitioned path. Useful when the feature count dominates the
	// per-partition row count.
	VerticalHistogram bool `json:"verticalHistogram" yaml:"verticalHistogram"`

	// Objective computes per-row gradient pairs. Defaults to squared error.
	Objective Objective `json:"-" yaml:"-"`

	// Evaluators are folded on train (and test) data every iteration.
	Evaluators []Evaluator `json:"-" yaml:"-"`

	Verbosity int `json:"verbosity" yaml:"verbosity"`
}

// NewBoostConfig returns a config with the documented defaults.
func NewBoostConfig() *BoostConfig {
	return &BoostConfig{
		MaxIter:              20,
		MaxDepth:             5,
		MaxLeaves:            1000,
		MaxBins:              64,
		MinGain:              0,
		MinNodeHess:          0,
		StepSize:             0.1,
		RegAlpha:             0,
		RegLambda:            1,
		SubSample:            1,
		ColSampleByTree:      1,
		ColSampleByLevel:     1,
		BoostType:            GBTree,
		DropRate:             0,
		DropSkip:             0.5,
		MinDrop:              0,
		MaxDrop:              50,
		MaxBruteBins:         10,
		NumericalBinType:     "depth",
		CheckpointInterval:   10,
		AggregationDepth:     2,
		BaseModelParallelism: 1,
		BlockSize:            4096,
		FloatPrecision:       PrecisionDouble,
		NumPartitions:        1,
		Objective:            NewSquaredError(),
	}
}

// SetMaxIter sets the iteration count.
func (c *BoostConfig) SetMaxIter(v int) error {
	if v < 1 {
		return errors.NewConfigurationError("maxIter", "must be positive", v)
	}
	c.MaxIter = v
	return nil
}

// SetMaxDepth sets the per-tree depth cap.
func (c *BoostConfig) SetMaxDepth(v int) error {
	if v < 1 {
		return errors.NewConfigurationError("maxDepth", "must be positive", v)
	}
	c.MaxDepth = v
	return nil
}

// SetMaxLeaves sets the per-tree leaf cap.
func (c *BoostConfig) SetMaxLeaves(v int) error {
	if v < 2 {
		return errors.NewConfigurationError("maxLeaves", "must be at least 2", v)
	}
	c.MaxLeaves = v
	return nil
}

// SetMaxBins sets the per-column bin cap.
func (c *BoostConfig) SetMaxBins(v int) error {
	if v < 2 {
		return errors.NewConfigurationError("maxBins", "must be at least 2", v)
	}
	c.MaxBins = v
	return nil
}

// SetStepSize sets the shrinkage rate.
func (c *BoostConfig) SetStepSize(v float64) error {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return errors.NewConfigurationError("stepSize", "must be positive and finite", v)
	}
	c.StepSize = v
	return nil
}

// SetRegAlpha sets the L1 regularization strength.
func (c *BoostConfig) SetRegAlpha(v float64) error {
	if v < 0 || math.IsNaN(v) {
		return errors.NewConfigurationError("regAlpha", "must be non-negative", v)
	}
	c.RegAlpha = v
	return nil
}

// SetRegLambda sets the L2 regularization strength.
func (c *BoostConfig) SetRegLambda(v float64) error {
	if v < 0 || math.IsNaN(v) {
		return errors.NewConfigurationError("regLambda", "must be non-negative", v)
	}
	c.RegLambda = v
	return nil
}

// SetSubSample sets the row subsampling ratio.
func (c *BoostConfig) SetSubSample(v float64) error {
	if v <= 0 || v > 1 {
		return errors.NewConfigurationError("subSample", "must be in (0, 1]", v)
	}
	c.SubSample = v
	return nil
}

// SetColSampleByTree sets the per-tree column subsampling ratio.
func (c *BoostConfig) SetColSampleByTree(v float64) error {
	if v <= 0 || v > 1 {
		return errors.NewConfigurationError("colSampleByTree", "must be in (0, 1]", v)
	}
	c.ColSampleByTree = v
	return nil
}

// SetColSampleByLevel sets the per-level column subsampling ratio.
func (c *BoostConfig) SetColSampleByLevel(v float64) error {
	if v <= 0 || v > 1 {
		return errors.NewConfigurationError("colSampleByLevel", "must be in (0, 1]", v)
	}
	c.ColSampleByLevel = v
	return nil
}

// SetBoostType selects the boosting algorithm.
func (c *BoostConfig) SetBoostType(v BoostType) error {
	switch v {
	case GBTree, Dart:
		c.BoostType = v
		return nil
	case Goss:
		return errors.NewConfigurationError("boostType", "goss is recognized but not implemented", v)
	default:
		return errors.NewConfigurationError("boostType", "must be gbtree or dart", v)
	}
}

// SetDropRate sets the DART dropout rate.
func (c *BoostConfig) SetDropRate(v float64) error {
	if v < 0 || v > 1 {
		return errors.NewConfigurationError("dropRate", "must be in [0, 1]", v)
	}
	c.DropRate = v
	return nil
}

// SetDropSkip sets the probability of skipping dropout in a round.
func (c *BoostConfig) SetDropSkip(v float64) error {
	if v < 0 || v > 1 {
		return errors.NewConfigurationError("dropSkip", "must be in [0, 1]", v)
	}
	c.DropSkip = v
	return nil
}

// SetMaxBruteBins sets the brute-force categorical enumeration cut-off.
func (c *BoostConfig) SetMaxBruteBins(v int) error {
	if v < 0 || v > 30 {
		return errors.NewConfigurationError("maxBruteBins", "must be in [0, 30]", v)
	}
	c.MaxBruteBins = v
	return nil
}

// SetNumericalBinType selects "width" or "depth" numeric binning.
func (c *BoostConfig) SetNumericalBinType(v string) error {
	if v != "width" && v != "depth" {
		return errors.NewConfigurationError("numericalBinType", "must be width or depth", v)
	}
	c.NumericalBinType = v
	return nil
}

// SetFloatPrecision selects single or double gradient storage.
func (c *BoostConfig) SetFloatPrecision(v FloatPrecision) error {
	if v != PrecisionSingle && v != PrecisionDouble {
		return errors.NewConfigurationError("floatPrecision", "must be single or double", v)
	}
	c.FloatPrecision = v
	return nil
}

// SetBaseModelParallelism sets how many base models train per iteration.
func (c *BoostConfig) SetBaseModelParallelism(v int) error {
	if v < 1 {
		return errors.NewConfigurationError("baseModelParallelism", "must be positive", v)
	}
	c.BaseModelParallelism = v
	return nil
}

// Validate re-checks every field and their cross-field constraints. Train
// calls this before the first iteration.
func (c *BoostConfig) Validate() error {
	checks := []func() error{
		func() error { return c.SetMaxIter(c.MaxIter) },
		func() error { return c.SetMaxDepth(c.MaxDepth) },
		func() error { return c.SetMaxLeaves(c.MaxLeaves) },
		func() error { return c.SetMaxBins(c.MaxBins) },
		func() error { return c.SetStepSize(c.StepSize) },
		func() error { return c.SetRegAlpha(c.RegAlpha) },
		func() error { return c.SetRegLambda(c.RegLambda) },
		func() error { return c.SetSubSample(c.SubSample) },
		func() error { return c.SetColSampleByTree(c.ColSampleByTree) },
		func() error { return c.SetColSampleByLevel(c.ColSampleByLevel) },
		func() error { return c.SetBoostType(c.BoostType) },
		func() error { return c.SetDropRate(c.DropRate) },
		func() error { return c.SetDropSkip(c.DropSkip) },
		func() error { return c.SetMaxBruteBins(c.MaxBruteBins) },
		func() error { return c.SetNumericalBinType(c.NumericalBinType) },
		func() error { return c.SetFloatPrecision(c.FloatPrecision) },
		func() error { return c.SetBaseModelParallelism(c.BaseModelParallelism) },
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	if c.MinDrop < 0 {
		return errors.NewConfigurationError("minDrop", "must be non-negative", c.MinDrop)
	}
	if c.MaxDrop < c.MinDrop {
		return errors.NewConfigurationError("maxDrop", "must be at least minDrop", c.MaxDrop)
	}
	if c.MinGain < 0 || math.IsNaN(c.MinGain) {
		return errors.NewConfigurationError("minGain", "must be non-negative", c.MinGain)
	}
	if c.MinNodeHess < 0 || math.IsNaN(c.MinNodeHess) {
		return errors.NewConfigurationError("minNodeHess", "must be non-negative", c.MinNodeHess)
	}
	if c.AggregationDepth < 1 {
		return errors.NewConfigurationError("aggregationDepth", "must be positive", c.AggregationDepth)
	}
	if c.NumPartitions < 1 {
		return errors.NewConfigurationError("numPartitions", "must be positive", c.NumPartitions)
	}
	if c.Objective == nil {
		return errors.NewConfigurationError("objective", "must be set", nil)
	}
	if c.BaseScore != nil && len(c.BaseScore) != c.Objective.RawSize() {
		return errors.NewConfigurationError("baseScore",
			"length must equal the objective raw size", len(c.BaseScore))
	}
	return nil
}

// snapshot returns the immutable per-iteration copy read by worker closures.
func (c *BoostConfig) snapshot() BoostConfig {
	cp := *c
	cp.BaseScore = append([]float64(nil), c.BaseScore...)
	cp.CategoricalCols = append([]int(nil), c.CategoricalCols...)
	cp.RankCols = append([]int(nil), c.RankCols...)
	cp.Evaluators = append([]Evaluator(nil), c.Evaluators...)
	return cp
}

// numericKind maps the config value to a discretizer column kind.
func (c *BoostConfig) numericKind() discretizer.ColumnKind {
	if c.NumericalBinType == "width" {
		return discretizer.NumericWidth
	}
	return discretizer.NumericQuantile
}
