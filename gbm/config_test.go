package gbm

import (
	"testing"

	"github.com/YuminosukeSato/gobm/pkg/errors"
)

// TestConfigDefaults tests the documented default values
func TestConfigDefaults(t *testing.T) {
	conf := NewBoostConfig()
	if conf.MaxIter != 20 {
		t.Errorf("MaxIter = %d, want 20", conf.MaxIter)
	}
	if conf.MaxDepth != 5 {
		t.Errorf("MaxDepth = %d, want 5", conf.MaxDepth)
	}
	if conf.MaxLeaves != 1000 {
		t.Errorf("MaxLeaves = %d, want 1000", conf.MaxLeaves)
	}
	if conf.StepSize != 0.1 {
		t.Errorf("StepSize = %g, want 0.1", conf.StepSize)
	}
	if conf.RegLambda != 1 {
		t.Errorf("RegLambda = %g, want 1", conf.RegLambda)
	}
	if conf.DropSkip != 0.5 {
		t.Errorf("DropSkip = %g, want 0.5", conf.DropSkip)
	}
	if conf.MaxDrop != 50 {
		t.Errorf("MaxDrop = %d, want 50", conf.MaxDrop)
	}
	if conf.BoostType != GBTree {
		t.Errorf("BoostType = %s, want gbtree", conf.BoostType)
	}
	if conf.CheckpointInterval != 10 {
		t.Errorf("CheckpointInterval = %d, want 10", conf.CheckpointInterval)
	}
	if conf.AggregationDepth != 2 {
		t.Errorf("AggregationDepth = %d, want 2", conf.AggregationDepth)
	}
	if err := conf.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

// TestConfigSettersReject tests reject-at-set-time validation
func TestConfigSettersReject(t *testing.T) {
	conf := NewBoostConfig()

	cases := []struct {
		name string
		call func() error
	}{
		{"maxIter", func() error { return conf.SetMaxIter(0) }},
		{"maxDepth", func() error { return conf.SetMaxDepth(-1) }},
		{"maxLeaves", func() error { return conf.SetMaxLeaves(1) }},
		{"maxBins", func() error { return conf.SetMaxBins(1) }},
		{"stepSize", func() error { return conf.SetStepSize(0) }},
		{"regAlpha", func() error { return conf.SetRegAlpha(-0.5) }},
		{"regLambda", func() error { return conf.SetRegLambda(-1) }},
		{"subSample", func() error { return conf.SetSubSample(0) }},
		{"subSampleHigh", func() error { return conf.SetSubSample(1.5) }},
		{"colSampleByTree", func() error { return conf.SetColSampleByTree(0) }},
		{"colSampleByLevel", func() error { return conf.SetColSampleByLevel(2) }},
		{"dropRate", func() error { return conf.SetDropRate(1.5) }},
		{"dropSkip", func() error { return conf.SetDropSkip(-0.1) }},
		{"maxBruteBins", func() error { return conf.SetMaxBruteBins(31) }},
		{"numericalBinType", func() error { return conf.SetNumericalBinType("cubic") }},
		{"floatPrecision", func() error { return conf.SetFloatPrecision("half") }},
		{"baseModelParallelism", func() error { return conf.SetBaseModelParallelism(0) }},
	}
	for _, c := range cases {
		err := c.call()
		if err == nil {
			t.Errorf("%s: expected a configuration error", c.name)
			continue
		}
		var confErr *errors.ConfigurationError
		if !errors.As(err, &confErr) {
			t.Errorf("%s: expected ConfigurationError, got %T", c.name, err)
		}
	}
}

// TestGossIsRejected tests that the planned goss mode is refused
func TestGossIsRejected(t *testing.T) {
	conf := NewBoostConfig()
	if err := conf.SetBoostType(Goss); err == nil {
		t.Fatal("goss must be rejected at set time")
	}
	conf.BoostType = Goss
	if err := conf.Validate(); err == nil {
		t.Fatal("goss must be rejected by Validate")
	}
}

// TestValidateCrossField tests cross-field constraints
func TestValidateCrossField(t *testing.T) {
	conf := NewBoostConfig()
	conf.MinDrop = 10
	conf.MaxDrop = 5
	if err := conf.Validate(); err == nil {
		t.Error("maxDrop below minDrop must fail validation")
	}

	conf = NewBoostConfig()
	conf.BaseScore = []float64{1, 2}
	if err := conf.Validate(); err == nil {
		t.Error("baseScore longer than the raw size must fail validation")
	}

	conf = NewBoostConfig()
	conf.Objective = nil
	if err := conf.Validate(); err == nil {
		t.Error("missing objective must fail validation")
	}
}
