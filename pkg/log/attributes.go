// Package log defines standard attribute keys for boosting operations.
//
// This file contains predefined attribute keys that provide consistency across
// all logging operations in gobm. Using these standard keys enables better
// log analysis, monitoring, and debugging of training workflows.
//
// The keys follow a hierarchical naming convention (e.g., "data.samples",
// "training.iteration") to enable structured log analysis and filtering.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of model.
	// Examples: "GBM", "Discretizer"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "checkpoint"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component or package is performing the operation.
	// Examples: "gbm.boost", "gbm.learner", "discretizer", "exec"
	ComponentKey = "ml.component"

	// BoostTypeKey records the boosting mode.
	// Values: "gbtree", "dart"
	BoostTypeKey = "boost.type"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	FeaturesKey = "data.features"

	// PartitionsKey indicates the number of partitions of a dataset.
	PartitionsKey = "data.partitions"

	// BlockSizeKey indicates the number of rows per packed bin block.
	BlockSizeKey = "data.block_size"

	// BinsKey indicates the maximum number of bins per column.
	BinsKey = "data.bins"

	// RawSizeKey indicates the per-row raw prediction width.
	RawSizeKey = "data.raw_size"
)

// Training Progress
const (
	// IterationKey records the current boosting iteration.
	IterationKey = "training.iteration"

	// TreesKey records the current ensemble size.
	TreesKey = "training.trees"

	// DroppedKey records how many trees were dropped in a DART round.
	DroppedKey = "training.dropped"

	// DepthKey records the tree level currently being expanded.
	DepthKey = "training.depth"

	// LossKey records a loss value during training or evaluation.
	LossKey = "metrics.loss"

	// MetricKey records the name of an evaluation metric.
	MetricKey = "metrics.name"

	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"
)
