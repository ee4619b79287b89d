// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package train

import (
	"context"

	"github.com/born-ml/backprop/internal/config"
	"github.com/born-ml/backprop/internal/logging"
	"github.com/born-ml/backprop/internal/nn"
	"github.com/born-ml/backprop/internal/stoprule"
	"github.com/born-ml/backprop/internal/train"
)

// Example is one training pair.
type Example = train.Example

// EpochStats summarizes one finished epoch.
type EpochStats = train.EpochStats

// Config controls a training run.
type Config = train.Config

// Result describes a finished run.
type Result = train.Result

// Trainer trains one network.
type Trainer = train.Trainer

// Stop conditions

// StopRule decides after every epoch whether training should end.
type StopRule = train.StopRule

// StopFunc adapts a function to StopRule.
type StopFunc = train.StopFunc

// StopReason tells why training ended.
type StopReason = train.StopReason

// Stop reasons.
const (
	StopEpochs    = train.StopEpochs
	StopTargetMSE = train.StopTargetMSE
	StopPatience  = train.StopPatience
	StopRuleMet   = train.StopRuleMet
	StopCancelled = train.StopCancelled
)

// Rule is a compiled CEL stop expression.
type Rule = stoprule.Rule

// NewStopRule compiles a CEL expression over epoch, mse, prev_mse, best_mse,
// lr and elapsed_seconds.
//
// Example:
//
//	rule, err := train.NewStopRule("epoch > 500 && prev_mse - mse < 1e-9")
func NewStopRule(expression string) (*Rule, error) {
	return stoprule.New(expression)
}

// Training

// New prepares a Trainer.
func New(net *nn.Network, cfg Config) (*Trainer, error) {
	return train.New(net, cfg)
}

// Train runs the epoch loop on net.
//
// Example:
//
//	res, err := train.Train(ctx, net, examples, train.Config{
//	    Epochs:    10000,
//	    TargetMSE: 0.001,
//	})
func Train(ctx context.Context, net *nn.Network, examples []Example, cfg Config) (*Result, error) {
	return train.Train(ctx, net, examples, cfg)
}

// Evaluation

// DecisionRule maps an output vector to a class label.
type DecisionRule = train.DecisionRule

// Metrics summarizes a pass over a data set.
type Metrics = train.Metrics

// Argmax labels a vector with the index of its largest entry.
func Argmax(v []float64) int {
	return train.Argmax(v)
}

// MaxThresholdOutputs is the widest output Threshold can label.
const MaxThresholdOutputs = train.MaxThresholdOutputs

// Threshold labels a vector by which entries exceed cut, or -1 when it has
// more than MaxThresholdOutputs entries.
func Threshold(cut float64) DecisionRule {
	return train.Threshold(cut)
}

// Predict binds input and returns the network output.
func Predict(net *nn.Network, input []float64) ([]float64, error) {
	return train.Predict(net, input)
}

// Evaluate scores net on examples without training.
func Evaluate(net *nn.Network, examples []Example, rule DecisionRule) (Metrics, error) {
	return train.Evaluate(net, examples, rule)
}

// Run files

// RunConfig is a training run loaded from YAML.
type RunConfig = config.Config

// LoadConfig reads and validates a YAML run file.
func LoadConfig(path string) (*RunConfig, error) {
	return config.Load(path)
}

// ParseConfig decodes and validates a YAML run.
func ParseConfig(data []byte) (*RunConfig, error) {
	return config.Parse(data)
}

// ConfigureLogging installs a text logger on stdout as the slog default, at
// the level named by BACKPROP_LOG_LEVEL.
func ConfigureLogging() {
	logging.ConfigureLogging()
}
