// Package train runs the epoch loop over training examples.
//
// Each example drives the network through SetInput → Forward →
// CalcNetworkError → UpdateWeights before the next one starts. With a batch
// size above one, examples of a batch are spread over clones of the network
// and their deltas are applied to the network only after the whole batch.
// Stop conditions and cancellation are checked once per epoch.
package train

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/born-ml/backprop/internal/nn"
	"github.com/born-ml/backprop/internal/optim"
)

// Example is one training pair.
type Example struct {
	Input    []float64 `yaml:"input"`
	Expected []float64 `yaml:"expected"`
}

// EpochStats summarizes one finished epoch.
type EpochStats struct {
	Epoch        int           // 1 for the first epoch
	MSE          float64       // mean squared error over the epoch's training outputs
	PrevMSE      float64       // MSE of the previous epoch, +Inf after the first
	BestMSE      float64       // lowest MSE so far, this epoch included
	LearningRate float64       // rate used during the epoch
	Elapsed      time.Duration // since training started
}

// StopRule decides after every epoch whether training should end.
type StopRule interface {
	ShouldStop(stats EpochStats) (bool, error)
}

// StopFunc adapts a function to StopRule.
type StopFunc func(stats EpochStats) (bool, error)

// ShouldStop calls f.
func (f StopFunc) ShouldStop(stats EpochStats) (bool, error) {
	return f(stats)
}

// StopReason tells why training ended.
type StopReason string

// Stop reasons.
const (
	StopEpochs    StopReason = "epochs"     // epoch budget used up
	StopTargetMSE StopReason = "target_mse" // MSE reached Config.TargetMSE
	StopPatience  StopReason = "patience"   // no improvement for Config.Patience epochs
	StopRuleMet   StopReason = "rule"       // Config.StopRule returned true
	StopCancelled StopReason = "cancelled"  // context cancelled
)

// Config controls a training run.
type Config struct {
	Epochs    int        // Maximum number of epochs (required)
	BatchSize int        // Examples per weight update; 0 or 1 updates after every example
	Workers   int        // Goroutines per batch; 0 uses every CPU, 1 disables parallelism
	Shuffle   bool       // Visit examples in a new random order every epoch
	Rand      *rand.Rand // Source for shuffling (default: seeded from the global source)

	Optimizer optim.Optimizer // Applies batch deltas (default: plain SGD)
	Schedule  optim.Schedule  // Learning rate per epoch (default: keep the network's rates)

	TargetMSE float64  // Stop once the epoch MSE is at or below this value; 0 disables
	Patience  int      // Stop after this many epochs without improving by MinDelta; 0 disables
	MinDelta  float64  // Smallest MSE decrease that counts as improvement
	StopRule  StopRule // Custom stop condition, evaluated after the built-in ones

	CheckpointEvery int    // Save the network every N epochs; 0 disables
	CheckpointPath  string // Destination of checkpoints (overwritten each time)

	LogEvery int                    // Log progress at Info every N epochs; 0 logs only the summary
	Logger   *slog.Logger           // Default: slog.Default()
	OnEpoch  func(stats EpochStats) // Called after every epoch
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Epochs <= 0 {
		return fmt.Errorf("train: epochs must be positive, got %d", c.Epochs)
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("train: batch size must not be negative, got %d", c.BatchSize)
	}
	if c.Workers < 0 {
		return fmt.Errorf("train: workers must not be negative, got %d", c.Workers)
	}
	if c.TargetMSE < 0 || math.IsNaN(c.TargetMSE) {
		return fmt.Errorf("train: target MSE must not be negative, got %v", c.TargetMSE)
	}
	if c.Patience < 0 {
		return fmt.Errorf("train: patience must not be negative, got %d", c.Patience)
	}
	if c.MinDelta < 0 {
		return fmt.Errorf("train: min delta must not be negative, got %v", c.MinDelta)
	}
	if c.CheckpointEvery < 0 {
		return fmt.Errorf("train: checkpoint interval must not be negative, got %d", c.CheckpointEvery)
	}
	if c.CheckpointEvery > 0 && c.CheckpointPath == "" {
		return fmt.Errorf("train: checkpoint interval set without a checkpoint path")
	}
	if c.LogEvery < 0 {
		return fmt.Errorf("train: log interval must not be negative, got %d", c.LogEvery)
	}
	return nil
}

// Result describes a finished run.
type Result struct {
	Epochs   int          // Epochs completed
	FinalMSE float64      // MSE of the last completed epoch
	BestMSE  float64      // Lowest epoch MSE
	History  []EpochStats // One entry per completed epoch
	Reason   StopReason
	ModelID  string // ID written into checkpoints, empty without checkpoints
}

// CheckExamples verifies that every example matches the network's input and
// output sizes.
func CheckExamples(net *nn.Network, examples []Example) error {
	if len(examples) == 0 {
		return &nn.InvalidCallError{Op: "Train", Where: "examples", Reason: "no training examples"}
	}
	for i, ex := range examples {
		if len(ex.Input) != net.InputSize() {
			return &nn.ShapeError{Op: "Train", Where: fmt.Sprintf("example %d input", i), Want: net.InputSize(), Got: len(ex.Input)}
		}
		if len(ex.Expected) != net.OutputSize() {
			return &nn.ShapeError{Op: "Train", Where: fmt.Sprintf("example %d expected", i), Want: net.OutputSize(), Got: len(ex.Expected)}
		}
	}
	return nil
}
