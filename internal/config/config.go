// Package config loads training runs from YAML files.
//
// A run file describes the network, the training loop and, optionally, the
// examples to train on:
//
//	network:
//	  inputs: 2
//	  layers: [4, 1]
//	  activation: sigmoid
//	  learning_rate: 0.5
//	  seed: 1
//	training:
//	  epochs: 10000
//	  shuffle: true
//	  target_mse: 0.001
//	  stop_rule: "epoch > 500 && prev_mse - mse < 1e-9"
//	examples:
//	  - {input: [0, 0], expected: [0]}
//	  - {input: [0, 1], expected: [1]}
//
// JSON is valid YAML, so the same files may be written as JSON. Unknown keys
// are rejected.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/backprop/internal/logging"
	"github.com/born-ml/backprop/internal/nn"
	"github.com/born-ml/backprop/internal/optim"
	"github.com/born-ml/backprop/internal/stoprule"
	"github.com/born-ml/backprop/internal/train"
)

// Config is a complete training run.
type Config struct {
	Network  NetworkConfig   `yaml:"network"`
	Training TrainingConfig  `yaml:"training"`
	Logging  LoggingConfig   `yaml:"logging"`
	Examples []train.Example `yaml:"examples"`
}

// NetworkConfig describes the network to build.
type NetworkConfig struct {
	Inputs       int               `yaml:"inputs"`
	Layers       []int             `yaml:"layers"`        // neurons per layer, input side first
	Activation   string            `yaml:"activation"`    // sigmoid (default), tanh, relu, identity
	LearningRate float64           `yaml:"learning_rate"` // per-neuron rate (default 0.1)
	Initializer  InitializerConfig `yaml:"initializer"`
	Seed         *int64            `yaml:"seed"` // weight initialization seed; random when absent
}

// InitializerConfig selects a weight initializer.
type InitializerConfig struct {
	Type  string  `yaml:"type"` // uniform (default), unit, xavier, constant
	Low   float64 `yaml:"low"`  // uniform lower bound (default -2)
	High  float64 `yaml:"high"` // uniform upper bound (default 2)
	Value float64 `yaml:"value"`
}

// TrainingConfig mirrors train.Config.
type TrainingConfig struct {
	Epochs     int                   `yaml:"epochs"`
	BatchSize  int                   `yaml:"batch_size"`
	Workers    int                   `yaml:"workers"`
	Shuffle    bool                  `yaml:"shuffle"`
	Seed       *int64                `yaml:"seed"` // shuffle seed
	TargetMSE  float64               `yaml:"target_mse"`
	Patience   int                   `yaml:"patience"`
	MinDelta   float64               `yaml:"min_delta"`
	StopRule   string                `yaml:"stop_rule"` // CEL expression, see package stoprule
	Schedule   *optim.ScheduleConfig `yaml:"schedule"`
	Optimizer  OptimizerConfig       `yaml:"optimizer"`
	LogEvery   int                   `yaml:"log_every"`
	Checkpoint CheckpointConfig      `yaml:"checkpoint"`
}

// OptimizerConfig selects how batch deltas are applied.
type OptimizerConfig struct {
	Type     string  `yaml:"type"`     // sgd (default) or adam
	Momentum float64 `yaml:"momentum"` // sgd
	LR       float64 `yaml:"lr"`       // adam step size
	Beta1    float64 `yaml:"beta1"`    // adam
	Beta2    float64 `yaml:"beta2"`    // adam
	Epsilon  float64 `yaml:"epsilon"`  // adam
}

// CheckpointConfig enables periodic saving during training.
type CheckpointConfig struct {
	Every int    `yaml:"every"`
	Path  string `yaml:"path"`
}

// LoggingConfig sets the level of the training logger.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info (default), warn, error
}

// Load reads and validates a run file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a run from YAML (or JSON) bytes. Defaults are
// filled in before validation.
func Parse(data []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Network.Activation == "" {
		c.Network.Activation = nn.Sigmoid.Name
	}
	if c.Network.LearningRate == 0 {
		c.Network.LearningRate = nn.DefaultLearningRate
	}
	if c.Network.Initializer.Type == "" {
		c.Network.Initializer.Type = "uniform"
	}
	if c.Network.Initializer.Type == "uniform" && c.Network.Initializer.Low == 0 && c.Network.Initializer.High == 0 {
		c.Network.Initializer.Low, c.Network.Initializer.High = -2, 2
	}
	if c.Training.Optimizer.Type == "" {
		c.Training.Optimizer.Type = "sgd"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks the run without building anything that is expensive.
func (c *Config) Validate() error {
	topo := nn.Topology{Inputs: c.Network.Inputs, Layers: c.Network.Layers}
	if err := topo.Validate(); err != nil {
		return fmt.Errorf("network: %w", err)
	}
	if _, err := nn.ActivationByName(c.Network.Activation); err != nil {
		return fmt.Errorf("network: %w", err)
	}
	if c.Network.LearningRate < 0 {
		return fmt.Errorf("network: learning rate must not be negative, got %v", c.Network.LearningRate)
	}
	if _, err := c.Network.Initializer.build(); err != nil {
		return fmt.Errorf("network: %w", err)
	}
	switch c.Training.Optimizer.Type {
	case "sgd", "adam":
	default:
		return fmt.Errorf("training: unknown optimizer %q", c.Training.Optimizer.Type)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	for i, ex := range c.Examples {
		if len(ex.Input) != topo.Inputs {
			return fmt.Errorf("examples: %w", &nn.ShapeError{Op: "config", Where: fmt.Sprintf("example %d input", i), Want: topo.Inputs, Got: len(ex.Input)})
		}
		if out := topo.Layers[len(topo.Layers)-1]; len(ex.Expected) != out {
			return fmt.Errorf("examples: %w", &nn.ShapeError{Op: "config", Where: fmt.Sprintf("example %d expected", i), Want: out, Got: len(ex.Expected)})
		}
	}
	_, err := c.TrainConfig(nil)
	return err
}

func (ic InitializerConfig) build() (nn.Initializer, error) {
	switch ic.Type {
	case "uniform":
		if ic.Low >= ic.High {
			return nil, fmt.Errorf("uniform initializer needs low < high, got [%v, %v]", ic.Low, ic.High)
		}
		return nn.Uniform(ic.Low, ic.High), nil
	case "unit":
		return nn.UnitRandom(), nil
	case "xavier":
		return nn.Xavier(), nil
	case "constant":
		return nn.Constant(ic.Value), nil
	default:
		return nil, fmt.Errorf("unknown initializer %q", ic.Type)
	}
}

// Topology returns the network shape.
func (c *Config) Topology() nn.Topology {
	return nn.Topology{Inputs: c.Network.Inputs, Layers: c.Network.Layers}
}

// BuildNetwork creates a freshly initialized network.
func (c *Config) BuildNetwork() (*nn.Network, error) {
	act, err := nn.ActivationByName(c.Network.Activation)
	if err != nil {
		return nil, err
	}
	initializer, err := c.Network.Initializer.build()
	if err != nil {
		return nil, err
	}
	opts := []nn.Option{
		nn.WithActivation(act),
		nn.WithLearningRate(c.Network.LearningRate),
		nn.WithInitializer(initializer),
	}
	if c.Network.Seed != nil {
		opts = append(opts, nn.WithSeed(*c.Network.Seed))
	}
	return nn.New(c.Topology(), opts...)
}

// TrainConfig converts the training section. A nil logger uses Logger with
// stderr as destination.
func (c *Config) TrainConfig(logger *slog.Logger) (train.Config, error) {
	tc := c.Training
	cfg := train.Config{
		Epochs:          tc.Epochs,
		BatchSize:       tc.BatchSize,
		Workers:         tc.Workers,
		Shuffle:         tc.Shuffle,
		TargetMSE:       tc.TargetMSE,
		Patience:        tc.Patience,
		MinDelta:        tc.MinDelta,
		LogEvery:        tc.LogEvery,
		CheckpointEvery: tc.Checkpoint.Every,
		CheckpointPath:  tc.Checkpoint.Path,
		Logger:          logger,
	}
	if tc.Seed != nil {
		//nolint:gosec // Using math/rand for example order (not security-critical)
		cfg.Rand = rand.New(rand.NewSource(*tc.Seed))
	}

	switch tc.Optimizer.Type {
	case "", "sgd":
		cfg.Optimizer = optim.NewSGD(optim.SGDConfig{Momentum: tc.Optimizer.Momentum})
	case "adam":
		cfg.Optimizer = optim.NewAdam(optim.AdamConfig{
			LR:      tc.Optimizer.LR,
			Betas:   [2]float64{tc.Optimizer.Beta1, tc.Optimizer.Beta2},
			Epsilon: tc.Optimizer.Epsilon,
		})
	default:
		return train.Config{}, fmt.Errorf("training: unknown optimizer %q", tc.Optimizer.Type)
	}

	if tc.Schedule != nil {
		s, err := optim.NewSchedule(*tc.Schedule)
		if err != nil {
			return train.Config{}, fmt.Errorf("training: %w", err)
		}
		cfg.Schedule = s
	}
	if tc.StopRule != "" {
		r, err := stoprule.New(tc.StopRule)
		if err != nil {
			return train.Config{}, fmt.Errorf("training: %w", err)
		}
		cfg.StopRule = r
	}
	if err := cfg.Validate(); err != nil {
		return train.Config{}, err
	}
	if cfg.Logger == nil {
		l, err := c.Logger(os.Stderr)
		if err != nil {
			return train.Config{}, err
		}
		cfg.Logger = l
	}
	return cfg, nil
}

// Logger returns a text logger writing to w at the configured level.
func (c *Config) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, err
	}
	return logging.New(w, level), nil
}

// Build creates the network and the training configuration. logger may be
// nil, see TrainConfig.
func (c *Config) Build(logger *slog.Logger) (*nn.Network, train.Config, error) {
	net, err := c.BuildNetwork()
	if err != nil {
		return nil, train.Config{}, err
	}
	tc, err := c.TrainConfig(logger)
	if err != nil {
		return nil, train.Config{}, err
	}
	return net, tc, nil
}
