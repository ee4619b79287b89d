package optim

import (
	"fmt"
	"math"
)

// Schedule returns the learning rate for an epoch. Epochs count from 0.
type Schedule interface {
	LR(epoch int) float64
	Name() string
}

// Constant keeps the learning rate fixed.
type Constant struct {
	Rate float64
}

// LR returns Rate.
func (s Constant) LR(int) float64 { return s.Rate }

// Name returns "constant".
func (s Constant) Name() string { return "constant" }

// StepDecay multiplies the rate by Gamma every Every epochs.
//
//	lr = Initial · Gamma^⌊epoch / Every⌋
type StepDecay struct {
	Initial float64
	Gamma   float64
	Every   int
}

// LR returns the decayed rate.
func (s StepDecay) LR(epoch int) float64 {
	if s.Every <= 0 {
		return s.Initial
	}
	return s.Initial * math.Pow(s.Gamma, float64(epoch/s.Every))
}

// Name returns "step".
func (s StepDecay) Name() string { return "step" }

// LinearDecay interpolates from Initial to Final over Epochs epochs and stays
// at Final afterwards.
type LinearDecay struct {
	Initial float64
	Final   float64
	Epochs  int
}

// LR returns the interpolated rate.
func (s LinearDecay) LR(epoch int) float64 {
	if epoch >= s.Epochs {
		return s.Final
	}
	progress := float64(epoch) / float64(s.Epochs)
	return s.Initial + (s.Final-s.Initial)*progress
}

// Name returns "linear".
func (s LinearDecay) Name() string { return "linear" }

// ExponentialDecay multiplies the rate by Rate once per epoch.
//
//	lr = Initial · Rate^epoch
type ExponentialDecay struct {
	Initial float64
	Rate    float64
}

// LR returns the decayed rate.
func (s ExponentialDecay) LR(epoch int) float64 {
	return s.Initial * math.Pow(s.Rate, float64(epoch))
}

// Name returns "exponential".
func (s ExponentialDecay) Name() string { return "exponential" }

// CosineAnnealing follows half a cosine from Initial down to Min over Epochs
// epochs and stays at Min afterwards.
//
//	lr = Min + (Initial − Min) · (1 + cos(π · epoch / Epochs)) / 2
type CosineAnnealing struct {
	Initial float64
	Min     float64
	Epochs  int
}

// LR returns the annealed rate.
func (s CosineAnnealing) LR(epoch int) float64 {
	if epoch >= s.Epochs {
		return s.Min
	}
	progress := float64(epoch) / float64(s.Epochs)
	return s.Min + (s.Initial-s.Min)*(1+math.Cos(math.Pi*progress))/2
}

// Name returns "cosine".
func (s CosineAnnealing) Name() string { return "cosine" }

// ScheduleConfig selects a schedule by name. Unused fields are ignored.
type ScheduleConfig struct {
	Type    string  `yaml:"type"`    // constant, step, linear, exponential, cosine
	Initial float64 `yaml:"initial"` // starting rate
	Final   float64 `yaml:"final"`   // linear: end rate; cosine: minimum
	Gamma   float64 `yaml:"gamma"`   // step: factor; exponential: per-epoch factor
	Every   int     `yaml:"every"`   // step: epochs between decays
	Epochs  int     `yaml:"epochs"`  // linear, cosine: length of the decay
}

// NewSchedule builds the schedule described by cfg.
func NewSchedule(cfg ScheduleConfig) (Schedule, error) {
	if cfg.Initial <= 0 {
		return nil, fmt.Errorf("schedule: initial rate must be positive, got %v", cfg.Initial)
	}
	switch cfg.Type {
	case "", "constant":
		return Constant{Rate: cfg.Initial}, nil
	case "step":
		if cfg.Every <= 0 {
			return nil, fmt.Errorf("schedule %q: every must be positive, got %d", cfg.Type, cfg.Every)
		}
		if cfg.Gamma <= 0 || cfg.Gamma > 1 {
			return nil, fmt.Errorf("schedule %q: gamma must be in (0, 1], got %v", cfg.Type, cfg.Gamma)
		}
		return StepDecay{Initial: cfg.Initial, Gamma: cfg.Gamma, Every: cfg.Every}, nil
	case "linear":
		if cfg.Epochs <= 0 {
			return nil, fmt.Errorf("schedule %q: epochs must be positive, got %d", cfg.Type, cfg.Epochs)
		}
		return LinearDecay{Initial: cfg.Initial, Final: cfg.Final, Epochs: cfg.Epochs}, nil
	case "exponential":
		if cfg.Gamma <= 0 || cfg.Gamma > 1 {
			return nil, fmt.Errorf("schedule %q: gamma must be in (0, 1], got %v", cfg.Type, cfg.Gamma)
		}
		return ExponentialDecay{Initial: cfg.Initial, Rate: cfg.Gamma}, nil
	case "cosine":
		if cfg.Epochs <= 0 {
			return nil, fmt.Errorf("schedule %q: epochs must be positive, got %d", cfg.Type, cfg.Epochs)
		}
		return CosineAnnealing{Initial: cfg.Initial, Min: cfg.Final, Epochs: cfg.Epochs}, nil
	default:
		return nil, fmt.Errorf("unknown schedule %q", cfg.Type)
	}
}
