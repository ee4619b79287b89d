// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"github.com/born-ml/backprop/internal/optim"
)

// Optimizer applies accumulated weight deltas to a network.
type Optimizer = optim.Optimizer

// LRSetter is implemented by optimizers with their own step size.
type LRSetter = optim.LRSetter

// SGD (Stochastic Gradient Descent)

// SGD applies deltas directly, with optional momentum.
type SGD = optim.SGD

// SGDConfig contains configuration for SGD.
type SGDConfig = optim.SGDConfig

// NewSGD creates a new SGD optimizer.
//
// Example:
//
//	opt := optim.NewSGD(optim.SGDConfig{Momentum: 0.9})
func NewSGD(config SGDConfig) *SGD {
	return optim.NewSGD(config)
}

// Adam (Adaptive Moment Estimation)

// Adam represents the Adam optimizer.
type Adam = optim.Adam

// AdamConfig contains configuration for Adam.
type AdamConfig = optim.AdamConfig

// NewAdam creates a new Adam optimizer with bias correction.
//
// Example:
//
//	opt := optim.NewAdam(optim.AdamConfig{
//	    LR:      0.001,
//	    Betas:   [2]float64{0.9, 0.999},
//	    Epsilon: 1e-8,
//	})
func NewAdam(config AdamConfig) *Adam {
	return optim.NewAdam(config)
}

// Learning rate schedules

// Schedule returns the learning rate of an epoch.
type Schedule = optim.Schedule

// ScheduleConfig selects a schedule by name.
type ScheduleConfig = optim.ScheduleConfig

// Built-in schedules.
type (
	Constant         = optim.Constant
	StepDecay        = optim.StepDecay
	LinearDecay      = optim.LinearDecay
	ExponentialDecay = optim.ExponentialDecay
	CosineAnnealing  = optim.CosineAnnealing
)

// NewSchedule builds the schedule described by cfg.
func NewSchedule(cfg ScheduleConfig) (Schedule, error) {
	return optim.NewSchedule(cfg)
}
