// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides optimizers and learning rate schedules for training
// networks in mini-batches.
//
// # Overview
//
// This package contains:
//   - SGD: applies the summed batch deltas, with optional momentum
//   - Adam: Adaptive Moment Estimation with bias correction
//   - Schedules: Constant, StepDecay, LinearDecay, ExponentialDecay,
//     CosineAnnealing
//   - Optimizer interface for custom optimizers
//
// Deltas already carry each neuron's learning rate and sign, so plain SGD
// with scale 1 is exactly one online update.
//
// # Basic Usage
//
//	opt := optim.NewSGD(optim.SGDConfig{Momentum: 0.9})
//
//	buf := net.NewDeltaBuffer()
//	for _, ex := range batch {
//	    net.SetInput(ex.Input)
//	    net.Forward()
//	    net.CalcNetworkError(ex.Expected)
//	    net.AccumulateDeltas(buf)
//	}
//	if err := opt.Step(net, buf, 1/float64(len(batch))); err != nil {
//	    return err
//	}
//
// Most callers let package train run this loop.
//
// # Schedules
//
//	sched, err := optim.NewSchedule(optim.ScheduleConfig{
//	    Type:    "step",
//	    Initial: 0.5,
//	    Gamma:   0.5,
//	    Every:   1000,
//	})
//	lr := sched.LR(epoch)
package optim
