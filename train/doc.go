// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package train runs the epoch loop for networks from package nn.
//
// # Basic Usage
//
//	net, _ := nn.New(nn.Topology{Inputs: 2, Layers: []int{4, 1}},
//	    nn.WithLearningRate(0.5))
//
//	xor := []train.Example{
//	    {Input: []float64{0, 0}, Expected: []float64{0}},
//	    {Input: []float64{0, 1}, Expected: []float64{1}},
//	    {Input: []float64{1, 0}, Expected: []float64{1}},
//	    {Input: []float64{1, 1}, Expected: []float64{0}},
//	}
//	res, err := train.Train(ctx, net, xor, train.Config{
//	    Epochs:    10000,
//	    Shuffle:   true,
//	    TargetMSE: 0.001,
//	})
//
// # Batches
//
// With BatchSize above one, the examples of a batch run on copies of the
// network spread over Workers goroutines. Their deltas are summed and applied
// once through Config.Optimizer.
//
// # Stopping
//
// After every epoch, in order: TargetMSE, Patience, then StopRule. A CEL
// rule can be compiled with NewStopRule. Cancelling ctx stops the run
// before the next epoch.
//
// # Run Files
//
//	cfg, err := train.LoadConfig("xor.yaml")
//	net, tcfg, err := cfg.Build(nil)
//	res, err := train.Train(ctx, net, cfg.Examples, tcfg)
package train
