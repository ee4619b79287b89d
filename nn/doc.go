// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides feed-forward networks of sigmoid-style neurons trained
// by error back-propagation.
//
// # Overview
//
// This package contains:
//   - Neuron: weighted inputs, a bias weight fed with -1, and an activation
//   - Network: fully connected layers with per-example forward, error and
//     update passes
//   - Activations: Sigmoid, Tanh, ReLU, Identity
//   - Initializers: Uniform (default U(-2, 2)), UnitRandom, Xavier, Constant
//   - Persistence: Save/Load with an integrity checksum
//
// # Basic Usage
//
//	net, err := nn.New(nn.Topology{Inputs: 2, Layers: []int{4, 1}},
//	    nn.WithLearningRate(0.5))
//	if err != nil {
//	    return err
//	}
//
//	// One training step
//	if err := net.SetInput([]float64{1, 0}); err != nil {
//	    return err
//	}
//	out, err := net.Update([]float64{1})
//
// # Example Cycle
//
// Every example moves the network through four states:
//
//	SetInput → Forward → CalcNetworkError → UpdateWeights
//
// Reading a value that has not been computed for the current example returns
// a StateError instead of a stale number. SetInput starts the next example.
//
// # Errors
//
// All errors are typed and unwrap to ErrShapeMismatch, ErrInvalidCall or
// ErrUninitialized:
//
//	if errors.Is(err, nn.ErrShapeMismatch) {
//	    var se *nn.ShapeError
//	    errors.As(err, &se)
//	    log.Printf("%s wants %d values", se.Where, se.Want)
//	}
//
// # Persistence
//
//	id, err := net.SaveFile("xor.mlpw", nn.SaveOptions{})
//	restored, info, err := nn.LoadFile("xor.mlpw")
//
// The file starts with a fixed header holding a SHA-256 checksum of the
// weight data; a file with corrupted weights fails to load.
package nn
