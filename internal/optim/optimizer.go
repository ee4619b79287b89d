// Package optim applies accumulated weight deltas to a network and schedules
// the learning rate across epochs.
//
// This package provides:
//   - Optimizer interface: applies one mini-batch worth of deltas
//   - SGD: mean of the batch deltas, with optional momentum
//   - Adam: Adaptive Moment Estimation over the batch deltas
//   - Schedule: learning rate per epoch (constant, step, linear, exponential, cosine)
//
// Deltas come from nn.Network.AccumulateDeltas and already include each
// neuron's learning rate and sign, so applying them with scale 1 is one plain
// back-propagation step.
//
// Example usage:
//
//	opt := optim.NewSGD(optim.SGDConfig{Momentum: 0.9})
//	buf := net.NewDeltaBuffer()
//	for _, ex := range batch {
//	    // SetInput, Forward, CalcNetworkError ...
//	    net.AccumulateDeltas(buf)
//	}
//	if err := opt.Step(net, buf, 1/float64(len(batch))); err != nil {
//	    return err
//	}
package optim

import (
	"github.com/born-ml/backprop/internal/nn"
)

// Optimizer is the base interface for all optimization algorithms.
type Optimizer interface {
	// Step updates the weights of net from deltas summed over a batch. scale
	// is usually 1/batchSize. deltas is not modified.
	Step(net *nn.Network, deltas nn.DeltaBuffer, scale float64) error

	// Reset drops any state carried between steps.
	Reset()

	// Name identifies the optimizer in logs.
	Name() string
}

// LRSetter is implemented by optimizers with a step size of their own. The
// trainer calls SetLR whenever the schedule changes the learning rate.
type LRSetter interface {
	SetLR(lr float64)
}

// ensure returns buf when it is shaped like net, otherwise a new zeroed
// buffer.
func ensure(buf nn.DeltaBuffer, net *nn.Network) nn.DeltaBuffer {
	if fits(buf, net.Topology()) {
		return buf
	}
	return net.NewDeltaBuffer()
}

// fits reports whether buf has one entry per weight of a network of topo.
func fits(buf nn.DeltaBuffer, topo nn.Topology) bool {
	if len(buf) != len(topo.Layers) {
		return false
	}
	fanIn := topo.Inputs
	for li, size := range topo.Layers {
		if len(buf[li]) != size {
			return false
		}
		for _, w := range buf[li] {
			if len(w) != fanIn+1 {
				return false
			}
		}
		fanIn = size
	}
	return true
}

func checkDeltas(op string, net *nn.Network, deltas nn.DeltaBuffer) error {
	if !fits(deltas, net.Topology()) {
		return &nn.ShapeError{Op: op, Where: "delta buffer", Want: net.NumLayers(), Got: len(deltas)}
	}
	return nil
}
