// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"io"

	"github.com/born-ml/backprop/internal/nn"
)

// BiasInput is the constant value fed to every neuron's bias weight.
const BiasInput = nn.BiasInput

// DefaultLearningRate is used when no learning rate option is given.
const DefaultLearningRate = nn.DefaultLearningRate

// Errors

// Sentinel errors matched with errors.Is.
var (
	ErrShapeMismatch = nn.ErrShapeMismatch
	ErrInvalidCall   = nn.ErrInvalidCall
	ErrUninitialized = nn.ErrUninitialized
)

// ShapeError reports a vector whose length does not match the configured size.
type ShapeError = nn.ShapeError

// InvalidCallError reports an operation used in the wrong mode.
type InvalidCallError = nn.InvalidCallError

// StateError reports a read of state that was not computed for the current
// example.
type StateError = nn.StateError

// Neurons

// Neuron is a single unit with weighted inputs, a bias weight and an
// activation function.
type Neuron = nn.Neuron

// InputSlot is one input of a neuron: a scalar or a reference to another
// neuron.
type InputSlot = nn.InputSlot

// ErrorRequest selects output or hidden mode for Neuron.CalcError.
type ErrorRequest = nn.ErrorRequest

// Contribution is one error×weight term sent back to a source neuron.
type Contribution = nn.Contribution

// Scalar returns an input slot bound to v.
func Scalar(v float64) InputSlot {
	return nn.Scalar(v)
}

// Ref returns an input slot that reads n's activation.
func Ref(n *Neuron) InputSlot {
	return nn.Ref(n)
}

// Expect builds an output-mode error request.
func Expect(v float64) ErrorRequest {
	return nn.Expect(v)
}

// Upstream builds a hidden-mode error request.
func Upstream(v float64) ErrorRequest {
	return nn.Upstream(v)
}

// NewNeuron creates a neuron over the given inputs.
//
// Example:
//
//	n, err := nn.NewNeuron([]nn.InputSlot{nn.Scalar(1), nn.Scalar(0)},
//	    nn.WithLearningRate(0.5))
func NewNeuron(inputs []InputSlot, opts ...Option) (*Neuron, error) {
	return nn.NewNeuron(inputs, opts...)
}

// NewInputNeuron creates a neuron with n unset scalar inputs.
func NewInputNeuron(n int, opts ...Option) (*Neuron, error) {
	return nn.NewInputNeuron(n, opts...)
}

// Networks

// Network is a layered feed-forward network trained by back-propagation.
type Network = nn.Network

// Topology describes a fully connected network.
type Topology = nn.Topology

// DeltaBuffer accumulates weight deltas over several examples.
type DeltaBuffer = nn.DeltaBuffer

// New builds a fully connected network.
//
// Example:
//
//	net, err := nn.New(nn.Topology{Inputs: 2, Layers: []int{4, 1}},
//	    nn.WithLearningRate(0.5), nn.WithSeed(1))
func New(topo Topology, opts ...Option) (*Network, error) {
	return nn.New(topo, opts...)
}

// FromLayers wires a network from neurons built by hand, input layer first.
func FromLayers(layers [][]*Neuron) (*Network, error) {
	return nn.FromLayers(layers)
}

// WeightKey returns the state dict key of a neuron.
func WeightKey(layer, neuron int) string {
	return nn.WeightKey(layer, neuron)
}

// Activations

// Activation pairs an activation function with its derivative.
type Activation = nn.Activation

// Built-in activations.
var (
	Sigmoid  = nn.Sigmoid
	Tanh     = nn.Tanh
	ReLU     = nn.ReLU
	Identity = nn.Identity
)

// ActivationByName looks up a built-in activation.
func ActivationByName(name string) (Activation, error) {
	return nn.ActivationByName(name)
}

// Options and initializers

// Option configures neurons and networks.
type Option = nn.Option

// Initializer fills a freshly allocated weight vector.
type Initializer = nn.Initializer

// InitializerFunc adapts a function to Initializer.
type InitializerFunc = nn.InitializerFunc

// WithActivation sets the activation function (default Sigmoid).
func WithActivation(act Activation) Option {
	return nn.WithActivation(act)
}

// WithLearningRate sets the learning rate (default 0.1).
func WithLearningRate(lr float64) Option {
	return nn.WithLearningRate(lr)
}

// WithInitializer sets the weight initializer (default Uniform(-2, 2)).
func WithInitializer(init Initializer) Option {
	return nn.WithInitializer(init)
}

// WithSeed seeds the random source used by the initializer.
func WithSeed(seed int64) Option {
	return nn.WithSeed(seed)
}

// Uniform draws weights from U(lo, hi).
func Uniform(lo, hi float64) Initializer {
	return nn.Uniform(lo, hi)
}

// UnitRandom draws weights from [0, 1).
func UnitRandom() Initializer {
	return nn.UnitRandom()
}

// Xavier draws weights with Glorot scaling.
func Xavier() Initializer {
	return nn.Xavier()
}

// Constant sets every weight to v.
func Constant(v float64) Initializer {
	return nn.Constant(v)
}

// Loss

// MSE computes the mean squared error between outputs and targets.
func MSE(outputs, targets []float64) (float64, error) {
	return nn.MSE(outputs, targets)
}

// Persistence

// SaveOptions controls what Network.Save writes besides the weights.
type SaveOptions = nn.SaveOptions

// Checkpoint is training state stored with the weights.
type Checkpoint = nn.Checkpoint

// ModelInfo is what Load reports about a saved network.
type ModelInfo = nn.ModelInfo

// Load reads a network written by Network.Save.
func Load(r io.Reader, opts ...Option) (*Network, *ModelInfo, error) {
	return nn.Load(r, opts...)
}

// LoadFile reads a network written by Network.SaveFile.
func LoadFile(path string, opts ...Option) (*Network, *ModelInfo, error) {
	return nn.LoadFile(path, opts...)
}
