package nn

import (
	"fmt"
	"strings"
)

// Topology describes a fully connected feed-forward network.
//
// Example (4 inputs, one hidden layer of 5, 3 outputs):
//
//	nn.Topology{Inputs: 4, Layers: []int{4, 5, 3}}
//
// Layer 0 neurons each receive the whole input vector; every neuron of layer
// i > 0 receives the activations of all neurons of layer i-1.
type Topology struct {
	Inputs int   // Length of the raw input vector
	Layers []int // Neurons per layer, input side first; the last entry is the output size
}

// Validate checks that all sizes are positive.
func (t Topology) Validate() error {
	if t.Inputs <= 0 {
		return fmt.Errorf("topology: input size must be positive, got %d", t.Inputs)
	}
	if len(t.Layers) == 0 {
		return fmt.Errorf("topology: at least one layer is required")
	}
	for i, size := range t.Layers {
		if size <= 0 {
			return fmt.Errorf("topology: layer %d size must be positive, got %d", i, size)
		}
	}
	return nil
}

// Network is an ordered sequence of layers of neurons trained by error
// back-propagation.
//
// Layers are stored output layer first, the order in which errors are
// propagated. All exported methods take layer indices in input-to-output
// order: layer 0 receives the raw input.
//
// Per training example the network moves through
//
//	SetInput → Forward → CalcNetworkError → UpdateWeights
//
// and each step fails with a StateError if the previous one did not run for
// the current example. Update runs the last three steps.
//
// A Network is not safe for concurrent use.
type Network struct {
	layers    [][]*Neuron // output layer first
	act       Activation
	clock     *cycle
	canonical bool // slot j of every hidden neuron references neuron j of the previous layer

	output                        []float64
	forwardAt, errorAt, updatedAt uint64

	sums [][]float64 // per-layer scratch for summed error contributions, output-first
}

// New builds a fully connected network for topo.
//
// Layer 0 inputs are unset until SetInput is called.
func New(topo Topology, opts ...Option) (*Network, error) {
	if err := topo.Validate(); err != nil {
		return nil, err
	}
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}

	clock := newCycle()
	ordered := make([][]*Neuron, len(topo.Layers))
	for li, size := range topo.Layers {
		fanOut := 0
		if li+1 < len(topo.Layers) {
			fanOut = topo.Layers[li+1]
		}

		var slots []InputSlot
		bound := false
		if li == 0 {
			slots = make([]InputSlot, topo.Inputs)
		} else {
			prev := ordered[li-1]
			slots = make([]InputSlot, len(prev))
			for j, p := range prev {
				slots[j] = Ref(p)
			}
			bound = true
		}

		layer := make([]*Neuron, size)
		for j := range layer {
			layer[j] = newNeuron(slots, o, fanOut, clock, bound)
		}
		ordered[li] = layer
	}

	return assemble(ordered, o.act, clock, true), nil
}

// FromLayers wires a network from neurons built by hand, input layer first.
//
// Layer 0 neurons must have only scalar inputs, all of the same count. Every
// neuron of layer i > 0 must reference each neuron of layer i-1 exactly once
// and nothing else. All neurons must share one activation function. The
// neurons are rebound to the network and their caches dropped.
func FromLayers(layers [][]*Neuron) (*Network, error) {
	if len(layers) == 0 {
		return nil, &InvalidCallError{Op: "FromLayers", Where: "network", Reason: "no layers"}
	}

	seen := make(map[*Neuron]bool)
	var act Activation
	canonical := true
	for li, layer := range layers {
		if len(layer) == 0 {
			return nil, &InvalidCallError{Op: "FromLayers", Where: fmt.Sprintf("layer %d", li), Reason: "empty layer"}
		}
		for j, n := range layer {
			where := fmt.Sprintf("layer %d neuron %d", li, j)
			if n == nil {
				return nil, &InvalidCallError{Op: "FromLayers", Where: where, Reason: "nil neuron"}
			}
			if seen[n] {
				return nil, &InvalidCallError{Op: "FromLayers", Where: where, Reason: "neuron appears more than once"}
			}
			seen[n] = true

			if li == 0 && j == 0 {
				act = n.act
			} else if n.act.Name != act.Name {
				return nil, &InvalidCallError{Op: "FromLayers", Where: where, Reason: fmt.Sprintf("activation %q differs from network activation %q", n.act.Name, act.Name)}
			}

			if li == 0 {
				if err := checkInputNeuron(n, layer[0].NumInputs(), where); err != nil {
					return nil, err
				}
				continue
			}
			ok, err := checkHiddenNeuron(n, layers[li-1], where)
			if err != nil {
				return nil, err
			}
			canonical = canonical && ok
		}
	}

	clock := newCycle()
	for _, layer := range layers {
		for _, n := range layer {
			n.rebind(clock)
		}
	}
	return assemble(layers, act, clock, canonical), nil
}

func checkInputNeuron(n *Neuron, want int, where string) error {
	if want == 0 {
		return &InvalidCallError{Op: "FromLayers", Where: where, Reason: "input layer neurons need at least one input"}
	}
	for i, slot := range n.inputs {
		if slot.kind == slotNeuron {
			return &InvalidCallError{Op: "FromLayers", Where: where, Reason: fmt.Sprintf("input layer slot %d references a neuron", i)}
		}
	}
	if n.NumInputs() != want {
		return &ShapeError{Op: "FromLayers", Where: where, Want: want, Got: n.NumInputs()}
	}
	return nil
}

// checkHiddenNeuron verifies that n references each neuron of prev exactly
// once and reports whether the references are in prev order.
func checkHiddenNeuron(n *Neuron, prev []*Neuron, where string) (bool, error) {
	if n.NumInputs() != len(prev) {
		return false, &ShapeError{Op: "FromLayers", Where: where, Want: len(prev), Got: n.NumInputs()}
	}
	pos := make(map[*Neuron]int, len(prev))
	for j, p := range prev {
		pos[p] = j
	}
	used := make([]bool, len(prev))
	inOrder := true
	for i, slot := range n.inputs {
		if slot.kind != slotNeuron {
			return false, &InvalidCallError{Op: "FromLayers", Where: where, Reason: fmt.Sprintf("slot %d is a scalar; hidden neurons take only neuron inputs", i)}
		}
		j, ok := pos[slot.ref]
		if !ok {
			return false, &InvalidCallError{Op: "FromLayers", Where: where, Reason: fmt.Sprintf("slot %d references a neuron outside the previous layer", i)}
		}
		if used[j] {
			return false, &InvalidCallError{Op: "FromLayers", Where: where, Reason: fmt.Sprintf("previous layer neuron %d referenced twice", j)}
		}
		used[j] = true
		inOrder = inOrder && i == j
	}
	return inOrder, nil
}

// assemble places the neurons and stores the layers output-first.
func assemble(ordered [][]*Neuron, act Activation, clock *cycle, canonical bool) *Network {
	layers := make([][]*Neuron, len(ordered))
	sums := make([][]float64, len(ordered))
	for li, layer := range ordered {
		own := make([]*Neuron, len(layer))
		copy(own, layer)
		for j, n := range own {
			n.place(li, j)
		}
		ri := len(ordered) - 1 - li
		layers[ri] = own
		sums[ri] = make([]float64, len(own))
	}
	return &Network{
		layers:    layers,
		act:       act,
		clock:     clock,
		canonical: canonical,
		sums:      sums,
	}
}

// at returns the layer with input-to-output index i.
func (net *Network) at(i int) []*Neuron {
	return net.layers[len(net.layers)-1-i]
}

// NumLayers returns the number of layers.
func (net *Network) NumLayers() int {
	return len(net.layers)
}

// InputSize returns the length of the raw input vector.
func (net *Network) InputSize() int {
	return net.at(0)[0].NumInputs()
}

// OutputSize returns the number of output neurons.
func (net *Network) OutputSize() int {
	return len(net.layers[0])
}

// Activation returns the activation/derivative pair of the network.
func (net *Network) Activation() Activation {
	return net.act
}

// Topology returns the shape of the network.
func (net *Network) Topology() Topology {
	sizes := make([]int, len(net.layers))
	for i := range sizes {
		sizes[i] = len(net.at(i))
	}
	return Topology{Inputs: net.InputSize(), Layers: sizes}
}

// Layer returns the neurons of layer i (input side is 0). The slice is a copy;
// the neurons are shared.
func (net *Network) Layer(i int) ([]*Neuron, error) {
	if i < 0 || i >= len(net.layers) {
		return nil, &InvalidCallError{Op: "Layer", Where: "network", Reason: fmt.Sprintf("layer %d out of range [0, %d)", i, len(net.layers))}
	}
	layer := net.at(i)
	out := make([]*Neuron, len(layer))
	copy(out, layer)
	return out, nil
}

// Neuron returns neuron j of layer i.
func (net *Network) Neuron(i, j int) (*Neuron, error) {
	layer, err := net.Layer(i)
	if err != nil {
		return nil, err
	}
	if j < 0 || j >= len(layer) {
		return nil, &InvalidCallError{Op: "Neuron", Where: fmt.Sprintf("layer %d", i), Reason: fmt.Sprintf("neuron %d out of range [0, %d)", j, len(layer))}
	}
	return layer[j], nil
}

// SetLearningRate sets the learning rate of every neuron.
func (net *Network) SetLearningRate(lr float64) {
	for _, layer := range net.layers {
		for _, n := range layer {
			n.SetLearningRate(lr)
		}
	}
}

// LearningRate returns the learning rate of the first output neuron.
func (net *Network) LearningRate() float64 {
	return net.layers[0][0].LearningRate()
}

// String summarizes the layer sizes.
func (net *Network) String() string {
	var b strings.Builder
	for i := 0; i < len(net.layers); i++ {
		fmt.Fprintf(&b, "Layer %d: %d neurons\n", i+1, len(net.at(i)))
	}
	fmt.Fprintf(&b, "%d layers, %d inputs, activation %s", len(net.layers), net.InputSize(), net.act.Name)
	return b.String()
}
