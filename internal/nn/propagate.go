package nn

import (
	"fmt"
)

// SetInput binds values to every neuron of layer 0 and starts a new example.
// Weights are not touched. On a length mismatch nothing is modified.
func (net *Network) SetInput(values []float64) error {
	if len(values) != net.InputSize() {
		return &ShapeError{Op: "SetInput", Where: "network", Want: net.InputSize(), Got: len(values)}
	}
	for _, n := range net.at(0) {
		if err := n.SetInput(values); err != nil {
			return err
		}
	}
	return nil
}

// activateUpTo walks layers 0..last in order and activates every neuron. Each
// neuron only reads the cached activations of the layer before it, so the
// walk never recurses.
func (net *Network) activateUpTo(last int) ([]float64, error) {
	var out []float64
	for li := 0; li <= last; li++ {
		layer := net.at(li)
		out = make([]float64, len(layer))
		for j, n := range layer {
			a, err := n.Activate()
			if err != nil {
				return nil, fmt.Errorf("forward: %w", err)
			}
			out[j] = a
		}
	}
	return out, nil
}

// Forward computes the activations of all layers for the bound input and
// returns the output vector. Calling it twice without changing inputs or
// weights yields identical outputs.
func (net *Network) Forward() ([]float64, error) {
	out, err := net.activateUpTo(len(net.layers) - 1)
	if err != nil {
		return nil, err
	}
	net.output = out
	net.forwardAt = net.clock.n
	net.errorAt = 0

	result := make([]float64, len(out))
	copy(result, out)
	return result, nil
}

// ForwardTo computes activations up to and including layer (input side is 0)
// and returns that layer's activations. Running it to the last layer is the
// same as Forward.
func (net *Network) ForwardTo(layer int) ([]float64, error) {
	if layer < 0 || layer >= len(net.layers) {
		return nil, &InvalidCallError{Op: "ForwardTo", Where: "network", Reason: fmt.Sprintf("layer %d out of range [0, %d)", layer, len(net.layers))}
	}
	if layer == len(net.layers)-1 {
		return net.Forward()
	}
	net.errorAt = 0
	return net.activateUpTo(layer)
}

// ActivationsAt returns the cached activations of layer (input side is 0) for
// the current example.
func (net *Network) ActivationsAt(layer int) ([]float64, error) {
	neurons, err := net.Layer(layer)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(neurons))
	for j, n := range neurons {
		if out[j], err = n.Activation(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Output returns the output vector of the last Forward for the current
// example.
func (net *Network) Output() ([]float64, error) {
	if net.forwardAt != net.clock.n {
		return nil, &StateError{Op: "Output", Where: "network", Reason: "forward pass not run for the current example"}
	}
	out := make([]float64, len(net.output))
	copy(out, net.output)
	return out, nil
}

// CalcNetworkError computes the error signal of every neuron for the expected
// output vector.
//
// Output neurons compare against expected. Walking toward the input, each
// neuron's contribution error×weight is summed per source neuron over all of
// that source's downstream consumers, and only then does the source compute
// its own error from the total.
func (net *Network) CalcNetworkError(expected []float64) error {
	if len(expected) != net.OutputSize() {
		return &ShapeError{Op: "CalcNetworkError", Where: "network", Want: net.OutputSize(), Got: len(expected)}
	}
	if net.forwardAt != net.clock.n {
		return &StateError{Op: "CalcNetworkError", Where: "network", Reason: "forward pass not run for the current example"}
	}

	for j, n := range net.layers[0] {
		if _, err := n.CalcError(Expect(expected[j])); err != nil {
			return err
		}
	}

	for li := 1; li < len(net.layers); li++ {
		sums := net.sums[li]
		clear(sums)
		for _, down := range net.layers[li-1] {
			contribs, err := down.ErrorPerInput()
			if err != nil {
				return err
			}
			for _, c := range contribs {
				sums[c.Source.index] += c.Value
			}
		}
		for j, n := range net.layers[li] {
			if _, err := n.CalcError(Upstream(sums[j])); err != nil {
				return err
			}
		}
	}

	net.errorAt = net.clock.n
	return nil
}

// UpdateWeights applies the weight update of every neuron. Every error signal
// is already final, so the order among neurons does not matter.
//
// The deltas of all neurons are computed before any weight changes; if one
// neuron cannot be updated, no weight is modified.
func (net *Network) UpdateWeights() error {
	if net.errorAt != net.clock.n {
		return &StateError{Op: "UpdateWeights", Where: "network", Reason: "errors not computed for the current example"}
	}
	if net.updatedAt == net.clock.n {
		return &StateError{Op: "UpdateWeights", Where: "network", Reason: "weights already updated for the current example"}
	}
	for _, layer := range net.layers {
		for _, n := range layer {
			if n.updatedAt == net.clock.n {
				return &StateError{Op: "UpdateWeights", Where: n.String(), Reason: "weights already updated for the current example"}
			}
		}
	}
	if err := net.computeDeltas(); err != nil {
		return err
	}
	for _, layer := range net.layers {
		for _, n := range layer {
			if err := n.ApplyDeltas(n.scratch); err != nil {
				return err
			}
			n.updatedAt = net.clock.n
		}
	}
	net.updatedAt = net.clock.n
	return nil
}

// computeDeltas fills every neuron's scratch with its deltas for the current
// example. Weights are not touched.
func (net *Network) computeDeltas() error {
	for _, layer := range net.layers {
		for _, n := range layer {
			if err := n.Deltas(n.scratch); err != nil {
				return err
			}
		}
	}
	return nil
}

// Update trains on the bound input: Forward, CalcNetworkError, UpdateWeights.
// It returns the output computed before the weights changed.
func (net *Network) Update(expected []float64) ([]float64, error) {
	if len(expected) != net.OutputSize() {
		return nil, &ShapeError{Op: "Update", Where: "network", Want: net.OutputSize(), Got: len(expected)}
	}
	out, err := net.Forward()
	if err != nil {
		return nil, err
	}
	if err := net.CalcNetworkError(expected); err != nil {
		return nil, err
	}
	if err := net.UpdateWeights(); err != nil {
		return nil, err
	}
	return out, nil
}
