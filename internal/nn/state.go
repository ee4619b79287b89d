package nn

import (
	"fmt"
)

// WeightKey returns the state dict key of neuron j in layer i.
func WeightKey(layer, neuron int) string {
	return fmt.Sprintf("layer.%d.neuron.%d.weight", layer, neuron)
}

// StateDict returns a copy of every weight vector keyed by WeightKey.
func (net *Network) StateDict() map[string][]float64 {
	sd := make(map[string][]float64)
	for li := range net.layers {
		for j, n := range net.at(li) {
			sd[WeightKey(li, j)] = n.Weights()
		}
	}
	return sd
}

// LoadStateDict replaces every weight vector from sd. All entries are checked
// before any weight is written; extra keys are ignored.
func (net *Network) LoadStateDict(sd map[string][]float64) error {
	for li := range net.layers {
		for j, n := range net.at(li) {
			key := WeightKey(li, j)
			w, ok := sd[key]
			if !ok {
				return fmt.Errorf("load state dict: missing %q", key)
			}
			if len(w) != len(n.weights) {
				return &ShapeError{Op: "LoadStateDict", Where: n.String(), Want: len(n.weights), Got: len(w)}
			}
		}
	}
	for li := range net.layers {
		for j, n := range net.at(li) {
			copy(n.weights, sd[WeightKey(li, j)])
		}
	}
	return nil
}

// CopyWeights overwrites the weights and learning rates of net with those of
// src, which must have the same topology.
func (net *Network) CopyWeights(src *Network) error {
	if len(src.layers) != len(net.layers) {
		return &ShapeError{Op: "CopyWeights", Where: "network", Want: len(net.layers), Got: len(src.layers)}
	}
	for li, layer := range net.layers {
		if len(src.layers[li]) != len(layer) {
			return &ShapeError{Op: "CopyWeights", Where: fmt.Sprintf("layer %d", len(net.layers)-1-li), Want: len(layer), Got: len(src.layers[li])}
		}
		for j, n := range layer {
			if len(src.layers[li][j].weights) != len(n.weights) {
				return &ShapeError{Op: "CopyWeights", Where: n.String(), Want: len(n.weights), Got: len(src.layers[li][j].weights)}
			}
		}
	}
	for li, layer := range net.layers {
		for j, n := range layer {
			s := src.layers[li][j]
			copy(n.weights, s.weights)
			n.lr = s.lr
		}
	}
	return nil
}

// Clone returns a deep copy with the same wiring, weights and learning rates.
// The copy has its own example cycle and empty caches; bound scalar inputs are
// copied.
func (net *Network) Clone() *Network {
	clock := newCycle()
	ordered := make([][]*Neuron, len(net.layers))
	for li := range ordered {
		src := net.at(li)
		layer := make([]*Neuron, len(src))
		for j, s := range src {
			slots := make([]InputSlot, len(s.inputs))
			for k, slot := range s.inputs {
				if slot.kind == slotNeuron {
					slots[k] = Ref(ordered[li-1][slot.ref.index])
				} else {
					slots[k] = slot
				}
			}
			weights := make([]float64, len(s.weights))
			copy(weights, s.weights)
			layer[j] = &Neuron{
				inputs:    slots,
				weights:   weights,
				lr:        s.lr,
				act:       s.act,
				layer:     -1,
				index:     -1,
				clock:     clock,
				inputsSet: s.inputsSet,
				scratch:   make([]float64, len(weights)),
			}
		}
		ordered[li] = layer
	}
	return assemble(ordered, net.act, clock, net.canonical)
}
