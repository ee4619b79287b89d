package nn

import (
	"fmt"
	"math"
	"sort"
)

// Activation pairs a nonlinearity with its derivative.
//
// Deriv receives both the weighted sum and the activation produced from it,
// so each function can use whichever form is cheaper:
//   - Sigmoid: σ'(s) = σ(s)·(1 − σ(s)) = out·(1 − out)
//   - Tanh:    tanh'(s) = 1 − out²
//
// A network uses one Activation for all of its neurons.
type Activation struct {
	Name  string
	F     func(sum float64) float64
	Deriv func(sum, out float64) float64
}

// Sigmoid is the logistic function 1 / (1 + e^-x), range (0, 1).
var Sigmoid = Activation{
	Name: "sigmoid",
	F: func(x float64) float64 {
		return 1 / (1 + math.Exp(-x))
	},
	Deriv: func(_, out float64) float64 {
		return out * (1 - out)
	},
}

// Tanh is the hyperbolic tangent, range (-1, 1).
var Tanh = Activation{
	Name: "tanh",
	F:    math.Tanh,
	Deriv: func(_, out float64) float64 {
		return 1 - out*out
	},
}

// ReLU is max(0, x). Its derivative at 0 is taken as 0.
var ReLU = Activation{
	Name: "relu",
	F: func(x float64) float64 {
		return math.Max(0, x)
	},
	Deriv: func(sum, _ float64) float64 {
		if sum > 0 {
			return 1
		}
		return 0
	},
}

// Identity passes the weighted sum through unchanged.
var Identity = Activation{
	Name: "identity",
	F: func(x float64) float64 {
		return x
	},
	Deriv: func(_, _ float64) float64 {
		return 1
	},
}

var activations = map[string]Activation{
	Sigmoid.Name:  Sigmoid,
	Tanh.Name:     Tanh,
	ReLU.Name:     ReLU,
	Identity.Name: Identity,
}

// ActivationByName looks up a built-in activation.
func ActivationByName(name string) (Activation, error) {
	act, ok := activations[name]
	if !ok {
		return Activation{}, fmt.Errorf("unknown activation %q (known: %v)", name, ActivationNames())
	}
	return act, nil
}

// ActivationNames returns the names accepted by ActivationByName, sorted.
func ActivationNames() []string {
	names := make([]string, 0, len(activations))
	for name := range activations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (a Activation) valid() bool {
	return a.F != nil && a.Deriv != nil
}
