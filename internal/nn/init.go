package nn

import (
	"math"
	"math/rand"
)

// Initializer fills a freshly allocated weight vector.
//
// fanIn is the number of inputs of the neuron (bias excluded); fanOut is the
// size of the layer it feeds, or 0 when unknown.
type Initializer interface {
	Init(weights []float64, fanIn, fanOut int, rng *rand.Rand)
}

// InitializerFunc adapts a plain function to the Initializer interface.
type InitializerFunc func(weights []float64, fanIn, fanOut int, rng *rand.Rand)

// Init calls f.
func (f InitializerFunc) Init(weights []float64, fanIn, fanOut int, rng *rand.Rand) {
	f(weights, fanIn, fanOut, rng)
}

// Uniform draws every weight from U(lo, hi).
//
// Uniform(-2, 2) is the default initializer.
func Uniform(lo, hi float64) Initializer {
	if lo > hi {
		lo, hi = hi, lo
	}
	return InitializerFunc(func(weights []float64, _, _ int, rng *rand.Rand) {
		for i := range weights {
			weights[i] = lo + rng.Float64()*(hi-lo)
		}
	})
}

// UnitRandom draws every weight from [0, 1).
func UnitRandom() Initializer {
	return InitializerFunc(func(weights []float64, _, _ int, rng *rand.Rand) {
		for i := range weights {
			weights[i] = rng.Float64()
		}
	})
}

// Xavier (Glorot) initialization.
//
// Draws from U(-sqrt(6/(fan_in + fan_out)), sqrt(6/(fan_in + fan_out))).
// An unknown fanOut is treated as 1.
func Xavier() Initializer {
	return InitializerFunc(func(weights []float64, fanIn, fanOut int, rng *rand.Rand) {
		if fanOut <= 0 {
			fanOut = 1
		}
		bound := math.Sqrt(6.0 / float64(fanIn+fanOut))
		for i := range weights {
			weights[i] = (rng.Float64()*2.0 - 1.0) * bound
		}
	})
}

// Constant sets every weight to v. Mostly useful in tests.
func Constant(v float64) Initializer {
	return InitializerFunc(func(weights []float64, _, _ int, _ *rand.Rand) {
		for i := range weights {
			weights[i] = v
		}
	})
}

// DefaultInitializer returns Uniform(-2, 2).
func DefaultInitializer() Initializer {
	return Uniform(-2, 2)
}

func defaultRand() *rand.Rand {
	//nolint:gosec // Using math/rand for weight initialization (not security-critical)
	return rand.New(rand.NewSource(rand.Int63()))
}
