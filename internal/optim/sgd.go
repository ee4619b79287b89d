package optim

import (
	"github.com/born-ml/backprop/internal/nn"
)

// SGD implements Stochastic Gradient Descent with optional momentum.
//
// Update rule without momentum:
//
//	w += scale · Σ delta
//
// Update rule with momentum:
//
//	velocity = momentum · velocity + scale · Σ delta
//	w += velocity
//
// With a batch of one and no momentum this is exactly the per-example update
// of nn.Network.UpdateWeights.
type SGD struct {
	momentum float64
	velocity nn.DeltaBuffer
}

// SGDConfig holds configuration for SGD optimizer.
type SGDConfig struct {
	Momentum float64 // Momentum factor (default: 0.0, range: [0, 1))
}

// NewSGD creates a new SGD optimizer.
func NewSGD(config SGDConfig) *SGD {
	return &SGD{momentum: config.Momentum}
}

// Step performs a single optimization step.
func (s *SGD) Step(net *nn.Network, deltas nn.DeltaBuffer, scale float64) error {
	if s.momentum == 0 {
		return net.ApplyDeltas(deltas, scale)
	}

	if err := checkDeltas("SGD.Step", net, deltas); err != nil {
		return err
	}
	s.velocity = ensure(s.velocity, net)
	for li, layer := range deltas {
		for j, d := range layer {
			v := s.velocity[li][j]
			for k := range d {
				v[k] = s.momentum*v[k] + scale*d[k]
			}
		}
	}
	return net.ApplyDeltas(s.velocity, 1)
}

// Reset clears the velocity.
func (s *SGD) Reset() {
	s.velocity = nil
}

// Name returns "SGD".
func (s *SGD) Name() string {
	return "SGD"
}

// Momentum returns the momentum factor.
func (s *SGD) Momentum() float64 {
	return s.momentum
}
