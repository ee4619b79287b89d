package optim

import (
	"math"

	"github.com/born-ml/backprop/internal/nn"
)

// Adam implements the Adam (Adaptive Moment Estimation) optimizer over batch
// deltas.
//
// Update rule, with g the scaled batch delta of one weight:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * g
//	v_t = beta2 * v_{t-1} + (1-beta2) * g²
//	m_hat = m_t / (1 - beta1^t)
//	v_hat = v_t / (1 - beta2^t)
//	w += lr * m_hat / (sqrt(v_hat) + eps)
//
// Since g already points downhill, the step is added. The neuron learning
// rate only rescales g, which Adam normalizes away; lr here is the step size.
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
type Adam struct {
	lr    float64
	beta1 float64
	beta2 float64
	eps   float64
	t     int
	m, v  nn.DeltaBuffer
	step  nn.DeltaBuffer
}

// AdamConfig holds configuration for Adam optimizer.
type AdamConfig struct {
	LR      float64    // Step size (default: 0.001)
	Betas   [2]float64 // Decay rates for the moment estimates (default: [0.9, 0.999])
	Epsilon float64    // Numerical stability term (default: 1e-8)
}

// NewAdam creates a new Adam optimizer with bias correction.
func NewAdam(config AdamConfig) *Adam {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Epsilon == 0 {
		config.Epsilon = 1e-8
	}
	return &Adam{
		lr:    config.LR,
		beta1: config.Betas[0],
		beta2: config.Betas[1],
		eps:   config.Epsilon,
	}
}

// Step performs a single optimization step.
func (a *Adam) Step(net *nn.Network, deltas nn.DeltaBuffer, scale float64) error {
	if err := checkDeltas("Adam.Step", net, deltas); err != nil {
		return err
	}
	a.m = ensure(a.m, net)
	a.v = ensure(a.v, net)
	a.step = ensure(a.step, net)

	a.t++
	bc1 := 1 - math.Pow(a.beta1, float64(a.t))
	bc2 := 1 - math.Pow(a.beta2, float64(a.t))

	for li, layer := range deltas {
		for j, d := range layer {
			m, v, step := a.m[li][j], a.v[li][j], a.step[li][j]
			for k := range d {
				g := scale * d[k]
				m[k] = a.beta1*m[k] + (1-a.beta1)*g
				v[k] = a.beta2*v[k] + (1-a.beta2)*g*g
				mHat := m[k] / bc1
				vHat := v[k] / bc2
				step[k] = a.lr * mHat / (math.Sqrt(vHat) + a.eps)
			}
		}
	}
	return net.ApplyDeltas(a.step, 1)
}

// Reset clears the moment estimates and the timestep.
func (a *Adam) Reset() {
	a.m, a.v, a.step = nil, nil, nil
	a.t = 0
}

// Name returns "Adam".
func (a *Adam) Name() string {
	return "Adam"
}

// LR returns the step size.
func (a *Adam) LR() float64 {
	return a.lr
}

// SetLR sets the step size.
func (a *Adam) SetLR(lr float64) {
	a.lr = lr
}

// Timestep returns the number of steps taken since the last Reset.
func (a *Adam) Timestep() int {
	return a.t
}
