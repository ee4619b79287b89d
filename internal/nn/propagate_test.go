package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	truthInputs = [][]float64{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	andTargets  = [][]float64{{0}, {0}, {0}, {1}}
	xorTargets  = [][]float64{{0}, {1}, {1}, {0}}
)

// trainOnline runs epochs of per-example updates and returns the MSE measured
// after each epoch.
func trainOnline(t *testing.T, net *Network, inputs, targets [][]float64, epochs int) []float64 {
	t.Helper()
	history := make([]float64, 0, epochs)
	for e := 0; e < epochs; e++ {
		for i, in := range inputs {
			require.NoError(t, net.SetInput(in))
			_, err := net.Update(targets[i])
			require.NoError(t, err)
		}
		history = append(history, datasetMSE(t, net, inputs, targets))
	}
	return history
}

func datasetMSE(t *testing.T, net *Network, inputs, targets [][]float64) float64 {
	t.Helper()
	var total float64
	for i, in := range inputs {
		out := predict(t, net, in)
		mse, err := MSE(out, targets[i])
		require.NoError(t, err)
		total += mse
	}
	return total / float64(len(inputs))
}

func predict(t *testing.T, net *Network, in []float64) []float64 {
	t.Helper()
	require.NoError(t, net.SetInput(in))
	out, err := net.Forward()
	require.NoError(t, err)
	return out
}

func TestForward_Idempotent(t *testing.T) {
	net, err := New(Topology{Inputs: 3, Layers: []int{4, 2}}, WithSeed(11))
	require.NoError(t, err)
	require.NoError(t, net.SetInput([]float64{0.2, -1, 0.7}))

	first, err := net.Forward()
	require.NoError(t, err)
	second, err := net.Forward()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	out, err := net.Output()
	require.NoError(t, err)
	assert.Equal(t, first, out)
}

func TestSetInput_ShapeMismatchLeavesStateUnchanged(t *testing.T) {
	net, err := New(Topology{Inputs: 2, Layers: []int{3, 1}}, WithSeed(5))
	require.NoError(t, err)
	require.NoError(t, net.SetInput([]float64{1, 0}))
	out, err := net.Forward()
	require.NoError(t, err)
	weights := net.StateDict()

	err = net.SetInput([]float64{1, 0, 1})
	require.ErrorIs(t, err, ErrShapeMismatch)
	var shapeErr *ShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, "network", shapeErr.Where)

	assert.Equal(t, weights, net.StateDict())
	first, err := net.Layer(0)
	require.NoError(t, err)
	for _, n := range first {
		assert.Equal(t, 1.0, n.Inputs()[0].Value())
		assert.Equal(t, 0.0, n.Inputs()[1].Value())
	}

	cached, err := net.Output()
	require.NoError(t, err)
	assert.Equal(t, out, cached)
	again, err := net.Forward()
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestNetwork_StateMachine(t *testing.T) {
	net, err := New(Topology{Inputs: 2, Layers: []int{2, 1}}, WithSeed(2))
	require.NoError(t, err)

	_, err = net.Forward()
	assert.ErrorIs(t, err, ErrUninitialized, "forward before any input")

	require.NoError(t, net.SetInput([]float64{1, 1}))
	_, err = net.Output()
	assert.ErrorIs(t, err, ErrUninitialized)
	assert.ErrorIs(t, net.CalcNetworkError([]float64{1}), ErrUninitialized)
	assert.ErrorIs(t, net.UpdateWeights(), ErrUninitialized)

	_, err = net.Forward()
	require.NoError(t, err)
	assert.ErrorIs(t, net.CalcNetworkError([]float64{1, 0}), ErrShapeMismatch)
	assert.ErrorIs(t, net.UpdateWeights(), ErrUninitialized)

	require.NoError(t, net.CalcNetworkError([]float64{1}))
	require.NoError(t, net.UpdateWeights())
	assert.ErrorIs(t, net.UpdateWeights(), ErrUninitialized, "second update for one example")

	// A new example invalidates everything computed for the previous one.
	require.NoError(t, net.SetInput([]float64{0, 1}))
	assert.ErrorIs(t, net.CalcNetworkError([]float64{1}), ErrUninitialized)
	for i := 0; i < net.NumLayers(); i++ {
		_, err := net.ActivationsAt(i)
		assert.ErrorIs(t, err, ErrUninitialized)
	}
}

func TestNetwork_ForwardAfterErrorNeedsNewErrors(t *testing.T) {
	net, err := New(Topology{Inputs: 2, Layers: []int{2, 1}}, WithSeed(2))
	require.NoError(t, err)
	require.NoError(t, net.SetInput([]float64{1, 1}))
	_, err = net.Forward()
	require.NoError(t, err)
	require.NoError(t, net.CalcNetworkError([]float64{1}))

	_, err = net.Forward()
	require.NoError(t, err)
	assert.ErrorIs(t, net.UpdateWeights(), ErrUninitialized)
}

func TestNetwork_Update(t *testing.T) {
	net, err := New(Topology{Inputs: 2, Layers: []int{2, 1}}, WithSeed(4))
	require.NoError(t, err)

	_, err = net.Update([]float64{1, 1})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	require.NoError(t, net.SetInput([]float64{1, 0}))
	before, err := net.Forward()
	require.NoError(t, err)
	weights := net.StateDict()

	got, err := net.Update([]float64{1})
	require.NoError(t, err)
	assert.Equal(t, before, got)
	assert.NotEqual(t, weights, net.StateDict())
}

func TestNetwork_UpdateWeightsAllOrNothing(t *testing.T) {
	net, err := New(Topology{Inputs: 2, Layers: []int{2, 1}}, WithSeed(6), WithLearningRate(0.5))
	require.NoError(t, err)
	ref := net.Clone()

	require.NoError(t, net.SetInput([]float64{1, 0}))
	_, err = net.Forward()
	require.NoError(t, err)
	require.NoError(t, net.CalcNetworkError([]float64{1}))

	// Re-activating a hidden neuron drops its error signal, so it is the one
	// neuron that cannot be updated.
	hidden, err := net.Neuron(0, 1)
	require.NoError(t, err)
	_, err = hidden.Activate()
	require.NoError(t, err)

	before := net.StateDict()
	err = net.UpdateWeights()
	require.ErrorIs(t, err, ErrUninitialized)
	assert.Equal(t, before, net.StateDict())

	// The example can still be completed once the errors are recomputed.
	require.NoError(t, net.CalcNetworkError([]float64{1}))
	require.NoError(t, net.UpdateWeights())

	require.NoError(t, ref.SetInput([]float64{1, 0}))
	_, err = ref.Update([]float64{1})
	require.NoError(t, err)
	assert.Equal(t, ref.StateDict(), net.StateDict())
}

func TestForwardTo(t *testing.T) {
	net, err := New(Topology{Inputs: 2, Layers: []int{3, 2, 1}}, WithSeed(9))
	require.NoError(t, err)
	require.NoError(t, net.SetInput([]float64{0.5, -0.5}))

	hidden, err := net.ForwardTo(1)
	require.NoError(t, err)
	assert.Len(t, hidden, 2)

	_, err = net.Output()
	assert.ErrorIs(t, err, ErrUninitialized, "output layer not computed yet")

	cached, err := net.ActivationsAt(1)
	require.NoError(t, err)
	assert.Equal(t, hidden, cached)

	out, err := net.ForwardTo(2)
	require.NoError(t, err)
	full, err := net.Output()
	require.NoError(t, err)
	assert.Equal(t, out, full)

	_, err = net.ForwardTo(3)
	assert.ErrorIs(t, err, ErrInvalidCall)
}

// TestCalcNetworkError_SumsFanOut checks that a hidden neuron feeding several
// outputs receives the sum of every downstream contribution.
func TestCalcNetworkError_SumsFanOut(t *testing.T) {
	net, err := New(Topology{Inputs: 1, Layers: []int{1, 3}}, WithSeed(3))
	require.NoError(t, err)
	require.NoError(t, net.SetInput([]float64{0.8}))
	_, err = net.Forward()
	require.NoError(t, err)
	require.NoError(t, net.CalcNetworkError([]float64{1, 0, 1}))

	h, err := net.Neuron(0, 0)
	require.NoError(t, err)
	outs, err := net.Layer(1)
	require.NoError(t, err)

	var upstream float64
	for _, o := range outs {
		e, err := o.ErrorSignal()
		require.NoError(t, err)
		upstream += e * o.Weights()[0]
	}
	a, err := h.Activation()
	require.NoError(t, err)
	got, err := h.ErrorSignal()
	require.NoError(t, err)
	assert.InDelta(t, a*(1-a)*upstream, got, 1e-15)
}

// TestUpdate_FollowsLossGradient compares the weight deltas with a central
// difference of ½·Σ(target − output)².
func TestUpdate_FollowsLossGradient(t *testing.T) {
	for _, act := range []Activation{Sigmoid, Tanh} {
		t.Run(act.Name, func(t *testing.T) {
			net, err := New(Topology{Inputs: 2, Layers: []int{3, 2}},
				WithSeed(21), WithActivation(act), WithLearningRate(1), WithInitializer(Uniform(-1, 1)))
			require.NoError(t, err)

			input := []float64{0.3, -0.6}
			target := []float64{0.9, 0.1}
			loss := func() float64 {
				out := predict(t, net, input)
				return 0.5 * SumSquaredError(out, target)
			}

			require.NoError(t, net.SetInput(input))
			_, err = net.Forward()
			require.NoError(t, err)
			require.NoError(t, net.CalcNetworkError(target))
			buf := net.NewDeltaBuffer()
			require.NoError(t, net.AccumulateDeltas(buf))

			const eps = 1e-6
			for li := range buf {
				layer, err := net.Layer(li)
				require.NoError(t, err)
				for j, n := range layer {
					for k := range buf[li][j] {
						w := n.Weights()
						orig := w[k]

						w[k] = orig + eps
						require.NoError(t, n.SetWeights(w))
						up := loss()
						w[k] = orig - eps
						require.NoError(t, n.SetWeights(w))
						down := loss()
						w[k] = orig
						require.NoError(t, n.SetWeights(w))

						numeric := -(up - down) / (2 * eps)
						assert.InDelta(t, numeric, buf[li][j][k], 1e-7, "layer %d neuron %d weight %d", li, j, k)
					}
				}
			}
		})
	}
}

func TestTrain_AND(t *testing.T) {
	net, err := New(Topology{Inputs: 2, Layers: []int{1}}, WithSeed(1), WithLearningRate(0.5))
	require.NoError(t, err)

	history := trainOnline(t, net, truthInputs, andTargets, 20000)

	first, mid, last := history[0], history[len(history)/2], history[len(history)-1]
	assert.Less(t, last, first)
	assert.LessOrEqual(t, last, mid)

	for i, in := range truthInputs {
		out := predict(t, net, in)
		if andTargets[i][0] == 1 {
			assert.Greater(t, out[0], 0.9, "input %v", in)
		} else {
			assert.Less(t, out[0], 0.1, "input %v", in)
		}
	}
}

func classifiesAll(t *testing.T, net *Network, inputs, targets [][]float64, cut float64) bool {
	t.Helper()
	for i, in := range inputs {
		out := predict(t, net, in)
		if (out[0] > cut) != (targets[i][0] > cut) {
			return false
		}
	}
	return true
}

func TestTrain_XORNeedsHiddenLayer(t *testing.T) {
	t.Run("single layer plateaus", func(t *testing.T) {
		net, err := New(Topology{Inputs: 2, Layers: []int{1}}, WithSeed(1), WithLearningRate(0.5))
		require.NoError(t, err)

		history := trainOnline(t, net, truthInputs, xorTargets, 5000)

		assert.False(t, classifiesAll(t, net, truthInputs, xorTargets, 0.5))
		// At least one row lies on the wrong side of 0.5, which costs ≥ 0.25/4.
		assert.GreaterOrEqual(t, history[len(history)-1], 0.06)
	})

	t.Run("hidden layer converges", func(t *testing.T) {
		converged := false
		for seed := int64(1); seed <= 10 && !converged; seed++ {
			net, err := New(Topology{Inputs: 2, Layers: []int{4, 1}}, WithSeed(seed), WithLearningRate(0.5))
			require.NoError(t, err)
			trainOnline(t, net, truthInputs, xorTargets, 10000)

			converged = true
			for i, in := range truthInputs {
				out := predict(t, net, in)
				if (xorTargets[i][0] == 1 && out[0] <= 0.8) || (xorTargets[i][0] == 0 && out[0] >= 0.2) {
					converged = false
				}
			}
		}
		assert.True(t, converged, "no seed learned XOR with a hidden layer")
	})
}
