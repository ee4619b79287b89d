package stoprule

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/backprop/internal/nn"
	"github.com/born-ml/backprop/internal/train"
)

func TestNew_Errors(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)

	_, err = New("epoch >=")
	assert.Error(t, err)

	_, err = New("unknown_var > 1")
	assert.Error(t, err)

	_, err = New("mse * 2.0")
	assert.ErrorIs(t, err, ErrNotBool)
}

func TestShouldStop(t *testing.T) {
	tests := []struct {
		expr  string
		stats train.EpochStats
		want  bool
	}{
		{"epoch >= 10", train.EpochStats{Epoch: 10}, true},
		{"epoch >= 10", train.EpochStats{Epoch: 9}, false},
		{"mse < 0.01", train.EpochStats{MSE: 0.005}, true},
		{"prev_mse - mse < 1e-6", train.EpochStats{MSE: 0.1, PrevMSE: 0.1}, true},
		{"prev_mse - mse < 1e-6", train.EpochStats{MSE: 0.1, PrevMSE: math.Inf(1)}, false},
		{"mse > best_mse * 1.5", train.EpochStats{MSE: 0.3, BestMSE: 0.1}, true},
		{"lr < 0.01", train.EpochStats{LearningRate: 0.05}, false},
		{"elapsed_seconds > 1.0", train.EpochStats{Elapsed: 2 * time.Second}, true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			r, err := New(tt.expr)
			require.NoError(t, err)
			got, err := r.ShouldStop(tt.stats)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShouldStop_RuntimeError(t *testing.T) {
	r, err := New("10 / (epoch - epoch) > 1")
	require.NoError(t, err)
	_, err = r.ShouldStop(train.EpochStats{Epoch: 3})
	assert.Error(t, err)
}

func TestRule_StopsTraining(t *testing.T) {
	net, err := nn.New(nn.Topology{Inputs: 2, Layers: []int{1}}, nn.WithSeed(1))
	require.NoError(t, err)
	r, err := New("epoch == 7")
	require.NoError(t, err)

	examples := []train.Example{
		{Input: []float64{0, 0}, Expected: []float64{0}},
		{Input: []float64{1, 1}, Expected: []float64{1}},
	}
	res, err := train.Train(context.Background(), net, examples, train.Config{
		Epochs:   100,
		StopRule: r,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	assert.Equal(t, train.StopRuleMet, res.Reason)
	assert.Equal(t, 7, res.Epochs)
}
