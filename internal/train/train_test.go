package train

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/backprop/internal/nn"
	"github.com/born-ml/backprop/internal/optim"
	"github.com/born-ml/backprop/internal/parallel"
)

var (
	andSet = []Example{
		{Input: []float64{0, 0}, Expected: []float64{0}},
		{Input: []float64{0, 1}, Expected: []float64{0}},
		{Input: []float64{1, 0}, Expected: []float64{0}},
		{Input: []float64{1, 1}, Expected: []float64{1}},
	}
	xorSet = []Example{
		{Input: []float64{0, 0}, Expected: []float64{0}},
		{Input: []float64{0, 1}, Expected: []float64{1}},
		{Input: []float64{1, 0}, Expected: []float64{1}},
		{Input: []float64{1, 1}, Expected: []float64{0}},
	}
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newNet(t *testing.T, layers []int, opts ...nn.Option) *nn.Network {
	t.Helper()
	net, err := nn.New(nn.Topology{Inputs: 2, Layers: layers}, opts...)
	require.NoError(t, err)
	return net
}

func TestTrain_ANDOnline(t *testing.T) {
	net := newNet(t, []int{1}, nn.WithSeed(1), nn.WithLearningRate(0.5))

	res, err := Train(context.Background(), net, andSet, Config{Epochs: 20000, Logger: quietLogger()})
	require.NoError(t, err)
	assert.Equal(t, StopEpochs, res.Reason)
	assert.Equal(t, 20000, res.Epochs)
	require.Len(t, res.History, 20000)
	assert.Less(t, res.FinalMSE, res.History[0].MSE)
	assert.True(t, math.IsInf(res.History[0].PrevMSE, 1))
	assert.Equal(t, res.History[0].MSE, res.History[1].PrevMSE)

	for _, ex := range andSet {
		out, err := Predict(net, ex.Input)
		require.NoError(t, err)
		if ex.Expected[0] == 1 {
			assert.Greater(t, out[0], 0.9)
		} else {
			assert.Less(t, out[0], 0.1)
		}
	}
}

func TestTrain_TargetMSE(t *testing.T) {
	net := newNet(t, []int{1}, nn.WithSeed(2), nn.WithLearningRate(0.5))

	res, err := Train(context.Background(), net, andSet, Config{
		Epochs:    50000,
		TargetMSE: 0.01,
		Logger:    quietLogger(),
	})
	require.NoError(t, err)
	assert.Equal(t, StopTargetMSE, res.Reason)
	assert.Less(t, res.Epochs, 50000)
	assert.LessOrEqual(t, res.FinalMSE, 0.01)
	assert.Greater(t, res.History[len(res.History)-2].MSE, 0.01, "stopped at the first epoch below target")
}

func TestTrain_XORWithHiddenLayer(t *testing.T) {
	converged := false
	for seed := int64(1); seed <= 10 && !converged; seed++ {
		net := newNet(t, []int{4, 1}, nn.WithSeed(seed), nn.WithLearningRate(0.5))
		_, err := Train(context.Background(), net, xorSet, Config{
			Epochs:  10000,
			Shuffle: true,
			//nolint:gosec // deterministic test order
			Rand:   rand.New(rand.NewSource(seed)),
			Logger: quietLogger(),
		})
		require.NoError(t, err)

		m, err := Evaluate(net, xorSet, Threshold(0.5))
		require.NoError(t, err)
		converged = m.Accuracy == 1 && m.MSE < 0.02
	}
	assert.True(t, converged)
}

func TestTrain_MiniBatch(t *testing.T) {
	net := newNet(t, []int{1}, nn.WithSeed(3), nn.WithLearningRate(2))

	res, err := Train(context.Background(), net, andSet, Config{
		Epochs:    20000,
		BatchSize: 4,
		Workers:   2,
		Logger:    quietLogger(),
	})
	require.NoError(t, err)
	assert.Less(t, res.FinalMSE, res.History[0].MSE)

	m, err := Evaluate(net, andSet, Threshold(0.5))
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.Accuracy)
}

func TestTrain_BatchIndependentOfWorkers(t *testing.T) {
	base := newNet(t, []int{3, 1}, nn.WithSeed(4))
	one := base.Clone()
	many := base.Clone()

	cfg := Config{Epochs: 50, BatchSize: 4, Logger: quietLogger()}
	cfg.Workers = 1
	_, err := Train(context.Background(), one, xorSet, cfg)
	require.NoError(t, err)
	cfg.Workers = 3
	_, err = Train(context.Background(), many, xorSet, cfg)
	require.NoError(t, err)

	a, b := one.StateDict(), many.StateDict()
	for key, w := range a {
		require.Len(t, b[key], len(w))
		for k := range w {
			assert.InDelta(t, w[k], b[key][k], 1e-12, key)
		}
	}
}

func TestNew_WorkerConfig(t *testing.T) {
	net := newNet(t, []int{1})

	tr, err := New(net, Config{Epochs: 1})
	require.NoError(t, err)
	assert.Equal(t, parallel.DefaultConfig(), tr.pcfg)

	tr, err = New(net, Config{Epochs: 1, Workers: 1})
	require.NoError(t, err)
	assert.False(t, tr.pcfg.Enabled)

	tr, err = New(net, Config{Epochs: 1, Workers: 3})
	require.NoError(t, err)
	assert.True(t, tr.pcfg.Enabled)
	assert.Equal(t, 3, tr.pcfg.NumWorkers)
}

func TestTrain_PlainSGDIsOnline(t *testing.T) {
	base := newNet(t, []int{2, 1}, nn.WithSeed(5))
	online := base.Clone()
	batched := base.Clone()

	_, err := Train(context.Background(), online, xorSet, Config{Epochs: 20, Logger: quietLogger()})
	require.NoError(t, err)
	_, err = Train(context.Background(), batched, xorSet, Config{
		Epochs:    20,
		Optimizer: optim.NewAdam(optim.AdamConfig{}),
		Logger:    quietLogger(),
	})
	require.NoError(t, err)
	assert.NotEqual(t, online.StateDict(), batched.StateDict())

	sgd := base.Clone()
	_, err = Train(context.Background(), sgd, xorSet, Config{
		Epochs:    20,
		BatchSize: 1,
		Workers:   1,
		Optimizer: optim.NewSGD(optim.SGDConfig{}),
		Logger:    quietLogger(),
	})
	require.NoError(t, err)
	assert.Equal(t, online.StateDict(), sgd.StateDict())
}

func TestTrain_Adam(t *testing.T) {
	net := newNet(t, []int{1}, nn.WithSeed(6))

	_, err := Train(context.Background(), net, andSet, Config{
		Epochs:    2000,
		BatchSize: 4,
		Workers:   1,
		Optimizer: optim.NewAdam(optim.AdamConfig{LR: 0.05}),
		Logger:    quietLogger(),
	})
	require.NoError(t, err)

	m, err := Evaluate(net, andSet, Threshold(0.5))
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.Accuracy)
}

func TestTrain_Patience(t *testing.T) {
	net := newNet(t, []int{1}, nn.WithSeed(7), nn.WithLearningRate(0))

	res, err := Train(context.Background(), net, andSet, Config{
		Epochs:   100,
		Patience: 3,
		Logger:   quietLogger(),
	})
	require.NoError(t, err)
	assert.Equal(t, StopPatience, res.Reason)
	assert.Equal(t, 4, res.Epochs)
}

func TestTrain_StopRule(t *testing.T) {
	net := newNet(t, []int{1}, nn.WithSeed(8))

	res, err := Train(context.Background(), net, andSet, Config{
		Epochs: 100,
		StopRule: StopFunc(func(s EpochStats) (bool, error) {
			return s.Epoch >= 5, nil
		}),
		Logger: quietLogger(),
	})
	require.NoError(t, err)
	assert.Equal(t, StopRuleMet, res.Reason)
	assert.Equal(t, 5, res.Epochs)

	boom := errors.New("boom")
	_, err = Train(context.Background(), net, andSet, Config{
		Epochs: 100,
		StopRule: StopFunc(func(EpochStats) (bool, error) {
			return false, boom
		}),
		Logger: quietLogger(),
	})
	assert.ErrorIs(t, err, boom)
}

func TestTrain_CancelledBetweenEpochs(t *testing.T) {
	net := newNet(t, []int{1}, nn.WithSeed(9))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	res, err := Train(ctx, net, andSet, Config{
		Epochs: 100,
		OnEpoch: func(s EpochStats) {
			if s.Epoch == 3 {
				cancel()
			}
		},
		Logger: quietLogger(),
	})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Equal(t, StopCancelled, res.Reason)
	assert.Equal(t, 3, res.Epochs)
}

func TestTrain_Schedule(t *testing.T) {
	net := newNet(t, []int{1}, nn.WithSeed(10))

	res, err := Train(context.Background(), net, andSet, Config{
		Epochs:   6,
		Schedule: optim.StepDecay{Initial: 0.8, Gamma: 0.5, Every: 2},
		Logger:   quietLogger(),
	})
	require.NoError(t, err)

	var rates []float64
	for _, s := range res.History {
		rates = append(rates, s.LearningRate)
	}
	assert.Equal(t, []float64{0.8, 0.8, 0.4, 0.4, 0.2, 0.2}, rates)
	assert.Equal(t, 0.2, net.LearningRate())
}

func TestTrain_Checkpoints(t *testing.T) {
	net := newNet(t, []int{2, 1}, nn.WithSeed(11))
	path := filepath.Join(t.TempDir(), "ckpt.mlpw")

	res, err := Train(context.Background(), net, xorSet, Config{
		Epochs:          12,
		CheckpointEvery: 5,
		CheckpointPath:  path,
		Logger:          quietLogger(),
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.ModelID)

	_, info, err := nn.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, res.ModelID, info.ModelID)
	require.NotNil(t, info.Checkpoint)
	assert.Equal(t, 10, info.Checkpoint.Epoch)
	assert.InDelta(t, res.History[9].MSE, info.Checkpoint.Loss, 1e-15)
}

func TestTrain_RejectsBadInput(t *testing.T) {
	net := newNet(t, []int{1})

	_, err := Train(context.Background(), net, nil, Config{Epochs: 1})
	assert.ErrorIs(t, err, nn.ErrInvalidCall)

	bad := []Example{{Input: []float64{1}, Expected: []float64{0}}}
	_, err = Train(context.Background(), net, bad, Config{Epochs: 1})
	assert.ErrorIs(t, err, nn.ErrShapeMismatch)
	var shapeErr *nn.ShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, "example 0 input", shapeErr.Where)

	bad = []Example{{Input: []float64{1, 1}, Expected: []float64{0, 1}}}
	_, err = Train(context.Background(), net, bad, Config{Epochs: 1})
	assert.ErrorIs(t, err, nn.ErrShapeMismatch)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no epochs", Config{}},
		{"negative batch", Config{Epochs: 1, BatchSize: -1}},
		{"negative workers", Config{Epochs: 1, Workers: -2}},
		{"negative target", Config{Epochs: 1, TargetMSE: -0.1}},
		{"negative patience", Config{Epochs: 1, Patience: -1}},
		{"negative min delta", Config{Epochs: 1, MinDelta: -1}},
		{"checkpoint without path", Config{Epochs: 1, CheckpointEvery: 2}},
		{"negative log interval", Config{Epochs: 1, LogEvery: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.Validate())
		})
	}
	assert.NoError(t, Config{Epochs: 1}.Validate())
}

func TestTrain_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	net := newNet(t, []int{1}, nn.WithSeed(12))

	_, err := Train(context.Background(), net, andSet, Config{Epochs: 4, LogEvery: 2, Logger: logger})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "training started")
	assert.Contains(t, out, "epoch=2")
	assert.Contains(t, out, "epoch=4")
	assert.NotContains(t, out, "epoch=3 ")
	assert.Contains(t, out, "reason=epochs")
	assert.Equal(t, 2, strings.Count(out, "epoch finished"))
}
