package train

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/born-ml/backprop/internal/nn"
	"github.com/born-ml/backprop/internal/optim"
	"github.com/born-ml/backprop/internal/parallel"
)

// Trainer trains one network. It is not safe for concurrent use.
type Trainer struct {
	net    *nn.Network
	cfg    Config
	logger *slog.Logger
	rng    *rand.Rand
	pcfg   parallel.Config

	order   []int
	workers []*nn.Network
	bufs    []nn.DeltaBuffer
	sse     []float64
	total   nn.DeltaBuffer
	modelID string
}

// New prepares a Trainer for net.
func New(net *nn.Network, cfg Config) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 1
	}
	if cfg.Optimizer == nil {
		cfg.Optimizer = optim.NewSGD(optim.SGDConfig{})
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rng := cfg.Rand
	if rng == nil {
		//nolint:gosec // Using math/rand for example order (not security-critical)
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	pcfg := parallel.DefaultConfig()
	if cfg.Workers > 0 {
		pcfg.Enabled = cfg.Workers > 1
		pcfg.NumWorkers = cfg.Workers
	}

	return &Trainer{
		net:    net,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "trainer")),
		rng:    rng,
		pcfg:   pcfg,
	}, nil
}

// Train is New followed by Run.
func Train(ctx context.Context, net *nn.Network, examples []Example, cfg Config) (*Result, error) {
	t, err := New(net, cfg)
	if err != nil {
		return nil, err
	}
	return t.Run(ctx, examples)
}

// online reports whether every example updates the weights directly.
func (t *Trainer) online() bool {
	if t.cfg.BatchSize > 1 {
		return false
	}
	sgd, ok := t.cfg.Optimizer.(*optim.SGD)
	return ok && sgd.Momentum() == 0
}

// Run trains until a stop condition holds or the epoch budget is used up.
//
// ctx is checked at the start of every epoch; a cancelled run returns the
// result so far together with ctx.Err().
func (t *Trainer) Run(ctx context.Context, examples []Example) (*Result, error) {
	if err := CheckExamples(t.net, examples); err != nil {
		return nil, err
	}

	t.order = make([]int, len(examples))
	for i := range t.order {
		t.order[i] = i
	}
	t.cfg.Optimizer.Reset()

	res := &Result{BestMSE: math.Inf(1), Reason: StopEpochs}
	prev := math.Inf(1)
	stale := 0
	start := time.Now()

	t.logger.Info("training started",
		slog.Int("examples", len(examples)),
		slog.Int("epochs", t.cfg.Epochs),
		slog.Int("batch_size", t.cfg.BatchSize),
		slog.String("optimizer", t.cfg.Optimizer.Name()),
	)

	for epoch := 1; epoch <= t.cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			res.Reason = StopCancelled
			t.logger.Info("training cancelled", slog.Int("epoch", epoch-1))
			return res, err
		}

		lr := t.applySchedule(epoch - 1)
		if t.cfg.Shuffle {
			t.rng.Shuffle(len(t.order), func(i, j int) {
				t.order[i], t.order[j] = t.order[j], t.order[i]
			})
		}

		var sse float64
		var err error
		if t.online() {
			sse, err = t.onlineEpoch(examples)
		} else {
			sse, err = t.batchEpoch(ctx, examples)
		}
		if err != nil {
			return res, fmt.Errorf("epoch %d: %w", epoch, err)
		}

		mse := sse / float64(len(examples)*t.net.OutputSize())
		if res.BestMSE-mse > t.cfg.MinDelta {
			stale = 0
		} else {
			stale++
		}
		if mse < res.BestMSE {
			res.BestMSE = mse
		}

		stats := EpochStats{
			Epoch:        epoch,
			MSE:          mse,
			PrevMSE:      prev,
			BestMSE:      res.BestMSE,
			LearningRate: lr,
			Elapsed:      time.Since(start),
		}
		prev = mse
		res.Epochs = epoch
		res.FinalMSE = mse
		res.History = append(res.History, stats)
		t.logEpoch(stats)
		if t.cfg.OnEpoch != nil {
			t.cfg.OnEpoch(stats)
		}

		if err := t.checkpoint(stats); err != nil {
			return res, err
		}
		res.ModelID = t.modelID

		reason, err := t.shouldStop(stats, stale)
		if err != nil {
			return res, fmt.Errorf("epoch %d: %w", epoch, err)
		}
		if reason != "" {
			res.Reason = reason
			break
		}
	}

	t.logger.Info("training finished",
		slog.Int("epochs", res.Epochs),
		slog.Float64("mse", res.FinalMSE),
		slog.Float64("best_mse", res.BestMSE),
		slog.String("reason", string(res.Reason)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

func (t *Trainer) applySchedule(epoch int) float64 {
	if t.cfg.Schedule == nil {
		return t.net.LearningRate()
	}
	lr := t.cfg.Schedule.LR(epoch)
	t.net.SetLearningRate(lr)
	if s, ok := t.cfg.Optimizer.(optim.LRSetter); ok {
		s.SetLR(lr)
	}
	return lr
}

func (t *Trainer) shouldStop(stats EpochStats, stale int) (StopReason, error) {
	if t.cfg.TargetMSE > 0 && stats.MSE <= t.cfg.TargetMSE {
		t.logger.Info("target MSE reached", slog.Int("epoch", stats.Epoch), slog.Float64("mse", stats.MSE))
		return StopTargetMSE, nil
	}
	if t.cfg.Patience > 0 && stale >= t.cfg.Patience {
		t.logger.Info("no improvement, stopping early",
			slog.Int("epoch", stats.Epoch),
			slog.Int("patience", t.cfg.Patience),
			slog.Float64("best_mse", stats.BestMSE),
		)
		return StopPatience, nil
	}
	if t.cfg.StopRule != nil {
		stop, err := t.cfg.StopRule.ShouldStop(stats)
		if err != nil {
			return "", fmt.Errorf("stop rule: %w", err)
		}
		if stop {
			t.logger.Info("stop rule matched", slog.Int("epoch", stats.Epoch), slog.Float64("mse", stats.MSE))
			return StopRuleMet, nil
		}
	}
	return "", nil
}

func (t *Trainer) logEpoch(stats EpochStats) {
	attrs := []any{
		slog.Int("epoch", stats.Epoch),
		slog.Float64("mse", stats.MSE),
		slog.Float64("lr", stats.LearningRate),
	}
	if t.cfg.LogEvery > 0 && stats.Epoch%t.cfg.LogEvery == 0 {
		t.logger.Info("epoch finished", attrs...)
		return
	}
	t.logger.Debug("epoch finished", attrs...)
}

func (t *Trainer) checkpoint(stats EpochStats) error {
	if t.cfg.CheckpointEvery == 0 || stats.Epoch%t.cfg.CheckpointEvery != 0 {
		return nil
	}
	id, err := t.net.SaveFile(t.cfg.CheckpointPath, nn.SaveOptions{
		ModelID: t.modelID,
		Checkpoint: &nn.Checkpoint{
			Epoch: stats.Epoch,
			Loss:  stats.MSE,
			Metadata: map[string]any{
				"batch_size":    t.cfg.BatchSize,
				"learning_rate": stats.LearningRate,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("checkpoint at epoch %d: %w", stats.Epoch, err)
	}
	t.modelID = id
	t.logger.Debug("checkpoint saved", slog.Int("epoch", stats.Epoch), slog.String("path", t.cfg.CheckpointPath))
	return nil
}

// onlineEpoch updates the weights after every example and returns the summed
// squared error of the outputs seen before each update.
func (t *Trainer) onlineEpoch(examples []Example) (float64, error) {
	var sse float64
	for _, idx := range t.order {
		ex := examples[idx]
		if err := t.net.SetInput(ex.Input); err != nil {
			return 0, err
		}
		out, err := t.net.Update(ex.Expected)
		if err != nil {
			return 0, err
		}
		sse += nn.SumSquaredError(out, ex.Expected)
	}
	return sse, nil
}

// batchEpoch runs the epoch in batches. Within a batch the weights do not
// change: every example is run on a worker copy and only the summed deltas
// reach the network, through the optimizer.
func (t *Trainer) batchEpoch(ctx context.Context, examples []Example) (float64, error) {
	t.ensureWorkers(min(t.cfg.BatchSize, len(examples)))

	var sse float64
	for start := 0; start < len(t.order); start += t.cfg.BatchSize {
		batch := t.order[start:min(start+t.cfg.BatchSize, len(t.order))]
		n := t.pcfg.Workers(len(batch))
		err := parallel.For(ctx, n, t.pcfg, func(w int) error {
			t.bufs[w].Reset()
			t.sse[w] = 0
			return t.workers[w].CopyWeights(t.net)
		})
		if err != nil {
			return 0, err
		}

		err = parallel.Chunks(ctx, len(batch), t.pcfg, func(_ context.Context, w, lo, hi int) error {
			net, buf := t.workers[w], t.bufs[w]
			for _, idx := range batch[lo:hi] {
				ex := examples[idx]
				if err := net.SetInput(ex.Input); err != nil {
					return err
				}
				out, err := net.Forward()
				if err != nil {
					return err
				}
				if err := net.CalcNetworkError(ex.Expected); err != nil {
					return err
				}
				if err := net.AccumulateDeltas(buf); err != nil {
					return err
				}
				t.sse[w] += nn.SumSquaredError(out, ex.Expected)
			}
			return nil
		})
		if err != nil {
			return 0, err
		}

		t.total.Reset()
		for w := 0; w < n; w++ {
			if err := t.total.Add(t.bufs[w]); err != nil {
				return 0, err
			}
			sse += t.sse[w]
		}
		if err := t.cfg.Optimizer.Step(t.net, t.total, 1/float64(len(batch))); err != nil {
			return 0, err
		}
	}
	return sse, nil
}

func (t *Trainer) ensureWorkers(batch int) {
	n := t.pcfg.Workers(batch)
	if t.total == nil {
		t.total = t.net.NewDeltaBuffer()
	}
	for len(t.workers) < n {
		t.workers = append(t.workers, t.net.Clone())
		t.bufs = append(t.bufs, t.net.NewDeltaBuffer())
		t.sse = append(t.sse, 0)
	}
}
