// Package trainer runs the AdamW optimization loop over randomly drawn
// windows, with a warmup plus cosine learning-rate schedule.
package trainer

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/0xack13/RWKV-LM/internal/config"
	"github.com/0xack13/RWKV-LM/internal/domain"
)

// Config holds the trainer hyperparameters.
type Config struct {
	Epochs            int
	BatchSize         int
	EpochLength       int
	LearningRate      float64
	FinalLearningRate float64
	LRDecay           bool
	Betas             [2]float64
	WeightDecay       float64
	WarmupTokens      int64
	FinalTokens       int64
	// Workers > 0 prefetches batches on that many goroutines.
	Workers  int
	GradClip float64
}

// ConfigFromSettings copies the resolved train settings.
func ConfigFromSettings(s config.TrainSettings) Config {
	return Config{
		Epochs:            s.Epochs,
		BatchSize:         s.BatchSize,
		EpochLength:       s.EpochLength,
		LearningRate:      s.LearningRate,
		FinalLearningRate: s.FinalLearningRate,
		LRDecay:           s.LRDecay,
		Betas:             s.Betas,
		WeightDecay:       s.WeightDecay,
		WarmupTokens:      s.WarmupTokens,
		FinalTokens:       s.FinalTokens,
		Workers:           s.Workers,
		GradClip:          s.GradClip,
	}
}

// Validate rejects settings the loop cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Epochs < 1:
		return domain.NewConfigError("train.epochs", "must be positive")
	case c.BatchSize < 1:
		return domain.NewConfigError("train.batchSize", "must be positive")
	case c.EpochLength < 1:
		return domain.NewConfigError("train.epochLength", "must be positive")
	case c.LearningRate < 0 || c.FinalLearningRate < 0:
		return domain.NewConfigError("train.learningRate", "must be non-negative")
	case c.Workers < 0:
		return domain.NewConfigError("train.workers", "must be non-negative")
	}
	return nil
}

// StepsPerEpoch is the number of batches that cover EpochLength windows;
// the last batch is smaller when the two do not divide.
func (c Config) StepsPerEpoch() int {
	return (c.EpochLength + c.BatchSize - 1) / c.BatchSize
}

// EpochStats summarises one finished epoch.
type EpochStats struct {
	Epoch        int
	Steps        int
	Loss         float64
	EvalLoss     float64 // NaN without an eval source
	LearningRate float64
	Tokens       int64
	GradNorm     float64
	Elapsed      time.Duration
}

// Trainer implements domain.Trainer for models that expose gradients.
type Trainer struct {
	cfg Config
	log zerolog.Logger

	// OnEpoch, when set, is called after every epoch.
	OnEpoch func(EpochStats)
}

// New validates cfg and returns a trainer.
func New(cfg Config, log zerolog.Logger) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Trainer{cfg: cfg, log: log.With().Str("component", "trainer").Logger()}, nil
}

// Train updates model in place. eval may be nil. Cancellation is observed
// between steps; the parameters keep the last completed update.
func (t *Trainer) Train(ctx context.Context, model domain.Model, train, eval domain.WindowSource) error {
	m, ok := model.(domain.Trainable)
	if !ok {
		return fmt.Errorf("train: %w", domain.ErrNotTrainable)
	}
	params := m.Params()
	opt := NewAdamW(t.cfg.Betas[0], t.cfg.Betas[1], t.cfg.WeightDecay)
	steps := t.cfg.StepsPerEpoch()

	t.log.Info().
		Int("epochs", t.cfg.Epochs).
		Int("steps_per_epoch", steps).
		Int("batch_size", t.cfg.BatchSize).
		Float64("lr", t.cfg.LearningRate).
		Float64("lr_final", t.cfg.FinalLearningRate).
		Int("workers", t.cfg.Workers).
		Msg("training started")

	var tokens int64
	for epoch := 1; epoch <= t.cfg.Epochs; epoch++ {
		start := time.Now()
		stats := EpochStats{Epoch: epoch, EvalLoss: math.NaN()}

		epochCtx, cancel := context.WithCancel(ctx)
		batches := t.batches(epochCtx, train, steps)
		total := 0.0
		for b := range batches {
			if err := ctx.Err(); err != nil {
				cancel()
				return err
			}
			m.ZeroGrad()
			loss, err := m.Backward(ctx, b.inputs, b.targets)
			if err != nil {
				cancel()
				return fmt.Errorf("epoch %d step %d: %w", epoch, stats.Steps+1, err)
			}
			stats.GradNorm = ClipGradNorm(params, t.cfg.GradClip)

			tokens += b.positions()
			lr := t.cfg.RateAt(tokens)
			opt.Step(params, lr)

			total += loss
			stats.Steps++
			stats.LearningRate = lr
			t.log.Debug().Int("epoch", epoch).Int("step", stats.Steps).
				Float64("loss", loss).Float64("lr", lr).Msg("step")
		}
		cancel()
		if err := ctx.Err(); err != nil {
			return err
		}

		stats.Loss = total / float64(max(1, stats.Steps))
		stats.Tokens = tokens
		if eval != nil && eval.Len() > 0 {
			l, err := t.evaluate(ctx, m, eval)
			if err != nil {
				return fmt.Errorf("epoch %d eval: %w", epoch, err)
			}
			stats.EvalLoss = l
		}
		stats.Elapsed = time.Since(start)

		ev := t.log.Info().
			Int("epoch", epoch).
			Float64("loss", stats.Loss).
			Float64("lr", stats.LearningRate).
			Int64("tokens", tokens).
			Dur("elapsed", stats.Elapsed)
		if !math.IsNaN(stats.EvalLoss) {
			ev = ev.Float64("eval_loss", stats.EvalLoss)
		}
		ev.Msg("epoch finished")

		if t.OnEpoch != nil {
			t.OnEpoch(stats)
		}
	}
	t.log.Info().
		Int("optimizer_steps", opt.Steps()).
		Int64("tokens", tokens).
		Msg("training finished")
	return nil
}

// evaluate averages the loss over eval.Len() windows.
func (t *Trainer) evaluate(ctx context.Context, m domain.Trainable, eval domain.WindowSource) (float64, error) {
	remaining := eval.Len()
	sum, weight := 0.0, 0
	for remaining > 0 {
		b := drawBatch(eval, min(t.cfg.BatchSize, remaining))
		loss, err := m.Loss(ctx, b.inputs, b.targets)
		if err != nil {
			return 0, err
		}
		sum += loss * float64(len(b.inputs))
		weight += len(b.inputs)
		remaining -= len(b.inputs)
	}
	return sum / float64(weight), nil
}

var _ domain.Trainer = (*Trainer)(nil)
