package config

import (
	"fmt"
	"strings"

	"github.com/0xack13/RWKV-LM/internal/domain"
	"github.com/0xack13/RWKV-LM/internal/sampling"
)

// Settings is the validated, fully derived configuration handed to every
// component. It is built once by Resolve and never mutated.
type Settings struct {
	Data       DataSettings
	Model      ModelSettings
	Train      TrainSettings
	Sample     SampleSettings
	Checkpoint CheckpointConfig
	Log        LogConfig
}

// DataSettings locates and interprets the corpus.
type DataSettings struct {
	Path     string
	Encoding string
	Level    domain.Level
}

// ModelSettings are the model construction parameters minus the vocabulary
// size, which is only known after tokenization.
type ModelSettings struct {
	Architecture   domain.Architecture
	ContextSize    int
	Layers         int
	Heads          int
	EmbeddingWidth int
	Backend        string
}

// TrainSettings is the trainer configuration bundle.
type TrainSettings struct {
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
	Workers           int
	GradClip          float64
	Seed              int64
}

// SampleSettings controls generation.
type SampleSettings struct {
	Method      string
	Seed        string
	Runs        int
	Length      int
	Temperature float64
	MinPPow     float64
	MinPRatio   float64
	ReportEvery int
	TopK        int
	TopP        float64
}

// Resolve validates c and derives every value left to the architecture.
func (c *Config) Resolve() (*Settings, error) {
	level, err := domain.ParseLevel(c.Data.Level)
	if err != nil {
		return nil, err
	}
	arch, err := domain.ParseArchitecture(c.Model.Architecture)
	if err != nil {
		return nil, err
	}

	s := &Settings{
		Data: DataSettings{
			Path:     c.Data.Path,
			Encoding: c.Data.Encoding,
			Level:    level,
		},
		Model: ModelSettings{
			Architecture:   arch,
			ContextSize:    c.Model.ContextSize,
			Layers:         c.Model.Layers,
			Heads:          c.Model.Heads,
			EmbeddingWidth: c.Model.EmbeddingWidth,
			Backend:        c.Model.Backend,
		},
		Train: TrainSettings{
			Epochs:       c.Train.Epochs,
			BatchSize:    c.Train.BatchSize,
			EpochLength:  c.Train.EpochLength,
			LRDecay:      c.Train.LRDecay,
			Betas:        [2]float64{c.Train.Beta1, c.Train.Beta2},
			WarmupTokens: c.Train.WarmupTokens,
			Workers:      c.Train.Workers,
			GradClip:     c.Train.GradClip,
			Seed:         c.Train.Seed,
		},
		Sample: SampleSettings{
			Method:      c.Sample.Method,
			Seed:        c.Sample.Seed,
			Runs:        c.Sample.Runs,
			Length:      c.Sample.Length,
			Temperature: c.Sample.Temperature,
			MinPPow:     c.Sample.MinPPow,
			MinPRatio:   c.Sample.MinPRatio,
			ReportEvery: c.Sample.ReportEvery,
			TopK:        c.Sample.TopK,
			TopP:        c.Sample.TopP,
		},
		Checkpoint: c.Checkpoint,
		Log:        c.Log,
	}

	if s.Model.ContextSize == 0 {
		s.Model.ContextSize = DefaultContextSize(level)
	}
	if s.Model.EmbeddingWidth == 0 {
		s.Model.EmbeddingWidth = DefaultEmbeddingWidth(s.Model.Heads)
	}
	if strings.TrimSpace(s.Checkpoint.Dir) == "" {
		s.Checkpoint.Dir = "."
	}
	if s.Model.Backend == "" {
		s.Model.Backend = "reference"
	}

	if err := s.validate(); err != nil {
		return nil, err
	}

	if c.Train.LearningRate < 0 {
		return nil, domain.NewConfigError("train.learningRate", "must be non-negative")
	}
	if c.Train.FinalLearningRate < 0 {
		return nil, domain.NewConfigError("train.finalLearningRate", "must be non-negative")
	}
	initial, final := LearningRates(arch, s.Model.Layers)
	s.Train.LearningRate = initial
	s.Train.FinalLearningRate = final
	if c.Train.LearningRate > 0 {
		s.Train.LearningRate = c.Train.LearningRate
	}
	if c.Train.FinalLearningRate > 0 {
		s.Train.FinalLearningRate = c.Train.FinalLearningRate
	}
	s.Train.WeightDecay = DefaultWeightDecay(arch)
	if c.Train.WeightDecay != nil {
		if *c.Train.WeightDecay < 0 {
			return nil, domain.NewConfigError("train.weightDecay", "must be non-negative")
		}
		s.Train.WeightDecay = *c.Train.WeightDecay
	}
	s.Train.FinalTokens = FinalTokens(s.Train.Epochs, s.Train.EpochLength, s.Model.ContextSize)

	return s, nil
}

func (s *Settings) validate() error {
	switch {
	case strings.TrimSpace(s.Data.Path) == "":
		return domain.NewConfigError("data.path", "cannot be empty")
	case s.Model.ContextSize < 1:
		return domain.NewConfigError("model.contextSize", "must be positive")
	case s.Model.Layers < 1:
		return domain.NewConfigError("model.layers", "must be positive")
	case s.Model.Heads < 1:
		return domain.NewConfigError("model.heads", "must be positive")
	case s.Model.EmbeddingWidth < s.Model.Heads || s.Model.EmbeddingWidth%s.Model.Heads != 0:
		return domain.NewConfigError("model.embeddingWidth", fmt.Sprintf("%d is not a multiple of %d heads", s.Model.EmbeddingWidth, s.Model.Heads))
	case s.Train.Epochs < 1:
		return domain.NewConfigError("train.epochs", "must be positive")
	case s.Train.BatchSize < 1:
		return domain.NewConfigError("train.batchSize", "must be positive")
	case s.Train.EpochLength < 1:
		return domain.NewConfigError("train.epochLength", "must be positive")
	case s.Train.Betas[0] < 0 || s.Train.Betas[0] >= 1:
		return domain.NewConfigError("train.beta1", "must be in [0, 1)")
	case s.Train.Betas[1] < 0 || s.Train.Betas[1] >= 1:
		return domain.NewConfigError("train.beta2", "must be in [0, 1)")
	case s.Train.WarmupTokens < 0:
		return domain.NewConfigError("train.warmupTokens", "must be non-negative")
	case s.Train.Workers < 0:
		return domain.NewConfigError("train.workers", "must be non-negative")
	case s.Train.GradClip < 0:
		return domain.NewConfigError("train.gradClip", "must be non-negative")
	case s.Sample.Runs < 0:
		return domain.NewConfigError("sample.runs", "must be non-negative")
	case s.Sample.Length < 0:
		return domain.NewConfigError("sample.length", "must be non-negative")
	case s.Sample.Temperature <= 0:
		return domain.NewConfigError("sample.temperature", "must be positive")
	case s.Sample.MinPRatio < 0 || s.Sample.MinPRatio > 1:
		return domain.NewConfigError("sample.minPRatio", "must be in [0, 1]")
	case s.Sample.ReportEvery < 1:
		return domain.NewConfigError("sample.reportEvery", "must be positive")
	case s.Sample.Runs > 0 && s.Sample.Seed == "":
		return domain.NewConfigError("sample.seed", "cannot be empty")
	}
	return s.Sample.Sampling().Validate()
}

// Sampling returns the token sampler configuration.
func (s SampleSettings) Sampling() sampling.Config {
	return sampling.Config{
		Method:      sampling.Method(s.Method),
		Temperature: s.Temperature,
		TopK:        s.TopK,
		TopP:        s.TopP,
		MinPPow:     s.MinPPow,
		MinPRatio:   s.MinPRatio,
	}
}
