// Package app wires corpus loading, tokenization, training, checkpointing
// and sampling into the end-to-end pipeline run by the CLI.
package app

import (
	"context"
	"fmt"
	"io"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/0xack13/RWKV-LM/internal/checkpoint"
	"github.com/0xack13/RWKV-LM/internal/config"
	"github.com/0xack13/RWKV-LM/internal/corpus"
	"github.com/0xack13/RWKV-LM/internal/dataset"
	"github.com/0xack13/RWKV-LM/internal/domain"
	"github.com/0xack13/RWKV-LM/internal/generate"
	"github.com/0xack13/RWKV-LM/internal/model"
	"github.com/0xack13/RWKV-LM/internal/sampling"
	"github.com/0xack13/RWKV-LM/internal/tokenizer"
	"github.com/0xack13/RWKV-LM/internal/trainer"
)

// ModelFactory builds an untrained model.
type ModelFactory func(backend string, cfg model.Config, seed int64) (domain.Model, error)

// TrainerFactory builds the optimization loop.
type TrainerFactory func(cfg trainer.Config, log zerolog.Logger) (domain.Trainer, error)

// Pipeline runs the stages in order. The factories may be replaced before
// calling Train to plug in other backends.
type Pipeline struct {
	settings *config.Settings
	out      io.Writer
	log      zerolog.Logger

	NewModel    ModelFactory
	NewTrainer  TrainerFactory
	Checkpoints *checkpoint.Writer
}

// New returns a pipeline that prints the vocabulary and the generated text
// to out and logs progress to log.
func New(s *config.Settings, out io.Writer, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		settings: s,
		out:      out,
		log:      log,
		NewModel: model.New,
		NewTrainer: func(cfg trainer.Config, log zerolog.Logger) (domain.Trainer, error) {
			return trainer.New(cfg, log)
		},
		Checkpoints: checkpoint.NewWriter(s.Checkpoint.Dir, s.Checkpoint.Prefix, s.Checkpoint.Extension),
	}
}

// Result is what a full run produced.
type Result struct {
	Vocab          *tokenizer.Vocabulary
	Model          domain.Model
	CheckpointPath string
	Completions    []generate.Completion
}

// Tokenize loads the corpus and builds its vocabulary, printing the symbol
// listing to the console.
func (p *Pipeline) Tokenize() (*tokenizer.Encoded, error) {
	s := p.settings
	p.log.Info().Str("path", s.Data.Path).Str("encoding", s.Data.Encoding).Msg("loading data")
	text, err := corpus.Load(s.Data.Path, s.Data.Encoding)
	if err != nil {
		return nil, err
	}
	p.log.Info().Str("level", string(s.Data.Level)).Msg("building token list")
	return tokenizer.Build(text, s.Data.Level, s.Model.ContextSize, p.out)
}

// Train runs load, tokenize, train, checkpoint and sample.
func (p *Pipeline) Train(ctx context.Context) (*Result, error) {
	s := p.settings
	enc, err := p.Tokenize()
	if err != nil {
		return nil, err
	}

	mcfg := model.Config{
		VocabSize:      enc.Vocab.Size(),
		ContextSize:    s.Model.ContextSize,
		Architecture:   s.Model.Architecture,
		Layers:         s.Model.Layers,
		Heads:          s.Model.Heads,
		EmbeddingWidth: s.Model.EmbeddingWidth,
	}
	p.log.Info().
		Str("model", string(mcfg.Architecture)).
		Int("epochs", s.Train.Epochs).
		Int("batch_size", s.Train.BatchSize).
		Int("layers", mcfg.Layers).
		Int("heads", mcfg.Heads).
		Int("emb", mcfg.EmbeddingWidth).
		Int("ctx", mcfg.ContextSize).
		Str("backend", s.Model.Backend).
		Msg("model")

	m, err := p.NewModel(s.Model.Backend, mcfg, s.Train.Seed)
	if err != nil {
		return nil, err
	}

	sampler, err := dataset.NewSampler(enc.Data, s.Model.ContextSize, s.Train.Seed)
	if err != nil {
		return nil, err
	}
	tr, err := p.NewTrainer(trainer.ConfigFromSettings(s.Train), p.log)
	if err != nil {
		return nil, err
	}
	if err := tr.Train(ctx, m, dataset.NewEpoch(sampler, s.Train.EpochLength), nil); err != nil {
		return nil, fmt.Errorf("training: %w", err)
	}

	res := &Result{Vocab: enc.Vocab, Model: m}
	res.CheckpointPath, err = p.save(m, mcfg, enc.Vocab)
	if err != nil {
		return nil, err
	}
	p.log.Info().Str("path", res.CheckpointPath).Msg("checkpoint written")

	res.Completions, err = p.generate(ctx, m, enc.Codec)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (p *Pipeline) save(m domain.Model, mcfg model.Config, vocab *tokenizer.Vocabulary) (string, error) {
	st, err := model.Snapshot(p.settings.Model.Backend, m)
	if err != nil {
		return "", err
	}
	return p.Checkpoints.Write(&checkpoint.Checkpoint{
		Architecture: mcfg.Architecture,
		Level:        p.settings.Data.Level,
		Model:        mcfg,
		Vocabulary:   vocab.Symbols(),
		State:        st,
	})
}

// Sample restores the checkpoint at path and runs the generator on it.
// An empty path picks the newest checkpoint in the configured directory.
func (p *Pipeline) Sample(ctx context.Context, path string) ([]generate.Completion, error) {
	if path == "" {
		latest, err := p.Checkpoints.Latest()
		if err != nil {
			return nil, err
		}
		path = latest
	}
	ck, err := checkpoint.Load(path)
	if err != nil {
		return nil, err
	}
	p.log.Info().Str("path", path).Str("run_id", ck.RunID).Str("model", ck.Model.String()).Msg("checkpoint loaded")

	m, err := ck.Restore()
	if err != nil {
		return nil, err
	}
	codec, err := tokenizer.NewCodec(ck.Level, tokenizer.NewVocabulary(ck.Vocabulary))
	if err != nil {
		return nil, err
	}
	return p.generate(ctx, m, codec)
}

func (p *Pipeline) generate(ctx context.Context, m domain.Model, codec domain.Codec) ([]generate.Completion, error) {
	s := p.settings.Sample
	if s.Runs == 0 {
		return nil, nil
	}
	proc, err := sampling.NewProcessor(s.Sampling(), rand.New(rand.NewSource(p.settings.Train.Seed)))
	if err != nil {
		return nil, err
	}
	g, err := generate.New(m, codec, proc, generate.Config{
		Seed:        s.Seed,
		Runs:        s.Runs,
		Length:      s.Length,
		ReportEvery: s.ReportEvery,
	}, p.out, p.log)
	if err != nil {
		return nil, err
	}
	return g.RunAll(ctx)
}
