// Package generate samples text from a trained model one token at a time,
// streaming the decoded text as it is produced.
package generate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/0xack13/RWKV-LM/internal/domain"
	"github.com/0xack13/RWKV-LM/internal/sampling"
)

const ruleWidth = 80

// Config controls a batch of generation runs.
type Config struct {
	Seed        string
	Runs        int
	Length      int
	ReportEvery int
}

// Completion is the outcome of one run.
type Completion struct {
	// Text is the seed followed by the decoded continuation, exactly as
	// streamed.
	Text string
	// Tokens holds the seed and generated indices without padding.
	Tokens []int
}

// Generator drives a model and a token sampler.
type Generator struct {
	model domain.Model
	codec domain.Codec
	proc  *sampling.Processor
	cfg   Config
	out   io.Writer
	log   zerolog.Logger
}

// New returns a generator writing to out. A nil out discards the stream.
func New(model domain.Model, codec domain.Codec, proc *sampling.Processor, cfg Config, out io.Writer, log zerolog.Logger) (*Generator, error) {
	switch {
	case cfg.Runs < 0:
		return nil, domain.NewConfigError("sample.runs", "must be non-negative")
	case cfg.Length < 0:
		return nil, domain.NewConfigError("sample.length", "must be non-negative")
	case cfg.ReportEvery < 1:
		return nil, domain.NewConfigError("sample.reportEvery", "must be positive")
	}
	if out == nil {
		out = io.Discard
	}
	return &Generator{
		model: model,
		codec: codec,
		proc:  proc,
		cfg:   cfg,
		out:   out,
		log:   log.With().Str("component", "generator").Logger(),
	}, nil
}

// RunAll performs cfg.Runs independent runs from the same seed.
func (g *Generator) RunAll(ctx context.Context) ([]Completion, error) {
	completions := make([]Completion, 0, g.cfg.Runs)
	g.log.Info().Str("sampler", g.proc.Sampler().Name()).Int("runs", g.cfg.Runs).
		Int("length", g.cfg.Length).Msg("sampling started")
	for run := 0; run < g.cfg.Runs; run++ {
		c, err := g.Run(ctx)
		if err != nil {
			return completions, fmt.Errorf("run %d: %w", run+1, err)
		}
		g.log.Debug().Int("run", run+1).Int("tokens", len(c.Tokens)).Msg("run finished")
		completions = append(completions, c)
	}
	return completions, nil
}

// Run generates cfg.Length tokens after the seed.
func (g *Generator) Run(ctx context.Context) (Completion, error) {
	seed, err := g.codec.Encode(g.cfg.Seed)
	if err != nil {
		return Completion{}, err
	}
	if len(seed) == 0 {
		return Completion{}, domain.NewDataError("encode seed", errors.New("seed has no symbols"))
	}

	ctxSize := g.model.ContextSize()
	realLen := len(seed)
	x := make([]int, max(realLen, ctxSize))
	copy(x, seed)

	var text strings.Builder
	w := io.MultiWriter(g.out, &text)
	if _, err := fmt.Fprint(g.out, strings.Repeat("-", ruleWidth)+"\n"); err != nil {
		return Completion{}, domain.NewIOError("write", "output", err)
	}
	if _, err := io.WriteString(w, g.cfg.Seed); err != nil {
		return Completion{}, domain.NewIOError("write", "output", err)
	}

	printed := realLen
	for i := 0; i < g.cfg.Length; i++ {
		if err := ctx.Err(); err != nil {
			return Completion{}, err
		}

		window, pos := x[len(x)-ctxSize:], ctxSize-1
		if realLen < ctxSize {
			window, pos = x[:ctxSize], realLen-1
		}
		out, err := g.model.Forward(ctx, [][]int{window})
		if err != nil {
			return Completion{}, fmt.Errorf("forward step %d: %w", i, err)
		}
		tok, err := g.proc.Next(out[0][pos])
		if err != nil {
			return Completion{}, err
		}

		if realLen < ctxSize {
			x[realLen] = int(tok)
		} else {
			x = append(x, int(tok))
		}
		realLen++

		// word spans decode with a leading space, so they join onto the seed
		if (i+1)%g.cfg.ReportEvery == 0 || i == g.cfg.Length-1 {
			if _, err := io.WriteString(w, g.codec.Decode(x[printed:realLen])); err != nil {
				return Completion{}, domain.NewIOError("write", "output", err)
			}
			printed = realLen
		}
	}
	if _, err := fmt.Fprintln(g.out); err != nil {
		return Completion{}, domain.NewIOError("write", "output", err)
	}

	return Completion{Text: text.String(), Tokens: append([]int(nil), x[:realLen]...)}, nil
}
