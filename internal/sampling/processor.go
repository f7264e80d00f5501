package sampling

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/0xack13/RWKV-LM/internal/domain"
)

// Processor filters logits with a Sampler and draws one token.
type Processor struct {
	sampler Sampler
	cfg     Config
	rng     *rand.Rand
}

// NewProcessor validates cfg and builds a processor drawing from rng.
func NewProcessor(cfg Config, rng *rand.Rand) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	sampler, err := NewSampler(cfg.Method)
	if err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Processor{sampler: sampler, cfg: cfg, rng: rng}, nil
}

// Sampler returns the current sampling strategy.
func (p *Processor) Sampler() Sampler { return p.sampler }

// Next samples one token index from logits.
func (p *Processor) Next(logits domain.Logits) (domain.TokenID, error) {
	res, err := p.sampler.Filter(logits, p.cfg)
	if err != nil {
		return 0, fmt.Errorf("sampling failed: %w", err)
	}
	return Draw(res.Probabilities, p.rng), nil
}

// Draw picks an index with probability proportional to probs.
func Draw(probs domain.Probabilities, rng *rand.Rand) domain.TokenID {
	cum := make([]float64, len(probs))
	floats.CumSum(cum, probs)
	r := rng.Float64() * cum[len(cum)-1]
	for i, c := range cum {
		if r < c {
			return domain.TokenID(i)
		}
	}
	// rounding can leave r at the total; take the last non-zero entry
	for i := len(probs) - 1; i >= 0; i-- {
		if probs[i] > 0 {
			return domain.TokenID(i)
		}
	}
	return 0
}
