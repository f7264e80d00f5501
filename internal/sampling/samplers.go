package sampling

import (
	"fmt"
	"sort"

	"github.com/0xack13/RWKV-LM/internal/domain"
)

// Result is a truncated, renormalized distribution ready to draw from.
type Result struct {
	Probabilities domain.Probabilities
	ValidTokens   []domain.TokenID
}

// Sampler narrows logits down to the distribution a token is drawn from.
type Sampler interface {
	// Name returns the name of the sampling strategy.
	Name() string

	// Filter applies temperature and truncation to logits.
	Filter(logits domain.Logits, cfg Config) (*Result, error)
}

// GreedySampler keeps only the most likely token.
type GreedySampler struct{}

func (s *GreedySampler) Name() string { return string(MethodGreedy) }

func (s *GreedySampler) Filter(logits domain.Logits, cfg Config) (*Result, error) {
	if len(logits) == 0 {
		return nil, fmt.Errorf("empty logits")
	}
	probs := Softmax(logits, 1)
	best := Argmax(probs)
	out := make(domain.Probabilities, len(probs))
	out[best] = 1
	return &Result{Probabilities: out, ValidTokens: []domain.TokenID{best}}, nil
}

// MultinomialSampler draws from the full temperature-scaled distribution.
type MultinomialSampler struct{}

func (s *MultinomialSampler) Name() string { return string(MethodMultinomial) }

func (s *MultinomialSampler) Filter(logits domain.Logits, cfg Config) (*Result, error) {
	if len(logits) == 0 {
		return nil, fmt.Errorf("empty logits")
	}
	probs := Softmax(logits, cfg.Temperature)
	return &Result{Probabilities: probs, ValidTokens: allTokens(len(probs))}, nil
}

// TopKSampler keeps the k most likely tokens.
type TopKSampler struct{}

func (s *TopKSampler) Name() string { return string(MethodTopK) }

func (s *TopKSampler) Filter(logits domain.Logits, cfg Config) (*Result, error) {
	if len(logits) == 0 {
		return nil, fmt.Errorf("empty logits")
	}
	probs := Softmax(logits, cfg.Temperature)
	k := cfg.TopK
	if k <= 0 || k > len(probs) {
		k = len(probs)
	}
	return keep(probs, rankByProbability(probs)[:k]), nil
}

// TopPSampler keeps the smallest set of tokens whose mass reaches p.
type TopPSampler struct{}

func (s *TopPSampler) Name() string { return string(MethodTopP) }

func (s *TopPSampler) Filter(logits domain.Logits, cfg Config) (*Result, error) {
	if len(logits) == 0 {
		return nil, fmt.Errorf("empty logits")
	}
	probs := Softmax(logits, cfg.Temperature)
	ranked := rankByProbability(probs)

	cut := len(ranked)
	cum := 0.0
	for i, tok := range ranked {
		cum += probs[tok]
		if cum >= cfg.TopP {
			cut = i + 1
			break
		}
	}
	return keep(probs, ranked[:cut]), nil
}

// MinPSampler drops every token whose probability is below
// max(p)^MinPPow * MinPRatio.
type MinPSampler struct{}

func (s *MinPSampler) Name() string { return string(MethodMinP) }

func (s *MinPSampler) Filter(logits domain.Logits, cfg Config) (*Result, error) {
	if len(logits) == 0 {
		return nil, fmt.Errorf("empty logits")
	}
	probs, kept := MinPFilter(Softmax(logits, cfg.Temperature), cfg.MinPPow, cfg.MinPRatio)
	return &Result{Probabilities: probs, ValidTokens: kept}, nil
}

// NewSampler creates a sampler for the given method.
func NewSampler(method Method) (Sampler, error) {
	switch method {
	case MethodGreedy:
		return &GreedySampler{}, nil
	case MethodMultinomial:
		return &MultinomialSampler{}, nil
	case MethodTopK:
		return &TopKSampler{}, nil
	case MethodTopP:
		return &TopPSampler{}, nil
	case MethodMinP:
		return &MinPSampler{}, nil
	default:
		return nil, fmt.Errorf("unsupported sampling method: %s", method)
	}
}

// Methods returns the list of available sampling methods.
func Methods() []Method {
	return []Method{MethodGreedy, MethodMultinomial, MethodTopK, MethodTopP, MethodMinP}
}

func allTokens(n int) []domain.TokenID {
	out := make([]domain.TokenID, n)
	for i := range out {
		out[i] = domain.TokenID(i)
	}
	return out
}

func rankByProbability(probs domain.Probabilities) []domain.TokenID {
	ranked := allTokens(len(probs))
	sort.SliceStable(ranked, func(i, j int) bool {
		return probs[ranked[i]] > probs[ranked[j]]
	})
	return ranked
}

// keep renormalizes probs over tokens and zeroes everything else.
func keep(probs domain.Probabilities, tokens []domain.TokenID) *Result {
	out := make(domain.Probabilities, len(probs))
	sum := 0.0
	for _, tok := range tokens {
		out[tok] = probs[tok]
		sum += probs[tok]
	}
	for _, tok := range tokens {
		out[tok] /= sum
	}
	valid := make([]domain.TokenID, len(tokens))
	copy(valid, tokens)
	return &Result{Probabilities: out, ValidTokens: valid}
}
