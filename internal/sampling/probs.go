package sampling

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/0xack13/RWKV-LM/internal/domain"
)

// Softmax converts logits divided by temperature into probabilities.
// Entries at -Inf get probability zero.
func Softmax(logits domain.Logits, temperature float64) domain.Probabilities {
	if len(logits) == 0 {
		return domain.Probabilities{}
	}
	if temperature <= 0 {
		temperature = 1
	}

	probs := make([]float64, len(logits))
	for i, l := range logits {
		probs[i] = float64(l) / temperature
	}
	maxLogit := floats.Max(probs)
	for i, v := range probs {
		probs[i] = math.Exp(v - maxLogit)
	}
	floats.Scale(1/floats.Sum(probs), probs)
	return probs
}

// MinPFilter zeroes every probability below max(p)^pow * ratio and
// renormalizes the rest. It returns the new distribution and the indices kept.
func MinPFilter(probs domain.Probabilities, pow, ratio float64) (domain.Probabilities, []domain.TokenID) {
	out := make(domain.Probabilities, len(probs))
	if len(probs) == 0 {
		return out, nil
	}

	limit := math.Pow(floats.Max(probs), pow) * ratio
	kept := make([]domain.TokenID, 0, len(probs))
	for i, p := range probs {
		if p < limit {
			continue
		}
		out[i] = p
		kept = append(kept, domain.TokenID(i))
	}
	if len(kept) == 0 {
		best := floats.MaxIdx(probs)
		out[best] = 1
		return out, []domain.TokenID{domain.TokenID(best)}
	}
	floats.Scale(1/floats.Sum(out), out)
	return out, kept
}

// Argmax returns the index of the largest probability.
func Argmax(probs domain.Probabilities) domain.TokenID {
	return domain.TokenID(floats.MaxIdx(probs))
}
