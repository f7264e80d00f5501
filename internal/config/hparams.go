package config

import (
	"math"

	"github.com/0xack13/RWKV-LM/internal/domain"
)

const (
	// ReferenceLayers is the depth at which the learning rates are used unscaled.
	ReferenceLayers = 5

	rwkvLearningRate      = 6e-4
	attentionLearningRate = 4e-4
	finalLearningRate     = 2e-4

	attentionWeightDecay = 0.01

	headWidth = 64
)

// LayerScale is the factor applied to both learning rates: 1/sqrt(layers/5).
// Deeper models train with a lower rate, shallower ones with a higher one.
func LayerScale(layers int) float64 {
	return 1 / math.Sqrt(float64(layers)/ReferenceLayers)
}

// BaseLearningRates returns the unscaled initial and final rates. RWKV
// tolerates a higher initial rate than the attention variants.
func BaseLearningRates(arch domain.Architecture) (initial, final float64) {
	if arch == domain.ArchRWKV {
		return rwkvLearningRate, finalLearningRate
	}
	return attentionLearningRate, finalLearningRate
}

// LearningRates returns the depth-scaled initial and final rates.
func LearningRates(arch domain.Architecture, layers int) (initial, final float64) {
	initial, final = BaseLearningRates(arch)
	scale := LayerScale(layers)
	return initial * scale, final * scale
}

// DefaultWeightDecay is 0 for RWKV and 0.01 for the attention variants.
func DefaultWeightDecay(arch domain.Architecture) float64 {
	if arch == domain.ArchRWKV {
		return 0
	}
	return attentionWeightDecay
}

// DefaultContextSize is 256 symbols for characters and 128 for words.
func DefaultContextSize(level domain.Level) int {
	if level == domain.LevelWord {
		return 128
	}
	return 256
}

// DefaultEmbeddingWidth gives every head 64 channels.
func DefaultEmbeddingWidth(heads int) int {
	return heads * headWidth
}

// FinalTokens is the token count at which the cosine schedule reaches the
// final learning rate.
func FinalTokens(epochs, epochLength, contextSize int) int64 {
	return int64(epochs) * int64(epochLength) * int64(contextSize)
}
