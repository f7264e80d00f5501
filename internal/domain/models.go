// Package domain contains the core types shared by the trainer, the model
// backends and the generator.
package domain

import (
	"fmt"
	"strings"
)

// Logits represent raw model outputs before softmax for a single position.
type Logits []float32

// Probabilities represent a normalized distribution over the vocabulary.
type Probabilities []float64

// TokenID is a dense index into the vocabulary.
type TokenID int

// Level selects how the corpus is split into symbols.
type Level string

const (
	LevelCharacter Level = "character"
	LevelWord      Level = "word"
)

// ParseLevel maps a config string onto a Level.
func ParseLevel(s string) (Level, error) {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case LevelCharacter, "char":
		return LevelCharacter, nil
	case LevelWord:
		return LevelWord, nil
	default:
		return "", NewConfigError("data.level", fmt.Sprintf("unknown level %q (want character or word)", s))
	}
}

// Architecture is the model variant tag handed to the model backend.
type Architecture string

const (
	ArchRWKV          Architecture = "RWKV"
	ArchRotaryMHA     Architecture = "RotaryMHA"
	ArchAttentionPlus Architecture = "MHA-Plus"
)

// Architectures lists every supported variant.
func Architectures() []Architecture {
	return []Architecture{ArchRWKV, ArchRotaryMHA, ArchAttentionPlus}
}

// ParseArchitecture accepts the canonical tags and a few common spellings.
func ParseArchitecture(s string) (Architecture, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rwkv":
		return ArchRWKV, nil
	case "rotarymha", "rotary", "rotary-attention", "rotaryattention":
		return ArchRotaryMHA, nil
	case "mha-plus", "mhaplus", "attentionplus", "attention-plus":
		return ArchAttentionPlus, nil
	default:
		return "", NewConfigError("model.architecture", fmt.Sprintf("unknown architecture %q", s))
	}
}

// Window is one next-token-prediction example: Target is Input shifted left by one.
type Window struct {
	Input  []int
	Target []int
}

// NewWindow splits a chunk of ContextSize+1 indices into an input/target pair.
// The returned slices alias chunk.
func NewWindow(chunk []int) Window {
	n := len(chunk) - 1
	return Window{Input: chunk[:n], Target: chunk[1:]}
}
