// Package model holds the model construction parameters, the backend
// registry and the in-process reference backend.
package model

import (
	"fmt"

	"github.com/0xack13/RWKV-LM/internal/domain"
)

// Config holds the model construction parameters.
type Config struct {
	VocabSize      int
	ContextSize    int
	Architecture   domain.Architecture
	Layers         int
	Heads          int
	EmbeddingWidth int
}

// SmallConfig returns a small configuration for tests and quick runs.
func SmallConfig(vocabSize int) Config {
	return Config{
		VocabSize:      vocabSize,
		ContextSize:    32,
		Architecture:   domain.ArchRWKV,
		Layers:         2,
		Heads:          2,
		EmbeddingWidth: 16,
	}
}

// Validate checks the dimensions are usable.
func (c Config) Validate() error {
	switch {
	case c.VocabSize < 1:
		return domain.NewConfigError("model.vocabSize", "must be positive")
	case c.ContextSize < 1:
		return domain.NewConfigError("model.contextSize", "must be positive")
	case c.Layers < 1:
		return domain.NewConfigError("model.layers", "must be positive")
	case c.Heads < 1:
		return domain.NewConfigError("model.heads", "must be positive")
	case c.EmbeddingWidth%c.Heads != 0 || c.EmbeddingWidth < c.Heads:
		return domain.NewConfigError("model.embeddingWidth",
			fmt.Sprintf("%d must be a positive multiple of %d heads", c.EmbeddingWidth, c.Heads))
	}
	if _, err := domain.ParseArchitecture(string(c.Architecture)); err != nil {
		return err
	}
	return nil
}

func (c Config) String() string {
	return fmt.Sprintf("%s vocab=%d ctx=%d layers=%d heads=%d emb=%d",
		c.Architecture, c.VocabSize, c.ContextSize, c.Layers, c.Heads, c.EmbeddingWidth)
}
