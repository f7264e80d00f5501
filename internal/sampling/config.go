// Package sampling turns next-token logits into a sampled token index.
package sampling

import (
	"fmt"

	"github.com/0xack13/RWKV-LM/internal/domain"
)

// Method names a token sampling strategy.
type Method string

const (
	MethodGreedy      Method = "greedy"
	MethodMultinomial Method = "multinomial"
	MethodTopK        Method = "top_k"
	MethodTopP        Method = "top_p"
	MethodMinP        Method = "min_p"
)

// Config defines parameters for token sampling.
type Config struct {
	Method      Method
	Temperature float64
	TopK        int
	TopP        float64
	// MinPPow and MinPRatio set the min-p cutoff: max(p)^MinPPow * MinPRatio.
	MinPPow   float64
	MinPRatio float64
}

// NewConfig creates a default configuration for method.
func NewConfig(method Method) Config {
	cfg := Config{
		Method:      method,
		Temperature: 1.0,
		TopK:        50,
		TopP:        0.9,
		MinPPow:     2.0,
		MinPRatio:   0.02,
	}
	if method == MethodTopK {
		cfg.TopK = 10
	}
	return cfg
}

// Validate checks if the sampling configuration is valid.
func (c Config) Validate() error {
	if c.Temperature <= 0 && c.Method != MethodGreedy {
		return domain.NewConfigError("sample.temperature", "must be positive")
	}
	if c.TopK < 0 {
		return domain.NewConfigError("sample.topK", "must be non-negative")
	}
	if c.TopP < 0 || c.TopP > 1 {
		return domain.NewConfigError("sample.topP", "must be between 0 and 1")
	}
	if c.MinPRatio < 0 || c.MinPRatio > 1 {
		return domain.NewConfigError("sample.minPRatio", "must be between 0 and 1")
	}
	if c.MinPPow < 0 {
		return domain.NewConfigError("sample.minPPow", "must be non-negative")
	}
	switch c.Method {
	case MethodGreedy, MethodMultinomial, MethodTopK, MethodTopP, MethodMinP:
		return nil
	default:
		return domain.NewConfigError("sample.method", fmt.Sprintf("unsupported sampling method: %s", c.Method))
	}
}
