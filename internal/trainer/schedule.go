package trainer

import "math"

// RateAt returns the learning rate to use once tokens target positions have
// been seen. With decay enabled the rate rises linearly from the final rate
// to the initial one over the warmup, then follows a half cosine from the
// initial rate down to the final one at FinalTokens, where it stays.
func (c Config) RateAt(tokens int64) float64 {
	if !c.LRDecay || c.LearningRate == 0 {
		return c.LearningRate
	}
	f := c.FinalLearningRate / c.LearningRate

	if tokens < c.WarmupTokens {
		return c.LearningRate * (f + (1-f)*float64(tokens)/float64(c.WarmupTokens))
	}
	span := max(1, c.FinalTokens-c.WarmupTokens)
	progress := math.Min(1, float64(tokens-c.WarmupTokens)/float64(span))
	return c.LearningRate * ((0.5 + f/2) + (0.5-f/2)*math.Cos(math.Pi*progress))
}
