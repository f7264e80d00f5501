package trainer

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/0xack13/RWKV-LM/internal/domain"
)

// AdamW keeps first and second moment estimates per parameter and applies
// decoupled weight decay to parameters marked Decay.
type AdamW struct {
	Beta1       float64
	Beta2       float64
	Eps         float64
	WeightDecay float64

	t int
	m map[*domain.Param][]float64
	v map[*domain.Param][]float64
}

// NewAdamW returns an optimizer with no accumulated state.
func NewAdamW(beta1, beta2, weightDecay float64) *AdamW {
	return &AdamW{
		Beta1:       beta1,
		Beta2:       beta2,
		Eps:         1e-8,
		WeightDecay: weightDecay,
		m:           make(map[*domain.Param][]float64),
		v:           make(map[*domain.Param][]float64),
	}
}

// Steps reports how many updates have been applied.
func (o *AdamW) Steps() int { return o.t }

// Step updates every parameter in place from its gradient:
//
//	p -= lr * wd * p            (Decay params only)
//	p -= lr * mhat / (sqrt(vhat) + eps)
func (o *AdamW) Step(params []*domain.Param, lr float64) {
	o.t++
	c1 := 1 / (1 - math.Pow(o.Beta1, float64(o.t)))
	c2 := 1 / (1 - math.Pow(o.Beta2, float64(o.t)))

	for _, p := range params {
		m, ok := o.m[p]
		if !ok {
			m = make([]float64, len(p.Value))
			o.m[p] = m
			o.v[p] = make([]float64, len(p.Value))
		}
		v := o.v[p]

		decay := 1.0
		if p.Decay {
			decay = 1 - lr*o.WeightDecay
		}
		for i, g := range p.Grad {
			m[i] = o.Beta1*m[i] + (1-o.Beta1)*g
			v[i] = o.Beta2*v[i] + (1-o.Beta2)*g*g
			mhat := m[i] * c1
			vhat := v[i] * c2
			p.Value[i] = p.Value[i]*decay - lr*mhat/(math.Sqrt(vhat)+o.Eps)
		}
	}
}

// ClipGradNorm rescales all gradients so their global L2 norm is at most
// maxNorm and returns the norm before clipping. maxNorm <= 0 disables it.
func ClipGradNorm(params []*domain.Param, maxNorm float64) float64 {
	sum := 0.0
	for _, p := range params {
		sum += floats.Dot(p.Grad, p.Grad)
	}
	norm := math.Sqrt(sum)
	if maxNorm <= 0 || norm <= maxNorm {
		return norm
	}
	scale := maxNorm / (norm + 1e-6)
	for _, p := range params {
		floats.Scale(scale, p.Grad)
	}
	return norm
}
