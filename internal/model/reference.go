package model

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/0xack13/RWKV-LM/internal/domain"
)

// ReferenceBackend is the registry name of the in-process CPU model.
const ReferenceBackend = "reference"

// Reference is a small recurrent language model that runs on the CPU:
//
//	e_t      = E[x_t]
//	h_t      = d ⊙ h_{t-1} + (1-d) ⊙ e_t
//	logits_t = W [e_t; h_t] + b
//
// The per-channel decays d are fixed and spread across heads so each head
// remembers over a different horizon. Gradients are computed analytically.
type Reference struct {
	cfg   Config
	decay []float64

	emb  *domain.Param // V x D
	head *domain.Param // V x 2D
	bias *domain.Param // 1 x V

	embM      *mat.Dense
	headM     *mat.Dense
	headGradM *mat.Dense
}

// NewReference initialises a reference model from cfg. cfg must be valid.
func NewReference(cfg Config, seed int64) *Reference {
	rng := rand.New(rand.NewSource(seed))
	v, d := cfg.VocabSize, cfg.EmbeddingWidth

	m := &Reference{
		cfg:   cfg,
		decay: headDecays(d, cfg.Heads),
		emb:   newParam("emb.weight", v, d, false),
		head:  newParam("head.weight", v, 2*d, true),
		bias:  newParam("head.bias", 1, v, false),
	}
	fillNormal(m.emb.Value, math.Sqrt(1/float64(d)), rng)
	fillNormal(m.head.Value, math.Sqrt(2/float64(2*d+v)), rng)

	m.embM = mat.NewDense(v, d, m.emb.Value)
	m.headM = mat.NewDense(v, 2*d, m.head.Value)
	m.headGradM = mat.NewDense(v, 2*d, m.head.Grad)
	return m
}

// headDecays gives head h the decay 1 - 2^-(h+1): head 0 forgets after a
// couple of steps, the last head keeps the longest history.
func headDecays(width, heads int) []float64 {
	perHead := width / heads
	out := make([]float64, width)
	for c := range out {
		out[c] = 1 - math.Pow(2, -float64(c/perHead+1))
	}
	return out
}

func newParam(name string, rows, cols int, decay bool) *domain.Param {
	return &domain.Param{
		Name:  name,
		Rows:  rows,
		Cols:  cols,
		Value: make([]float64, rows*cols),
		Grad:  make([]float64, rows*cols),
		Decay: decay,
	}
}

func fillNormal(dst []float64, scale float64, rng *rand.Rand) {
	for i := range dst {
		dst[i] = rng.NormFloat64() * scale
	}
}

func (m *Reference) VocabSize() int   { return m.cfg.VocabSize }
func (m *Reference) ContextSize() int { return m.cfg.ContextSize }

// Config returns the construction parameters.
func (m *Reference) Config() Config { return m.cfg }

// Params returns embedding, readout weight and readout bias.
func (m *Reference) Params() []*domain.Param {
	return []*domain.Param{m.emb, m.head, m.bias}
}

// ZeroGrad clears every accumulated gradient.
func (m *Reference) ZeroGrad() {
	for _, p := range m.Params() {
		clear(p.Grad)
	}
}

// Forward returns logits for every position of every sequence.
func (m *Reference) Forward(ctx context.Context, batch [][]int) ([][]domain.Logits, error) {
	if err := m.checkBatch(batch, nil); err != nil {
		return nil, err
	}
	out := make([][]domain.Logits, len(batch))
	for b, seq := range batch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logits := m.logits(m.features(seq))
		out[b] = make([]domain.Logits, len(seq))
		for t := range seq {
			row := logits.RawRowView(t)
			l := make(domain.Logits, len(row))
			for i, v := range row {
				l[i] = float32(v)
			}
			out[b][t] = l
		}
	}
	return out, nil
}

// Loss returns the mean next-token cross-entropy over the batch.
func (m *Reference) Loss(ctx context.Context, inputs, targets [][]int) (float64, error) {
	return m.run(ctx, inputs, targets, false)
}

// Backward returns the mean cross-entropy and accumulates its gradient.
func (m *Reference) Backward(ctx context.Context, inputs, targets [][]int) (float64, error) {
	return m.run(ctx, inputs, targets, true)
}

func (m *Reference) run(ctx context.Context, inputs, targets [][]int, grad bool) (float64, error) {
	if err := m.checkBatch(inputs, targets); err != nil {
		return 0, err
	}
	positions := 0
	for _, seq := range inputs {
		positions += len(seq)
	}
	if positions == 0 {
		return 0, nil
	}
	inv := 1 / float64(positions)
	d := m.cfg.EmbeddingWidth

	loss := 0.0
	for b, seq := range inputs {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		z := m.features(seq)
		logits := m.logits(z)

		// logits become dL/dlogits in place
		for t, y := range targets[b] {
			p := logits.RawRowView(t)
			softmaxInPlace(p)
			loss -= math.Log(math.Max(p[y], 1e-12))
			if !grad {
				continue
			}
			p[y] -= 1
			floats.Scale(inv, p)
			floats.Add(m.bias.Grad, p)
		}
		if !grad {
			continue
		}

		var dW mat.Dense
		dW.Mul(logits.T(), z)
		m.headGradM.Add(m.headGradM, &dW)

		var dz mat.Dense
		dz.Mul(logits, m.headM)

		carry := make([]float64, d)
		for t := len(seq) - 1; t >= 0; t-- {
			row := dz.RawRowView(t)
			eg := m.emb.Grad[seq[t]*d : (seq[t]+1)*d]
			for c := 0; c < d; c++ {
				carry[c] = row[d+c] + m.decay[c]*carry[c]
				eg[c] += row[c] + (1-m.decay[c])*carry[c]
			}
		}
	}
	return loss * inv, nil
}

// features stacks [e_t; h_t] for every position into a T x 2D matrix.
func (m *Reference) features(seq []int) *mat.Dense {
	d := m.cfg.EmbeddingWidth
	z := mat.NewDense(len(seq), 2*d, nil)
	h := make([]float64, d)
	for t, tok := range seq {
		e := m.embM.RawRowView(tok)
		row := z.RawRowView(t)
		copy(row[:d], e)
		for c := range h {
			h[c] = m.decay[c]*h[c] + (1-m.decay[c])*e[c]
		}
		copy(row[d:], h)
	}
	return z
}

func (m *Reference) logits(z *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Mul(z, m.headM.T())
	rows, _ := out.Dims()
	for t := 0; t < rows; t++ {
		floats.Add(out.RawRowView(t), m.bias.Value)
	}
	return &out
}

func softmaxInPlace(p []float64) {
	maxLogit := floats.Max(p)
	for i, v := range p {
		p[i] = math.Exp(v - maxLogit)
	}
	floats.Scale(1/floats.Sum(p), p)
}

func (m *Reference) checkBatch(inputs, targets [][]int) error {
	if len(inputs) == 0 {
		return fmt.Errorf("empty batch")
	}
	if targets != nil && len(targets) != len(inputs) {
		return fmt.Errorf("batch has %d inputs but %d targets", len(inputs), len(targets))
	}
	for b, seq := range inputs {
		if len(seq) == 0 || len(seq) > m.cfg.ContextSize {
			return fmt.Errorf("sequence %d has length %d, want 1..%d", b, len(seq), m.cfg.ContextSize)
		}
		if targets != nil && len(targets[b]) != len(seq) {
			return fmt.Errorf("sequence %d has %d inputs but %d targets", b, len(seq), len(targets[b]))
		}
		if err := m.checkTokens(seq); err != nil {
			return err
		}
		if targets != nil {
			if err := m.checkTokens(targets[b]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Reference) checkTokens(seq []int) error {
	for _, tok := range seq {
		if tok < 0 || tok >= m.cfg.VocabSize {
			return fmt.Errorf("token %d outside vocabulary of %d", tok, m.cfg.VocabSize)
		}
	}
	return nil
}

var _ domain.Trainable = (*Reference)(nil)
