package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xack13/RWKV-LM/internal/domain"
)

func tinyConfig() Config {
	return Config{
		VocabSize:      5,
		ContextSize:    4,
		Architecture:   domain.ArchRWKV,
		Layers:         1,
		Heads:          2,
		EmbeddingWidth: 4,
	}
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, SmallConfig(10).Validate())

	bad := SmallConfig(10)
	bad.EmbeddingWidth = 15
	var cfgErr *domain.ConfigError
	require.ErrorAs(t, bad.Validate(), &cfgErr)
	assert.Equal(t, "model.embeddingWidth", cfgErr.Field)

	bad = SmallConfig(0)
	require.ErrorAs(t, bad.Validate(), &cfgErr)
	assert.Equal(t, "model.vocabSize", cfgErr.Field)
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := New("cuda", SmallConfig(10), 1)
	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "model.backend", cfgErr.Field)
	assert.Contains(t, Backends(), ReferenceBackend)
}

func TestForwardShapes(t *testing.T) {
	m, err := New(ReferenceBackend, tinyConfig(), 7)
	require.NoError(t, err)

	out, err := m.Forward(context.Background(), [][]int{{0, 1, 2, 3}, {4, 4}})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Len(t, out[0], 4)
	assert.Len(t, out[1], 2)
	for _, l := range out[0] {
		assert.Len(t, l, 5)
	}
}

func TestForwardRejectsBadInput(t *testing.T) {
	m := NewReference(tinyConfig(), 7)
	ctx := context.Background()

	_, err := m.Forward(ctx, [][]int{{0, 1, 2, 3, 4}})
	assert.Error(t, err, "longer than the context")

	_, err = m.Forward(ctx, [][]int{{0, 5}})
	assert.Error(t, err, "token outside the vocabulary")

	_, err = m.Forward(ctx, nil)
	assert.Error(t, err)
}

func TestForwardIsCausal(t *testing.T) {
	m := NewReference(tinyConfig(), 3)
	ctx := context.Background()

	a, err := m.Forward(ctx, [][]int{{1, 2, 3, 0}})
	require.NoError(t, err)
	b, err := m.Forward(ctx, [][]int{{1, 2, 4, 4}})
	require.NoError(t, err)

	assert.Equal(t, a[0][0], b[0][0])
	assert.Equal(t, a[0][1], b[0][1])
	assert.NotEqual(t, a[0][2], b[0][2])
}

func TestBackwardMatchesFiniteDifferences(t *testing.T) {
	m := NewReference(tinyConfig(), 11)
	ctx := context.Background()
	inputs := [][]int{{0, 1, 2, 3}, {3, 3, 1, 4}}
	targets := [][]int{{1, 2, 3, 4}, {3, 1, 4, 0}}

	m.ZeroGrad()
	_, err := m.Backward(ctx, inputs, targets)
	require.NoError(t, err)

	const eps = 1e-6
	for _, p := range m.Params() {
		for i := range p.Value {
			orig := p.Value[i]
			p.Value[i] = orig + eps
			up, err := m.Loss(ctx, inputs, targets)
			require.NoError(t, err)
			p.Value[i] = orig - eps
			down, err := m.Loss(ctx, inputs, targets)
			require.NoError(t, err)
			p.Value[i] = orig

			numeric := (up - down) / (2 * eps)
			assert.InDelta(t, numeric, p.Grad[i], 1e-6, "%s[%d]", p.Name, i)
		}
	}
}

func TestSGDReducesLoss(t *testing.T) {
	m := NewReference(tinyConfig(), 5)
	ctx := context.Background()
	inputs := [][]int{{0, 1, 2, 3}}
	targets := [][]int{{1, 2, 3, 4}}

	first, err := m.Loss(ctx, inputs, targets)
	require.NoError(t, err)

	for step := 0; step < 200; step++ {
		m.ZeroGrad()
		_, err := m.Backward(ctx, inputs, targets)
		require.NoError(t, err)
		for _, p := range m.Params() {
			for i := range p.Value {
				p.Value[i] -= 0.5 * p.Grad[i]
			}
		}
	}

	last, err := m.Loss(ctx, inputs, targets)
	require.NoError(t, err)
	assert.Less(t, last, first/2)
}

func TestZeroGrad(t *testing.T) {
	m := NewReference(tinyConfig(), 5)
	_, err := m.Backward(context.Background(), [][]int{{0, 1}}, [][]int{{1, 2}})
	require.NoError(t, err)
	m.ZeroGrad()
	for _, p := range m.Params() {
		for _, g := range p.Grad {
			require.Zero(t, g)
		}
	}
}

func TestSnapshotRestore(t *testing.T) {
	cfg := tinyConfig()
	m := NewReference(cfg, 9)
	st, err := Snapshot(ReferenceBackend, m)
	require.NoError(t, err)
	require.Len(t, st.Params, 3)

	restored, err := Restore(cfg, st)
	require.NoError(t, err)

	ctx := context.Background()
	want, err := m.Forward(ctx, [][]int{{0, 1, 2}})
	require.NoError(t, err)
	got, err := restored.Forward(ctx, [][]int{{0, 1, 2}})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRestoreShapeMismatch(t *testing.T) {
	m := NewReference(tinyConfig(), 9)
	st, err := Snapshot(ReferenceBackend, m)
	require.NoError(t, err)

	other := tinyConfig()
	other.VocabSize = 6
	_, err = Restore(other, st)
	assert.ErrorContains(t, err, "emb.weight")
}

type forwardOnly struct{}

func (forwardOnly) Forward(context.Context, [][]int) ([][]domain.Logits, error) { return nil, nil }
func (forwardOnly) VocabSize() int                                              { return 1 }
func (forwardOnly) ContextSize() int                                            { return 1 }

func TestSnapshotNeedsTrainable(t *testing.T) {
	_, err := Snapshot("x", forwardOnly{})
	assert.ErrorIs(t, err, domain.ErrNotTrainable)
}
