package domain

import "context"

// Codec converts between text and token indices for one tokenization level.
type Codec interface {
	// Level reports the tokenization level the codec implements.
	Level() Level

	// Split breaks text into symbols without consulting a vocabulary.
	Split(text string) []string

	// Encode maps text onto indices, failing on symbols outside the vocabulary.
	Encode(text string) ([]int, error)

	// Decode maps indices back onto text.
	Decode(ids []int) string
}

// Model is the forward-pass capability the generator and trainer rely on.
type Model interface {
	// Forward maps a batch of index sequences to per-position logits,
	// shaped [batch][position].
	Forward(ctx context.Context, batch [][]int) ([][]Logits, error)

	VocabSize() int
	ContextSize() int
}

// Param is a named trainable tensor stored row-major.
type Param struct {
	Name  string
	Rows  int
	Cols  int
	Value []float64
	Grad  []float64
	// Decay marks parameters that receive weight decay.
	Decay bool
}

// Trainable is a Model that can compute gradients of the next-token loss.
type Trainable interface {
	Model

	// Params returns the parameters in a stable order.
	Params() []*Param

	// ZeroGrad clears every accumulated gradient.
	ZeroGrad()

	// Backward computes the mean cross-entropy over the batch and accumulates
	// its gradient into Params.
	Backward(ctx context.Context, inputs, targets [][]int) (float64, error)

	// Loss computes the mean cross-entropy without touching gradients.
	Loss(ctx context.Context, inputs, targets [][]int) (float64, error)
}

// WindowSource yields training windows.
type WindowSource interface {
	// Len is the number of windows that make up one (virtual) epoch.
	Len() int

	// Next draws the next window.
	Next() Window
}

// Trainer runs the optimization loop; parameters are updated in place.
type Trainer interface {
	Train(ctx context.Context, model Model, train, eval WindowSource) error
}
