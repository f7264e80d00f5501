// Package dataset draws fixed-length training windows uniformly at random
// from an encoded corpus.
package dataset

import (
	"fmt"
	"iter"
	"math/rand"
	"sync"

	"github.com/0xack13/RWKV-LM/internal/domain"
)

// Sampler is a sampling-with-replacement generator over the overlapping
// windows of a corpus. It never traverses the corpus in order; an epoch is
// only a count of draws. Safe for concurrent use.
type Sampler struct {
	data        []int
	contextSize int
	seed        int64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSampler returns a sampler of contextSize+1 windows over data.
func NewSampler(data []int, contextSize int, seed int64) (*Sampler, error) {
	if contextSize < 1 {
		return nil, domain.NewConfigError("model.contextSize", "must be positive")
	}
	if len(data) <= contextSize+1 {
		return nil, domain.NewDataError("new sampler",
			fmt.Errorf("%w: %d tokens for a context of %d", domain.ErrCorpusTooShort, len(data), contextSize))
	}
	return &Sampler{
		data:        data,
		contextSize: contextSize,
		seed:        seed,
		rng:         rand.New(rand.NewSource(seed)),
	}, nil
}

// ContextSize returns the input length of every window.
func (s *Sampler) ContextSize() int { return s.contextSize }

// Offsets returns the number of distinct window start positions.
func (s *Sampler) Offsets() int { return len(s.data) - (s.contextSize + 1) }

// Next draws a start offset uniformly from [0, Offsets()) and returns the
// window beginning there.
func (s *Sampler) Next() domain.Window {
	s.mu.Lock()
	i := s.rng.Intn(s.Offsets())
	s.mu.Unlock()
	return s.At(i)
}

// At returns the window starting at offset i. The window owns its memory.
func (s *Sampler) At(i int) domain.Window {
	chunk := make([]int, s.contextSize+1)
	copy(chunk, s.data[i:i+s.contextSize+1])
	return domain.NewWindow(chunk)
}

// Batch draws n windows and returns them as input and target matrices.
func (s *Sampler) Batch(n int) (inputs, targets [][]int) {
	inputs = make([][]int, n)
	targets = make([][]int, n)
	for b := 0; b < n; b++ {
		w := s.Next()
		inputs[b] = w.Input
		targets[b] = w.Target
	}
	return inputs, targets
}

// Reset restarts the draw sequence from the construction seed.
func (s *Sampler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng = rand.New(rand.NewSource(s.seed))
}

// All yields windows forever; stop ranging to end the sequence.
func (s *Sampler) All() iter.Seq[domain.Window] {
	return func(yield func(domain.Window) bool) {
		for {
			if !yield(s.Next()) {
				return
			}
		}
	}
}

// Epoch presents a Sampler as a container of a fixed virtual length. The
// length is a progress unit and is unrelated to the corpus size.
type Epoch struct {
	*Sampler
	length int
}

// NewEpoch wraps s with a virtual epoch of length draws.
func NewEpoch(s *Sampler, length int) *Epoch {
	return &Epoch{Sampler: s, length: length}
}

// Len returns the configured virtual epoch length.
func (e *Epoch) Len() int { return e.length }

var _ domain.WindowSource = (*Epoch)(nil)
