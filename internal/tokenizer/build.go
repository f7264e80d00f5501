package tokenizer

import (
	"fmt"
	"io"

	"github.com/0xack13/RWKV-LM/internal/domain"
)

// Encoded is a tokenized corpus together with the vocabulary built from it.
type Encoded struct {
	Vocab *Vocabulary
	Codec domain.Codec
	Data  []int
}

// Build tokenizes text at level, builds its vocabulary and encodes it. The
// corpus must hold more than contextSize+1 tokens so at least one window fits.
// When progress is non-nil every unique symbol is listed on it.
func Build(text string, level domain.Level, contextSize int, progress io.Writer) (*Encoded, error) {
	if text == "" {
		return nil, domain.NewDataError("build vocabulary", domain.ErrEmptyCorpus)
	}

	tokens := Split(level, text)
	if len(tokens) == 0 {
		return nil, domain.NewDataError("build vocabulary", domain.ErrEmptyCorpus)
	}
	if len(tokens) <= contextSize+1 {
		return nil, domain.NewDataError("build vocabulary",
			fmt.Errorf("%w: %d %ss for a context of %d", domain.ErrCorpusTooShort, len(tokens), level, contextSize))
	}

	vocab := NewVocabulary(tokens)
	if progress != nil {
		if err := vocab.Print(progress); err != nil {
			return nil, err
		}
		fmt.Fprintf(progress, "\n\ndata has %d %ss, %d unique.\n", len(tokens), level, vocab.Size())
	}

	codec, err := NewCodec(level, vocab)
	if err != nil {
		return nil, err
	}
	data, err := vocab.Lookup(tokens)
	if err != nil {
		return nil, err
	}
	return &Encoded{Vocab: vocab, Codec: codec, Data: data}, nil
}
