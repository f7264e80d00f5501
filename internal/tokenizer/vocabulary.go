// Package tokenizer builds the symbol vocabulary of a corpus and converts
// text to and from token indices at character or word level.
package tokenizer

import (
	"fmt"
	"io"
	"sort"

	"github.com/0xack13/RWKV-LM/internal/domain"
)

// Vocabulary is a bidirectional mapping between symbols and dense indices.
// Indices follow the sorted order of the symbols.
type Vocabulary struct {
	symbols []string
	index   map[string]int
}

// NewVocabulary builds a vocabulary from the unique symbols in tokens.
func NewVocabulary(tokens []string) *Vocabulary {
	seen := make(map[string]struct{}, 256)
	for _, tok := range tokens {
		seen[tok] = struct{}{}
	}
	symbols := make([]string, 0, len(seen))
	for s := range seen {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	index := make(map[string]int, len(symbols))
	for i, s := range symbols {
		index[s] = i
	}
	return &Vocabulary{symbols: symbols, index: index}
}

// Size returns the number of distinct symbols.
func (v *Vocabulary) Size() int { return len(v.symbols) }

// ID returns the index of symbol.
func (v *Vocabulary) ID(symbol string) (int, bool) {
	id, ok := v.index[symbol]
	return id, ok
}

// Symbol returns the symbol at index id.
func (v *Vocabulary) Symbol(id int) (string, bool) {
	if id < 0 || id >= len(v.symbols) {
		return "", false
	}
	return v.symbols[id], true
}

// Symbols returns a copy of the symbols in index order.
func (v *Vocabulary) Symbols() []string {
	out := make([]string, len(v.symbols))
	copy(out, v.symbols)
	return out
}

// Lookup maps every token onto its index, failing on the first unknown one.
func (v *Vocabulary) Lookup(tokens []string) ([]int, error) {
	ids := make([]int, len(tokens))
	for i, tok := range tokens {
		id, ok := v.index[tok]
		if !ok {
			return nil, domain.NewDataError("encode", fmt.Errorf("%w: %q", domain.ErrUnknownSymbol, tok))
		}
		ids[i] = id
	}
	return ids, nil
}

// Print writes every symbol separated by a space, the way the vocabulary is
// listed while it is being built.
func (v *Vocabulary) Print(w io.Writer) error {
	for _, s := range v.symbols {
		if _, err := fmt.Fprint(w, s, " "); err != nil {
			return err
		}
	}
	return nil
}
