package tokenizer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/0xack13/RWKV-LM/internal/domain"
)

var (
	// wordBreaks are isolated as standalone tokens at word level.
	wordBreaks = regexp.MustCompile("[\n.,?!:;\\-—|'\"`()0-9\\[\\]{}=+*\\\\/~&$#%]")
	spaceRuns  = regexp.MustCompile(` +`)
)

// SplitCharacters returns every rune of text as a symbol.
func SplitCharacters(text string) []string {
	out := make([]string, 0, len(text))
	for _, r := range text {
		out = append(out, string(r))
	}
	return out
}

// SplitWords pads punctuation, digits and brackets with spaces, collapses
// repeated spaces, lowercases and splits on single spaces.
func SplitWords(text string) []string {
	text = wordBreaks.ReplaceAllString(text, " $0 ")
	text = spaceRuns.ReplaceAllString(text, " ")
	text = strings.ToLower(text)

	parts := strings.Split(text, " ")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NewCodec returns the Encode/Decode pair for level over vocab.
func NewCodec(level domain.Level, vocab *Vocabulary) (domain.Codec, error) {
	switch level {
	case domain.LevelCharacter:
		return &CharCodec{vocab: vocab}, nil
	case domain.LevelWord:
		return &WordCodec{vocab: vocab}, nil
	default:
		return nil, domain.NewConfigError("data.level", fmt.Sprintf("unknown level %q", level))
	}
}

// Split dispatches to the splitter of level.
func Split(level domain.Level, text string) []string {
	if level == domain.LevelWord {
		return SplitWords(text)
	}
	return SplitCharacters(text)
}

// CharCodec treats every rune as a token.
type CharCodec struct {
	vocab *Vocabulary
}

func (c *CharCodec) Level() domain.Level { return domain.LevelCharacter }

func (c *CharCodec) Split(text string) []string { return SplitCharacters(text) }

func (c *CharCodec) Encode(text string) ([]int, error) {
	return c.vocab.Lookup(SplitCharacters(text))
}

func (c *CharCodec) Decode(ids []int) string {
	var sb strings.Builder
	for _, id := range ids {
		s, _ := c.vocab.Symbol(id)
		sb.WriteString(s)
	}
	return sb.String()
}

// WordCodec tokenizes on words and punctuation.
type WordCodec struct {
	vocab *Vocabulary
}

func (c *WordCodec) Level() domain.Level { return domain.LevelWord }

func (c *WordCodec) Split(text string) []string { return SplitWords(text) }

func (c *WordCodec) Encode(text string) ([]int, error) {
	return c.vocab.Lookup(SplitWords(strings.TrimSpace(text)))
}

// Decode joins words with spaces behind a leading space and removes the space
// the join leaves after every newline token.
func (c *WordCodec) Decode(ids []int) string {
	words := make([]string, len(ids))
	for i, id := range ids {
		words[i], _ = c.vocab.Symbol(id)
	}
	out := " " + strings.Join(words, " ")
	return strings.ReplaceAll(out, "\n ", "\n")
}
