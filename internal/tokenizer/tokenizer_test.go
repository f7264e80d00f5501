package tokenizer

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xack13/RWKV-LM/internal/domain"
)

const sample = "It was the best of times, it was the worst of times.\nIt was 1859 (roughly)!"

func TestVocabularyIsSortedAndInvertible(t *testing.T) {
	for _, level := range []domain.Level{domain.LevelCharacter, domain.LevelWord} {
		t.Run(string(level), func(t *testing.T) {
			vocab := NewVocabulary(Split(level, sample))
			symbols := vocab.Symbols()

			assert.True(t, sortedStrings(symbols), "symbols must be in sorted order")
			for i, s := range symbols {
				id, ok := vocab.ID(s)
				require.True(t, ok)
				assert.Equal(t, i, id)

				back, ok := vocab.Symbol(id)
				require.True(t, ok)
				assert.Equal(t, s, back)
			}
		})
	}
}

func TestSplitWords(t *testing.T) {
	got := SplitWords("Hello, World!\nIt's 42.")
	want := []string{"hello", ",", "world", "!", "\n", "it", "'", "s", "4", "2", "."}
	assert.Equal(t, want, got)
}

func TestSplitCharactersKeepsRunes(t *testing.T) {
	assert.Equal(t, []string{"a", "—", "b"}, SplitCharacters("a—b"))
}

func TestCharCodecRoundTrip(t *testing.T) {
	enc, err := Build(sample, domain.LevelCharacter, 8, nil)
	require.NoError(t, err)

	assert.Len(t, enc.Data, len([]rune(sample)))
	assert.Equal(t, sample, enc.Codec.Decode(enc.Data))

	ids, err := enc.Codec.Encode("It was")
	require.NoError(t, err)
	assert.Equal(t, "It was", enc.Codec.Decode(ids))
}

func TestWordCodecDecodeRepairsNewlines(t *testing.T) {
	enc, err := Build(sample, domain.LevelWord, 4, nil)
	require.NoError(t, err)

	ids, err := enc.Codec.Encode("it was the worst of times.\nit was")
	require.NoError(t, err)
	assert.Equal(t, " it was the worst of times . \nit was", enc.Codec.Decode(ids))
}

func TestEncodeUnknownSymbol(t *testing.T) {
	enc, err := Build(sample, domain.LevelCharacter, 8, nil)
	require.NoError(t, err)

	_, err = enc.Codec.Encode("It was Z")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnknownSymbol))

	var dataErr *domain.DataError
	assert.True(t, errors.As(err, &dataErr))
}

func TestBuildRejectsEmptyAndShortCorpora(t *testing.T) {
	_, err := Build("", domain.LevelCharacter, 4, nil)
	assert.True(t, errors.Is(err, domain.ErrEmptyCorpus))

	_, err = Build("abcde", domain.LevelCharacter, 4, nil)
	assert.True(t, errors.Is(err, domain.ErrCorpusTooShort))

	_, err = Build("abcdef", domain.LevelCharacter, 4, nil)
	assert.NoError(t, err)
}

func TestBuildPrintsVocabulary(t *testing.T) {
	var buf bytes.Buffer
	_, err := Build("banana bread", domain.LevelCharacter, 2, &buf)
	require.NoError(t, err)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "  a b d e n r "))
	assert.Contains(t, out, "data has 12 characters, 7 unique.")
}

func sortedStrings(s []string) bool {
	for i := 1; i < len(s); i++ {
		if s[i-1] >= s[i] {
			return false
		}
	}
	return true
}
