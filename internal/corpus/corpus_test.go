package corpus

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"

	"github.com/0xack13/RWKV-LM/internal/domain"
)

func TestLoadUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.txt")
	require.NoError(t, os.WriteFile(path, []byte("It was a dark — night.\n"), 0o644))

	text, err := Load(path, "utf-8")
	require.NoError(t, err)
	assert.Equal(t, "It was a dark — night.\n", text)
}

func TestLoadUTF16WithBOM(t *testing.T) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	raw, err := enc.Bytes([]byte("héllo"))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "train16.txt")
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	text, err := Load(path, "UTF-16")
	require.NoError(t, err)
	assert.Equal(t, "héllo", text)
}

func TestDecodeLatin1(t *testing.T) {
	text, err := Decode(strings.NewReader("caf\xe9"), "latin-1")
	require.NoError(t, err)
	assert.Equal(t, "café", text)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.txt"), "utf-8")
	require.Error(t, err)

	var ioErr *domain.IOError
	assert.True(t, errors.As(err, &ioErr))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestUnsupportedEncoding(t *testing.T) {
	_, err := Load("whatever.txt", "ebcdic")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnsupportedEncoding))

	var dataErr *domain.DataError
	assert.True(t, errors.As(err, &dataErr))
}

func TestLoadRejectsInvalidUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.txt")
	require.NoError(t, os.WriteFile(path, []byte("It was \xff\xfe the best"), 0o644))

	text, err := Load(path, "utf-8")
	assert.Empty(t, text)
	assert.ErrorIs(t, err, domain.ErrInvalidEncoding)
	assert.ErrorContains(t, err, "offset 7")

	var dataErr *domain.DataError
	assert.ErrorAs(t, err, &dataErr)
}

func TestDecodeKeepsGenuineReplacementCharacter(t *testing.T) {
	text, err := Decode(strings.NewReader("a�b"), "utf-8")
	require.NoError(t, err)
	assert.Equal(t, "a�b", text)

	raw, err := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte("a�😀"))
	require.NoError(t, err)
	text, err = Decode(bytes.NewReader(raw), "utf-16be")
	require.NoError(t, err)
	assert.Equal(t, "a�😀", text)
}

func TestDecodeRejectsBrokenUTF16(t *testing.T) {
	cases := map[string][]byte{
		"odd length":         {'a', 0, 'b'},
		"lone high":          {'a', 0, 0x00, 0xD8, 'b', 0},
		"lone low":           {0x00, 0xDC, 'a', 0},
		"high at end":        {'a', 0, 0x3D, 0xD8},
		"big endian via bom": {0xFE, 0xFF, 0xD8, 0x00, 0x00, 'a'},
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(raw), "utf-16")
			assert.ErrorIs(t, err, domain.ErrInvalidEncoding)
		})
	}
}

func TestDecodeLatin1AcceptsEveryByte(t *testing.T) {
	raw := make([]byte, 256)
	for i := range raw {
		raw[i] = byte(i)
	}
	text, err := Decode(bytes.NewReader(raw), "iso-8859-1")
	require.NoError(t, err)
	assert.Equal(t, 256, utf8.RuneCountInString(text))
}
