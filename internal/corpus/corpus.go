// Package corpus reads a training corpus fully into memory with an explicit
// text encoding.
package corpus

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/0xack13/RWKV-LM/internal/domain"
)

var encodings = map[string]encoding.Encoding{
	"utf-8":     unicode.UTF8,
	"utf-8-sig": unicode.UTF8BOM,
	// no byte order given: honour a BOM, else little endian
	"utf-16":   unicode.UTF16(unicode.LittleEndian, unicode.UseBOM),
	"utf-16le": unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"utf-16be": unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
	"latin-1":  charmap.ISO8859_1,
	"cp1252":   charmap.Windows1252,
}

var aliases = map[string]string{
	"":             "utf-8",
	"utf8":         "utf-8",
	"utf16":        "utf-16",
	"utf-16-le":    "utf-16le",
	"utf-16-be":    "utf-16be",
	"latin1":       "latin-1",
	"iso-8859-1":   "latin-1",
	"windows-1252": "cp1252",
}

func canonicalName(name string) (string, error) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "_", "-"))
	if alias, ok := aliases[key]; ok {
		key = alias
	}
	if _, ok := encodings[key]; !ok {
		return "", domain.NewDataError("lookup encoding", fmt.Errorf("%w: %q", domain.ErrUnsupportedEncoding, name))
	}
	return key, nil
}

// LookupEncoding resolves an encoding name.
func LookupEncoding(name string) (encoding.Encoding, error) {
	key, err := canonicalName(name)
	if err != nil {
		return nil, err
	}
	return encodings[key], nil
}

// Decode reads r to the end and converts it from the named encoding to
// UTF-8. Bytes that are not valid in that encoding are a DataError wrapping
// ErrInvalidEncoding rather than being replaced.
func Decode(r io.Reader, encodingName string) (string, error) {
	key, err := canonicalName(encodingName)
	if err != nil {
		return "", err
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return decode(raw, key)
}

// Load reads the file at path as one string.
func Load(path, encodingName string) (string, error) {
	key, err := canonicalName(encodingName)
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", domain.NewIOError("open", path, err)
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return "", domain.NewIOError("read", path, err)
	}
	text, err := decode(raw, key)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return text, nil
}

func decode(raw []byte, key string) (string, error) {
	if err := checkStrict(raw, key); err != nil {
		return "", domain.NewDataError("decode "+key, err)
	}
	out, err := encodings[key].NewDecoder().Bytes(raw)
	if err != nil {
		return "", domain.NewDataError("decode "+key, fmt.Errorf("%w: %v", domain.ErrInvalidEncoding, err))
	}
	return string(out), nil
}

// checkStrict rejects input the x/text decoders would silently repair with
// U+FFFD. The single-byte charmaps map every byte and need no check.
func checkStrict(raw []byte, key string) error {
	switch key {
	case "utf-8", "utf-8-sig":
		if i := invalidUTF8At(raw); i >= 0 {
			return fmt.Errorf("%w: invalid utf-8 byte 0x%02x at offset %d", domain.ErrInvalidEncoding, raw[i], i)
		}
	case "utf-16", "utf-16le", "utf-16be":
		if len(raw)%2 != 0 {
			return fmt.Errorf("%w: odd number of bytes (%d) for utf-16", domain.ErrInvalidEncoding, len(raw))
		}
		if i := unpairedSurrogateAt(raw, bigEndian(raw, key)); i >= 0 {
			return fmt.Errorf("%w: unpaired utf-16 surrogate at offset %d", domain.ErrInvalidEncoding, i)
		}
	}
	return nil
}

func invalidUTF8At(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return -1
}

func bigEndian(raw []byte, key string) bool {
	switch key {
	case "utf-16be":
		return true
	case "utf-16":
		return len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF
	}
	return false
}

func unpairedSurrogateAt(raw []byte, be bool) int {
	unit := func(i int) uint16 {
		if be {
			return uint16(raw[i])<<8 | uint16(raw[i+1])
		}
		return uint16(raw[i+1])<<8 | uint16(raw[i])
	}
	for i := 0; i+1 < len(raw); i += 2 {
		u := unit(i)
		switch {
		case u >= 0xD800 && u < 0xDC00:
			if i+3 >= len(raw) {
				return i
			}
			if next := unit(i + 2); next < 0xDC00 || next > 0xDFFF {
				return i
			}
			i += 2
		case u >= 0xDC00 && u <= 0xDFFF:
			return i
		}
	}
	return -1
}
