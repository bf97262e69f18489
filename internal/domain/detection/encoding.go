package detection

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Encoding identifies one of the character encodings the carving passes try
// when decoding a byte span.
type Encoding int

// The supported encodings, in detection order. The order is a tie-break:
// when several encodings decode a span successfully, the earliest wins.
const (
	EncodingUTF8 Encoding = iota
	EncodingLatin1
	EncodingWindows1252
	EncodingCP850
	EncodingASCII
)

// String returns the conventional name of the encoding.
func (e Encoding) String() string {
	switch e {
	case EncodingUTF8:
		return "utf-8"
	case EncodingLatin1:
		return "latin-1"
	case EncodingWindows1252:
		return "windows-1252"
	case EncodingCP850:
		return "cp850"
	case EncodingASCII:
		return "ascii"
	default:
		return "unknown"
	}
}

// Encodings returns the fixed, ordered encoding list used for detection.
func Encodings() []Encoding {
	return []Encoding{EncodingUTF8, EncodingLatin1, EncodingWindows1252, EncodingCP850, EncodingASCII}
}

func (e Encoding) charmap() *charmap.Charmap {
	switch e {
	case EncodingLatin1:
		return charmap.ISO8859_1
	case EncodingWindows1252:
		return charmap.Windows1252
	case EncodingCP850:
		return charmap.CodePage850
	default:
		return nil
	}
}

// Decode decodes the span strictly: every byte must be defined in the
// encoding. It returns false if any byte cannot be decoded.
func (e Encoding) Decode(data []byte) (string, bool) {
	switch e {
	case EncodingUTF8:
		if !utf8.Valid(data) {
			return "", false
		}
		return string(data), true

	case EncodingASCII:
		for _, b := range data {
			if b >= 0x80 {
				return "", false
			}
		}
		return string(data), true

	default:
		cm := e.charmap()
		var sb strings.Builder
		sb.Grow(len(data))
		for _, b := range data {
			r := cm.DecodeByte(b)
			if r == utf8.RuneError {
				return "", false
			}
			sb.WriteRune(r)
		}
		return sb.String(), true
	}
}

// DecodeLossy decodes the span dropping any bytes the encoding cannot
// represent. Used by fragment reconstruction, which tolerates gaps.
func (e Encoding) DecodeLossy(data []byte) string {
	switch e {
	case EncodingUTF8:
		return strings.ToValidUTF8(string(data), "")

	case EncodingASCII:
		var sb strings.Builder
		sb.Grow(len(data))
		for _, b := range data {
			if b < 0x80 {
				sb.WriteByte(b)
			}
		}
		return sb.String()

	default:
		cm := e.charmap()
		var sb strings.Builder
		sb.Grow(len(data))
		for _, b := range data {
			if r := cm.DecodeByte(b); r != utf8.RuneError {
				sb.WriteRune(r)
			}
		}
		return sb.String()
	}
}

// DetectEncoding tries the ordered encoding list against the span, accepting
// the first encoding that decodes strictly to a text of at least MinTextLen
// characters after trimming surrounding whitespace. Detection is
// deterministic: the same bytes always yield the same result.
func DetectEncoding(data []byte) (Encoding, string, bool) {
	for _, enc := range Encodings() {
		text, ok := enc.Decode(data)
		if !ok {
			continue
		}
		if utf8.RuneCountInString(strings.TrimSpace(text)) >= MinTextLen {
			return enc, text, true
		}
	}
	return 0, "", false
}
