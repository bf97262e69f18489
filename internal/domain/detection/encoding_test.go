package detection

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodingDecode(t *testing.T) {
	tests := []struct {
		name     string
		encoding Encoding
		data     []byte
		want     string
		wantOK   bool
	}{
		{
			name:     "utf8_valid",
			encoding: EncodingUTF8,
			data:     []byte("héllo wörld"),
			want:     "héllo wörld",
			wantOK:   true,
		},
		{
			name:     "utf8_invalid_sequence",
			encoding: EncodingUTF8,
			data:     []byte{0xff, 0xfe, 'a'},
			wantOK:   false,
		},
		{
			name:     "latin1_accepts_every_byte",
			encoding: EncodingLatin1,
			data:     []byte{0xe9, 0xf1, 'a'},
			want:     "éña",
			wantOK:   true,
		},
		{
			name:     "windows1252_undefined_byte",
			encoding: EncodingWindows1252,
			data:     []byte{'a', 0x90, 'b'},
			wantOK:   false,
		},
		{
			name:     "cp850_accented",
			encoding: EncodingCP850,
			data:     []byte{0x82},
			want:     "é",
			wantOK:   true,
		},
		{
			name:     "ascii_rejects_high_bytes",
			encoding: EncodingASCII,
			data:     []byte{'a', 0x80},
			wantOK:   false,
		},
		{
			name:     "ascii_plain",
			encoding: EncodingASCII,
			data:     []byte("plain text"),
			want:     "plain text",
			wantOK:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.encoding.Decode(tt.data)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestEncodingDecodeLossy(t *testing.T) {
	t.Run("utf8_drops_invalid_bytes", func(t *testing.T) {
		got := EncodingUTF8.DecodeLossy([]byte{'a', 0xff, 'b'})
		assert.Equal(t, "ab", got)
	})

	t.Run("ascii_drops_high_bytes", func(t *testing.T) {
		got := EncodingASCII.DecodeLossy([]byte{'a', 0xe9, 'b'})
		assert.Equal(t, "ab", got)
	})

	t.Run("windows1252_drops_undefined_bytes", func(t *testing.T) {
		got := EncodingWindows1252.DecodeLossy([]byte{'a', 0x90, 'b'})
		assert.Equal(t, "ab", got)
	})
}

func TestDetectEncoding(t *testing.T) {
	t.Run("ascii_text_prefers_utf8", func(t *testing.T) {
		data := []byte(strings.Repeat("the quick brown fox ", 15))
		enc, text, ok := DetectEncoding(data)
		require.True(t, ok)
		assert.Equal(t, EncodingUTF8, enc)
		assert.Equal(t, string(data), text)
	})

	t.Run("latin1_fallback_for_invalid_utf8", func(t *testing.T) {
		data := append([]byte(strings.Repeat("resumen de operaci", 14)), 0xf3, 'n')
		enc, text, ok := DetectEncoding(data)
		require.True(t, ok)
		assert.Equal(t, EncodingLatin1, enc)
		assert.True(t, strings.HasSuffix(text, "ón"))
	})

	t.Run("too_short_after_trimming", func(t *testing.T) {
		data := []byte("short text" + strings.Repeat(" ", 300))
		_, _, ok := DetectEncoding(data)
		assert.False(t, ok)
	})

	t.Run("deterministic", func(t *testing.T) {
		data := []byte(strings.Repeat("deterministic input ", 15))
		encA, textA, okA := DetectEncoding(data)
		encB, textB, okB := DetectEncoding(data)
		assert.Equal(t, okA, okB)
		assert.Equal(t, encA, encB)
		assert.Equal(t, textA, textB)
	})
}
