package carving

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewFingerprint(t *testing.T) {
	t.Run("equal_text_equal_fingerprint", func(t *testing.T) {
		a := NewFingerprint("some recovered content")
		b := NewFingerprint("some recovered content")
		assert.Equal(t, a, b)
	})

	t.Run("only_first_100_characters_matter", func(t *testing.T) {
		prefix := strings.Repeat("x", 100)
		a := NewFingerprint(prefix + "first tail")
		b := NewFingerprint(prefix + "completely different tail")
		assert.Equal(t, a, b)
	})

	t.Run("difference_within_prefix_changes_fingerprint", func(t *testing.T) {
		a := NewFingerprint("alpha content")
		b := NewFingerprint("bravo content")
		assert.NotEqual(t, a, b)
	})

	t.Run("short_text", func(t *testing.T) {
		a := NewFingerprint("ab")
		b := NewFingerprint("ab")
		assert.Equal(t, a, b)
		assert.NotEqual(t, a, NewFingerprint("ac"))
	})

	t.Run("multibyte_prefix_counted_in_runes", func(t *testing.T) {
		prefix := strings.Repeat("ñ", 100)
		a := NewFingerprint(prefix + "uno")
		b := NewFingerprint(prefix + "dos")
		assert.Equal(t, a, b)
	})
}

func TestFingerprintString(t *testing.T) {
	fp := NewFingerprint("anything")
	s := fp.String()
	assert.Len(t, s, FingerprintSize*2)
	assert.NotEqual(t, strings.Repeat("0", FingerprintSize*2), s)
}
