package detection

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testClassifier() *Classifier {
	return NewClassifier([]TypeSignature{
		{Label: "pdf", Prefixes: [][]byte{[]byte("%PDF")}},
		{Label: "doc", Prefixes: [][]byte{{0xd0, 0xcf, 0x11, 0xe0}}},
		{Label: "docx", Prefixes: [][]byte{[]byte("PK\x03\x04")}},
		{Label: "zip", Prefixes: [][]byte{[]byte("PK\x03\x04")}},
		{Label: "png", Prefixes: [][]byte{{0x89, 'P', 'N', 'G'}}},
		{Label: "jpg", Prefixes: [][]byte{{0xff, 0xd8, 0xff}}},
		{Label: "txt"},
		{Label: "csv"},
	})
}

func TestDetectType(t *testing.T) {
	classifier := testClassifier()

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{
			name: "pdf_signature",
			data: []byte("%PDF-1.7 rest of document"),
			want: "pdf",
		},
		{
			name: "legacy_office_signature",
			data: append([]byte{0xd0, 0xcf, 0x11, 0xe0}, bytes.Repeat([]byte{0x00}, 32)...),
			want: "doc",
		},
		{
			name: "png_signature",
			data: append([]byte{0x89, 'P', 'N', 'G', '\r', '\n'}, make([]byte, 16)...),
			want: "png",
		},
		{
			name: "text_fallback",
			data: []byte(strings.Repeat("plain readable content ", 20)),
			want: "txt",
		},
		{
			name: "binary_junk",
			data: bytes.Repeat([]byte{0x00, 0x01, 0x02, 0xfe}, 64),
			want: "",
		},
		{
			name: "too_short",
			data: []byte{0x89, 'P', 'N'},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifier.DetectType(tt.data))
		})
	}
}

func TestDetectTypeRefinesZipContainers(t *testing.T) {
	classifier := testClassifier()

	// A bare zip local-file header is a plain archive, not an office
	// container; the structure matcher corrects the table's first PK entry.
	data := append([]byte("PK\x03\x04"), make([]byte, 64)...)
	assert.Equal(t, "zip", classifier.DetectType(data))
}

func TestDetectTypeMatchesTableOrder(t *testing.T) {
	// jpg shares its prefix with no other entry; the first matching entry
	// in table order wins.
	classifier := NewClassifier([]TypeSignature{
		{Label: "jpg", Prefixes: [][]byte{{0xff, 0xd8, 0xff}}},
		{Label: "jpeg", Prefixes: [][]byte{{0xff, 0xd8, 0xff}}},
	})
	data := append([]byte{0xff, 0xd8, 0xff, 0xe0}, make([]byte, 16)...)
	assert.Equal(t, "jpg", classifier.DetectType(data))
}
