package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.Signatures)
	assert.NotEmpty(t, cfg.SystemFiles)
	assert.NotEmpty(t, cfg.SystemExtensions)
	assert.NotEmpty(t, cfg.SystemDirectories)
}

func TestSignatureTable(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	table, err := cfg.SignatureTable()
	require.NoError(t, err)

	byLabel := make(map[string][][]byte, len(table))
	for _, sig := range table {
		byLabel[sig.Label] = sig.Prefixes
	}

	t.Run("pdf_prefix", func(t *testing.T) {
		require.Contains(t, byLabel, "pdf")
		assert.Equal(t, [][]byte{[]byte("%PDF")}, byLabel["pdf"])
	})

	t.Run("escaped_prefixes_become_raw_bytes", func(t *testing.T) {
		require.Contains(t, byLabel, "doc")
		require.Len(t, byLabel["doc"], 2)
		assert.Equal(t, []byte{0xd0, 0xcf, 0x11, 0xe0}, byLabel["doc"][0])
		assert.Equal(t, []byte("PK\x03\x04"), byLabel["doc"][1])
	})

	t.Run("png_prefix", func(t *testing.T) {
		require.Contains(t, byLabel, "png")
		require.Len(t, byLabel["png"], 1)
		assert.Equal(t, []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, byLabel["png"][0])
	})

	t.Run("signatureless_text_types_present", func(t *testing.T) {
		for _, label := range []string{"txt", "csv", "log", "cfg", "conf"} {
			require.Contains(t, byLabel, label)
			assert.Empty(t, byLabel[label], label)
		}
	})
}

func TestSupportedTypes(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	types := cfg.SupportedTypes()
	assert.Contains(t, types, "pdf")
	assert.Contains(t, types, "docx")
	assert.Contains(t, types, "txt")

	// Table order defines match precedence and must survive loading.
	assert.Equal(t, "pdf", types[0])
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "override.yaml")
	override := []byte("system_extensions:\n  - .tmp\n")
	require.NoError(t, os.WriteFile(path, override, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{".tmp"}, cfg.SystemExtensions)
	// Sections absent from the override keep their defaults.
	assert.NotEmpty(t, cfg.Signatures)
	assert.NotEmpty(t, cfg.SystemFiles)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestPrefixBytesRejectsWidePoints(t *testing.T) {
	cfg := &Config{Signatures: []SignatureEntry{{Label: "bad", Prefixes: []string{"Ā"}}}}
	_, err := cfg.SignatureTable()
	assert.Error(t, err)
}
