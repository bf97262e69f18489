package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSink(t *testing.T) {
	t.Run("creates_missing_directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "out", "nested")
		sink, err := NewSink(dir)
		require.NoError(t, err)
		assert.Equal(t, dir, sink.Dir())

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("rejects_file_target", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "occupied")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

		_, err := NewSink(path)
		assert.Error(t, err)
	})
}

func TestSinkWrite(t *testing.T) {
	t.Run("writes_utf8_content", func(t *testing.T) {
		sink, err := NewSink(t.TempDir())
		require.NoError(t, err)

		path, err := sink.Write("report.txt", "recovered señal content")
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "recovered señal content", string(data))
	})

	t.Run("collisions_get_numeric_suffixes", func(t *testing.T) {
		sink, err := NewSink(t.TempDir())
		require.NoError(t, err)

		first, err := sink.Write("report.txt", "one")
		require.NoError(t, err)
		second, err := sink.Write("report.txt", "two")
		require.NoError(t, err)
		third, err := sink.Write("report.txt", "three")
		require.NoError(t, err)

		assert.Equal(t, "report.txt", filepath.Base(first))
		assert.Equal(t, "report_1.txt", filepath.Base(second))
		assert.Equal(t, "report_2.txt", filepath.Base(third))

		data, err := os.ReadFile(first)
		require.NoError(t, err)
		assert.Equal(t, "one", string(data))
	})

	t.Run("extensionless_names", func(t *testing.T) {
		sink, err := NewSink(t.TempDir())
		require.NoError(t, err)

		_, err = sink.Write("notes", "one")
		require.NoError(t, err)
		second, err := sink.Write("notes", "two")
		require.NoError(t, err)
		assert.Equal(t, "notes_1", filepath.Base(second))
	})
}
