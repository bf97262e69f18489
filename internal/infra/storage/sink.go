// Package storage persists recovered text to the output target. Recovered
// content is always written as UTF-8: the decoded string is re-encoded, and
// the original source encoding is not preserved.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotDirectory reports that the output path exists but is not a
// directory. This is a precondition failure surfaced before any scanning
// begins.
var ErrNotDirectory = errors.New("output path exists but is not a directory")

// Sink writes recovered files into one output directory under
// collision-safe names.
type Sink struct {
	dir string
}

// NewSink creates the output directory if absent and verifies it is a
// directory.
func NewSink(dir string) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory %q: %w", dir, err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("verifying output directory %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("output directory %q: %w", dir, ErrNotDirectory)
	}
	return &Sink{dir: dir}, nil
}

// Dir returns the sink's output directory.
func (s *Sink) Dir() string { return s.dir }

// Write persists text under filename, appending _1, _2, ... to the stem when
// the name is already taken. It returns the path actually written.
func (s *Sink) Write(filename, text string) (string, error) {
	target := filepath.Join(s.dir, filename)

	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	for counter := 1; exists(target); counter++ {
		target = filepath.Join(s.dir, fmt.Sprintf("%s_%d%s", stem, counter, ext))
	}

	if err := os.WriteFile(target, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("writing recovered file %q: %w", target, err)
	}
	return target, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
