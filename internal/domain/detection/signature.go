package detection

import (
	"bytes"

	"github.com/h2non/filetype"
)

// textFallbackThreshold is the printable-ratio bar a span must clear for the
// classifier to label signature-less content as plain text.
const textFallbackThreshold = 0.8

// textProbeLen caps how much of a span the text fallback inspects.
const textProbeLen = 1024

// TypeSignature associates a file-type label with its magic-number prefixes.
// Signature-less text types (txt, csv, log, cfg, conf) carry no prefixes and
// are resolved through the text fallback instead.
type TypeSignature struct {
	Label    string
	Prefixes [][]byte
}

// Classifier maps byte spans to file-type labels. Matching is deterministic:
// entries are tried in table order, and the text fallback runs last.
type Classifier struct {
	entries []TypeSignature
}

// NewClassifier builds a classifier over the given signature table. The slice
// order defines match precedence.
func NewClassifier(entries []TypeSignature) *Classifier {
	return &Classifier{entries: entries}
}

// DetectType returns the file-type label for the span, or "" when the span
// matches no known signature and does not look like text.
//
// Container formats built on zip (docx, xlsx, pptx) share the PK prefix with
// plain zip archives; for those the classifier consults the filetype matcher,
// which inspects the archive structure, and prefers its more specific answer
// when it names a type from the table.
func (c *Classifier) DetectType(data []byte) string {
	if len(data) < 4 {
		return ""
	}

	for _, entry := range c.entries {
		for _, prefix := range entry.Prefixes {
			if !bytes.HasPrefix(data, prefix) {
				continue
			}
			if refined := c.refineContainer(data, prefix); refined != "" {
				return refined
			}
			return entry.Label
		}
	}

	probe := data
	if len(probe) > textProbeLen {
		probe = probe[:textProbeLen]
	}
	if IsText(probe, textFallbackThreshold) {
		return "txt"
	}

	return ""
}

var zipLocalHeader = []byte("PK\x03\x04")

func (c *Classifier) refineContainer(data, matched []byte) string {
	if !bytes.Equal(matched, zipLocalHeader) {
		return ""
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return ""
	}
	if !c.knownLabel(kind.Extension) {
		return ""
	}
	return kind.Extension
}

func (c *Classifier) knownLabel(label string) bool {
	for _, entry := range c.entries {
		if entry.Label == label {
			return true
		}
	}
	return false
}
