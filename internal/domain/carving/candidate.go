// Package carving defines the core domain model for recovering text-bearing
// content from raw storage media: candidates produced by the carving passes,
// the records kept for accepted candidates, and the fingerprint cache that
// suppresses duplicate emissions.
package carving

// CarveMethod identifies which carving pass produced a candidate. The set of
// methods is closed; the orchestrator dispatches them in a fixed order on
// every block.
type CarveMethod int

const (
	// MethodDirect classifies a whole block as text in one shot.
	MethodDirect CarveMethod = iota

	// MethodSlidingWindow slides an overlapping window across a block to
	// find text that does not fill the whole block.
	MethodSlidingWindow

	// MethodFragment reconstructs text split across block boundaries from
	// the ring buffer of recent blocks.
	MethodFragment

	// MethodOffset probes fixed sub-offsets of a block for misaligned text.
	MethodOffset
)

// String returns the method name used in logs and traces.
func (m CarveMethod) String() string {
	switch m {
	case MethodDirect:
		return "direct"
	case MethodSlidingWindow:
		return "sliding_window"
	case MethodFragment:
		return "fragment"
	case MethodOffset:
		return "offset"
	default:
		return "unknown"
	}
}

// Prefix returns the generic-filename prefix for candidates recovered by this
// method. Direct and sliding-window candidates carry no prefix.
func (m CarveMethod) Prefix() string {
	switch m {
	case MethodFragment:
		return "frag_"
	case MethodOffset:
		return "offset_"
	default:
		return ""
	}
}

/// Candidate is the unit of recovery: a byte span provisionally identified as
// recoverable content, pending filtering and deduplication. Candidates are
// consumed immediately by the acceptance pipeline and never persisted.
type Candidate struct {
	// Data is the raw byte span the candidate was carved from.
	Data []byte

	// Text is the decoded text of the span.
	Text string

	// Offset is the absolute device offset the span was read from.
	Offset int64

	// Method records which carving pass produced the candidate.
	Method CarveMethod
}

// RecoveredFile describes a candidate that survived filtering and
// deduplication. In preview mode it is the terminal artifact; in recovery
// mode it additionally records the file written to the output target, so a
// cancelled recovery can still be replayed or inspected afterwards.
type RecoveredFile struct {
	// Filename is the name the file was (or would be) written under,
	// before collision suffixing.
	Filename string

	// OriginalName is the filename mined from the decoded text, if any.
	OriginalName string

	// Type is the detected or resolved file type label.
	Type string

	// Size is the decoded text length in bytes.
	Size int

	// Offset is the absolute device offset the content was carved from.
	Offset int64

	// Method records which carving pass produced the content.
	Method CarveMethod
}
