// Package detection provides the classifiers the carving passes rely on:
// deciding whether a byte span is text, which character encoding best decodes
// it, and which file type a span belongs to.
package detection

// MinTextLen is the minimum decoded text length (in characters, after
// trimming surrounding whitespace) for a span to count as recoverable text.
const MinTextLen = 200

const (
	// minClassifiableLen is the smallest span worth classifying; anything
	// shorter is noise.
	minClassifiableLen = 10

	// printableRunLen is the contiguous printable run that rescues a span
	// whose overall printable ratio misses the threshold.
	printableRunLen = 50

	// printableRunFloor is the minimum overall printable ratio required
	// alongside a qualifying run.
	printableRunFloor = 0.5
)

// printable reports whether b is printable ASCII: the graphic characters,
// space, and the usual whitespace controls.
func printable(b byte) bool {
	if b >= 0x20 && b <= 0x7e {
		return true
	}
	switch b {
	case '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

// IsText reports whether the span looks like text: either the fraction of
// printable ASCII bytes meets the threshold, or a contiguous printable run of
// at least 50 bytes exists and the overall fraction is at least 0.5. The run
// criterion catches text embedded in otherwise noisy spans.
func IsText(data []byte, threshold float64) bool {
	if len(data) < minClassifiableLen {
		return false
	}

	valid := 0
	run := 0
	maxRun := 0
	for _, b := range data {
		if printable(b) {
			valid++
			run++
			if run > maxRun {
				maxRun = run
			}
		} else {
			run = 0
		}
	}

	ratio := float64(valid) / float64(len(data))
	return ratio >= threshold || (maxRun >= printableRunLen && ratio >= printableRunFloor)
}
