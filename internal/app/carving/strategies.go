package carving

import (
	"strings"
	"unicode/utf8"

	regexp "github.com/wasilibs/go-re2"

	"github.com/carvex/carvex/internal/domain/carving"
	"github.com/carvex/carvex/internal/domain/detection"
)

const (
	// BlockSize is the fixed read granularity of the scan loop.
	BlockSize = 4096

	// Sliding-window geometry: a windowSize window advanced by
	// windowOverlap bytes each step.
	windowSize    = 512
	windowOverlap = 256

	// Text thresholds per carving pass.
	directThreshold = 0.7
	windowThreshold = 0.6
	offsetThreshold = 0.65

	// The offset pass runs on every offsetProbeInterval-th block only;
	// it is a periodic safety net, not a per-block scan.
	offsetProbeInterval = 10

	// Fragment reconstruction requires at least this many word tokens.
	fragmentMinWords = 10
)

// probeOffsets are the fixed sub-offsets the offset pass inspects.
var probeOffsets = [...]int{0, 128, 256, 512, 1024, 2048, 3072}

// wordRe extracts word-like tokens for fragment reconstruction. Accented
// letters are part of a word; digits and punctuation are not.
var wordRe = regexp.MustCompile(`[a-zA-ZáéíóúÁÉÍÓÚñÑ]{3,}`)

// scanContext is the per-iteration state shared by the carving passes.
type scanContext struct {
	// ring holds the most recent blocks for cross-block reconstruction.
	ring *blockRing

	// blockIndex is the zero-based index of the block being carved.
	blockIndex int64
}

// carveStrategy is one carving pass. The orchestrator dispatches the closed
// set of strategies in a fixed order on every block; each pass independently
// may emit zero or more candidates.
type carveStrategy interface {
	carve(sc *scanContext, block []byte, offset int64) []carving.Candidate
}

// newStrategies returns the four carving passes in dispatch order.
func newStrategies() []carveStrategy {
	return []carveStrategy{
		directStrategy{},
		slidingWindowStrategy{},
		fragmentStrategy{},
		offsetStrategy{},
	}
}

// directStrategy classifies the whole block as text in one shot. It is the
// cheapest pass and catches blocks that are entirely recoverable text.
type directStrategy struct{}

func (directStrategy) carve(_ *scanContext, block []byte, offset int64) []carving.Candidate {
	if !detection.IsText(block, directThreshold) {
		return nil
	}
	_, text, ok := detection.DetectEncoding(block)
	if !ok {
		return nil
	}
	return []carving.Candidate{{
		Data:   block,
		Text:   text,
		Offset: offset,
		Method: carving.MethodDirect,
	}}
}

// slidingWindowStrategy slides an overlapping window across the block with a
// lower text threshold, recovering text that does not fill a whole block.
type slidingWindowStrategy struct{}

func (slidingWindowStrategy) carve(_ *scanContext, block []byte, offset int64) []carving.Candidate {
	var out []carving.Candidate
	for start := 0; start < len(block)-windowSize; start += windowOverlap {
		window := block[start : start+windowSize]
		if !detection.IsText(window, windowThreshold) {
			continue
		}
		_, text, ok := detection.DetectEncoding(window)
		if !ok {
			continue
		}
		out = append(out, carving.Candidate{
			Data:   window,
			Text:   text,
			Offset: offset + int64(start),
			Method: carving.MethodSlidingWindow,
		})
	}
	return out
}

// fragmentStrategy reconstructs text split across block boundaries. It feeds
// the ring buffer, joins the buffered blocks, and extracts the longest run of
// word tokens any supported encoding yields. Original whitespace and
// formatting are not recoverable; tokens are rejoined with single spaces.
type fragmentStrategy struct{}

func (fragmentStrategy) carve(sc *scanContext, block []byte, offset int64) []carving.Candidate {
	sc.ring.push(block)
	if sc.ring.len() < 2 {
		return nil
	}

	combined := sc.ring.joined()
	text := reconstructText(combined)
	if text == "" {
		return nil
	}
	return []carving.Candidate{{
		Data:   combined,
		Text:   text,
		Offset: offset - BlockSize,
		Method: carving.MethodFragment,
	}}
}

// reconstructText decodes the span leniently under every supported encoding
// and keeps the longest reconstruction that has at least fragmentMinWords
// word tokens and MinTextLen characters.
func reconstructText(data []byte) string {
	best := ""
	bestLen := 0
	for _, enc := range detection.Encodings() {
		words := wordRe.FindAllString(enc.DecodeLossy(data), -1)
		if len(words) < fragmentMinWords {
			continue
		}
		joined := strings.Join(words, " ")
		if n := utf8.RuneCountInString(joined); n >= detection.MinTextLen && n > bestLen {
			best = joined
			bestLen = n
		}
	}
	return best
}

// offsetStrategy probes fixed sub-offsets of every tenth block, catching
// misaligned content the aligned passes miss without paying the cost on
// every block.
type offsetStrategy struct{}

func (offsetStrategy) carve(sc *scanContext, block []byte, offset int64) []carving.Candidate {
	if sc.blockIndex%offsetProbeInterval != 0 {
		return nil
	}

	var out []carving.Candidate
	for _, probe := range probeOffsets {
		if probe >= len(block) {
			continue
		}
		end := probe + windowSize
		if end > len(block) {
			end = len(block)
		}
		sub := block[probe:end]
		if !detection.IsText(sub, offsetThreshold) {
			continue
		}
		_, text, ok := detection.DetectEncoding(sub)
		if !ok {
			continue
		}
		out = append(out, carving.Candidate{
			Data:   sub,
			Text:   text,
			Offset: offset + int64(probe),
			Method: carving.MethodOffset,
		})
	}
	return out
}
