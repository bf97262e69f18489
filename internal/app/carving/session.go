package carving

import (
	"bytes"

	"github.com/carvex/carvex/internal/domain/carving"
)

// blockRing buffers the most recent blocks for cross-block fragment
// reconstruction. Pushed blocks are copied; the scan loop reuses its read
// buffer between iterations.
type blockRing struct {
	depth  int
	blocks [][]byte
}

func newBlockRing(depth int) *blockRing {
	if depth < 2 {
		depth = 2
	}
	return &blockRing{depth: depth}
}

func (r *blockRing) push(block []byte) {
	cp := make([]byte, len(block))
	copy(cp, block)
	r.blocks = append(r.blocks, cp)
	if len(r.blocks) > r.depth {
		r.blocks = r.blocks[1:]
	}
}

func (r *blockRing) len() int { return len(r.blocks) }

// joined concatenates the buffered blocks oldest-first.
func (r *blockRing) joined() []byte { return bytes.Join(r.blocks, nil) }

// session is the mutable state of one scan. A fresh session is created per
// Recover call; nothing in it survives across scans.
type session struct {
	sc    scanContext
	cache *carving.DedupeCache

	// cleanupInterval is how many blocks may elapse between cache cleanup
	// passes; lastCleanup is the block count at the previous pass.
	cleanupInterval int64
	lastCleanup     int64

	// offset is the absolute device offset of the next read. Skipped
	// regions on physical media advance it without advancing blockIndex.
	offset int64

	// found counts accepted recoveries and seeds generated filenames.
	found int
}

func newSession(budgetMB int64, bufferDepth int) *session {
	return &session{
		sc:              scanContext{ring: newBlockRing(bufferDepth)},
		cache:           carving.NewDedupeCache(carving.FingerprintCapacity(budgetMB)),
		cleanupInterval: carving.CleanupInterval(budgetMB),
	}
}

// cleanupDue reports whether a periodic cache cleanup pass is due and records
// the pass when it is.
func (s *session) cleanupDue() bool {
	if s.sc.blockIndex-s.lastCleanup < s.cleanupInterval {
		return false
	}
	s.lastCleanup = s.sc.blockIndex
	return true
}
