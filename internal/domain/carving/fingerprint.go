package carving

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// fingerprintPrefixRunes is the number of leading characters of decoded text
// a fingerprint is derived from. Two candidates that agree on this prefix are
// treated as duplicates regardless of method or offset.
const fingerprintPrefixRunes = 100

// FingerprintSize is the size of a fingerprint in bytes.
const FingerprintSize = 16

// Fingerprint is an opaque fixed-size content hash used to suppress duplicate
// candidates. It is a deduplication heuristic, not an integrity guarantee:
// distinct contents sharing the same 100-character prefix collide on purpose,
// and the bounded cache may evict fingerprints, letting a duplicate reappear.
type Fingerprint [FingerprintSize]byte

// NewFingerprint derives a fingerprint from the first 100 characters of the
// candidate's decoded text.
func NewFingerprint(text string) Fingerprint {
	runes := 0
	end := len(text)
	for i := range text {
		if runes == fingerprintPrefixRunes {
			end = i
			break
		}
		runes++
	}

	sum := blake3.Sum256([]byte(text[:end]))

	var fp Fingerprint
	copy(fp[:], sum[:FingerprintSize])
	return fp
}

// String returns the hex form of the fingerprint for logs and traces.
func (fp Fingerprint) String() string { return hex.EncodeToString(fp[:]) }
