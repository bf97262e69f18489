package detection

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsText(t *testing.T) {
	tests := []struct {
		name      string
		data      []byte
		threshold float64
		want      bool
	}{
		{
			name:      "all_printable_ascii",
			data:      []byte(strings.Repeat("hello world ", 20)),
			threshold: 0.7,
			want:      true,
		},
		{
			name:      "whitespace_controls_count_as_printable",
			data:      []byte(strings.Repeat("line one\tcol\r\n", 10)),
			threshold: 0.9,
			want:      true,
		},
		{
			name:      "all_binary",
			data:      bytes.Repeat([]byte{0x00, 0x01, 0x02, 0x03}, 64),
			threshold: 0.7,
			want:      false,
		},
		{
			name:      "too_short_to_classify",
			data:      []byte("hi"),
			threshold: 0.1,
			want:      false,
		},
		{
			name:      "below_threshold_without_run",
			data:      bytes.Repeat([]byte{'a', 0x00}, 50),
			threshold: 0.7,
			want:      false,
		},
		{
			name: "long_run_rescues_low_ratio",
			// 60 printable then 40 binary: ratio 0.6 misses the 0.7
			// threshold but the 60-byte run plus ratio >= 0.5 passes.
			data:      append([]byte(strings.Repeat("a", 60)), bytes.Repeat([]byte{0x00}, 40)...),
			threshold: 0.7,
			want:      true,
		},
		{
			name: "long_run_below_ratio_floor",
			// 60 printable then 100 binary: ratio 0.375 is under the
			// 0.5 floor, so the run does not rescue it.
			data:      append([]byte(strings.Repeat("a", 60)), bytes.Repeat([]byte{0x00}, 100)...),
			threshold: 0.7,
			want:      false,
		},
		{
			name:      "exactly_at_threshold",
			data:      append([]byte(strings.Repeat("a", 70)), bytes.Repeat([]byte{0x00, 0x01, 0x02}, 10)...),
			threshold: 0.7,
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsText(tt.data, tt.threshold))
		})
	}
}
