package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArchiveBatches(t *testing.T) {
	t.Parallel()

	jobs := func(sizes ...uint64) []archiveCopy {
		out := make([]archiveCopy, len(sizes))
		for i, s := range sizes {
			out[i] = archiveCopy{size: s}
		}
		return out
	}
	sizes := func(batches [][]archiveCopy) [][]uint64 {
		var out [][]uint64
		for _, b := range batches {
			var row []uint64
			for _, j := range b {
				row = append(row, j.size)
			}
			out = append(out, row)
		}
		return out
	}

	tests := []struct {
		name string
		in   []archiveCopy
		want [][]uint64
	}{
		{name: "empty", in: nil, want: nil},
		{name: "fits in one", in: jobs(3, 4, 3), want: [][]uint64{{3, 4, 3}}},
		{name: "splits at budget", in: jobs(6, 4, 1, 9), want: [][]uint64{{6, 4}, {1, 9}}},
		{name: "oversized file alone", in: jobs(2, 25, 3), want: [][]uint64{{2}, {25}, {3}}},
		{name: "empty files", in: jobs(0, 0, 10, 0), want: [][]uint64{{0, 0, 10, 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, sizes(archiveBatches(tt.in, 10)))
		})
	}
}
