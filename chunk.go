package zarr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/TuSKan/go-zarr/metadata"
)

// GridShape calculates the number of chunks in each dimension.
// For each dimension i, the number of chunks is ceil(shape[i] / chunks[i]).
func GridShape(shape, chunks []int) []int {
	if len(shape) == 0 || len(chunks) == 0 {
		return []int{} // 0D scalar
	}
	grid := make([]int, len(shape))
	for i := range shape {
		grid[i] = (shape[i] + chunks[i] - 1) / chunks[i]
	}
	return grid
}

// ChunkKey generates the key for a chunk given its indices and a separator.
// For Zarr V2, the separator is typically ".".
// Example: indices=[1, 4], separator="." -> "1.4"
// For 0D arrays (empty indices), it returns "0" per the Zarr format.
func ChunkKey(indices []int, separator string) string {
	if len(indices) == 0 {
		return "0"
	}

	if len(indices) == 1 {
		return strconv.Itoa(indices[0])
	}

	var sb strings.Builder
	for i, idx := range indices {
		if i > 0 {
			sb.WriteString(separator)
		}
		sb.WriteString(strconv.Itoa(idx))
	}
	return sb.String()
}

// ParseChunkKey is the inverse of ChunkKey for an array with ndim
// dimensions. Any store path in front of the key must already be removed.
func ParseChunkKey(key, separator string, ndim int) ([]int, error) {
	if ndim == 0 {
		if key != "0" {
			return nil, fmt.Errorf("invalid chunk key %q for a 0-d array", key)
		}
		return []int{}, nil
	}
	parts := strings.Split(key, separator)
	if len(parts) != ndim {
		return nil, fmt.Errorf("chunk key %q has %d coordinates, expected %d", key, len(parts), ndim)
	}
	coords := make([]int, ndim)
	for i, p := range parts {
		c, err := strconv.Atoi(p)
		if err != nil || c < 0 {
			return nil, fmt.Errorf("invalid coordinate %q in chunk key %q", p, key)
		}
		coords[i] = c
	}
	return coords, nil
}

// ChunkCoords returns the coordinates of the chunk holding the element at
// index.
func ChunkCoords(index, chunks []int) []int {
	coords := make([]int, len(index))
	for i := range index {
		coords[i] = index[i] / chunks[i]
	}
	return coords
}

// Strides computes element strides for a buffer of the given shape. C order
// makes the last dimension vary fastest, F order the first.
func Strides(shape []int, order metadata.Order) []int {
	s := make([]int, len(shape))
	stride := 1
	if order == metadata.F {
		for i := range shape {
			s[i] = stride
			stride *= shape[i]
		}
		return s
	}
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = stride
		stride *= shape[i]
	}
	return s
}

// Offset is the flat element offset of pos in a buffer with the given
// strides.
func Offset(pos, strides []int) int {
	off := 0
	for i, p := range pos {
		off += p * strides[i]
	}
	return off
}

func product(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}
