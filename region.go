package zarr

import (
	"context"
	"fmt"
)

// ReadRegion assembles the hyper-rectangle of the given shape starting at
// start into one buffer laid out in the array's order. Chunks are fetched
// concurrently; boundary padding never appears in the result.
func (a *Array) ReadRegion(ctx context.Context, start, shape []int) (*Chunk, error) {
	dims := a.meta.Shape
	if len(start) != len(dims) || len(shape) != len(dims) {
		return nil, fmt.Errorf("%w: start and shape must match array dimensionality %d", ErrIndexOutOfRange, len(dims))
	}
	for i := range dims {
		if start[i] < 0 || shape[i] < 0 || start[i]+shape[i] > dims[i] {
			return nil, fmt.Errorf("%w: region out of bounds at dimension %d", ErrIndexOutOfRange, i)
		}
	}

	itemSize := a.meta.Dtype.ItemSize()
	out := &Chunk{
		data:  make([]byte, product(shape)*itemSize),
		dtype: a.meta.Dtype,
		order: a.meta.Order,
		shape: append([]int{}, shape...),
	}
	if len(out.data) == 0 {
		return out, nil
	}

	chunks := a.meta.Chunks
	minChunk := make([]int, len(start))
	maxChunk := make([]int, len(start))
	for i := range start {
		minChunk[i] = start[i] / chunks[i]
		maxChunk[i] = (start[i] + shape[i] - 1) / chunks[i]
	}

	dstStrides := Strides(shape, a.meta.Order)
	srcStrides := Strides(chunks, a.meta.Order)
	fastest := contiguousDim(dstStrides, srcStrides)

	for _, r := range a.GetChunks(ctx, chunkRange(minChunk, maxChunk)) {
		if r.Err != nil {
			return nil, fmt.Errorf("failed to read region: %w", r.Err)
		}

		copyShape := make([]int, len(dims))
		srcOffset := make([]int, len(dims))
		dstOffset := make([]int, len(dims))
		for i := range dims {
			chunkStart := r.Coords[i] * chunks[i]
			chunkEnd := min(chunkStart+chunks[i], dims[i])
			lo := max(chunkStart, start[i])
			hi := min(chunkEnd, start[i]+shape[i])

			copyShape[i] = hi - lo
			srcOffset[i] = lo - chunkStart
			dstOffset[i] = lo - start[i]
		}
		copyND(out.data, dstStrides, dstOffset, r.Chunk.data, srcStrides, srcOffset, copyShape, itemSize, fastest)
	}
	return out, nil
}

// ReadFull reads the entire array into one buffer.
func (a *Array) ReadFull(ctx context.Context) (*Chunk, error) {
	return a.ReadRegion(ctx, make([]int, len(a.meta.Shape)), a.meta.Shape)
}

// chunkRange lists every chunk coordinate between lo and hi inclusive, last
// dimension fastest.
func chunkRange(lo, hi []int) [][]int {
	var out [][]int
	cur := append([]int{}, lo...)
	for {
		out = append(out, append([]int{}, cur...))
		d := len(cur) - 1
		for ; d >= 0; d-- {
			cur[d]++
			if cur[d] <= hi[d] {
				break
			}
			cur[d] = lo[d]
		}
		if d < 0 {
			return out
		}
	}
}

// contiguousDim returns the dimension along which consecutive elements are
// adjacent in both buffers. Strides always provide one for ndim > 0.
func contiguousDim(dstStrides, srcStrides []int) int {
	for i := len(dstStrides) - 1; i >= 0; i-- {
		if dstStrides[i] == 1 && srcStrides[i] == 1 {
			return i
		}
	}
	return len(dstStrides) - 1
}

// copyND copies an n-dimensional block between two buffers sharing the same
// order. Runs along the fastest dimension are contiguous in both and are
// copied in bulk.
func copyND(
	dst []byte, dstStrides, dstOffset []int,
	src []byte, srcStrides, srcOffset []int,
	copyShape []int, itemSize, fastest int,
) {
	if len(copyShape) == 0 {
		// 0D scalar array: exactly one element
		copy(dst[:itemSize], src[:itemSize])
		return
	}

	run := copyShape[fastest] * itemSize
	var iterate func(dim, srcIdx, dstIdx int)
	iterate = func(dim, srcIdx, dstIdx int) {
		if dim == fastest {
			dim++
		}
		if dim == len(copyShape) {
			s, d := srcIdx*itemSize, dstIdx*itemSize
			copy(dst[d:d+run], src[s:s+run])
			return
		}
		for i := 0; i < copyShape[dim]; i++ {
			iterate(dim+1, srcIdx+i*srcStrides[dim], dstIdx+i*dstStrides[dim])
		}
	}
	iterate(0, Offset(srcOffset, srcStrides), Offset(dstOffset, dstStrides))
}
