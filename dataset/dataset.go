// Package dataset iterates over a zarr array in batches along its first
// dimension and hands each batch out as a gomlx tensor.
package dataset

import (
	"context"
	"fmt"
	"io"

	"github.com/gomlx/gomlx/pkg/core/tensors"

	"github.com/TuSKan/go-zarr"
	"github.com/TuSKan/go-zarr/metadata"
)

// Dataset handles reading Zarr arrays in batches.
type Dataset struct {
	array  *zarr.Array
	closer io.Closer

	CurrentIndex int
}

// New opens the array at the root of the bucket URL.
func New(ctx context.Context, url string, opts ...zarr.Option) (*Dataset, error) {
	r, err := zarr.NewReader(ctx, url, opts...)
	if err != nil {
		return nil, err
	}
	return &Dataset{array: r.Array(), closer: r}, nil
}

// FromArray iterates over an already opened array. Closing the dataset
// leaves the array's store open.
func FromArray(arr *zarr.Array) *Dataset {
	return &Dataset{array: arr}
}

func (d *Dataset) Array() *zarr.Array {
	return d.array
}

// Reset rewinds the dataset to the first row.
func (d *Dataset) Reset() {
	d.CurrentIndex = 0
}

// Close releases the bucket opened by New.
func (d *Dataset) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer.Close()
}

// NextBatch reads the next batch of size batchSize.
// Returns io.EOF if there is no more data.
func (d *Dataset) NextBatch(ctx context.Context, batchSize int) (*tensors.Tensor, error) {
	shape := d.array.Shape()
	if len(shape) == 0 {
		return nil, fmt.Errorf("cannot batch a 0-d array")
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	if d.CurrentIndex >= shape[0] {
		return nil, io.EOF
	}

	start := d.CurrentIndex
	end := min(start+batchSize, shape[0])

	// Batch shape: [end-start, Shape[1], Shape[2]...]
	batchShape := append([]int{end - start}, shape[1:]...)
	origin := make([]int, len(shape))
	origin[0] = start

	region, err := d.array.ReadRegion(ctx, origin, batchShape)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows [%d, %d): %w", start, end, err)
	}
	values, err := region.Values()
	if err != nil {
		return nil, err
	}

	order := region.Order()
	var t *tensors.Tensor
	switch v := values.(type) {
	case []bool:
		t = tensors.FromFlatDataAndDimensions(rowMajor(v, batchShape, order), batchShape...)
	case []int8:
		t = tensors.FromFlatDataAndDimensions(rowMajor(v, batchShape, order), batchShape...)
	case []int16:
		t = tensors.FromFlatDataAndDimensions(rowMajor(v, batchShape, order), batchShape...)
	case []int32:
		t = tensors.FromFlatDataAndDimensions(rowMajor(v, batchShape, order), batchShape...)
	case []int64:
		t = tensors.FromFlatDataAndDimensions(rowMajor(v, batchShape, order), batchShape...)
	case []uint8:
		t = tensors.FromFlatDataAndDimensions(rowMajor(v, batchShape, order), batchShape...)
	case []uint16:
		t = tensors.FromFlatDataAndDimensions(rowMajor(v, batchShape, order), batchShape...)
	case []uint32:
		t = tensors.FromFlatDataAndDimensions(rowMajor(v, batchShape, order), batchShape...)
	case []uint64:
		t = tensors.FromFlatDataAndDimensions(rowMajor(v, batchShape, order), batchShape...)
	case []float32:
		t = tensors.FromFlatDataAndDimensions(rowMajor(v, batchShape, order), batchShape...)
	case []float64:
		t = tensors.FromFlatDataAndDimensions(rowMajor(v, batchShape, order), batchShape...)
	default:
		return nil, fmt.Errorf("%w: no tensor type for %s", zarr.ErrUnsupportedDtype, region.Dtype())
	}

	d.CurrentIndex = end
	return t, nil
}

// rowMajor returns values laid out with the last dimension fastest, as
// tensors expect.
func rowMajor[T any](values []T, shape []int, order metadata.Order) []T {
	if order != metadata.F || len(shape) < 2 {
		return values
	}
	out := make([]T, len(values))
	strides := zarr.Strides(shape, metadata.F)
	pos := make([]int, len(shape))
	for i := range out {
		out[i] = values[zarr.Offset(pos, strides)]
		for d := len(pos) - 1; d >= 0; d-- {
			pos[d]++
			if pos[d] < shape[d] {
				break
			}
			pos[d] = 0
		}
	}
	return out
}
