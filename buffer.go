package zarr

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/TuSKan/go-zarr/dtype"
	"github.com/TuSKan/go-zarr/metadata"
)

// Chunk is a decoded buffer: one stored chunk, or a region assembled from
// several. Boundary chunks always have the full declared chunk shape; the
// part beyond the array's extent holds whatever the writer stored there.
type Chunk struct {
	data   []byte
	dtype  dtype.Dtype
	order  metadata.Order
	shape  []int
	coords []int
}

// Bytes returns the raw element bytes in the chunk's order and byte order.
func (c *Chunk) Bytes() []byte {
	return c.data
}

func (c *Chunk) Dtype() dtype.Dtype {
	return c.dtype
}

func (c *Chunk) Order() metadata.Order {
	return c.order
}

func (c *Chunk) Shape() []int {
	return slices.Clone(c.shape)
}

// Coords returns the grid coordinates of the chunk, or nil for an
// assembled region.
func (c *Chunk) Coords() []int {
	return c.coords
}

// Len is the number of elements held.
func (c *Chunk) Len() int {
	return product(c.shape)
}

// Values decodes every element into a slice whose element type matches the
// dtype, e.g. []int32 for "<i4". See dtype.Reinterpret.
func (c *Chunk) Values() (any, error) {
	return dtype.Reinterpret(c.data, c.dtype, c.Len())
}

// Float64s converts every element to float64. It fails with
// ErrUnrepresentableConversion for string and bytes dtypes.
func (c *Chunk) Float64s() ([]float64, error) {
	v, err := c.Values()
	if err != nil {
		return nil, err
	}
	return dtype.ToFloat64(v)
}

// At decodes the element at pos, given in logical (row, column, ...)
// coordinates regardless of the chunk's order.
func (c *Chunk) At(pos ...int) (any, error) {
	if len(pos) != len(c.shape) {
		return nil, fmt.Errorf("%w: %d indices for a %d-d chunk", ErrIndexOutOfRange, len(pos), len(c.shape))
	}
	for i, p := range pos {
		if p < 0 || p >= c.shape[i] {
			return nil, fmt.Errorf("%w: index %d is %d, size %d", ErrIndexOutOfRange, i, p, c.shape[i])
		}
	}
	size := c.dtype.ItemSize()
	off := Offset(pos, Strides(c.shape, c.order)) * size
	v, err := dtype.Reinterpret(c.data[off:off+size], c.dtype, 1)
	if err != nil {
		return nil, err
	}
	return reflect.ValueOf(v).Index(0).Interface(), nil
}

// Values returns the chunk's elements as []T. T must be the Go type the
// dtype decodes to; no conversion is attempted.
func Values[T any](c *Chunk) ([]T, error) {
	v, err := c.Values()
	if err != nil {
		return nil, err
	}
	out, ok := v.([]T)
	if !ok {
		var zero T
		return nil, fmt.Errorf("%w: chunk of %s cannot be read as %T", ErrUnrepresentableConversion, c.dtype, zero)
	}
	return out, nil
}
