// Package metadata parses Zarr V2 metadata documents and resolves them from
// a store, either one document at a time or from consolidated metadata.
package metadata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/TuSKan/go-zarr/codec"
	"github.com/TuSKan/go-zarr/dtype"
)

// Metadata document keys.
const (
	ArrayKey        = ".zarray"
	GroupKey        = ".zgroup"
	AttributesKey   = ".zattrs"
	ConsolidatedKey = ".zmetadata"
)

// ErrMalformed is returned when a metadata document is not valid JSON or
// misses a required field.
var ErrMalformed = errors.New("malformed metadata")

// Order is the layout of elements within a decompressed chunk.
type Order byte

const (
	// C is row-major: the last dimension varies fastest.
	C Order = 'C'
	// F is column-major: the first dimension varies fastest.
	F Order = 'F'
)

func (o Order) String() string {
	return string(o)
}

// ArrayMetadata is the parsed content of a .zarray document plus the
// attributes read alongside it.
type ArrayMetadata struct {
	ZarrFormat         int
	Shape              []int
	Chunks             []int
	Dtype              dtype.Dtype
	Compressor         *codec.Config
	FillValue          dtype.FillValue
	Order              Order
	DimensionSeparator string

	// Attributes holds the array's .zattrs. It is not part of the .zarray
	// document and is not serialized by MarshalJSON.
	Attributes Attributes
}

var (
	_ json.Marshaler   = (*ArrayMetadata)(nil)
	_ json.Unmarshaler = (*ArrayMetadata)(nil)
)

// arrayDocument mirrors the JSON layout of .zarray. Loosely typed fields stay
// raw until they are resolved into closed variants.
type arrayDocument struct {
	ZarrFormat         *int            `json:"zarr_format"`
	Shape              []int           `json:"shape"`
	Chunks             []int           `json:"chunks"`
	Dtype              json.RawMessage `json:"dtype"`
	Compressor         json.RawMessage `json:"compressor"`
	FillValue          json.RawMessage `json:"fill_value"`
	Order              string          `json:"order"`
	Filters            json.RawMessage `json:"filters"`
	DimensionSeparator string          `json:"dimension_separator"`
}

// ParseArray decodes and validates a .zarray document. Dtype and compressor
// are resolved eagerly, so unsupported ones fail here rather than on the
// first chunk read.
func ParseArray(data []byte) (*ArrayMetadata, error) {
	var doc arrayDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	m := &ArrayMetadata{
		ZarrFormat:         2,
		Order:              C,
		DimensionSeparator: ".",
	}
	if doc.ZarrFormat != nil && *doc.ZarrFormat != 2 {
		return nil, fmt.Errorf("%w: unsupported zarr_format %d, expected 2", ErrMalformed, *doc.ZarrFormat)
	}

	// an absent or null list decodes to nil, an empty one to a non-nil slice
	if doc.Shape == nil {
		return nil, fmt.Errorf("%w: missing \"shape\"", ErrMalformed)
	}
	if doc.Chunks == nil {
		return nil, fmt.Errorf("%w: missing \"chunks\"", ErrMalformed)
	}
	if len(doc.Shape) != len(doc.Chunks) {
		return nil, fmt.Errorf("%w: shape has %d dimensions, chunks has %d", ErrMalformed, len(doc.Shape), len(doc.Chunks))
	}
	for i, n := range doc.Shape {
		if n < 0 {
			return nil, fmt.Errorf("%w: negative shape[%d] = %d", ErrMalformed, i, n)
		}
	}
	for i, n := range doc.Chunks {
		if n <= 0 {
			return nil, fmt.Errorf("%w: chunks[%d] = %d must be positive", ErrMalformed, i, n)
		}
	}
	m.Shape, m.Chunks = doc.Shape, doc.Chunks

	if isNull(doc.Dtype) {
		return nil, fmt.Errorf("%w: missing \"dtype\"", ErrMalformed)
	}
	if err := m.Dtype.UnmarshalJSON(doc.Dtype); err != nil {
		return nil, fmt.Errorf("invalid dtype: %w", err)
	}

	if !isNull(doc.Compressor) {
		var cfg codec.Config
		if err := cfg.UnmarshalJSON(doc.Compressor); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if _, err := codec.Lookup(&cfg); err != nil {
			return nil, fmt.Errorf("invalid compressor: %w", err)
		}
		m.Compressor = &cfg
	}

	if !isNull(doc.Filters) {
		var filters []json.RawMessage
		if err := json.Unmarshal(doc.Filters, &filters); err != nil {
			return nil, fmt.Errorf("%w: invalid filters: %v", ErrMalformed, err)
		}
		if len(filters) > 0 {
			return nil, fmt.Errorf("%w: filters are not supported", codec.ErrUnsupported)
		}
	}

	fill, err := dtype.ParseFillValue(doc.FillValue, m.Dtype)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	m.FillValue = fill

	switch doc.Order {
	case "", "C":
		m.Order = C
	case "F":
		m.Order = F
	default:
		return nil, fmt.Errorf("%w: invalid order %q", ErrMalformed, doc.Order)
	}

	switch doc.DimensionSeparator {
	case "", ".":
		m.DimensionSeparator = "."
	case "/":
		m.DimensionSeparator = "/"
	default:
		return nil, fmt.Errorf("%w: invalid dimension_separator %q", ErrMalformed, doc.DimensionSeparator)
	}
	return m, nil
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// MarshalJSON writes the metadata back as a .zarray document.
func (m *ArrayMetadata) MarshalJSON() ([]byte, error) {
	shape, chunks := m.Shape, m.Chunks
	if shape == nil {
		shape = []int{}
	}
	if chunks == nil {
		chunks = []int{}
	}
	order := m.Order
	if order == 0 {
		order = C
	}
	sep := m.DimensionSeparator
	if sep == "" {
		sep = "."
	}
	return json.Marshal(struct {
		ZarrFormat         int             `json:"zarr_format"`
		Shape              []int           `json:"shape"`
		Chunks             []int           `json:"chunks"`
		Dtype              dtype.Dtype     `json:"dtype"`
		Compressor         *codec.Config   `json:"compressor"`
		FillValue          dtype.FillValue `json:"fill_value"`
		Order              string          `json:"order"`
		Filters            []any           `json:"filters"`
		DimensionSeparator string          `json:"dimension_separator"`
	}{
		ZarrFormat:         2,
		Shape:              shape,
		Chunks:             chunks,
		Dtype:              m.Dtype,
		Compressor:         m.Compressor,
		FillValue:          m.FillValue,
		Order:              order.String(),
		DimensionSeparator: sep,
	})
}

// UnmarshalJSON parses a .zarray document with the same rules as ParseArray.
func (m *ArrayMetadata) UnmarshalJSON(data []byte) error {
	p, err := ParseArray(data)
	if err != nil {
		return err
	}
	*m = *p
	return nil
}

// NumDims is the dimensionality of the array.
func (m *ArrayMetadata) NumDims() int {
	return len(m.Shape)
}

// ByteOrder returns the byte order of multi-byte elements.
func (m *ArrayMetadata) ByteOrder() dtype.ByteOrder {
	return m.Dtype.ByteOrder
}

// Size is the number of elements in the array.
func (m *ArrayMetadata) Size() int {
	return product(m.Shape)
}

// ChunkLen is the number of elements in every chunk, boundary chunks included.
func (m *ArrayMetadata) ChunkLen() int {
	return product(m.Chunks)
}

// ChunkBytes is the decompressed byte length every stored chunk must have.
func (m *ArrayMetadata) ChunkBytes() int {
	return m.ChunkLen() * m.Dtype.ItemSize()
}

func product(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}
