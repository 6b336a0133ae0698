package dtype

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/x448/float16"
)

// ErrUnrepresentable is returned when a conversion cannot preserve the
// meaning of the values, e.g. strings to float64.
var ErrUnrepresentable = errors.New("unrepresentable conversion")

// Order returns the binary.ByteOrder used to decode multi-byte elements.
func (d Dtype) Order() binary.ByteOrder {
	if d.ByteOrder == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// decode applies fn to each size-byte element of src.
func decode[T any](src []byte, count, size int, fn func([]byte) T) []T {
	out := make([]T, count)
	for i := range out {
		out[i] = fn(src[i*size : (i+1)*size])
	}
	return out
}

// Reinterpret decodes the first count elements of src as d. The result is
// one of []bool, []int8, []int16, []int32, []int64, []uint8, []uint16,
// []uint32, []uint64, []float16.Float16, []float32, []float64, []complex64,
// []complex128, []string or [][]byte. Values are never widened or narrowed;
// multi-byte elements are read in the declared byte order whatever the host
// order is.
func Reinterpret(src []byte, d Dtype, count int) (any, error) {
	size := d.ItemSize()
	if size <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, d)
	}
	if count < 0 || len(src) < count*size {
		return nil, fmt.Errorf("buffer of %d bytes too short for %d elements of %s", len(src), count, d)
	}
	bo := d.Order()

	switch d.Kind {
	case Bool:
		return decode(src, count, size, func(b []byte) bool { return b[0] != 0 }), nil
	case Int8:
		return decode(src, count, size, func(b []byte) int8 { return int8(b[0]) }), nil
	case UInt8:
		return decode(src, count, size, func(b []byte) uint8 { return b[0] }), nil
	case Int16:
		return decode(src, count, size, func(b []byte) int16 { return int16(bo.Uint16(b)) }), nil
	case UInt16:
		return decode(src, count, size, bo.Uint16), nil
	case Int32:
		return decode(src, count, size, func(b []byte) int32 { return int32(bo.Uint32(b)) }), nil
	case UInt32:
		return decode(src, count, size, bo.Uint32), nil
	case Int64:
		return decode(src, count, size, func(b []byte) int64 { return int64(bo.Uint64(b)) }), nil
	case UInt64:
		return decode(src, count, size, bo.Uint64), nil
	case Float16:
		return decode(src, count, size, func(b []byte) float16.Float16 { return float16.Frombits(bo.Uint16(b)) }), nil
	case Float32:
		return decode(src, count, size, func(b []byte) float32 { return math.Float32frombits(bo.Uint32(b)) }), nil
	case Float64:
		return decode(src, count, size, func(b []byte) float64 { return math.Float64frombits(bo.Uint64(b)) }), nil
	case Complex64:
		return decode(src, count, size, func(b []byte) complex64 {
			return complex(math.Float32frombits(bo.Uint32(b[:4])), math.Float32frombits(bo.Uint32(b[4:])))
		}), nil
	case Complex128:
		return decode(src, count, size, func(b []byte) complex128 {
			return complex(math.Float64frombits(bo.Uint64(b[:8])), math.Float64frombits(bo.Uint64(b[8:])))
		}), nil
	case Bytes:
		return decode(src, count, size, func(b []byte) []byte {
			return bytes.Clone(bytes.TrimRight(b, "\x00"))
		}), nil
	case String:
		return decode(src, count, size, func(b []byte) string { return decodeUCS4(b, bo) }), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, d)
}

// decodeUCS4 decodes a fixed width UTF-32 field, dropping trailing NUL
// padding. NULs followed by other characters are kept.
func decodeUCS4(b []byte, bo binary.ByteOrder) string {
	n := len(b) / 4
	for n > 0 && bo.Uint32(b[4*(n-1):]) == 0 {
		n--
	}
	buf := make([]byte, 0, n)
	for i := 0; i < n; i++ {
		r := rune(bo.Uint32(b[4*i:]))
		if !utf8.ValidRune(r) {
			r = utf8.RuneError
		}
		buf = utf8.AppendRune(buf, r)
	}
	return string(buf)
}

func convert[T any](v []T, fn func(T) float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = fn(x)
	}
	return out
}

// ToFloat64 converts a slice returned by Reinterpret to float64. Booleans
// become 0 or 1 and complex values keep their real part. 64-bit integers
// beyond 2^53 lose precision. String and byte slices cannot be converted and
// yield ErrUnrepresentable.
func ToFloat64(values any) ([]float64, error) {
	switch v := values.(type) {
	case []bool:
		return convert(v, func(x bool) float64 {
			if x {
				return 1
			}
			return 0
		}), nil
	case []int8:
		return convert(v, func(x int8) float64 { return float64(x) }), nil
	case []int16:
		return convert(v, func(x int16) float64 { return float64(x) }), nil
	case []int32:
		return convert(v, func(x int32) float64 { return float64(x) }), nil
	case []int64:
		return convert(v, func(x int64) float64 { return float64(x) }), nil
	case []uint8:
		return convert(v, func(x uint8) float64 { return float64(x) }), nil
	case []uint16:
		return convert(v, func(x uint16) float64 { return float64(x) }), nil
	case []uint32:
		return convert(v, func(x uint32) float64 { return float64(x) }), nil
	case []uint64:
		return convert(v, func(x uint64) float64 { return float64(x) }), nil
	case []float16.Float16:
		return convert(v, func(x float16.Float16) float64 { return float64(x.Float32()) }), nil
	case []float32:
		return convert(v, func(x float32) float64 { return float64(x) }), nil
	case []float64:
		return append([]float64(nil), v...), nil
	case []complex64:
		return convert(v, func(x complex64) float64 { return float64(real(x)) }), nil
	case []complex128:
		return convert(v, func(x complex128) float64 { return real(x) }), nil
	case []string, [][]byte:
		return nil, fmt.Errorf("%w: %T to []float64", ErrUnrepresentable, values)
	}
	return nil, fmt.Errorf("%w: unknown element slice %T", ErrUnrepresentable, values)
}
