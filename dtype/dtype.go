// Package dtype implements the NumPy array-protocol type strings used by
// Zarr V2 metadata and the decoding of raw chunk bytes into typed slices.
//
// A type string consists of three parts:
//   - one character describing the byte order of the data
//     ("<": little-endian, ">": big-endian, "|": not relevant)
//   - one character code giving the basic type
//     ("b" boolean, "i" integer, "u" unsigned, "f" float, "c" complex,
//     "S" fixed-length bytes, "U" fixed-length unicode)
//   - an integer: the byte width for numeric types, or the number of
//     characters for "S" and "U"
package dtype

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnsupported is returned for type strings outside the supported set.
var ErrUnsupported = errors.New("unsupported dtype")

// Kind identifies the element type of an array.
type Kind int

const (
	Invalid Kind = iota
	Bool
	Int8
	Int16
	Int32
	Int64
	UInt8
	UInt16
	UInt32
	UInt64
	Float16
	Float32
	Float64
	Complex64
	Complex128
	String
	Bytes
)

var kindNames = [...]string{
	Invalid:    "invalid",
	Bool:       "bool",
	Int8:       "int8",
	Int16:      "int16",
	Int32:      "int32",
	Int64:      "int64",
	UInt8:      "uint8",
	UInt16:     "uint16",
	UInt32:     "uint32",
	UInt64:     "uint64",
	Float16:    "float16",
	Float32:    "float32",
	Float64:    "float64",
	Complex64:  "complex64",
	Complex128: "complex128",
	String:     "string",
	Bytes:      "bytes",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// fixedSize is the item size of every numeric kind.
var fixedSize = map[Kind]int{
	Bool:       1,
	Int8:       1,
	Int16:      2,
	Int32:      4,
	Int64:      8,
	UInt8:      1,
	UInt16:     2,
	UInt32:     4,
	UInt64:     8,
	Float16:    2,
	Float32:    4,
	Float64:    8,
	Complex64:  8,
	Complex128: 16,
}

// IsNumeric reports whether values of this kind can be converted to float64.
func (k Kind) IsNumeric() bool {
	_, ok := fixedSize[k]
	return ok
}

// ByteOrder is the byte-order marker of a type string.
type ByteOrder byte

const (
	NotRelevant  ByteOrder = '|'
	LittleEndian ByteOrder = '<'
	BigEndian    ByteOrder = '>'
)

func (o ByteOrder) String() string {
	switch o {
	case LittleEndian:
		return "little-endian"
	case BigEndian:
		return "big-endian"
	default:
		return "not-relevant"
	}
}

// Dtype is a parsed type string.
type Dtype struct {
	Kind      Kind
	ByteOrder ByteOrder
	// Length is the declared number of characters for String and Bytes.
	// It is zero for numeric kinds.
	Length int
}

var (
	_ json.Marshaler   = Dtype{}
	_ json.Unmarshaler = (*Dtype)(nil)
)

// ItemSize returns the number of bytes one element occupies.
// String elements are stored as UCS-4, four bytes per character.
func (d Dtype) ItemSize() int {
	switch d.Kind {
	case String:
		return 4 * d.Length
	case Bytes:
		return d.Length
	default:
		return fixedSize[d.Kind]
	}
}

// Parse decodes a type string such as "<f8", ">i4", "|b1", "<c16", "<U12"
// or "|S20".
func Parse(s string) (Dtype, error) {
	// some writers HTML-escape the byte order marker
	s = strings.Replace(s, "&lt;", "<", 1)
	s = strings.Replace(s, "&gt;", ">", 1)

	if len(s) < 2 {
		return Dtype{}, fmt.Errorf("%w: %q is too short", ErrUnsupported, s)
	}

	var d Dtype
	switch ByteOrder(s[0]) {
	case LittleEndian, BigEndian, NotRelevant:
		d.ByteOrder = ByteOrder(s[0])
		s = s[1:]
	default:
		d.ByteOrder = NotRelevant
	}
	if len(s) < 2 {
		return Dtype{}, fmt.Errorf("%w: %q is too short", ErrUnsupported, s)
	}

	code, width := s[0], s[1:]
	n, err := strconv.Atoi(width)
	if err != nil || n <= 0 || width[0] == '+' {
		return Dtype{}, fmt.Errorf("%w: invalid width in %q", ErrUnsupported, s)
	}

	switch code {
	case 'b':
		if n == 1 {
			d.Kind = Bool
		}
	case 'i':
		d.Kind = pick(n, Int8, Int16, Int32, Int64)
	case 'u':
		d.Kind = pick(n, UInt8, UInt16, UInt32, UInt64)
	case 'f':
		switch n {
		case 2:
			d.Kind = Float16
		case 4:
			d.Kind = Float32
		case 8:
			d.Kind = Float64
		}
	case 'c':
		switch n {
		case 8:
			d.Kind = Complex64
		case 16:
			d.Kind = Complex128
		}
	case 'S':
		d.Kind, d.Length = Bytes, n
	case 'U':
		d.Kind, d.Length = String, n
	}
	if d.Kind == Invalid {
		return Dtype{}, fmt.Errorf("%w: %q", ErrUnsupported, s)
	}

	// single byte types have no byte order
	if d.ItemSize() == 1 || d.Kind == Bytes {
		d.ByteOrder = NotRelevant
	} else if d.ByteOrder == NotRelevant {
		d.ByteOrder = LittleEndian
	}
	return d, nil
}

func pick(n int, k1, k2, k4, k8 Kind) Kind {
	switch n {
	case 1:
		return k1
	case 2:
		return k2
	case 4:
		return k4
	case 8:
		return k8
	}
	return Invalid
}

// MustParse is like Parse but panics on error. It is meant for tests and
// package level variables.
func MustParse(s string) Dtype {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// String returns the type string form of d.
func (d Dtype) String() string {
	var code byte
	width := fixedSize[d.Kind]
	switch d.Kind {
	case Bool:
		code = 'b'
	case Int8, Int16, Int32, Int64:
		code = 'i'
	case UInt8, UInt16, UInt32, UInt64:
		code = 'u'
	case Float16, Float32, Float64:
		code = 'f'
	case Complex64, Complex128:
		code = 'c'
	case Bytes:
		code, width = 'S', d.Length
	case String:
		code, width = 'U', d.Length
	default:
		return "invalid"
	}
	return string(d.ByteOrder) + string(code) + strconv.Itoa(width)
}

func (d Dtype) MarshalJSON() ([]byte, error) {
	if d.Kind == Invalid {
		return nil, fmt.Errorf("%w: cannot marshal invalid dtype", ErrUnsupported)
	}
	return json.Marshal(d.String())
}

func (d *Dtype) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: structured dtypes are not supported", ErrUnsupported)
	}
	t, err := Parse(s)
	if err != nil {
		return err
	}
	*d = t
	return nil
}
