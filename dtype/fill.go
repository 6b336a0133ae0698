package dtype

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/x448/float16"
)

// Special fill values for floating point arrays.
const (
	FillNaN              = "NaN"
	FillInfinity         = "Infinity"
	FillNegativeInfinity = "-Infinity"
)

// FillValue is the scalar substituted for array elements whose chunk is
// absent from storage.
type FillValue struct {
	raw  json.RawMessage
	elem []byte
}

var _ json.Marshaler = FillValue{}

// ParseFillValue resolves a fill_value JSON document against d. A missing
// or null fill value means the zero element.
func ParseFillValue(raw json.RawMessage, d Dtype) (FillValue, error) {
	size := d.ItemSize()
	if size <= 0 {
		return FillValue{}, fmt.Errorf("%w: %s", ErrUnsupported, d)
	}

	var compact bytes.Buffer
	if len(bytes.TrimSpace(raw)) == 0 {
		compact.WriteString("null")
	} else if err := json.Compact(&compact, raw); err != nil {
		return FillValue{}, fmt.Errorf("invalid fill_value: %w", err)
	}

	var v any
	dec := json.NewDecoder(bytes.NewReader(compact.Bytes()))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return FillValue{}, fmt.Errorf("invalid fill_value: %w", err)
	}

	elem := make([]byte, size)
	if v != nil {
		if err := encodeScalar(elem, v, d); err != nil {
			return FillValue{}, fmt.Errorf("invalid fill_value %s for %s: %w", compact.String(), d, err)
		}
	}
	return FillValue{raw: compact.Bytes(), elem: elem}, nil
}

// Zero returns the fill value used when metadata declares none.
func Zero(d Dtype) FillValue {
	return FillValue{raw: json.RawMessage("null"), elem: make([]byte, d.ItemSize())}
}

// IsNull reports whether the metadata declared a null fill value.
func (f FillValue) IsNull() bool {
	return len(f.raw) == 0 || string(f.raw) == "null"
}

// Bytes returns one element encoded in the dtype's byte order.
func (f FillValue) Bytes() []byte {
	return f.elem
}

// Repeat returns n consecutive copies of the encoded element.
func (f FillValue) Repeat(n int) []byte {
	if n <= 0 || len(f.elem) == 0 {
		return []byte{}
	}
	if allZero(f.elem) {
		return make([]byte, n*len(f.elem))
	}
	return bytes.Repeat(f.elem, n)
}

func (f FillValue) MarshalJSON() ([]byte, error) {
	if len(f.raw) == 0 {
		return []byte("null"), nil
	}
	return f.raw, nil
}

func (f FillValue) String() string {
	if len(f.raw) == 0 {
		return "null"
	}
	return string(f.raw)
}

func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

func encodeScalar(dst []byte, v any, d Dtype) error {
	bo := d.Order()
	switch d.Kind {
	case Bool:
		switch x := v.(type) {
		case bool:
			if x {
				dst[0] = 1
			}
			return nil
		case json.Number:
			i, err := parseInt(x, 64)
			if err != nil {
				return err
			}
			if i != 0 {
				dst[0] = 1
			}
			return nil
		}
	case Int8, Int16, Int32, Int64:
		if n, ok := v.(json.Number); ok {
			i, err := parseInt(n, 8*len(dst))
			if err != nil {
				return err
			}
			putUint(dst, uint64(i), bo)
			return nil
		}
	case UInt8, UInt16, UInt32, UInt64:
		if n, ok := v.(json.Number); ok {
			u, err := parseUint(n, 8*len(dst))
			if err != nil {
				return err
			}
			putUint(dst, u, bo)
			return nil
		}
	case Float16, Float32, Float64:
		f, err := parseFloat(v)
		if err != nil {
			return err
		}
		putFloat(dst, f, d.Kind, bo)
		return nil
	case Complex64, Complex128:
		re, im := v, any(json.Number("0"))
		if pair, ok := v.([]any); ok {
			if len(pair) != 2 {
				return fmt.Errorf("complex fill value needs [re, im], got %d items", len(pair))
			}
			re, im = pair[0], pair[1]
		}
		r, err := parseFloat(re)
		if err != nil {
			return err
		}
		i, err := parseFloat(im)
		if err != nil {
			return err
		}
		half := len(dst) / 2
		part := Float32
		if d.Kind == Complex128 {
			part = Float64
		}
		putFloat(dst[:half], r, part, bo)
		putFloat(dst[half:], i, part, bo)
		return nil
	case Bytes:
		s, ok := v.(string)
		if !ok {
			break
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return fmt.Errorf("byte string fill value must be base64: %w", err)
		}
		if len(b) > len(dst) {
			return fmt.Errorf("fill value of %d bytes exceeds item size %d", len(b), len(dst))
		}
		copy(dst, b)
		return nil
	case String:
		s, ok := v.(string)
		if !ok {
			break
		}
		runes := []rune(s)
		if len(runes) > d.Length {
			return fmt.Errorf("fill value of %d characters exceeds length %d", len(runes), d.Length)
		}
		for i, r := range runes {
			bo.PutUint32(dst[4*i:], uint32(r))
		}
		return nil
	}
	return fmt.Errorf("unexpected JSON value %v (%T)", v, v)
}

func parseInt(n json.Number, bits int) (int64, error) {
	i, err := strconv.ParseInt(n.String(), 10, bits)
	if err == nil {
		return i, nil
	}
	// integral floats such as 0.0 are common in the wild
	f, ferr := strconv.ParseFloat(n.String(), 64)
	if ferr != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("expected integer, got %s", n)
	}
	lim := math.Ldexp(1, bits-1)
	if f < -lim || f >= lim {
		return 0, fmt.Errorf("value %s out of range for int%d", n, bits)
	}
	return int64(f), nil
}

func parseUint(n json.Number, bits int) (uint64, error) {
	u, err := strconv.ParseUint(n.String(), 10, bits)
	if err == nil {
		return u, nil
	}
	f, ferr := strconv.ParseFloat(n.String(), 64)
	if ferr != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("expected unsigned integer, got %s", n)
	}
	if f < 0 || f >= math.Ldexp(1, bits) {
		return 0, fmt.Errorf("value %s out of range for uint%d", n, bits)
	}
	return uint64(f), nil
}

func parseFloat(v any) (float64, error) {
	switch x := v.(type) {
	case json.Number:
		return strconv.ParseFloat(x.String(), 64)
	case string:
		switch x {
		case FillNaN:
			return math.NaN(), nil
		case FillInfinity:
			return math.Inf(1), nil
		case FillNegativeInfinity:
			return math.Inf(-1), nil
		}
	}
	return 0, fmt.Errorf("expected number, got %v (%T)", v, v)
}

func putUint(dst []byte, u uint64, bo binary.ByteOrder) {
	switch len(dst) {
	case 1:
		dst[0] = byte(u)
	case 2:
		bo.PutUint16(dst, uint16(u))
	case 4:
		bo.PutUint32(dst, uint32(u))
	case 8:
		bo.PutUint64(dst, u)
	}
}

func putFloat(dst []byte, f float64, k Kind, bo binary.ByteOrder) {
	switch k {
	case Float16:
		bo.PutUint16(dst, float16.Fromfloat32(float32(f)).Bits())
	case Float32:
		bo.PutUint32(dst, math.Float32bits(float32(f)))
	case Float64:
		bo.PutUint64(dst, math.Float64bits(f))
	}
}
