package dtype_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TuSKan/go-zarr/dtype"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input    string
		kind     dtype.Kind
		order    dtype.ByteOrder
		itemSize int
	}{
		{"|b1", dtype.Bool, dtype.NotRelevant, 1},
		{"|i1", dtype.Int8, dtype.NotRelevant, 1},
		{"<i2", dtype.Int16, dtype.LittleEndian, 2},
		{">i4", dtype.Int32, dtype.BigEndian, 4},
		{"<i8", dtype.Int64, dtype.LittleEndian, 8},
		{"|u1", dtype.UInt8, dtype.NotRelevant, 1},
		{">u2", dtype.UInt16, dtype.BigEndian, 2},
		{"<u4", dtype.UInt32, dtype.LittleEndian, 4},
		{"<u8", dtype.UInt64, dtype.LittleEndian, 8},
		{"<f2", dtype.Float16, dtype.LittleEndian, 2},
		{">f4", dtype.Float32, dtype.BigEndian, 4},
		{"<f8", dtype.Float64, dtype.LittleEndian, 8},
		{"<c8", dtype.Complex64, dtype.LittleEndian, 8},
		{"<c16", dtype.Complex128, dtype.LittleEndian, 16},
		{"|S20", dtype.Bytes, dtype.NotRelevant, 20},
		{"<U12", dtype.String, dtype.LittleEndian, 48},
		{"f8", dtype.Float64, dtype.LittleEndian, 8},
		{"&lt;f4", dtype.Float32, dtype.LittleEndian, 4},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			d, err := dtype.Parse(tt.input)
			require.NoError(t, err)
			require.Equal(t, tt.kind, d.Kind)
			require.Equal(t, tt.order, d.ByteOrder)
			require.Equal(t, tt.itemSize, d.ItemSize())

			// parsing is deterministic and String round-trips
			again, err := dtype.Parse(d.String())
			require.NoError(t, err)
			require.Equal(t, d, again)
		})
	}
}

func TestParse_Lengths(t *testing.T) {
	d := dtype.MustParse("|S20")
	require.Equal(t, 20, d.Length)
	d = dtype.MustParse("<U12")
	require.Equal(t, 12, d.Length)
}

func TestParse_Unsupported(t *testing.T) {
	for _, input := range []string{"", "x", "<x4", "<i", "<i3", "<f16", "|b2", "<M8[ns]", "<m8", "|V8", "<i-4", "<U0"} {
		t.Run(input, func(t *testing.T) {
			_, err := dtype.Parse(input)
			require.ErrorIs(t, err, dtype.ErrUnsupported)
		})
	}
}

func TestDtype_JSON(t *testing.T) {
	var d dtype.Dtype
	require.NoError(t, json.Unmarshal([]byte(`">f4"`), &d))
	require.Equal(t, dtype.Float32, d.Kind)

	out, err := json.Marshal(d)
	require.NoError(t, err)
	require.JSONEq(t, `">f4"`, string(out))

	err = json.Unmarshal([]byte(`[["a", "<f4"]]`), &d)
	require.ErrorIs(t, err, dtype.ErrUnsupported)
}
