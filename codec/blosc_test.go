package codec

import (
	"encoding/binary"
	"testing"

	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/require"
)

// bloscFrame assembles a single-split c-blosc 1.x frame around already
// compressed blocks.
func bloscFrame(flags byte, typesize, nbytes, blocksize int, blocks [][]byte) []byte {
	table := 4 * len(blocks)
	frame := make([]byte, bloscHeaderSize+table)
	frame[0], frame[1], frame[2], frame[3] = 2, 1, flags, byte(typesize)
	binary.LittleEndian.PutUint32(frame[4:], uint32(nbytes))
	binary.LittleEndian.PutUint32(frame[8:], uint32(blocksize))
	for i, b := range blocks {
		binary.LittleEndian.PutUint32(frame[bloscHeaderSize+4*i:], uint32(len(frame)))
		var size [4]byte
		binary.LittleEndian.PutUint32(size[:], uint32(len(b)))
		frame = append(frame, size[:]...)
		frame = append(frame, b...)
	}
	binary.LittleEndian.PutUint32(frame[12:], uint32(len(frame)))
	return frame
}

func shuffle(typesize int, src []byte) []byte {
	n := len(src) / typesize
	dst := make([]byte, len(src))
	for i := 0; i < n; i++ {
		for j := 0; j < typesize; j++ {
			dst[j*n+i] = src[i*typesize+j]
		}
	}
	copy(dst[n*typesize:], src[n*typesize:])
	return dst
}

func bitshuffle(typesize int, src []byte) []byte {
	n := len(src) / typesize
	dst := make([]byte, len(src))
	rowLen := n / 8
	for i := 0; i < n; i++ {
		for b := 0; b < typesize*8; b++ {
			if src[i*typesize+b/8]>>(b%8)&1 != 0 {
				dst[b*rowLen+i/8] |= 1 << (i % 8)
			}
		}
	}
	return dst
}

func ramp(n int) []byte {
	b := make([]byte, 4*n)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(b[4*i:], uint32(i%5))
	}
	return b
}

func lz4Block(t *testing.T, data []byte) []byte {
	out := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, out, nil)
	require.NoError(t, err)
	require.NotZero(t, n)
	return out[:n]
}

func TestBlosc_Memcpyed(t *testing.T) {
	data := ramp(8)
	frame := make([]byte, bloscHeaderSize, bloscHeaderSize+len(data))
	frame[0], frame[2], frame[3] = 2, bloscFlagMemcpyed, 4
	binary.LittleEndian.PutUint32(frame[4:], uint32(len(data)))
	binary.LittleEndian.PutUint32(frame[8:], uint32(len(data)))
	binary.LittleEndian.PutUint32(frame[12:], uint32(bloscHeaderSize+len(data)))
	frame = append(frame, data...)

	got, err := decodeBlosc(frame)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestBlosc_InnerCodecs(t *testing.T) {
	data := ramp(32) // 128 bytes: one split per block
	shuffled := shuffle(4, data)

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()

	tests := []struct {
		name  string
		codec byte
		block []byte
	}{
		{"lz4", bloscLZ4, lz4Block(t, shuffled)},
		{"snappy", bloscSnappy, snappy.Encode(nil, shuffled)},
		{"zstd", bloscZstd, enc.EncodeAll(shuffled, nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := bloscFrame(tt.codec<<5|bloscFlagShuffle, 4, len(data), len(data), [][]byte{tt.block})
			got, err := decodeBlosc(frame)
			require.NoError(t, err)
			require.Equal(t, data, got)
		})
	}
}

func TestBlosc_MultipleBlocksAndLeftover(t *testing.T) {
	data := ramp(40) // 160 bytes, blocksize 64 -> blocks of 64, 64, 32
	var blocks [][]byte
	for lo := 0; lo < len(data); lo += 64 {
		hi := min(lo+64, len(data))
		blocks = append(blocks, lz4Block(t, shuffle(4, data[lo:hi])))
	}
	frame := bloscFrame(bloscLZ4<<5|bloscFlagShuffle, 4, len(data), 64, blocks)

	got, err := Decode(frame, &Config{ID: Blosc})
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestBlosc_StoredSplit(t *testing.T) {
	// a split whose compressed size equals its raw size is stored verbatim
	data := []byte("0123456789abcdef")
	frame := bloscFrame(bloscLZ4<<5, 1, len(data), len(data), [][]byte{data})
	got, err := decodeBlosc(frame)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestBlosc_BitShuffle(t *testing.T) {
	data := ramp(32)
	frame := bloscFrame(bloscLZ4<<5|bloscFlagBitShuffle, 4, len(data), len(data),
		[][]byte{lz4Block(t, bitshuffle(4, data))})
	got, err := decodeBlosc(frame)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestBlosc_BloscLZ(t *testing.T) {
	// literal "abcd", overlapping match of 8 at distance 4, literal "z"
	stream := []byte{0x03, 'a', 'b', 'c', 'd', 0xc0, 0x03, 0x00, 'z'}
	want := []byte("abcdabcdabcdz")
	out := make([]byte, len(want))
	n, err := blosclzDecompress(stream, out)
	require.NoError(t, err)
	require.Equal(t, len(want), n)
	require.Equal(t, want, out)

	frame := bloscFrame(bloscBloscLZ<<5, 1, len(want), len(want), [][]byte{stream})
	got, err := decodeBlosc(frame)
	require.NoError(t, err)
	require.Equal(t, want, got)

	_, err = blosclzDecompress([]byte{0x03, 'a', 'b', 'c', 'd', 0xc0, 0x10}, out)
	require.Error(t, err)
}

func TestBlosc_Errors(t *testing.T) {
	_, err := decodeBlosc([]byte{2, 1, 0})
	require.ErrorIs(t, err, errBloscCorrupt)

	data := []byte("0123456789abcdef")
	frame := bloscFrame(7<<5, 1, len(data), len(data), [][]byte{data[:8]})
	_, err = decodeBlosc(frame)
	require.ErrorIs(t, err, ErrUnsupported)

	frame = bloscFrame(bloscLZ4<<5|bloscFlagShuffle|bloscFlagBitShuffle, 4, len(data), len(data), [][]byte{data})
	_, err = decodeBlosc(frame)
	require.ErrorIs(t, err, ErrUnsupported)

	truncated := bloscFrame(bloscLZ4<<5, 1, len(data), len(data), [][]byte{data})
	binary.LittleEndian.PutUint32(truncated[12:], uint32(len(truncated)+10))
	_, err = decodeBlosc(truncated)
	require.ErrorIs(t, err, errBloscCorrupt)
}
