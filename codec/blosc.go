package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zlib"
	"github.com/pierrec/lz4/v4"
)

// Blosc frames follow the c-blosc 1.x layout:
//
//	byte 0      format version
//	byte 1      inner codec version
//	byte 2      flags
//	byte 3      typesize
//	bytes 4-7   uncompressed size (little-endian)
//	bytes 8-11  block size
//	bytes 12-15 compressed size, header included
//
// followed by one int32 start offset per block, unless the frame is a
// plain copy of the input.
const (
	bloscHeaderSize    = 16
	bloscMaxSplits     = 16
	bloscMinBufferSize = 128

	bloscFlagShuffle    = 0x01
	bloscFlagMemcpyed   = 0x02
	bloscFlagBitShuffle = 0x04
	bloscFlagDontSplit  = 0x10
)

// Inner codec identifiers stored in the top three bits of the flags byte.
const (
	bloscBloscLZ = iota
	bloscLZ4
	bloscSnappy
	bloscZlib
	bloscZstd
)

var bloscCnames = map[string]struct{}{
	"blosclz": {},
	"lz4":     {},
	"lz4hc":   {},
	"snappy":  {},
	"zlib":    {},
	"zstd":    {},
}

var errBloscCorrupt = errors.New("corrupt blosc frame")

func newBlosc(opts map[string]any) (Decoder, error) {
	if v, ok := opts["cname"]; ok {
		cname, _ := v.(string)
		if _, known := bloscCnames[strings.ToLower(cname)]; !known {
			return nil, fmt.Errorf("%w: blosc inner codec %v", ErrUnsupported, v)
		}
	}
	return DecoderFunc(decodeBlosc), nil
}

type bloscHeader struct {
	version   byte
	flags     byte
	typesize  int
	nbytes    int
	blocksize int
	cbytes    int
}

func parseBloscHeader(src []byte) (bloscHeader, error) {
	if len(src) < bloscHeaderSize {
		return bloscHeader{}, fmt.Errorf("%w: %d bytes is shorter than the header", errBloscCorrupt, len(src))
	}
	h := bloscHeader{
		version:   src[0],
		flags:     src[2],
		typesize:  int(src[3]),
		nbytes:    int(binary.LittleEndian.Uint32(src[4:])),
		blocksize: int(binary.LittleEndian.Uint32(src[8:])),
		cbytes:    int(binary.LittleEndian.Uint32(src[12:])),
	}
	if h.cbytes > len(src) || h.cbytes < bloscHeaderSize {
		return h, fmt.Errorf("%w: header declares %d bytes, have %d", errBloscCorrupt, h.cbytes, len(src))
	}
	return h, nil
}

func (h bloscHeader) codec() int {
	return int(h.flags >> 5)
}

func decodeBlosc(src []byte) ([]byte, error) {
	h, err := parseBloscHeader(src)
	if err != nil {
		return nil, err
	}
	dst := make([]byte, h.nbytes)
	if h.nbytes == 0 {
		return dst, nil
	}

	if h.flags&bloscFlagMemcpyed != 0 {
		if len(src) < bloscHeaderSize+h.nbytes {
			return nil, fmt.Errorf("%w: copied frame is truncated", errBloscCorrupt)
		}
		copy(dst, src[bloscHeaderSize:bloscHeaderSize+h.nbytes])
		return dst, nil
	}

	// blosc2 signals its extended header by setting both shuffle bits
	if h.flags&(bloscFlagShuffle|bloscFlagBitShuffle) == bloscFlagShuffle|bloscFlagBitShuffle {
		return nil, fmt.Errorf("%w: blosc2 extended header", ErrUnsupported)
	}
	if h.blocksize <= 0 {
		return nil, fmt.Errorf("%w: block size %d", errBloscCorrupt, h.blocksize)
	}
	if h.typesize <= 0 {
		h.typesize = 1
	}

	nblocks := h.nbytes / h.blocksize
	leftover := h.nbytes % h.blocksize
	if leftover > 0 {
		nblocks++
	}
	if len(src) < bloscHeaderSize+4*nblocks {
		return nil, fmt.Errorf("%w: block table is truncated", errBloscCorrupt)
	}

	for i := 0; i < nblocks; i++ {
		start := int(binary.LittleEndian.Uint32(src[bloscHeaderSize+4*i:]))
		lo := i * h.blocksize
		hi := min(lo+h.blocksize, h.nbytes)
		last := i == nblocks-1 && leftover > 0
		if err := h.decodeBlock(src[:h.cbytes], start, dst[lo:hi], last); err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
	}
	return dst, nil
}

func (h bloscHeader) decodeBlock(src []byte, pos int, dst []byte, leftover bool) error {
	bsize := len(dst)
	doShuffle := h.flags&bloscFlagShuffle != 0 && h.typesize > 1
	doBitShuffle := h.flags&bloscFlagBitShuffle != 0 && bsize >= h.typesize

	tmp := dst
	if doShuffle || doBitShuffle {
		tmp = make([]byte, bsize)
	}

	nsplits := 1
	if h.flags&bloscFlagDontSplit == 0 && !leftover &&
		h.typesize <= bloscMaxSplits && bsize/h.typesize >= bloscMinBufferSize {
		nsplits = h.typesize
	}
	neblock := bsize / nsplits

	for j := 0; j < nsplits; j++ {
		if pos < 0 || pos+4 > len(src) {
			return fmt.Errorf("%w: split %d starts past the end", errBloscCorrupt, j)
		}
		cbytes := int(int32(binary.LittleEndian.Uint32(src[pos:])))
		pos += 4
		if cbytes < 0 || pos+cbytes > len(src) {
			return fmt.Errorf("%w: split %d declares %d bytes", errBloscCorrupt, j, cbytes)
		}
		out := tmp[j*neblock : (j+1)*neblock]
		in := src[pos : pos+cbytes]
		if cbytes == neblock {
			copy(out, in)
		} else if err := h.decompress(out, in); err != nil {
			return err
		}
		pos += cbytes
	}

	switch {
	case doShuffle:
		unshuffle(h.typesize, tmp, dst)
	case doBitShuffle:
		bitunshuffle(h.typesize, tmp, dst, h.version)
	}
	return nil
}

// decompress fills dst exactly from one compressed split.
func (h bloscHeader) decompress(dst, src []byte) error {
	var (
		n   int
		err error
	)
	switch h.codec() {
	case bloscBloscLZ:
		n, err = blosclzDecompress(src, dst)
	case bloscLZ4:
		n, err = lz4.UncompressBlock(src, dst)
	case bloscSnappy:
		var out []byte
		out, err = snappy.Decode(dst, src)
		n = copy(dst, out)
		if err == nil && len(out) != len(dst) {
			n = len(out)
		}
	case bloscZlib:
		var zr io.ReadCloser
		zr, err = zlib.NewReader(bytes.NewReader(src))
		if err == nil {
			n, err = io.ReadFull(zr, dst)
			zr.Close()
		}
	case bloscZstd:
		var out []byte
		out, err = decodeZstdInto(src, dst[:0])
		n = copy(dst, out)
		if err == nil && len(out) != len(dst) {
			n = len(out)
		}
	default:
		return fmt.Errorf("%w: blosc inner codec %d", ErrUnsupported, h.codec())
	}
	if err != nil {
		return fmt.Errorf("%w: %v", errBloscCorrupt, err)
	}
	if n != len(dst) {
		return fmt.Errorf("%w: split decompressed to %d bytes, want %d", errBloscCorrupt, n, len(dst))
	}
	return nil
}
