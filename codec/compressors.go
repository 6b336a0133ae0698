package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

func decodeGzip(src []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("failed to init gzip reader: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress gzip: %w", err)
	}
	return out, nil
}

func decodeZlib(src []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("failed to init zlib reader: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress zlib: %w", err)
	}
	return out, nil
}

// zstdDecoder is shared; DecodeAll is safe for concurrent use.
var zstdDecoder = sync.OnceValues(func() (*zstd.Decoder, error) {
	return zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
})

func decodeZstd(src []byte) ([]byte, error) {
	return decodeZstdInto(src, nil)
}

func decodeZstdInto(src, dst []byte) ([]byte, error) {
	dec, err := zstdDecoder()
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	out, err := dec.DecodeAll(src, dst)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress zstd: %w", err)
	}
	return out, nil
}

// lz4 payloads carry a 4-byte little-endian uncompressed size followed by
// a raw LZ4 block.
const (
	lz4SizePrefix = 4
	lz4MaxRatio   = 255
)

func decodeLZ4(src []byte) ([]byte, error) {
	if len(src) < lz4SizePrefix {
		return nil, errors.New("lz4 payload missing 4-byte size prefix")
	}
	size := int(binary.LittleEndian.Uint32(src))
	if size > lz4MaxRatio*len(src) {
		return nil, fmt.Errorf("lz4 size prefix %d exceeds what %d bytes can hold", size, len(src))
	}
	out := make([]byte, size)
	if size == 0 {
		return out, nil
	}
	n, err := lz4.UncompressBlock(src[lz4SizePrefix:], out)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress lz4: %w", err)
	}
	if n != size {
		return nil, fmt.Errorf("lz4 decompressed %d bytes, header declares %d", n, size)
	}
	return out, nil
}
