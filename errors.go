package zarr

import (
	"errors"

	"github.com/TuSKan/go-zarr/codec"
	"github.com/TuSKan/go-zarr/dtype"
	"github.com/TuSKan/go-zarr/metadata"
	"github.com/TuSKan/go-zarr/store"
)

// Errors returned by this package and its subpackages. Check them with
// errors.Is, or errors.As for CodecError.
var (
	// ErrNotFound means a required metadata document is absent. Absent
	// chunks are not an error; they read as the fill value.
	ErrNotFound = store.ErrNotFound
	// ErrMalformedMetadata means a metadata document is invalid.
	ErrMalformedMetadata = metadata.ErrMalformed
	// ErrUnsupportedDtype means a dtype descriptor is outside the supported set.
	ErrUnsupportedDtype = dtype.ErrUnsupported
	// ErrUnsupportedCodec means a compressor or filter is outside the supported set.
	ErrUnsupportedCodec = codec.ErrUnsupported
	// ErrUnrepresentableConversion means values cannot be converted as requested.
	ErrUnrepresentableConversion = dtype.ErrUnrepresentable

	// ErrCorruptChunk means a chunk decompressed to the wrong number of bytes.
	ErrCorruptChunk = errors.New("corrupt chunk")
	// ErrIndexOutOfRange means chunk or element coordinates fall outside the
	// array.
	ErrIndexOutOfRange = errors.New("index out of range")
)

// CodecError reports a payload that could not be decompressed.
type CodecError = codec.Error
