// Package codec decompresses chunk payloads according to the compressor
// declared in array metadata.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrUnsupported is returned for compressor ids or options the package
// cannot decode.
var ErrUnsupported = errors.New("unsupported codec")

// ID names a compression algorithm.
type ID string

const (
	Blosc ID = "blosc"
	Gzip  ID = "gzip"
	Zlib  ID = "zlib"
	Zstd  ID = "zstd"
	LZ4   ID = "lz4"
)

// Error reports a failure to decode a payload with a given codec.
type Error struct {
	ID  ID
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("codec %s: %v", e.ID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Config is the "compressor" object of .zarray metadata: an id plus
// codec specific options that are kept as-is.
type Config struct {
	ID      ID
	Options map[string]any
}

var (
	_ json.Marshaler   = (*Config)(nil)
	_ json.Unmarshaler = (*Config)(nil)
)

func (c *Config) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(c.Options)+1)
	for k, v := range c.Options {
		m[k] = v
	}
	m["id"] = string(c.ID)
	return json.Marshal(m)
}

func (c *Config) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("invalid compressor: %w", err)
	}
	id, ok := m["id"].(string)
	if !ok || id == "" {
		return errors.New("invalid compressor: missing string \"id\"")
	}
	delete(m, "id")
	if len(m) == 0 {
		m = nil
	}
	*c = Config{ID: ID(id), Options: m}
	return nil
}

func (c *Config) String() string {
	if c == nil {
		return "none"
	}
	if len(c.Options) == 0 {
		return string(c.ID)
	}
	keys := make([]string, 0, len(c.Options))
	for k := range c.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s := string(c.ID) + "("
	for i, k := range keys {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s=%v", k, c.Options[k])
	}
	return s + ")"
}

// Decoder decompresses a single payload. Decoders are stateless and safe
// for concurrent use.
type Decoder interface {
	Decode(src []byte) ([]byte, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(src []byte) ([]byte, error)

func (f DecoderFunc) Decode(src []byte) ([]byte, error) {
	return f(src)
}

type factory func(opts map[string]any) (Decoder, error)

var registry = map[ID]factory{
	Blosc: newBlosc,
	Gzip:  func(map[string]any) (Decoder, error) { return DecoderFunc(decodeGzip), nil },
	Zlib:  func(map[string]any) (Decoder, error) { return DecoderFunc(decodeZlib), nil },
	Zstd:  func(map[string]any) (Decoder, error) { return DecoderFunc(decodeZstd), nil },
	LZ4:   func(map[string]any) (Decoder, error) { return DecoderFunc(decodeLZ4), nil },
}

// Lookup returns the decoder for cfg. A nil cfg means chunks are stored
// uncompressed and yields the identity decoder.
func Lookup(cfg *Config) (Decoder, error) {
	if cfg == nil {
		return DecoderFunc(func(src []byte) ([]byte, error) { return src, nil }), nil
	}
	f, ok := registry[cfg.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, cfg.ID)
	}
	d, err := f(cfg.Options)
	if err != nil {
		return nil, &Error{ID: cfg.ID, Err: err}
	}
	return d, nil
}

// Decode decompresses src with the codec described by cfg.
func Decode(src []byte, cfg *Config) ([]byte, error) {
	d, err := Lookup(cfg)
	if err != nil {
		return nil, err
	}
	out, err := d.Decode(src)
	if err != nil {
		var cerr *Error
		if errors.As(err, &cerr) {
			return nil, err
		}
		return nil, &Error{ID: cfg.ID, Err: err}
	}
	return out, nil
}
