package zarr

import "github.com/rs/zerolog"

// Option configures arrays, groups and readers.
type Option func(*options)

type options struct {
	logger      zerolog.Logger
	concurrency int
}

func newOptions(opts []Option) options {
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger used for debug events. The default discards
// everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithConcurrency caps the number of chunk fetches in flight for a single
// GetChunks, ReadRegion or ReadFull call. Zero or less means no limit.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}
