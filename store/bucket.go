package store

import (
	"context"
	"fmt"

	"gocloud.dev/blob"
	"gocloud.dev/blob/memblob"
	"gocloud.dev/gcerrors"

	// Drivers for the URL schemes accepted by OpenBucket.
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"
)

// Bucket adapts a gocloud.dev blob.Bucket to the Store interface.
type Bucket struct {
	bucket *blob.Bucket
}

var _ Store = (*Bucket)(nil)

// NewBucket wraps an already opened bucket. The Bucket takes ownership and
// closes it on Close.
func NewBucket(b *blob.Bucket) *Bucket {
	return &Bucket{bucket: b}
}

// OpenBucket opens a bucket from a gocloud URL such as "file:///data/x.zarr",
// "s3://bucket?region=us-east-1&prefix=x.zarr/" or "mem://".
func OpenBucket(ctx context.Context, url string) (*Bucket, error) {
	b, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket %q: %w", url, err)
	}
	return &Bucket{bucket: b}, nil
}

// NewMemory returns an empty in-memory bucket.
func NewMemory() *Bucket {
	return &Bucket{bucket: memblob.OpenBucket(nil)}
}

// Prefixed returns a view of the bucket with every key rooted at prefix.
func (b *Bucket) Prefixed(prefix string) *Bucket {
	p := Join(prefix)
	if p != "" {
		p += "/"
	}
	return &Bucket{bucket: blob.PrefixedBucket(b.bucket, p)}
}

// Get reads the whole object stored under key.
func (b *Bucket) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := b.bucket.ReadAll(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// Put writes data under key. The reader never calls it; it exists so
// fixtures and caching layers can populate a bucket.
func (b *Bucket) Put(ctx context.Context, key string, data []byte) error {
	if err := b.bucket.WriteAll(ctx, key, data, nil); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying bucket.
func (b *Bucket) Close() error {
	return b.bucket.Close()
}
