package zarr

import (
	"context"
	"fmt"

	"github.com/TuSKan/go-zarr/metadata"
	"github.com/TuSKan/go-zarr/store"
)

// Reader opens the array stored at the root of a bucket URL, for example
// "file:///data/temp.zarr", "s3://bucket?prefix=temp.zarr/" or
// "gs://bucket?prefix=temp.zarr/", and returns raw element bytes.
type Reader struct {
	bucket *store.Bucket
	array  *Array
}

func NewReader(ctx context.Context, url string, opts ...Option) (*Reader, error) {
	bucket, err := store.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	arr, err := Open(ctx, bucket, "", opts...)
	if err != nil {
		bucket.Close()
		return nil, fmt.Errorf("failed to load metadata: %w", err)
	}
	return &Reader{
		bucket: bucket,
		array:  arr,
	}, nil
}

// ReadChunk reads a single chunk given its grid coordinates. Missing chunks
// come back filled with the fill value.
func (r *Reader) ReadChunk(ctx context.Context, coords []int) ([]byte, error) {
	c, err := r.array.GetChunk(ctx, coords)
	if err != nil {
		return nil, err
	}
	return c.Bytes(), nil
}

// ReadFull reads the entire array into a flat byte slice in the array's
// order.
func (r *Reader) ReadFull(ctx context.Context) ([]byte, error) {
	c, err := r.array.ReadFull(ctx)
	if err != nil {
		return nil, err
	}
	return c.Bytes(), nil
}

// ReadRegion reads an N-dimensional region of the array.
func (r *Reader) ReadRegion(ctx context.Context, start, shape []int) ([]byte, error) {
	c, err := r.array.ReadRegion(ctx, start, shape)
	if err != nil {
		return nil, err
	}
	return c.Bytes(), nil
}

func (r *Reader) Metadata() *metadata.ArrayMetadata {
	return r.array.Metadata()
}

func (r *Reader) Array() *Array {
	return r.array
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.bucket.Close()
}
