package zarr

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/TuSKan/go-zarr/codec"
	"github.com/TuSKan/go-zarr/dtype"
	"github.com/TuSKan/go-zarr/metadata"
	"github.com/TuSKan/go-zarr/store"
)

// Array reads chunks of one Zarr V2 array from a store. It holds no
// mutable state and is safe for concurrent use.
type Array struct {
	store store.Store
	path  string
	meta  *metadata.ArrayMetadata
	grid  []int

	logger      zerolog.Logger
	concurrency int
}

// Open reads the metadata of the array at path and returns it ready for
// chunk access.
func Open(ctx context.Context, st store.Store, path string, opts ...Option) (*Array, error) {
	meta, err := metadata.OpenArray(ctx, st, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open array %q: %w", path, err)
	}
	return NewArray(st, path, meta, opts...)
}

// NewArray binds already resolved metadata to a store. Metadata built by
// hand is validated and unset fields get their .zarray defaults: C order,
// "." separator and a zero fill value. meta itself is not modified.
func NewArray(st store.Store, path string, meta *metadata.ArrayMetadata, opts ...Option) (*Array, error) {
	meta, err := normalize(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to open array %q: %w", path, err)
	}
	if _, err := codec.Lookup(meta.Compressor); err != nil {
		return nil, fmt.Errorf("failed to open array %q: %w", path, err)
	}
	o := newOptions(opts)
	path = store.Join(path)
	return &Array{
		store:       st,
		path:        path,
		meta:        meta,
		grid:        GridShape(meta.Shape, meta.Chunks),
		logger:      o.logger.With().Str("array", path).Logger(),
		concurrency: o.concurrency,
	}, nil
}

func normalize(meta *metadata.ArrayMetadata) (*metadata.ArrayMetadata, error) {
	if meta == nil {
		return nil, fmt.Errorf("%w: nil array metadata", ErrMalformedMetadata)
	}
	if len(meta.Shape) != len(meta.Chunks) {
		return nil, fmt.Errorf("%w: shape has %d dimensions, chunks %d", ErrMalformedMetadata, len(meta.Shape), len(meta.Chunks))
	}
	for i := range meta.Shape {
		if meta.Shape[i] < 0 || meta.Chunks[i] <= 0 {
			return nil, fmt.Errorf("%w: dimension %d has shape %d and chunk size %d", ErrMalformedMetadata, i, meta.Shape[i], meta.Chunks[i])
		}
	}
	size := meta.Dtype.ItemSize()
	if size <= 0 {
		return nil, fmt.Errorf("%w: dtype %s has no element size", ErrMalformedMetadata, meta.Dtype)
	}

	m := *meta
	m.Shape = slices.Clone(meta.Shape)
	m.Chunks = slices.Clone(meta.Chunks)
	switch m.DimensionSeparator {
	case "":
		m.DimensionSeparator = "."
	case ".", "/":
	default:
		return nil, fmt.Errorf("%w: dimension_separator %q", ErrMalformedMetadata, m.DimensionSeparator)
	}
	switch m.Order {
	case 0:
		m.Order = metadata.C
	case metadata.C, metadata.F:
	default:
		return nil, fmt.Errorf("%w: order %q", ErrMalformedMetadata, m.Order)
	}
	if len(m.FillValue.Bytes()) != size {
		m.FillValue = dtype.Zero(m.Dtype)
	}
	return &m, nil
}

func (a *Array) Metadata() *metadata.ArrayMetadata {
	return a.meta
}

// Path is the store path of the array, without leading or trailing slashes.
func (a *Array) Path() string {
	return a.path
}

func (a *Array) Shape() []int {
	return slices.Clone(a.meta.Shape)
}

func (a *Array) ChunkShape() []int {
	return slices.Clone(a.meta.Chunks)
}

// Grid returns the number of chunks along each dimension.
func (a *Array) Grid() []int {
	return slices.Clone(a.grid)
}

// NumChunks is the total number of chunks in the grid.
func (a *Array) NumChunks() int {
	return product(a.grid)
}

// ChunkKey returns the store key of the chunk at coords.
func (a *Array) ChunkKey(coords []int) (string, error) {
	if len(coords) != len(a.grid) {
		return "", fmt.Errorf("%w: %d chunk coordinates for a %d-d array", ErrIndexOutOfRange, len(coords), len(a.grid))
	}
	for i, c := range coords {
		if c < 0 || c >= a.grid[i] {
			return "", fmt.Errorf("%w: chunk coordinate %d is %d, grid has %d", ErrIndexOutOfRange, i, c, a.grid[i])
		}
	}
	return store.Join(a.path, ChunkKey(coords, a.meta.DimensionSeparator)), nil
}

// GetChunk fetches and decodes one chunk. A chunk missing from the store
// reads as a full chunk of the fill value.
func (a *Array) GetChunk(ctx context.Context, coords []int) (*Chunk, error) {
	key, err := a.ChunkKey(coords)
	if err != nil {
		return nil, err
	}
	coords = append([]int(nil), coords...)

	data, err := a.store.Get(ctx, key)
	if store.IsNotFound(err) {
		a.logger.Debug().Str("key", key).Msg("chunk absent, using fill value")
		return a.newChunk(coords, a.meta.FillValue.Repeat(a.meta.ChunkLen())), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read chunk %s: %w", key, err)
	}

	raw, err := codec.Decode(data, a.meta.Compressor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode chunk %s: %w", key, err)
	}
	if want := a.meta.ChunkBytes(); len(raw) != want {
		return nil, fmt.Errorf("%w: %s decoded to %d bytes, expected %d", ErrCorruptChunk, key, len(raw), want)
	}
	a.logger.Debug().Str("key", key).Int("stored", len(data)).Int("bytes", len(raw)).Msg("chunk fetched")
	return a.newChunk(coords, raw), nil
}

func (a *Array) newChunk(coords []int, data []byte) *Chunk {
	return &Chunk{
		data:   data,
		dtype:  a.meta.Dtype,
		order:  a.meta.Order,
		shape:  slices.Clone(a.meta.Chunks),
		coords: coords,
	}
}

// ChunkResult is the outcome of fetching one chunk in a batch.
type ChunkResult struct {
	Coords []int
	Chunk  *Chunk
	Err    error
}

// GetChunks fetches the chunks at every coordinate concurrently. Results
// line up with coordsList; each carries its own error and a failure never
// affects the others.
func (a *Array) GetChunks(ctx context.Context, coordsList [][]int) []ChunkResult {
	results := make([]ChunkResult, len(coordsList))

	var sem chan struct{}
	if a.concurrency > 0 {
		sem = make(chan struct{}, a.concurrency)
	}

	var wg sync.WaitGroup
	for i, coords := range coordsList {
		results[i].Coords = coords
		wg.Add(1)
		go func() {
			defer wg.Done()
			if sem != nil {
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-ctx.Done():
					results[i].Err = ctx.Err()
					return
				}
			}
			results[i].Chunk, results[i].Err = a.GetChunk(ctx, coords)
		}()
	}
	wg.Wait()

	for _, r := range results {
		if r.Err != nil && !errors.Is(r.Err, context.Canceled) {
			a.logger.Warn().Err(r.Err).Ints("coords", r.Coords).Msg("chunk fetch failed")
		}
	}
	return results
}
