package zarr_test

import (
	"context"
	"encoding/binary"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/TuSKan/go-zarr"
)

// writeFloat32Zarr writes a .zarray document and little-endian float32
// chunks into dir.
func writeFloat32Zarr(t *testing.T, dir, zarray string, chunks map[string][]float32, compress func([]byte) []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, ".zarray"), []byte(zarray), 0644); err != nil {
		t.Fatalf("failed to write mock json: %v", err)
	}
	for name, data := range chunks {
		buf := make([]byte, 0, 4*len(data))
		for _, v := range data {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
		}
		if compress != nil {
			buf = compress(buf)
		}
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create dir for chunk %s: %v", name, err)
		}
		if err := os.WriteFile(path, buf, 0644); err != nil {
			t.Fatalf("failed to write chunk %s: %v", name, err)
		}
	}
}

func decodeFloat32s(t *testing.T, data []byte) []float32 {
	t.Helper()
	if len(data)%4 != 0 {
		t.Fatalf("byte length %d is not a multiple of 4", len(data))
	}
	got := make([]float32, len(data)/4)
	for i := range got {
		got[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return got
}

func TestReader_ReadFull(t *testing.T) {
	tempDir := t.TempDir()

	writeFloat32Zarr(t, tempDir, `{
		"zarr_format": 2,
		"shape": [4, 4],
		"chunks": [2, 2],
		"dtype": "<f4",
		"compressor": null,
		"fill_value": 0.0,
		"order": "C"
	}`, map[string][]float32{
		"0.0": {1.0, 2.0, 3.0, 4.0},
		"1.1": {5.0, 6.0, 7.0, 8.0},
	}, nil)

	reader, err := zarr.NewReader(context.Background(), "file:///"+filepath.ToSlash(tempDir))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	dataBytes, err := reader.ReadFull(context.Background())
	if err != nil {
		t.Fatalf("ReadFull failed: %v", err)
	}

	// Need exactly 16 floats * 4 bytes = 64 bytes
	if len(dataBytes) != 64 {
		t.Fatalf("expected exactly 64 bytes, got %d", len(dataBytes))
	}
	got := decodeFloat32s(t, dataBytes)

	// Chunk 0.0 is top-left: covering rows 0-1, cols 0-1
	// Chunk 0.1 is top-right (missing): rows 0-1, cols 2-3
	// Chunk 1.0 is bottom-left (missing): rows 2-3, cols 0-1
	// Chunk 1.1 is bottom-right: covering rows 2-3, cols 2-3
	expected := []float32{
		1.0, 2.0, 0.0, 0.0,
		3.0, 4.0, 0.0, 0.0,
		0.0, 0.0, 5.0, 6.0,
		0.0, 0.0, 7.0, 8.0,
	}

	if !reflect.DeepEqual(got, expected) {
		t.Errorf("ReadFull stitched array does not match expected layout.\nExpected: %v\nGot:      %v", expected, got)
	}
}

func TestReader_ReadRegion(t *testing.T) {
	tempDir := t.TempDir()

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("failed to create zstd writer: %v", err)
	}
	defer enc.Close()

	// 4x4 array holding 0..15 in row-major order, nested chunk keys
	chunks := map[string][]float32{}
	for ci := 0; ci < 2; ci++ {
		for cj := 0; cj < 2; cj++ {
			var vals []float32
			for r := 0; r < 2; r++ {
				for c := 0; c < 2; c++ {
					vals = append(vals, float32((ci*2+r)*4+cj*2+c))
				}
			}
			chunks[strconv.Itoa(ci)+"/"+strconv.Itoa(cj)] = vals
		}
	}
	writeFloat32Zarr(t, tempDir, `{
		"zarr_format": 2,
		"shape": [4, 4],
		"chunks": [2, 2],
		"dtype": "<f4",
		"compressor": {"id": "zstd", "level": 3},
		"fill_value": null,
		"order": "C",
		"filters": null,
		"dimension_separator": "/"
	}`, chunks, func(b []byte) []byte { return enc.EncodeAll(b, nil) })

	ctx := context.Background()
	reader, err := zarr.NewReader(ctx, "file:///"+filepath.ToSlash(tempDir))
	if err != nil {
		t.Fatalf("Failed to initialize Reader: %v", err)
	}
	defer reader.Close()

	data, err := reader.ReadRegion(ctx, []int{0, 0}, []int{4, 4})
	if err != nil {
		t.Fatalf("ReadRegion full failed: %v", err)
	}
	for i, val := range decodeFloat32s(t, data) {
		if val != float32(i) {
			t.Fatalf("Mismatch at index %d: expected %d, got %v", i, i, val)
		}
	}

	// Subregion [1:3, 1:3] of
	// Row 0:  0  1  2  3
	// Row 1:  4  5  6  7
	// Row 2:  8  9 10 11
	// Row 3: 12 13 14 15
	data, err = reader.ReadRegion(ctx, []int{1, 1}, []int{2, 2})
	if err != nil {
		t.Fatalf("ReadRegion sub failed: %v", err)
	}
	expected := []float32{5.0, 6.0, 9.0, 10.0}
	if got := decodeFloat32s(t, data); !reflect.DeepEqual(got, expected) {
		t.Fatalf("Subregion mismatch: expected %v, got %v", expected, got)
	}

	chunk, err := reader.ReadChunk(ctx, []int{1, 0})
	if err != nil {
		t.Fatalf("ReadChunk failed: %v", err)
	}
	if got := decodeFloat32s(t, chunk); !reflect.DeepEqual(got, []float32{8, 9, 12, 13}) {
		t.Fatalf("Chunk 1/0 mismatch: got %v", got)
	}

	if _, err := reader.ReadRegion(ctx, []int{3, 3}, []int{2, 2}); err == nil {
		t.Fatalf("expected out of bounds region to fail")
	}
	if reader.Array().NumChunks() != 4 {
		t.Fatalf("expected 4 chunks, got %d", reader.Array().NumChunks())
	}
}

func TestReader_MissingMetadata(t *testing.T) {
	_, err := zarr.NewReader(context.Background(), "file:///"+filepath.ToSlash(t.TempDir()))
	if err == nil {
		t.Fatalf("expected an error for a directory without .zarray")
	}
}

func TestRealWorldDatasets(t *testing.T) {
	if os.Getenv("ZARR_REMOTE_TESTS") == "" {
		t.Skip("set ZARR_REMOTE_TESTS=1 to download public datasets")
	}

	tests := []struct {
		Name         string
		BaseURL      string
		Chunks       []string
		ExpectedRank int
	}{
		{
			Name:         "OME-NGFF Cell Image",
			BaseURL:      "https://uk1s3.embassy.ebi.ac.uk/idr/zarr/v0.4/idr0062A/6001240.zarr/0",
			Chunks:       []string{"0/0/0/0/0"},
			ExpectedRank: 5,
		},
		{
			Name:         "ERA5 Climate Data",
			BaseURL:      "https://storage.googleapis.com/gcp-public-data-arco-era5/ar/1959-2022-1h-240x121_eqc.zarr/temperature",
			Chunks:       []string{"0.0.0"},
			ExpectedRank: 3,
		},
	}

	for _, tc := range tests {
		t.Run(tc.Name, func(t *testing.T) {
			tmpDir := t.TempDir()
			downloadZarrSubset(t, tc.BaseURL, tmpDir, tc.Chunks)

			ctx := context.Background()
			reader, err := zarr.NewReader(ctx, "file:///"+filepath.ToSlash(tmpDir))
			if err != nil {
				t.Fatalf("Failed to initialize reader: %v", err)
			}
			defer reader.Close()

			meta := reader.Metadata()
			if meta.NumDims() != tc.ExpectedRank {
				t.Errorf("Expected rank %d, got %d", tc.ExpectedRank, meta.NumDims())
			}

			for _, chunkStr := range tc.Chunks {
				coords, err := zarr.ParseChunkKey(chunkStr, meta.DimensionSeparator, meta.NumDims())
				if err != nil {
					t.Fatalf("Failed to parse chunk key %s: %v", chunkStr, err)
				}

				data, err := reader.ReadChunk(ctx, coords)
				if err != nil {
					t.Fatalf("Failed to read chunk %v: %v", coords, err)
				}

				if len(data) != meta.ChunkBytes() {
					t.Errorf("Expected chunk size %d bytes, got %d bytes", meta.ChunkBytes(), len(data))
				}
			}
		})
	}
}

// downloadZarrSubset downloads the .zarray metadata file and a subset of chunks
// from a remote Zarr over HTTP. This is used for integration testing.
func downloadZarrSubset(t *testing.T, baseURL string, destDir string, chunksToFetch []string) {
	t.Helper()

	downloadFile(t, baseURL+"/.zarray", filepath.Join(destDir, ".zarray"))
	for _, chunk := range chunksToFetch {
		downloadFile(t, baseURL+"/"+chunk, filepath.Join(destDir, filepath.FromSlash(chunk)))
	}
}

func downloadFile(t *testing.T, url string, destPath string) {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Skipf("Network unavailable: failed to GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		t.Skipf("Dataset moved or chunk not found: 404 for %s", url)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Unexpected status code %d for %s", resp.StatusCode, url)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		t.Fatalf("Failed to create directories for %s: %v", destPath, err)
	}

	out, err := os.Create(destPath)
	if err != nil {
		t.Fatalf("Failed to create file %s: %v", destPath, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		t.Fatalf("Failed to write to file %s: %v", destPath, err)
	}
}

