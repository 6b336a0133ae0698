package metadata

import (
	"encoding/json"
	"fmt"
)

// Attributes is the opaque user metadata stored in .zattrs.
type Attributes map[string]any

// ParseAttributes decodes a .zattrs document. Any JSON object is accepted
// and kept as-is.
func ParseAttributes(data []byte) (Attributes, error) {
	var attrs Attributes
	if err := json.Unmarshal(data, &attrs); err != nil {
		return nil, fmt.Errorf("%w: attributes must be a JSON object: %v", ErrMalformed, err)
	}
	if attrs == nil {
		attrs = Attributes{}
	}
	return attrs, nil
}

// Group is the parsed content of a .zgroup document.
type Group struct {
	ZarrFormat int `json:"zarr_format"`
}

// ParseGroup decodes a .zgroup document.
func ParseGroup(data []byte) (*Group, error) {
	g := &Group{}
	if err := json.Unmarshal(data, g); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch g.ZarrFormat {
	case 0:
		g.ZarrFormat = 2
	case 2:
	default:
		return nil, fmt.Errorf("%w: unsupported zarr_format %d, expected 2", ErrMalformed, g.ZarrFormat)
	}
	return g, nil
}
