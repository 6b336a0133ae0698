package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/TuSKan/go-zarr/store"
)

// Consolidated is a parsed .zmetadata document: the .zarray, .zattrs and
// .zgroup documents of a hierarchy keyed by their path relative to the
// document. It answers lookups without touching the store.
type Consolidated struct {
	Format  int
	entries map[string]json.RawMessage
}

var _ Source = (*Consolidated)(nil)

// ParseConsolidated decodes a .zmetadata document. Entries are parsed
// lazily so that one bad entry only fails lookups of that entry.
func ParseConsolidated(data []byte) (*Consolidated, error) {
	var doc struct {
		Format   *int                       `json:"zarr_consolidated_format"`
		Metadata map[string]json.RawMessage `json:"metadata"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	c := &Consolidated{Format: 1}
	if doc.Format != nil && *doc.Format != 1 {
		return nil, fmt.Errorf("%w: unsupported zarr_consolidated_format %d", ErrMalformed, *doc.Format)
	}
	if doc.Metadata == nil {
		return nil, fmt.Errorf("%w: missing \"metadata\"", ErrMalformed)
	}

	c.entries = make(map[string]json.RawMessage, len(doc.Metadata))
	for k, v := range doc.Metadata {
		c.entries[store.Join(k)] = v
	}
	return c, nil
}

// Keys returns the document keys held, sorted.
func (c *Consolidated) Keys() []string {
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ArrayNames lists the arrays that are direct children of the document's
// root, sorted.
func (c *Consolidated) ArrayNames() []string {
	var names []string
	for k := range c.entries {
		name, ok := strings.CutSuffix(k, "/"+ArrayKey)
		if ok && name != "" && !strings.Contains(name, "/") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Lookup returns the raw document stored under path/name.
func (c *Consolidated) Lookup(path, name string) (json.RawMessage, bool) {
	raw, ok := c.entries[store.Join(path, name)]
	return raw, ok
}

// Array resolves the .zarray entry for path. A missing entry is reported as
// store.ErrNotFound.
func (c *Consolidated) Array(_ context.Context, path string) (*ArrayMetadata, error) {
	raw, ok := c.Lookup(path, ArrayKey)
	if !ok {
		return nil, fmt.Errorf("%w: %s in consolidated metadata", store.ErrNotFound, store.Join(path, ArrayKey))
	}
	m, err := ParseArray(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", store.Join(path, ArrayKey), err)
	}
	return m, nil
}

// Attributes resolves the .zattrs entry for path. A missing entry yields
// nil attributes.
func (c *Consolidated) Attributes(_ context.Context, path string) (Attributes, error) {
	raw, ok := c.Lookup(path, AttributesKey)
	if !ok {
		return nil, nil
	}
	attrs, err := ParseAttributes(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", store.Join(path, AttributesKey), err)
	}
	return attrs, nil
}

// Group resolves the .zgroup entry for path.
func (c *Consolidated) Group(path string) (*Group, error) {
	raw, ok := c.Lookup(path, GroupKey)
	if !ok {
		return nil, fmt.Errorf("%w: %s in consolidated metadata", store.ErrNotFound, store.Join(path, GroupKey))
	}
	return ParseGroup(raw)
}
