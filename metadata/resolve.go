package metadata

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/TuSKan/go-zarr/store"
)

// Source resolves metadata documents by path. Paths are relative to the
// root the source was opened at.
type Source interface {
	Array(ctx context.Context, path string) (*ArrayMetadata, error)
	Attributes(ctx context.Context, path string) (Attributes, error)
}

// StoreSource reads every document from the store individually.
type StoreSource struct {
	Store  store.Store
	Prefix string
}

var _ Source = StoreSource{}

func (s StoreSource) Array(ctx context.Context, path string) (*ArrayMetadata, error) {
	key := store.Join(s.Prefix, path, ArrayKey)
	data, err := s.Store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	m, err := ParseArray(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return m, nil
}

// Attributes reads path/.zattrs. An absent document is not an error.
func (s StoreSource) Attributes(ctx context.Context, path string) (Attributes, error) {
	key := store.Join(s.Prefix, path, AttributesKey)
	data, err := s.Store.Get(ctx, key)
	if store.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	attrs, err := ParseAttributes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return attrs, nil
}

// Resolve reads the array metadata at path from src together with its
// attributes.
func Resolve(ctx context.Context, src Source, path string) (*ArrayMetadata, error) {
	m, err := src.Array(ctx, path)
	if err != nil {
		return nil, err
	}
	attrs, err := src.Attributes(ctx, path)
	if err != nil {
		return nil, err
	}
	m.Attributes = attrs
	return m, nil
}

// OpenArray reads path/.zarray and the optional path/.zattrs.
func OpenArray(ctx context.Context, st store.Store, path string) (*ArrayMetadata, error) {
	return Resolve(ctx, StoreSource{Store: st}, path)
}

// GroupMetadata is the resolved metadata of a group and the named arrays
// below it. Members that failed to resolve are listed in Errors instead of
// Arrays.
type GroupMetadata struct {
	Path         string
	Consolidated bool
	Attributes   Attributes
	Arrays       map[string]*ArrayMetadata
	Errors       map[string]error
}

// Names returns the names of the members that resolved, sorted.
func (g *GroupMetadata) Names() []string {
	names := make([]string, 0, len(g.Arrays))
	for name := range g.Arrays {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpenGroup resolves the named arrays of the group at path. When
// path/.zmetadata exists it answers every lookup, and an empty names list
// selects every array directly below the group. Otherwise each member's
// .zarray is read from the store concurrently. A failing member does not
// fail the group, but a .zmetadata that exists and cannot be parsed does.
func OpenGroup(ctx context.Context, st store.Store, path string, names []string) (*GroupMetadata, error) {
	path = store.Join(path)
	g := &GroupMetadata{
		Path:   path,
		Arrays: make(map[string]*ArrayMetadata, len(names)),
		Errors: make(map[string]error),
	}

	var src Source
	key := store.Join(path, ConsolidatedKey)
	data, err := st.Get(ctx, key)
	switch {
	case err == nil:
		c, err := ParseConsolidated(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", key, err)
		}
		src = c
		g.Consolidated = true
		if len(names) == 0 {
			names = c.ArrayNames()
		}
	case store.IsNotFound(err):
		src = StoreSource{Store: st, Prefix: path}
	default:
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}

	attrs, err := src.Attributes(ctx, "")
	if err != nil {
		return nil, err
	}
	g.Attributes = attrs

	unique := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		unique = append(unique, name)
	}

	type result struct {
		meta *ArrayMetadata
		err  error
	}
	results := make([]result, len(unique))
	var wg sync.WaitGroup
	for i, name := range unique {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := Resolve(ctx, src, name)
			results[i] = result{meta: m, err: err}
		}()
	}
	wg.Wait()

	for i, name := range unique {
		if results[i].err != nil {
			g.Errors[name] = results[i].err
			continue
		}
		g.Arrays[name] = results[i].meta
	}
	return g, nil
}
