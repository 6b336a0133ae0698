package zarr

import (
	"context"
	"fmt"

	"github.com/TuSKan/go-zarr/metadata"
	"github.com/TuSKan/go-zarr/store"
)

// Group is a set of named arrays resolved under one store path. It holds no
// chunk state; every Array it returns reads from the same store.
type Group struct {
	meta   *metadata.GroupMetadata
	arrays map[string]*Array
}

// OpenGroup resolves the named member arrays of the group at path, from
// consolidated metadata when the group has it. With consolidated metadata
// and no names, every array directly below the group is opened. A member
// that cannot be resolved is reported by Err and does not fail the group.
func OpenGroup(ctx context.Context, st store.Store, path string, names []string, opts ...Option) (*Group, error) {
	o := newOptions(opts)
	meta, err := metadata.OpenGroup(ctx, st, path, names)
	if err != nil {
		return nil, fmt.Errorf("failed to open group %q: %w", path, err)
	}
	logger := o.logger.With().Str("group", meta.Path).Logger()
	logger.Debug().Bool("consolidated", meta.Consolidated).Int("arrays", len(meta.Arrays)).Msg("group metadata resolved")

	g := &Group{
		meta:   meta,
		arrays: make(map[string]*Array, len(meta.Arrays)),
	}
	for name, am := range meta.Arrays {
		arr, err := NewArray(st, store.Join(meta.Path, name), am, opts...)
		if err != nil {
			meta.Errors[name] = err
			delete(meta.Arrays, name)
			continue
		}
		g.arrays[name] = arr
	}
	for name, err := range meta.Errors {
		logger.Warn().Err(err).Str("member", name).Msg("array metadata unavailable")
	}
	return g, nil
}

// GetArray returns the named member, or false if it was not requested or
// failed to resolve.
func (g *Group) GetArray(name string) (*Array, bool) {
	arr, ok := g.arrays[name]
	return arr, ok
}

// Err returns why the named member failed to resolve, or nil.
func (g *Group) Err(name string) error {
	return g.meta.Errors[name]
}

// Names lists the members that resolved, sorted.
func (g *Group) Names() []string {
	return g.meta.Names()
}

// Consolidated reports whether the members came from .zmetadata.
func (g *Group) Consolidated() bool {
	return g.meta.Consolidated
}

func (g *Group) Attributes() metadata.Attributes {
	return g.meta.Attributes
}

func (g *Group) Metadata() *metadata.GroupMetadata {
	return g.meta
}
