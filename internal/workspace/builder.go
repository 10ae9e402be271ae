package workspace

import (
	"strings"

	"github.com/standardbeagle/vfsboot/internal/vferrors"
)

// Builder is a named build method: a key/value bag (COMMAND, INCLUDES,
// and whatever else a builder manifest defines) plus the manifest path
// it was loaded from. Grounded on upp_toolchain.h's forward-declared
// UppBuildMethod, whose shape (`id`, `source_path`, `get`, `splitList`)
// is pinned by its call sites in upp_workspace_build.cpp.
type Builder struct {
	ID         string
	SourcePath string
	Values     map[string]string
}

// Get returns a raw value from the builder's manifest (UppBuildMethod::get).
func (b *Builder) Get(key string) (string, bool) {
	v, ok := b.Values[key]
	return v, ok
}

// SplitList splits a ";"- or ":"-delimited value into trimmed,
// non-empty entries (UppBuildMethod::splitList).
func (b *Builder) SplitList(key string, sep byte) []string {
	raw, ok := b.Values[key]
	if !ok || raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, string(sep)) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Registry holds every known builder and tracks which one is active,
// mirroring the reference's global g_upp_builder_registry.
type Registry struct {
	builders map[string]*Builder
	order    []string
	active   string
}

// NewRegistry returns an empty builder registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]*Builder)}
}

// Add inserts or replaces b. The first builder added becomes active by
// default.
func (r *Registry) Add(b *Builder) {
	if _, exists := r.builders[b.ID]; !exists {
		r.order = append(r.order, b.ID)
	}
	r.builders[b.ID] = b
	if r.active == "" {
		r.active = b.ID
	}
}

// Get looks up a builder by id (UppBuilderRegistry::get).
func (r *Registry) Get(id string) (*Builder, bool) {
	b, ok := r.builders[id]
	return b, ok
}

// Active returns the currently active builder, if any
// (UppBuilderRegistry::active).
func (r *Registry) Active() (*Builder, bool) {
	if r.active == "" {
		return nil, false
	}
	return r.Get(r.active)
}

// SetActive changes the active builder.
func (r *Registry) SetActive(id string) error {
	if _, ok := r.builders[id]; !ok {
		return vferrors.NotFound("upp.builder.use", id)
	}
	r.active = id
	return nil
}

// All returns every builder id in insertion order.
func (r *Registry) All() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
