package registry

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/zahlman/entrypoint"
)

// Registry holds the named entrypoints of a single application instance.
//
// Its lifecycle is deliberately narrow: it is populated during an explicit
// registration phase at program startup, and read-only afterwards. The core
// binding engine never consults a registry; membership only matters to the
// discovery and metadata tooling.
type Registry struct {
	entries map[string]Entry
}

// Entry pairs a constructed entrypoint with the locator string recorded in
// project metadata, e.g. "github.com/acme/tool/cmd.ListUsers".
type Entry struct {
	Entrypoint *entrypoint.Entrypoint
	Target     string
}

// New creates and initializes an empty Registry instance.
func New() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register adds an entrypoint under its own name. Registering two
// entrypoints with the same name is a programming error and panics.
func (r *Registry) Register(target string, ep *entrypoint.Entrypoint) {
	name := ep.Name()
	if _, exists := r.entries[name]; exists {
		panic(fmt.Sprintf("entrypoint with name '%s' already registered", name))
	}
	slog.Debug("Registering entrypoint.", "name", name, "target", target)
	r.entries[name] = Entry{Entrypoint: ep, Target: target}
}

// Lookup returns the entrypoint registered under name.
func (r *Registry) Lookup(name string) (*entrypoint.Entrypoint, bool) {
	entry, ok := r.entries[name]
	return entry.Entrypoint, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns the name-to-target mapping for metadata generation.
func (r *Registry) Snapshot() map[string]string {
	scripts := make(map[string]string, len(r.entries))
	for name, entry := range r.entries {
		scripts[name] = entry.Target
	}
	return scripts
}
