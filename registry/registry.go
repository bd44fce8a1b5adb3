// Package registry holds the component definitions a design can reference.
//
// A Registry is populated during startup by built-in components and extensions
// and is read-only afterwards. Lookups and registration are mutex-guarded, but
// re-registering while renders are running still changes which definition a
// render observes; callers needing that must coordinate it themselves.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jsreport/jsreport-designer-sub001/binding"
	"github.com/jsreport/jsreport-designer-sub001/compiler"
)

// Definition is the capability set every component type implements.
type Definition struct {
	Name string
	// DefaultProps returns a fresh props object for each call.
	DefaultProps func() map[string]any
	// Template returns the component's template source.
	Template func() string
	// Helpers is auxiliary helper source handed to the downstream pipeline,
	// keyed by helper name.
	Helpers map[string]string
	// Funcs are Go helpers available to this component's template only.
	Funcs     compiler.FuncMap
	PropsMeta map[string]binding.PropMeta
}

// HelperSource concatenates the helper sources sorted by helper name, skipping
// empty ones. It returns "" when the definition contributes nothing.
func (d Definition) HelperSource() string {
	names := make([]string, 0, len(d.Helpers))
	for name, src := range d.Helpers {
		if strings.TrimSpace(src) != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, strings.TrimSpace(d.Helpers[name]))
	}
	return strings.Join(parts, "\n")
}

// ErrInvalidDefinition is returned for definitions without a name or template.
var ErrInvalidDefinition = errors.New("invalid component definition")

// Registry maps component names to definitions.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{defs: map[string]Definition{}}
}

// Register adds def, silently replacing any definition with the same name.
func (r *Registry) Register(def Definition) error {
	if strings.TrimSpace(def.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDefinition)
	}
	if def.Template == nil {
		return fmt.Errorf("%w: %s has no template", ErrInvalidDefinition, def.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[def.Name] = def
	return nil
}

// MustRegister is Register for static definitions; it panics on error.
func (r *Registry) MustRegister(defs ...Definition) {
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			panic(err)
		}
	}
}

// Get returns the definition registered under name.
func (r *Registry) Get(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	return def, ok
}

// DefaultProps merges the component's default props with overrides. The merge
// is shallow: an override value fully replaces the default, nested objects included.
func (r *Registry) DefaultProps(name string, overrides map[string]any) (map[string]any, bool) {
	def, ok := r.Get(name)
	if !ok {
		return nil, false
	}
	var defaults map[string]any
	if def.DefaultProps != nil {
		defaults = def.DefaultProps()
	}
	out := make(map[string]any, len(defaults)+len(overrides))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out, true
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len reports the number of registered components.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}
