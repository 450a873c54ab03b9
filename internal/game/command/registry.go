package command

import (
	"fmt"
	"sort"
)

// Registry maps directive names and aliases to Directive definitions.
type Registry struct {
	directives map[string]*Directive // canonical name → directive
	aliases    map[string]string     // alias → canonical name
}

// NewRegistry creates a Registry populated with the given directives.
//
// Precondition: No two directives may share a canonical name or alias.
// Postcondition: Returns a Registry or an error on name/alias collisions.
func NewRegistry(ds []Directive) (*Registry, error) {
	r := &Registry{
		directives: make(map[string]*Directive, len(ds)),
		aliases:    make(map[string]string),
	}

	for i := range ds {
		d := &ds[i]
		if _, exists := r.directives[d.Name]; exists {
			return nil, fmt.Errorf("duplicate directive name: %q", d.Name)
		}
		if _, exists := r.aliases[d.Name]; exists {
			return nil, fmt.Errorf("directive name %q conflicts with an existing alias", d.Name)
		}
		r.directives[d.Name] = d

		for _, alias := range d.Aliases {
			if _, exists := r.directives[alias]; exists {
				return nil, fmt.Errorf("alias %q conflicts with directive name %q", alias, alias)
			}
			if existing, exists := r.aliases[alias]; exists {
				return nil, fmt.Errorf("duplicate alias %q: used by %q and %q", alias, existing, d.Name)
			}
			r.aliases[alias] = d.Name
		}
	}

	return r, nil
}

// DefaultRegistry creates a Registry with all built-in directives.
//
// Postcondition: Returns a Registry with all built-in directives registered.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(BuiltinDirectives())
	if err != nil {
		panic(fmt.Sprintf("building default registry: %v", err))
	}
	return r
}

// Resolve looks up a directive by name or alias.
//
// Postcondition: Returns (directive, true) if found, or (nil, false).
func (r *Registry) Resolve(name string) (*Directive, bool) {
	if d, ok := r.directives[name]; ok {
		return d, true
	}
	if canonical, ok := r.aliases[name]; ok {
		return r.directives[canonical], true
	}
	return nil, false
}

// Directives returns all registered directives sorted by name.
func (r *Registry) Directives() []*Directive {
	result := make([]*Directive, 0, len(r.directives))
	for _, d := range r.directives {
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}
