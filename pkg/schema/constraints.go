package schema

import (
	"github.com/adammathes/ooxmlverify/pkg/report"
)

// Attribute declares one attribute of an element: its type, whether it is
// required, an optional fixed value, and the first Office version it is
// valid in ("" for all versions).
type Attribute struct {
	Space string
	Local string
	Type  *Type

	Required bool
	Fixed    string
	Since    report.FileFormat
}

// Element declares one element: its attributes, its content model, and
// whether undeclared attributes are tolerated (Open).
type Element struct {
	Space string
	Local string

	Attributes []Attribute
	Content    *Particle // nil: children are not checked
	Open       bool
	Since      report.FileFormat
}

func (e *Element) attribute(space, local string) *Attribute {
	for i := range e.Attributes {
		a := &e.Attributes[i]
		if a.Space == space && a.Local == local {
			return a
		}
	}
	return nil
}

// Registry is the build-once table of element constraints and named model
// groups. It is immutable after construction and safe to share across
// validations.
type Registry struct {
	elements map[string]*Element
	groups   map[string]*Particle
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		elements: make(map[string]*Element),
		groups:   make(map[string]*Particle),
	}
}

// RegisterGroup records a named model group. Groups must be registered
// before elements that reference them.
func (r *Registry) RegisterGroup(name string, p *Particle) {
	r.groups[name] = p
}

// Register adds an element constraint, resolving group references in its
// content model.
func (r *Registry) Register(e *Element) {
	if e.Content != nil {
		e.Content = r.resolve(e.Content)
	}
	r.elements[key(e.Space, e.Local)] = e
}

func (r *Registry) resolve(p *Particle) *Particle {
	if p.Kind == PGroup {
		if g, ok := r.groups[p.Local]; ok {
			resolved := *g
			resolved.MinOccurs = p.MinOccurs
			resolved.MaxOccurs = p.MaxOccurs
			return r.resolve(&resolved)
		}
		return p
	}
	for i, c := range p.Children {
		p.Children[i] = r.resolve(c)
	}
	return p
}

// Lookup returns the constraint for a qualified element name, or nil.
func (r *Registry) Lookup(space, local string) *Element {
	return r.elements[key(space, local)]
}

func key(space, local string) string {
	return space + "|" + local
}
