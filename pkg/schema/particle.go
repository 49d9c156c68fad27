package schema

import (
	"github.com/adammathes/ooxmlverify/pkg/ns"
	"github.com/adammathes/ooxmlverify/pkg/xmltree"
)

// ParticleKind tags the content-model particle variants.
type ParticleKind int

const (
	PElement ParticleKind = iota
	PSequence
	PChoice
	PAll
	PAny
	PGroup
)

// Unbounded marks an unlimited maxOccurs.
const Unbounded = -1

// Particle describes how the children of an element may be composed.
type Particle struct {
	Kind ParticleKind

	// Element reference (PElement) or group name (PGroup).
	Space, Local string

	// Wildcard namespace constraint (PAny): "##any", "##local", or a URI.
	NS string

	Children []*Particle

	MinOccurs int
	MaxOccurs int // Unbounded for no limit
}

// Elem returns an element particle with occurs 1..1.
func Elem(space, local string) *Particle {
	return &Particle{Kind: PElement, Space: space, Local: local, MinOccurs: 1, MaxOccurs: 1}
}

// ElemN returns an element particle with explicit occurrence bounds.
func ElemN(space, local string, min, max int) *Particle {
	return &Particle{Kind: PElement, Space: space, Local: local, MinOccurs: min, MaxOccurs: max}
}

// Seq returns a sequence particle with occurs 1..1.
func Seq(children ...*Particle) *Particle {
	return &Particle{Kind: PSequence, Children: children, MinOccurs: 1, MaxOccurs: 1}
}

// Choice returns a choice particle with the given occurrence bounds.
func Choice(min, max int, children ...*Particle) *Particle {
	return &Particle{Kind: PChoice, Children: children, MinOccurs: min, MaxOccurs: max}
}

// All returns an all-group particle.
func All(children ...*Particle) *Particle {
	return &Particle{Kind: PAll, Children: children, MinOccurs: 1, MaxOccurs: 1}
}

// Any returns a wildcard particle.
func Any(nsConstraint string, min, max int) *Particle {
	return &Particle{Kind: PAny, NS: nsConstraint, MinOccurs: min, MaxOccurs: max}
}

// Group returns a reference to a named model group, resolved at
// registration.
func Group(name string, min, max int) *Particle {
	return &Particle{Kind: PGroup, Local: name, MinOccurs: min, MaxOccurs: max}
}

// Matches reports whether an element can begin this particle.
func (p *Particle) Matches(n *xmltree.Node) bool {
	switch p.Kind {
	case PElement:
		return n.Is(p.Space, p.Local)
	case PAny:
		return p.matchesAny(n)
	case PSequence, PChoice, PAll:
		for _, c := range p.Children {
			if c.Matches(n) {
				return true
			}
		}
	}
	return false
}

func (p *Particle) matchesAny(n *xmltree.Node) bool {
	switch p.NS {
	case "##any", "":
		return true
	case "##local":
		return n.Space == ""
	case "##other":
		return n.Space != ""
	default:
		return n.Space == p.NS
	}
}

// displayName renders the particle for findings: the prefixed element name,
// an alternative list for choices, or a wildcard marker.
func (p *Particle) displayName() string {
	switch p.Kind {
	case PElement:
		return ns.Prefixed(p.Space, p.Local)
	case PAny:
		return "any element"
	case PChoice, PSequence, PAll:
		names := ""
		for i, c := range p.Children {
			if i > 0 {
				names += ", "
			}
			names += c.displayName()
		}
		return names
	}
	return "?"
}
