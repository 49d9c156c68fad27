package schema

import (
	"fmt"

	"github.com/adammathes/ooxmlverify/pkg/ns"
	"github.com/adammathes/ooxmlverify/pkg/opc"
	"github.com/adammathes/ooxmlverify/pkg/report"
	"github.com/adammathes/ooxmlverify/pkg/xmltree"
)

// Validator drives a pre-order traversal of a part's element tree against
// the constraint registry: attribute presence and types, content-model
// particles, and undeclared elements.
type Validator struct {
	reg *Registry
}

// New creates a schema validator over a registry.
func New(reg *Registry) *Validator {
	return &Validator{reg: reg}
}

// ValidatePart validates one part. A part that fails to parse gets a single
// schema.malformed-xml finding and no traversal.
func (v *Validator) ValidatePart(part *opc.Part, ctx *opc.Context) {
	ctx.SetPart(part)
	root, err := part.XML()
	if err != nil {
		part.ReportParseError(ctx)
		return
	}
	v.validateElement(root, ctx)
}

func (v *Validator) validateElement(n *xmltree.Node, ctx *opc.Context) {
	if ctx.ShouldStop() {
		return
	}
	ctx.Push(n)
	defer ctx.Pop()

	children := validationChildren(n)

	if el := v.reg.Lookup(n.Space, n.Local); el != nil {
		v.validateAttributes(n, el, ctx)
		if el.Content != nil {
			known := v.reportUnknown(el, children, ctx)
			v.checkParticle(el.Content, known, ctx)
		}
	}

	for _, c := range children {
		v.validateElement(c, ctx)
	}
}

// validationChildren returns the element children with mc:AlternateContent
// expanded to its effective branch (Fallback when present, else the first
// Choice), matching how a consumer that understands no extensions reads the
// document.
func validationChildren(n *xmltree.Node) []*xmltree.Node {
	out := make([]*xmltree.Node, 0, len(n.Children))
	for _, c := range n.Children {
		if c.Is(ns.MarkupCompatibility, "AlternateContent") {
			branch := c.Find(ns.MarkupCompatibility, "Fallback")
			if branch == nil {
				branch = c.Find(ns.MarkupCompatibility, "Choice")
			}
			if branch != nil {
				out = append(out, branch.Children...)
			}
			continue
		}
		out = append(out, c)
	}
	return out
}

// reportUnknown emits schema.unexpected-element once per unknown child name
// and returns the children the particle checker should see: declared
// elements plus anything a wildcard in the content model admits.
func (v *Validator) reportUnknown(el *Element, children []*xmltree.Node, ctx *opc.Context) []*xmltree.Node {
	known := make([]*xmltree.Node, 0, len(children))
	var reported map[string]bool
	for _, c := range children {
		if v.reg.Lookup(c.Space, c.Local) != nil || wildcardAllows(el.Content, c) {
			known = append(known, c)
			continue
		}
		q := c.QName()
		if reported[q] {
			continue
		}
		if reported == nil {
			reported = make(map[string]bool)
		}
		reported[q] = true
		ctx.AddSchemaError("schema.unexpected-element",
			fmt.Sprintf("Element '%s' is not declared", c.Name()), c.Name())
	}
	return known
}

func wildcardAllows(p *Particle, n *xmltree.Node) bool {
	if p == nil {
		return false
	}
	if p.Kind == PAny && p.matchesAny(n) {
		return true
	}
	for _, c := range p.Children {
		if wildcardAllows(c, n) {
			return true
		}
	}
	return false
}

func (v *Validator) validateAttributes(n *xmltree.Node, el *Element, ctx *opc.Context) {
	for i := range el.Attributes {
		a := &el.Attributes[i]
		if a.Since != "" && !report.FormatAtLeast(ctx.Format, a.Since) {
			continue
		}
		if _, ok := n.Attr(a.Space, a.Local); !ok && a.Required {
			ctx.AddSchemaError("schema.missing-required-attribute",
				fmt.Sprintf("Required attribute '%s' is missing", attrDisplay(a.Space, a.Local)),
				attrDisplay(a.Space, a.Local))
		}
	}

	for _, attr := range n.Attrs {
		if attr.Space == ns.XML || attr.Space == ns.MarkupCompatibility || attr.Space == ns.XSI {
			continue
		}
		name := attrDisplay(attr.Space, attr.Local)
		decl := el.attribute(attr.Space, attr.Local)
		if decl == nil {
			if !el.Open {
				ctx.AddSchemaError("schema.unexpected-attribute",
					fmt.Sprintf("Attribute '%s' is not declared", name), name)
			}
			continue
		}
		if decl.Since != "" && !report.FormatAtLeast(ctx.Format, decl.Since) {
			ctx.AddSchemaError("schema.unexpected-attribute",
				fmt.Sprintf("Attribute '%s' is not available in %s", name, ctx.Format), name)
			continue
		}
		if decl.Fixed != "" && attr.Value != decl.Fixed {
			ctx.AddSchemaError("schema.invalid-value",
				fmt.Sprintf("Attribute '%s' must have fixed value '%s', got '%s'", name, decl.Fixed, attr.Value), name)
			continue
		}
		if decl.Type != nil {
			if terr := decl.Type.Validate(attr.Value); terr != nil {
				ctx.AddSchemaError(terr.Code,
					fmt.Sprintf("Invalid value for attribute '%s': %s", name, terr.Message), name)
			}
		}
	}
}

func attrDisplay(space, local string) string {
	if p := ns.Prefix(space); p != "" {
		return p + ":" + local
	}
	return local
}

func (v *Validator) checkParticle(p *Particle, children []*xmltree.Node, ctx *opc.Context) {
	switch p.Kind {
	case PSequence:
		v.checkSequence(p, children, ctx)
	case PChoice:
		v.checkChoice(p, children, ctx)
	case PAll:
		v.checkAll(p, children, ctx)
	case PElement, PAny:
		wrapper := &Particle{Kind: PSequence, Children: []*Particle{p}, MinOccurs: 1, MaxOccurs: 1}
		v.checkSequence(wrapper, children, ctx)
	}
}

// checkSequence walks the ordered child list once, consuming for each
// sub-particle at least min and at most max matches.
func (v *Validator) checkSequence(p *Particle, children []*xmltree.Node, ctx *opc.Context) {
	i := 0
	var unsatisfied []string

	for _, sub := range p.Children {
		count := 0
		for i < len(children) && sub.Matches(children[i]) {
			if sub.MaxOccurs != Unbounded && count >= sub.MaxOccurs {
				ctx.AddSchemaError("schema.max-occurs-violation",
					fmt.Sprintf("Element '%s' appears more than %d time(s)", children[i].Name(), sub.MaxOccurs),
					children[i].Name())
				// Consume the excess run so it does not cascade into
				// wrong-element-order findings.
				for i < len(children) && sub.Matches(children[i]) {
					i++
				}
				break
			}
			count++
			i++
		}
		if count < sub.MinOccurs {
			if sub.Kind == PChoice {
				ctx.AddSchemaError("schema.missing-choice",
					fmt.Sprintf("Required choice is missing; expected one of: %s", sub.displayName()), "")
			} else {
				ctx.AddSchemaError("schema.min-occurs-violation",
					fmt.Sprintf("Required element '%s' is missing (minOccurs=%d, found=%d)", sub.displayName(), sub.MinOccurs, count),
					sub.displayName())
			}
			unsatisfied = append(unsatisfied, sub.displayName())
		}
	}

	if i < len(children) {
		expected := "no further elements expected"
		if len(unsatisfied) > 0 {
			expected = "expected: " + joinNames(unsatisfied)
		}
		ctx.AddSchemaError("schema.wrong-element-order",
			fmt.Sprintf("Element '%s' is out of order; %s", children[i].Name(), expected),
			children[i].Name())
	}
}

// checkChoice handles a choice used directly as the content model.
func (v *Validator) checkChoice(p *Particle, children []*xmltree.Node, ctx *opc.Context) {
	count := 0
	i := 0
	for i < len(children) && p.Matches(children[i]) {
		if p.MaxOccurs != Unbounded && count >= p.MaxOccurs {
			ctx.AddSchemaError("schema.max-occurs-violation",
				fmt.Sprintf("Element '%s' exceeds the %d allowed occurrence(s) of the choice", children[i].Name(), p.MaxOccurs),
				children[i].Name())
			for i < len(children) && p.Matches(children[i]) {
				i++
			}
			break
		}
		count++
		i++
	}
	if count < p.MinOccurs {
		ctx.AddSchemaError("schema.missing-choice",
			fmt.Sprintf("Required choice is missing; expected one of: %s", p.displayName()), "")
	}
	if i < len(children) {
		ctx.AddSchemaError("schema.wrong-element-order",
			fmt.Sprintf("Element '%s' is not a valid choice; expected one of: %s", children[i].Name(), p.displayName()),
			children[i].Name())
	}
}

// checkAll requires each sub-particle between min and max times, order
// free.
func (v *Validator) checkAll(p *Particle, children []*xmltree.Node, ctx *opc.Context) {
	counts := make([]int, len(p.Children))
	flagged := make([]bool, len(p.Children))

	for _, c := range children {
		matched := false
		for si, sub := range p.Children {
			if !sub.Matches(c) {
				continue
			}
			matched = true
			counts[si]++
			if sub.MaxOccurs != Unbounded && counts[si] > sub.MaxOccurs && !flagged[si] {
				flagged[si] = true
				ctx.AddSchemaError("schema.max-occurs-violation",
					fmt.Sprintf("Element '%s' appears more than %d time(s)", c.Name(), sub.MaxOccurs),
					c.Name())
			}
			break
		}
		if !matched {
			ctx.AddSchemaError("schema.wrong-element-order",
				fmt.Sprintf("Element '%s' is not allowed here; expected one of: %s", c.Name(), p.displayName()),
				c.Name())
		}
	}

	for si, sub := range p.Children {
		if counts[si] < sub.MinOccurs {
			ctx.AddSchemaError("schema.min-occurs-violation",
				fmt.Sprintf("Required element '%s' is missing (minOccurs=%d, found=%d)", sub.displayName(), sub.MinOccurs, counts[si]),
				sub.displayName())
		}
	}
}

func joinNames(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}
