package opc

import (
	"fmt"
	"strings"

	"github.com/adammathes/ooxmlverify/pkg/ns"
	"github.com/adammathes/ooxmlverify/pkg/report"
	"github.com/adammathes/ooxmlverify/pkg/xmltree"
)

// Context is the traversal cursor handed through validation: the current
// part, the element path, the bounded finding accumulator, the format
// version, and a back-pointer to the owning package for cross-part
// constraints.
type Context struct {
	Package *Package
	Format  report.FileFormat

	// MaxFindings caps the accumulator; 0 means unlimited. Once the cap is
	// reached further findings are dropped and one info finding records the
	// truncation.
	MaxFindings int

	part    *Part
	partURI string

	stack []pathEntry

	findings  []report.Finding
	truncated bool
}

type pathEntry struct {
	node *xmltree.Node
	seg  string
}

// NewContext builds a context for one validation run.
func NewContext(pkg *Package, format report.FileFormat, maxFindings int) *Context {
	return &Context{Package: pkg, Format: format, MaxFindings: maxFindings}
}

// SetPart points the cursor at a part and resets the element stack.
func (c *Context) SetPart(p *Part) {
	c.part = p
	c.partURI = p.URI()
	c.stack = c.stack[:0]
}

// SetPartURI points the cursor at a part path that has no Part record
// (e.g. an auxiliary file).
func (c *Context) SetPartURI(uri string) {
	c.part = nil
	c.partURI = uri
	c.stack = c.stack[:0]
}

// Part returns the current part, or nil.
func (c *Context) Part() *Part { return c.part }

// PartURI returns the current part path.
func (c *Context) PartURI() string { return c.partURI }

// Push enters an element. The path segment is the document prefix (falling
// back to the conventional prefix for the namespace) plus the 1-based index
// among same-named siblings.
func (c *Context) Push(n *xmltree.Node) {
	prefix := n.Prefix
	if prefix == "" {
		prefix = ns.Prefix(n.Space)
	}
	name := n.Local
	if prefix != "" {
		name = prefix + ":" + n.Local
	}
	idx := n.Index
	if idx == 0 {
		idx = 1
	}
	c.stack = append(c.stack, pathEntry{node: n, seg: fmt.Sprintf("%s[%d]", name, idx)})
}

// Pop leaves the current element.
func (c *Context) Pop() {
	if len(c.stack) > 0 {
		c.stack = c.stack[:len(c.stack)-1]
	}
}

// Path renders the current element path as /p:name[i]/....
func (c *Context) Path() string {
	if len(c.stack) == 0 {
		return ""
	}
	var b strings.Builder
	for _, e := range c.stack {
		b.WriteByte('/')
		b.WriteString(e.seg)
	}
	return b.String()
}

// Current returns the element at the top of the stack, or nil.
func (c *Context) Current() *xmltree.Node {
	if len(c.stack) == 0 {
		return nil
	}
	return c.stack[len(c.stack)-1].node
}

// Ancestors returns the element stack outermost-first, including the
// current element.
func (c *Context) Ancestors() []*xmltree.Node {
	out := make([]*xmltree.Node, len(c.stack))
	for i, e := range c.stack {
		out[i] = e.node
	}
	return out
}

// ShouldStop reports whether the cap has been reached and traversal should
// halt at the next element boundary.
func (c *Context) ShouldStop() bool { return c.truncated }

// Findings returns the accumulated findings in emission order.
func (c *Context) Findings() []report.Finding { return c.findings }

// Add appends a finding, filling the part URI from the cursor when unset
// and enforcing the cap.
func (c *Context) Add(f report.Finding) {
	if c.truncated {
		return
	}
	if f.Part == "" {
		f.Part = c.partURI
	}
	if c.MaxFindings > 0 && len(c.findings) >= c.MaxFindings {
		c.truncated = true
		c.findings = append(c.findings, report.Finding{
			Category:    report.CategoryPackage,
			Severity:    report.Info,
			Description: fmt.Sprintf("Finding limit of %d reached; further findings suppressed", c.MaxFindings),
			Part:        c.partURI,
			ID:          "package.findings-truncated",
		})
		return
	}
	c.findings = append(c.findings, f)
}

// AddSchemaError records an error finding in the schema category at the
// current location.
func (c *Context) AddSchemaError(id, description, node string) {
	c.Add(report.Finding{
		Category:    report.CategorySchema,
		Severity:    report.Error,
		Description: description,
		Path:        c.Path(),
		Node:        node,
		ID:          id,
	})
}

// AddSemanticError records an error finding in the semantic category at the
// current location.
func (c *Context) AddSemanticError(id, description, node string) {
	c.Add(report.Finding{
		Category:    report.CategorySemantic,
		Severity:    report.Error,
		Description: description,
		Path:        c.Path(),
		Node:        node,
		ID:          id,
	})
}
