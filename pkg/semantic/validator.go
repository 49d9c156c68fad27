package semantic

import (
	"fmt"
	"log"
	"strings"

	"github.com/adammathes/ooxmlverify/pkg/ns"
	"github.com/adammathes/ooxmlverify/pkg/opc"
	"github.com/adammathes/ooxmlverify/pkg/report"
	"github.com/adammathes/ooxmlverify/pkg/xmltree"
)

// Validator drives the semantic traversal: built-in relationship-id and
// markup-compatibility checks on every element, plus the catalog
// constraints registered for the element's tag.
type Validator struct {
	catalog *Catalog
}

// New creates a semantic validator over a catalog. The catalog is read-only
// after this point and may be shared across validations.
func New(catalog *Catalog) *Validator {
	return &Validator{catalog: catalog}
}

// ValidatePart runs the semantic pass over one part. Unparseable parts are
// reported once (by whichever pass touches them first) and skipped.
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

	v.checkRelationshipAttrs(n, ctx)
	v.checkIgnorable(n, ctx)

	for _, con := range v.catalog.ForElement(n.Space, n.Local) {
		v.apply(con, n, ctx)
	}

	for _, c := range n.Children {
		v.validateElement(c, ctx)
	}
}

// apply guards each constraint so an implementation fault is logged and
// skipped instead of aborting the run.
func (v *Validator) apply(con Constraint, n *xmltree.Node, ctx *opc.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("semantic: constraint %q on %s panicked: %v (skipped)", con.RuleID, n.Name(), r)
		}
	}()
	con.Evaluate(n, ctx)
}

// checkRelationshipAttrs verifies that every attribute in the officeDocument
// relationships namespace names a relationship that exists in the owning
// part's collection.
func (v *Validator) checkRelationshipAttrs(n *xmltree.Node, ctx *opc.Context) {
	part := ctx.Part()
	if part == nil {
		return
	}
	for _, a := range n.Attrs {
		if a.Space != ns.DocRelationships || a.Value == "" {
			continue
		}
		if _, ok := part.Relationships().ByID(a.Value); !ok {
			ctx.AddSemanticError("semantic.missing-relationship",
				fmt.Sprintf("Relationship '%s' referenced by 'r:%s' does not exist", a.Value, a.Local),
				"r:"+a.Local)
		}
	}
}

// checkIgnorable validates mc:Ignorable prefix lists against the namespace
// declarations in scope.
func (v *Validator) checkIgnorable(n *xmltree.Node, ctx *opc.Context) {
	raw, ok := n.Attr(ns.MarkupCompatibility, "Ignorable")
	if !ok {
		return
	}
	prefixes := strings.Fields(raw)
	if len(prefixes) == 0 {
		ctx.Add(report.Finding{
			Category:    report.CategoryMarkupCompat,
			Severity:    report.Error,
			Description: "Ignorable attribute is empty",
			Path:        ctx.Path(),
			Node:        "mc:Ignorable",
			ID:          "markup-compatibility.empty-ignorable",
		})
		return
	}
	for _, p := range prefixes {
		if uri, found := n.LookupPrefix(p); !found || uri == "" {
			ctx.Add(report.Finding{
				Category:    report.CategoryMarkupCompat,
				Severity:    report.Error,
				Description: fmt.Sprintf("Ignorable attribute names undeclared prefix '%s'", p),
				Path:        ctx.Path(),
				Node:        "mc:Ignorable",
				ID:          "markup-compatibility.undeclared-prefix",
			})
		}
	}
}
