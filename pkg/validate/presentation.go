package validate

import (
	"github.com/adammathes/ooxmlverify/pkg/ns"
	"github.com/adammathes/ooxmlverify/pkg/opc"
)

// validatePresentation runs the hand-written checks on the main
// presentation part that neither the content model nor the constraint
// catalog expresses: the root tag, the undeclared legacy autoCompress
// attribute, the slide-master minimum, and the notes-size requirement.
func (v *Validator) validatePresentation(pkg *opc.Package, ctx *opc.Context) {
	mainURI := pkg.MainDocumentURI()
	if mainURI == "" || !pkg.HasPart(mainURI) {
		return // reported in the package phase
	}
	part := pkg.Part(mainURI)
	root, err := part.XML()
	if err != nil {
		ctx.SetPart(part)
		part.ReportParseError(ctx)
		return
	}

	ctx.SetPart(part)
	ctx.Push(root)
	defer ctx.Pop()

	if !root.Is(ns.PresentationML, "presentation") {
		ctx.AddSchemaError("schema.unexpected-element",
			"Root element should be 'p:presentation', got '"+root.Name()+"'", root.Name())
		return
	}

	// autoCompress was never a declared ECMA-376 attribute.
	if _, ok := root.Attr("", "autoCompress"); ok {
		ctx.AddSchemaError("schema.unexpected-attribute",
			"Attribute 'autoCompress' is not declared", "autoCompress")
	}

	masters := root.Find(ns.PresentationML, "sldMasterIdLst")
	if masters == nil || len(masters.FindAll(ns.PresentationML, "sldMasterId")) == 0 {
		ctx.AddSchemaError("schema.min-occurs-violation",
			"Presentation must have at least one slide master", "p:sldMasterIdLst")
	}

	if root.Find(ns.PresentationML, "notesSz") == nil {
		ctx.AddSchemaError("schema.min-occurs-violation",
			"Required element 'p:notesSz' is missing (minOccurs=1, found=0)", "p:notesSz")
	}
}
