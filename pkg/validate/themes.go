package validate

import (
	"github.com/adammathes/ooxmlverify/pkg/ns"
	"github.com/adammathes/ooxmlverify/pkg/opc"
)

const themeContentType = "application/vnd.openxmlformats-officedocument.theme+xml"

var colorSchemeSlots = []string{
	"dk1", "lt1", "dk2", "lt2",
	"accent1", "accent2", "accent3", "accent4", "accent5", "accent6",
	"hlink", "folHlink",
}

// validateThemes checks every theme part: root element, the themeElements
// container, its three scheme children, and the twelve color-scheme slots.
func (v *Validator) validateThemes(pkg *opc.Package, ctx *opc.Context) {
	for _, uri := range pkg.PartNames() {
		if ctx.ShouldStop() {
			return
		}
		part := pkg.Part(uri)
		if part.ContentType() != themeContentType {
			continue
		}
		root, err := part.XML()
		if err != nil {
			ctx.SetPart(part)
			part.ReportParseError(ctx)
			continue
		}

		ctx.SetPart(part)
		ctx.Push(root)

		if !root.Is(ns.DrawingML, "theme") {
			ctx.AddSchemaError("schema.unexpected-element",
				"Root element should be 'a:theme', got '"+root.Name()+"'", root.Name())
			ctx.Pop()
			continue
		}

		elements := root.Find(ns.DrawingML, "themeElements")
		if elements == nil {
			ctx.AddSchemaError("schema.min-occurs-violation",
				"Required element 'a:themeElements' is missing (minOccurs=1, found=0)", "a:themeElements")
			ctx.Pop()
			continue
		}

		for _, name := range []string{"clrScheme", "fontScheme", "fmtScheme"} {
			if elements.Find(ns.DrawingML, name) == nil {
				ctx.AddSchemaError("schema.min-occurs-violation",
					"Required element 'a:"+name+"' is missing (minOccurs=1, found=0)", "a:"+name)
			}
		}

		if clrScheme := elements.Find(ns.DrawingML, "clrScheme"); clrScheme != nil {
			for _, slot := range colorSchemeSlots {
				if clrScheme.Find(ns.DrawingML, slot) == nil {
					ctx.AddSchemaError("schema.min-occurs-violation",
						"Color scheme is missing slot 'a:"+slot+"'", "a:"+slot)
				}
			}
		}

		ctx.Pop()
	}
}
