package validate

import (
	"github.com/adammathes/ooxmlverify/pkg/ns"
	"github.com/adammathes/ooxmlverify/pkg/opc"
	"github.com/adammathes/ooxmlverify/pkg/report"
)

// validateSlides walks the presentation's slide list and checks each
// resolvable slide part: it must parse and it must carry a slideLayout
// relationship. Missing targets are the relationship phase's findings.
func (v *Validator) validateSlides(pkg *opc.Package, ctx *opc.Context) {
	mainURI := pkg.MainDocumentURI()
	if mainURI == "" || !pkg.HasPart(mainURI) {
		return
	}
	pres := pkg.Part(mainURI)
	root, err := pres.XML()
	if err != nil {
		return // reported by validatePresentation
	}

	slideList := root.Find(ns.PresentationML, "sldIdLst")
	if slideList == nil {
		return // an empty presentation is legal
	}

	for _, sldID := range slideList.FindAll(ns.PresentationML, "sldId") {
		if ctx.ShouldStop() {
			return
		}
		relID, ok := sldID.Attr(ns.DocRelationships, "id")
		if !ok || relID == "" {
			continue // schema phase reports the missing attribute
		}
		slide := pres.RelatedPart(relID)
		if slide == nil || !slide.Exists() {
			continue // dangling target, reported by the relationship phase
		}

		ctx.SetPart(slide)
		if _, err := slide.XML(); err != nil {
			slide.ReportParseError(ctx)
			continue
		}

		if len(slide.Relationships().ByType(ns.RelSlideLayout)) == 0 {
			ctx.Add(report.Finding{
				Category:    report.CategorySemantic,
				Severity:    report.Error,
				Description: "Slide has no slideLayout relationship",
				Part:        slide.URI(),
				ID:          "semantic.missing-relationship",
			})
		}
	}
}
