package validate

import (
	"github.com/adammathes/ooxmlverify/pkg/ns"
	"github.com/adammathes/ooxmlverify/pkg/opc"
	"github.com/adammathes/ooxmlverify/pkg/report"
)

// validateMasters checks each slide master reachable from the presentation:
// the part must parse, it must reference a theme, and every layout it owns
// must reference a slide master back.
func (v *Validator) validateMasters(pkg *opc.Package, ctx *opc.Context) {
	mainURI := pkg.MainDocumentURI()
	if mainURI == "" || !pkg.HasPart(mainURI) {
		return
	}
	pres := pkg.Part(mainURI)
	if _, err := pres.XML(); err != nil {
		return
	}

	for _, rel := range pres.Relationships().ByType(ns.RelSlideMaster) {
		if ctx.ShouldStop() {
			return
		}
		if rel.IsExternal() {
			continue
		}
		target, ok := rel.ResolveTarget(pres.URI())
		if !ok || !pkg.HasPart(target) {
			continue // relationship phase findings
		}
		master := pkg.Part(target)

		ctx.SetPart(master)
		if _, err := master.XML(); err != nil {
			master.ReportParseError(ctx)
			continue
		}

		if len(master.Relationships().ByType(ns.RelTheme)) == 0 {
			ctx.Add(report.Finding{
				Category:    report.CategorySemantic,
				Severity:    report.Error,
				Description: "Slide master has no theme relationship",
				Part:        master.URI(),
				ID:          "semantic.missing-relationship",
			})
		}

		for _, layoutRel := range master.Relationships().ByType(ns.RelSlideLayout) {
			if layoutRel.IsExternal() {
				continue
			}
			layoutURI, ok := layoutRel.ResolveTarget(master.URI())
			if !ok || !pkg.HasPart(layoutURI) {
				continue
			}
			layout := pkg.Part(layoutURI)
			ctx.SetPart(layout)
			if _, err := layout.XML(); err != nil {
				layout.ReportParseError(ctx)
				continue
			}
			if len(layout.Relationships().ByType(ns.RelSlideMaster)) == 0 {
				ctx.Add(report.Finding{
					Category:    report.CategorySemantic,
					Severity:    report.Error,
					Description: "Slide layout has no slideMaster relationship",
					Part:        layout.URI(),
					ID:          "semantic.missing-relationship",
				})
			}
		}
	}
}
