package validate

import (
	"github.com/adammathes/ooxmlverify/pkg/binary"
	"github.com/adammathes/ooxmlverify/pkg/ns"
	"github.com/adammathes/ooxmlverify/pkg/opc"
	"github.com/adammathes/ooxmlverify/pkg/report"
	"github.com/adammathes/ooxmlverify/pkg/xmltree"
)

// validateBinaryParts checks every non-XML part's payload against the
// signature its declared content type or extension promises. Parts with no
// recognized binary format are left alone.
func (v *Validator) validateBinaryParts(pkg *opc.Package, ctx *opc.Context) {
	fontKeys := collectFontKeys(pkg)

	for _, uri := range pkg.PartNames() {
		if ctx.ShouldStop() {
			return
		}
		part := pkg.Part(uri)
		contentType := part.ContentType()
		if opc.IsXML(contentType) {
			continue
		}
		data, err := part.Raw()
		if err != nil {
			continue
		}
		res := binary.Check(contentType, uri, data, fontKeys[uri])
		if res == nil {
			continue
		}
		id := "package.invalid-binary-part"
		if res.Severity == report.Warning {
			id = "package.unverifiable-binary-part"
		}
		ctx.Add(report.Finding{
			Category:    report.CategoryPackage,
			Severity:    res.Severity,
			Description: res.Message,
			Part:        uri,
			ID:          id,
		})
	}
}

var fontEmbedTags = map[string]bool{
	"embedRegular":    true,
	"embedBold":       true,
	"embedItalic":     true,
	"embedBoldItalic": true,
}

// collectFontKeys gathers deobfuscation keys for embedded fonts from the
// Word font table, keyed by the resolved font part URI.
func collectFontKeys(pkg *opc.Package) map[string][]byte {
	const fontTableURI = "/word/fontTable.xml"
	if !pkg.HasPart(fontTableURI) {
		return nil
	}
	part := pkg.Part(fontTableURI)
	root, err := part.XML()
	if err != nil {
		return nil
	}

	var keys map[string][]byte
	root.Walk(func(n *xmltree.Node) {
		if n.Space != ns.WordML || !fontEmbedTags[n.Local] {
			return
		}
		relID, _ := n.Attr(ns.DocRelationships, "id")
		fontKey, _ := n.Attr(ns.WordML, "fontKey")
		if relID == "" || fontKey == "" {
			return
		}
		rel, ok := part.Relationships().ByID(relID)
		if !ok || rel.IsExternal() {
			return
		}
		target, ok := rel.ResolveTarget(part.URI())
		if !ok {
			return
		}
		key := binary.ParseFontKey(fontKey)
		if key == nil {
			return
		}
		if keys == nil {
			keys = make(map[string][]byte)
		}
		keys[target] = key
	})
	return keys
}
