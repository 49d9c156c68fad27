package semantic

import (
	"regexp"
	"strings"

	"github.com/adammathes/ooxmlverify/pkg/ns"
	"github.com/adammathes/ooxmlverify/pkg/opc"
	"github.com/adammathes/ooxmlverify/pkg/xmltree"
)

// countPath counts the elements matching a slash-separated prefixed path
// such as "x:cellMetadata/x:bk". The first segment matches any descendant
// of the root; later segments match direct children, mirroring the
// //a/b shape of the source expressions.
func countPath(root *xmltree.Node, path string) int {
	segments := splitPath(path)
	if len(segments) == 0 {
		return 0
	}
	var heads []*xmltree.Node
	root.Walk(func(n *xmltree.Node) {
		if n.Is(segments[0].Space, segments[0].Local) {
			heads = append(heads, n)
		}
	})
	current := heads
	for _, seg := range segments[1:] {
		var next []*xmltree.Node
		for _, n := range current {
			next = append(next, n.FindAll(seg.Space, seg.Local)...)
		}
		current = next
	}
	return len(current)
}

func splitPath(path string) []Name {
	var out []Name
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		if seg == "" {
			continue
		}
		out = append(out, splitAttrName(seg))
	}
	return out
}

// splitAttrName resolves a prefixed name like "r:id" against the
// conventional prefix table.
func splitAttrName(name string) Name {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return Name{Space: ns.URI(name[:i]), Local: name[i+1:]}
	}
	return Name{Local: name}
}

// Symbolic roles that always mean the package's main document part.
var mainPartAliases = map[string]bool{
	"WorkbookPart":     true,
	"MainDocumentPart": true,
	"PresentationPart": true,
}

var partNameToken = regexp.MustCompile(`[A-Z][a-z0-9]*|[a-z0-9]+`)

// resolvePartURIs maps a symbolic part path from a cross-part rule to
// concrete part URIs. "." is the current part; an absolute path is taken as
// is; a main-part alias resolves through the officeDocument relationship;
// anything else is matched by name keywords and used only when unambiguous.
// Unresolvable roles yield nil and the constraint is skipped.
func resolvePartURIs(ctx *opc.Context, partPath string) []string {
	if partPath == "." {
		if ctx.Part() == nil {
			return nil
		}
		return []string{ctx.Part().URI()}
	}
	pkg := ctx.Package
	if pkg == nil {
		return nil
	}

	if strings.HasPrefix(partPath, "/") && pkg.HasPart(partPath) {
		return []string{partPath}
	}
	if !strings.HasPrefix(partPath, "/") && pkg.HasPart("/"+partPath) {
		return []string{"/" + partPath}
	}

	normalized := strings.Trim(partPath, "/")
	if mainPartAliases[normalized] {
		if main := pkg.MainDocumentURI(); main != "" {
			return []string{main}
		}
		return nil
	}

	segments := strings.Split(normalized, "/")
	if len(segments) == 0 {
		return nil
	}
	matched := matchPartsByName(pkg, segments[len(segments)-1])
	if len(matched) == 1 {
		return matched
	}
	return nil
}

func matchPartsByName(pkg *opc.Package, partName string) []string {
	keywords := partKeywords(partName)
	if len(keywords) == 0 {
		return nil
	}
	var matches []string
	for _, uri := range pkg.PartNames() {
		lower := strings.ToLower(uri)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				matches = append(matches, uri)
				break
			}
		}
	}
	return matches
}

func partKeywords(partName string) []string {
	name := strings.TrimSuffix(partName, "Part")
	tokens := partNameToken.FindAllString(name, -1)
	if len(tokens) == 0 {
		return nil
	}
	keywords := []string{strings.ToLower(tokens[len(tokens)-1])}
	joined := ""
	for _, t := range tokens {
		joined += strings.ToLower(t)
	}
	if joined != keywords[0] {
		keywords = append(keywords, joined)
	}
	return keywords
}
