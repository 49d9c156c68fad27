package opc

import (
	"fmt"

	"github.com/adammathes/ooxmlverify/pkg/report"
	"github.com/adammathes/ooxmlverify/pkg/xmltree"
)

// Part is a named XML or binary item inside the archive. The XML tree and
// the relationship collection are materialized on first access and cached
// for the lifetime of the package.
type Part struct {
	pkg *Package
	uri string

	contentType string
	ctLoaded    bool

	root          *xmltree.Node
	parseErr      error
	parsed        bool
	parseReported bool

	rels       *Relationships
	relsErr    error
	relsLoaded bool
}

// URI returns the canonical leading-slash path of the part.
func (p *Part) URI() string { return p.uri }

// Exists reports whether the archive contains this part.
func (p *Part) Exists() bool { return p.pkg.HasPart(p.uri) }

// ContentType returns the declared media type, or "" when none applies.
func (p *Part) ContentType() string {
	if !p.ctLoaded {
		p.contentType = p.pkg.ContentTypes().Lookup(p.uri)
		p.ctLoaded = true
	}
	return p.contentType
}

// Raw returns the raw bytes of the part.
func (p *Part) Raw() ([]byte, error) {
	return p.pkg.ReadEntry(p.uri)
}

// XML returns the parsed tree, materializing it on first access. The result
// (including a parse failure) is cached; re-materialization is
// deterministic.
func (p *Part) XML() (*xmltree.Node, error) {
	if p.parsed {
		return p.root, p.parseErr
	}
	p.parsed = true
	data, err := p.pkg.ReadEntry(p.uri)
	if err != nil {
		p.parseErr = err
		return nil, p.parseErr
	}
	p.root, p.parseErr = xmltree.Parse(data)
	return p.root, p.parseErr
}

// ReportParseError records a schema.malformed-xml finding for this part,
// once, regardless of how many traversals touch it.
func (p *Part) ReportParseError(ctx *Context) {
	if p.parseErr == nil || p.parseReported {
		return
	}
	p.parseReported = true
	ctx.Add(report.Finding{
		Category:    report.CategorySchema,
		Severity:    report.Error,
		Description: fmt.Sprintf("XML parse error: %v", p.parseErr),
		Part:        p.uri,
		ID:          "schema.malformed-xml",
	})
}

// Relationships returns the part's relationship collection. A missing .rels
// file yields an empty collection; a malformed one is remembered in
// RelsError.
func (p *Part) Relationships() *Relationships {
	if !p.relsLoaded {
		p.rels, p.relsErr = p.pkg.loadRelationships(p.uri)
		p.relsLoaded = true
	}
	return p.rels
}

// RelsError returns the parse error of the part's .rels file, if any.
func (p *Part) RelsError() error {
	p.Relationships()
	return p.relsErr
}

// RelatedPart resolves a relationship id to the target part, or nil when the
// id is unknown, external, or escapes the package.
func (p *Part) RelatedPart(relID string) *Part {
	rel, ok := p.Relationships().ByID(relID)
	if !ok || rel.IsExternal() {
		return nil
	}
	target, ok := rel.ResolveTarget(p.uri)
	if !ok {
		return nil
	}
	return p.pkg.Part(target)
}
