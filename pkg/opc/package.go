// Package opc reads Open Packaging Conventions archives: the ZIP container,
// the content-type table, the relationship graph, and lazily parsed XML
// parts. It also carries the validation context used by the traversal
// drivers.
package opc

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/adammathes/ooxmlverify/pkg/ns"
	"github.com/adammathes/ooxmlverify/pkg/report"
)

// ErrNotAContainer reports that the input bytes are not a readable ZIP
// archive.
var ErrNotAContainer = errors.New("not an OPC container")

const (
	contentTypesEntry = "/[Content_Types].xml"
	rootRelsEntry     = "/_rels/.rels"
)

// Package is one open document archive. It is immutable after construction
// except for lazily cached part trees.
type Package struct {
	path   string
	closer io.Closer

	entries   map[string]*zip.File // normalized path -> entry
	order     []string             // every entry, archive order
	partOrder []string             // user-visible parts, archive order
	escaped   []string             // entry names that escape the archive root

	contentTypes *ContentTypes
	ctLoaded     bool
	ctFindings   []report.Finding

	rels         *Relationships
	relsLoaded   bool
	relsFindings []report.Finding

	parts map[string]*Part
}

// Open opens a package from a filesystem path. A missing or unreadable file
// returns the underlying error; bytes that are not a ZIP archive return
// ErrNotAContainer.
func Open(path string) (*Package, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening package: %w", err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("opening package: %w", err)
	}
	zr, err := zip.NewReader(f, fi.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrNotAContainer, err)
	}
	p := newPackage(path, zr)
	p.closer = f
	return p, nil
}

// OpenBytes opens a package from an in-memory buffer.
func OpenBytes(data []byte, name string) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAContainer, err)
	}
	return newPackage(name, zr), nil
}

func newPackage(path string, zr *zip.Reader) *Package {
	p := &Package{
		path:    path,
		entries: make(map[string]*zip.File),
		parts:   make(map[string]*Part),
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if escapesRoot(f.Name) {
			p.escaped = append(p.escaped, f.Name)
			continue
		}
		name := "/" + strings.TrimPrefix(f.Name, "/")
		if _, dup := p.entries[name]; dup {
			continue
		}
		p.entries[name] = f
		p.order = append(p.order, name)
		if !isAuxiliary(name) {
			p.partOrder = append(p.partOrder, name)
		}
	}
	return p
}

// escapesRoot reports whether an archive entry name would resolve outside
// the package root.
func escapesRoot(name string) bool {
	if strings.Contains(name, "\\") {
		return true
	}
	depth := 0
	for _, seg := range strings.Split(name, "/") {
		switch seg {
		case "", ".":
		case "..":
			depth--
			if depth < 0 {
				return true
			}
		default:
			depth++
		}
	}
	return false
}

// isAuxiliary reports whether an entry is part of the packaging machinery
// rather than a user-visible part.
func isAuxiliary(name string) bool {
	if name == contentTypesEntry {
		return true
	}
	return strings.HasPrefix(name, "/_rels/") || strings.Contains(name, "/_rels/")
}

// Close releases the underlying archive.
func (p *Package) Close() error {
	if p.closer != nil {
		return p.closer.Close()
	}
	return nil
}

// Path returns the filesystem path or buffer name the package was opened
// from.
func (p *Package) Path() string { return p.path }

// HasPart reports whether the archive contains an entry at the given
// normalized path.
func (p *Package) HasPart(uri string) bool {
	_, ok := p.entries[normalize(uri)]
	return ok
}

// PartNames lists the user-visible parts in archive order.
func (p *Package) PartNames() []string { return p.partOrder }

// ReadEntry returns the raw bytes of any archive entry.
func (p *Package) ReadEntry(uri string) ([]byte, error) {
	f, ok := p.entries[normalize(uri)]
	if !ok {
		return nil, fmt.Errorf("entry not found in package: %s", uri)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", uri, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func normalize(uri string) string {
	return "/" + strings.TrimPrefix(uri, "/")
}

// Part returns the part record for a normalized path, creating it on first
// access. The part need not exist in the archive; Exists reports that.
func (p *Package) Part(uri string) *Part {
	uri = normalize(uri)
	if part, ok := p.parts[uri]; ok {
		return part
	}
	part := &Part{pkg: p, uri: uri}
	p.parts[uri] = part
	return part
}

// ContentTypes returns the parsed [Content_Types].xml table. Load problems
// are recorded as findings surfaced by ValidateStructure.
func (p *Package) ContentTypes() *ContentTypes {
	if p.ctLoaded {
		return p.contentTypes
	}
	p.ctLoaded = true
	p.contentTypes = newContentTypes()

	data, err := p.ReadEntry(contentTypesEntry)
	if err != nil {
		p.ctFindings = append(p.ctFindings, report.Finding{
			Category:    report.CategoryPackage,
			Severity:    report.Error,
			Description: "Missing required part [Content_Types].xml",
			Part:        contentTypesEntry,
			ID:          "package.missing-required-part",
		})
		return p.contentTypes
	}
	ct, err := parseContentTypes(data)
	if err != nil {
		p.ctFindings = append(p.ctFindings, report.Finding{
			Category:    report.CategoryPackage,
			Severity:    report.Error,
			Description: fmt.Sprintf("Cannot parse [Content_Types].xml: %v", err),
			Part:        contentTypesEntry,
			ID:          "package.malformed-xml",
		})
		return p.contentTypes
	}
	p.contentTypes = ct
	return p.contentTypes
}

// Relationships returns the package-level relationships from _rels/.rels.
func (p *Package) Relationships() *Relationships {
	if p.relsLoaded {
		return p.rels
	}
	p.relsLoaded = true
	p.rels = emptyRelationships("/")

	data, err := p.ReadEntry(rootRelsEntry)
	if err != nil {
		p.relsFindings = append(p.relsFindings, report.Finding{
			Category:    report.CategoryPackage,
			Severity:    report.Error,
			Description: "Missing required part _rels/.rels",
			Part:        rootRelsEntry,
			ID:          "package.missing-required-part",
		})
		return p.rels
	}
	rels, err := parseRelationships(data, "/")
	if err != nil {
		p.relsFindings = append(p.relsFindings, report.Finding{
			Category:    report.CategoryPackage,
			Severity:    report.Error,
			Description: fmt.Sprintf("Cannot parse _rels/.rels: %v", err),
			Part:        rootRelsEntry,
			ID:          "package.malformed-xml",
		})
		return p.rels
	}
	p.rels = rels
	return p.rels
}

// loadRelationships reads the .rels sibling of a source part. A missing file
// means an empty collection.
func (p *Package) loadRelationships(sourceURI string) (*Relationships, error) {
	relsPath := RelsPath(sourceURI)
	data, err := p.ReadEntry(relsPath)
	if err != nil {
		return emptyRelationships(sourceURI), nil
	}
	rels, err := parseRelationships(data, sourceURI)
	if err != nil {
		return emptyRelationships(sourceURI), fmt.Errorf("parsing %s: %w", relsPath, err)
	}
	return rels, nil
}

// MainDocumentURI resolves the main-document relationship target, or ""
// when the relationship is missing or unresolvable.
func (p *Package) MainDocumentURI() string {
	rel, ok := p.Relationships().FirstByType(ns.RelOfficeDocument)
	if !ok || rel.IsExternal() {
		return ""
	}
	target, ok := rel.ResolveTarget("/")
	if !ok {
		return ""
	}
	return target
}

// ValidateStructure runs the package-level checks: the mandatory entries,
// the main-document relationship, entry-name traversal, and content-type
// coverage of every part.
func (p *Package) ValidateStructure(ctx *Context) {
	for _, name := range p.escaped {
		ctx.Add(report.Finding{
			Category:    report.CategoryPackage,
			Severity:    report.Error,
			Description: fmt.Sprintf("Archive entry escapes the package root: %s", name),
			Part:        "/" + name,
			ID:          "package.directory-traversal",
		})
	}

	ct := p.ContentTypes()
	for _, f := range p.ctFindings {
		ctx.Add(f)
	}

	rels := p.Relationships()
	for _, f := range p.relsFindings {
		ctx.Add(f)
	}

	if len(p.relsFindings) == 0 {
		rel, ok := rels.FirstByType(ns.RelOfficeDocument)
		if !ok {
			ctx.Add(report.Finding{
				Category:    report.CategoryPackage,
				Severity:    report.Error,
				Description: "Missing main document relationship (officeDocument)",
				Part:        rootRelsEntry,
				ID:          "package.missing-required-part",
			})
		} else {
			target, resolved := rel.ResolveTarget("/")
			switch {
			case rel.IsExternal():
				ctx.Add(report.Finding{
					Category:    report.CategoryRelationship,
					Severity:    report.Error,
					Description: fmt.Sprintf("Main document relationship %s must not be external", rel.ID),
					Part:        rootRelsEntry,
					Node:        rel.ID,
					ID:          "relationship.dangling",
				})
			case !resolved:
				ctx.Add(report.Finding{
					Category:    report.CategoryRelationship,
					Severity:    report.Error,
					Description: fmt.Sprintf("Main document relationship %s target escapes the package: %s", rel.ID, rel.Target),
					Part:        rootRelsEntry,
					Node:        rel.ID,
					ID:          "relationship.escape",
				})
			case !p.HasPart(target):
				ctx.Add(report.Finding{
					Category:    report.CategoryPackage,
					Severity:    report.Error,
					Description: fmt.Sprintf("Main document part not found: %s", target),
					Part:        target,
					ID:          "package.missing-required-part",
				})
			}
		}
	}

	for _, uri := range p.partOrder {
		if ct.Lookup(uri) == "" {
			ctx.Add(report.Finding{
				Category:    report.CategoryPackage,
				Severity:    report.Warning,
				Description: fmt.Sprintf("Part has no declared content type: %s", uri),
				Part:        uri,
				ID:          "package.unknown-content-type",
			})
		}
	}
}
