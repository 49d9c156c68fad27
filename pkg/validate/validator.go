// Package validate is the top-level validator: it sequences the package,
// schema, semantic, relationship, binary-payload, and format-specific
// phases and aggregates their findings into a report.
package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/adammathes/ooxmlverify/pkg/ns"
	"github.com/adammathes/ooxmlverify/pkg/opc"
	"github.com/adammathes/ooxmlverify/pkg/report"
	"github.com/adammathes/ooxmlverify/pkg/schema"
	"github.com/adammathes/ooxmlverify/pkg/semantic"
)

// Options configures validation behavior.
type Options struct {
	// Format selects the Office version whose element and attribute tables
	// apply. Default office2019.
	Format report.FileFormat

	// MaxErrors caps the number of findings collected; 0 means unlimited.
	// Default 1000.
	MaxErrors int

	// SchemaValidation toggles the content-model phase.
	SchemaValidation bool

	// SemanticValidation toggles the constraint-catalog phase.
	SemanticValidation bool
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		Format:             report.Office2019,
		MaxErrors:          1000,
		SchemaValidation:   true,
		SemanticValidation: true,
	}
}

type documentKind int

const (
	kindUnknown documentKind = iota
	kindPresentation
	kindWord
	kindSpreadsheet
)

// Validator validates OOXML packages. The schema registry and constraint
// catalog are built once here and shared read-only by every validation, so
// one Validator may serve concurrent callers.
type Validator struct {
	opts      Options
	schemaVal *schema.Validator
	semVal    *semantic.Validator
	catalog   *semantic.Catalog
	stats     semantic.Stats
}

// New builds a validator for the given options.
func New(opts Options) *Validator {
	if opts.Format == "" {
		opts.Format = report.Office2019
	}
	v := &Validator{opts: opts}
	if opts.SchemaValidation {
		v.schemaVal = schema.New(schema.PresentationRegistry())
	}
	if opts.SemanticValidation {
		v.catalog, v.stats = semantic.LoadCatalog("PowerPoint")
		v.semVal = semantic.New(v.catalog)
	}
	return v
}

// NewDefault builds a validator with DefaultOptions.
func NewDefault() *Validator {
	return New(DefaultOptions())
}

// RuleStats reports how the embedded Schematron inventory loaded.
func (v *Validator) RuleStats() semantic.Stats { return v.stats }

// Catalog exposes the loaded constraint catalog.
func (v *Validator) Catalog() *semantic.Catalog { return v.catalog }

// WithCatalog returns a copy of the validator running a different
// constraint catalog. The schema registry is shared.
func (v *Validator) WithCatalog(c *semantic.Catalog) *Validator {
	out := *v
	out.catalog = c
	out.semVal = semantic.New(c)
	return &out
}

// Validate validates the file at path. An unreadable path returns an error
// (an invocation problem); content that is not an OPC container returns a
// report with a single package.not-a-container finding.
func (v *Validator) Validate(path string) (*report.Report, error) {
	pkg, err := opc.Open(path)
	if err != nil {
		if errors.Is(err, opc.ErrNotAContainer) {
			return v.notAContainer(path), nil
		}
		return nil, err
	}
	defer pkg.Close()
	return v.validatePackage(pkg, path), nil
}

// ValidateBytes validates an in-memory archive.
func (v *Validator) ValidateBytes(data []byte, name string) *report.Report {
	pkg, err := opc.OpenBytes(data, name)
	if err != nil {
		return v.notAContainer(name)
	}
	return v.validatePackage(pkg, name)
}

// IsValid reports whether the file has no error-severity findings.
func (v *Validator) IsValid(path string) (bool, error) {
	r, err := v.Validate(path)
	if err != nil {
		return false, err
	}
	return r.IsValid(), nil
}

func (v *Validator) notAContainer(path string) *report.Report {
	r := report.NewReport(path, v.opts.Format)
	r.Add(report.Finding{
		Category:    report.CategoryPackage,
		Severity:    report.Error,
		Description: "File is not an OPC container (not a valid ZIP archive)",
		Part:        "/",
		ID:          "package.not-a-container",
	})
	return r
}

func (v *Validator) validatePackage(pkg *opc.Package, path string) *report.Report {
	ctx := opc.NewContext(pkg, v.opts.Format, v.opts.MaxErrors)

	// Phase 1: package structure.
	pkg.ValidateStructure(ctx)

	// Phase 2: schema traversal of every XML part, in archive order.
	if v.schemaVal != nil && !ctx.ShouldStop() {
		for _, uri := range pkg.PartNames() {
			part := pkg.Part(uri)
			if !opc.IsXML(part.ContentType()) {
				continue
			}
			v.schemaVal.ValidatePart(part, ctx)
			if ctx.ShouldStop() {
				break
			}
		}
	}

	// Phase 3: semantic traversal with the whole package reachable.
	if v.semVal != nil && !ctx.ShouldStop() {
		for _, uri := range pkg.PartNames() {
			part := pkg.Part(uri)
			if !opc.IsXML(part.ContentType()) {
				continue
			}
			v.semVal.ValidatePart(part, ctx)
			if ctx.ShouldStop() {
				break
			}
		}
	}

	// Phase 4: relationship integrity across every collection.
	if !ctx.ShouldStop() {
		v.validateRelationships(pkg, ctx)
	}

	// Phase 5: binary payloads of non-XML parts.
	if !ctx.ShouldStop() {
		v.validateBinaryParts(pkg, ctx)
	}

	// Phase 6: format-specific checks.
	if !ctx.ShouldStop() {
		if detectKind(pkg) == kindPresentation {
			v.validatePresentation(pkg, ctx)
			v.validateSlides(pkg, ctx)
			v.validateMasters(pkg, ctx)
			v.validateThemes(pkg, ctx)
		}
	}

	r := report.NewReport(path, v.opts.Format)
	r.Findings = ctx.Findings()
	return r
}

func detectKind(pkg *opc.Package) documentKind {
	main := pkg.MainDocumentURI()
	if main == "" {
		return kindUnknown
	}
	contentType := pkg.ContentTypes().Lookup(main)
	switch {
	case strings.Contains(contentType, "presentationml") || strings.Contains(main, "/ppt/"):
		return kindPresentation
	case strings.Contains(contentType, "wordprocessingml") || strings.Contains(main, "/word/"):
		return kindWord
	case strings.Contains(contentType, "spreadsheetml") || strings.Contains(main, "/xl/"):
		return kindSpreadsheet
	}
	return kindUnknown
}

// validateRelationships checks every collection: duplicate ids, malformed
// .rels files, internal targets that escape the package or do not resolve
// to a part. The main-document relationship is phase 1's concern and is
// skipped here.
func (v *Validator) validateRelationships(pkg *opc.Package, ctx *opc.Context) {
	rootRels := pkg.Relationships()
	v.checkCollection(pkg, ctx, rootRels, opc.RelsPath("/"))

	for _, uri := range pkg.PartNames() {
		if ctx.ShouldStop() {
			return
		}
		part := pkg.Part(uri)
		if err := part.RelsError(); err != nil {
			ctx.Add(report.Finding{
				Category:    report.CategoryPackage,
				Severity:    report.Error,
				Description: fmt.Sprintf("Cannot parse relationships: %v", err),
				Part:        opc.RelsPath(uri),
				ID:          "package.malformed-xml",
			})
			continue
		}
		v.checkCollection(pkg, ctx, part.Relationships(), opc.RelsPath(uri))
	}
}

func (v *Validator) checkCollection(pkg *opc.Package, ctx *opc.Context, rels *opc.Relationships, relsPath string) {
	for _, dup := range rels.DuplicateIDs() {
		ctx.Add(report.Finding{
			Category:    report.CategoryRelationship,
			Severity:    report.Error,
			Description: fmt.Sprintf("Duplicate relationship id '%s'", dup),
			Part:        relsPath,
			Node:        dup,
			ID:          "relationship.duplicate-id",
		})
	}

	if pkg.HasPart(relsPath) && rels.Len() == 0 {
		ctx.Add(report.Finding{
			Category:    report.CategoryRelationship,
			Severity:    report.Warning,
			Description: "Relationship container exists but declares no relationships",
			Part:        relsPath,
			ID:          "relationship.empty-container",
		})
	}

	for _, rel := range rels.All() {
		if rel.IsExternal() || rel.Type == ns.RelOfficeDocument {
			continue
		}
		target, ok := rel.ResolveTarget(rels.Source)
		if !ok {
			ctx.Add(report.Finding{
				Category:    report.CategoryRelationship,
				Severity:    report.Error,
				Description: fmt.Sprintf("Relationship '%s' target escapes the package root: %s", rel.ID, rel.Target),
				Part:        relsPath,
				Node:        rel.ID,
				ID:          "relationship.escape",
			})
			continue
		}
		if !pkg.HasPart(target) {
			ctx.Add(report.Finding{
				Category:    report.CategoryRelationship,
				Severity:    report.Error,
				Description: fmt.Sprintf("Relationship '%s' target not found: %s", rel.ID, target),
				Part:        relsPath,
				Node:        rel.ID,
				ID:          "relationship.dangling",
			})
		}
	}
}
