// Package ns defines the XML namespace and relationship-type URIs used by
// Office Open XML packages, with prefix lookup helpers.
package ns

// Package-level namespaces (OPC).
const (
	ContentTypes  = "http://schemas.openxmlformats.org/package/2006/content-types"
	Relationships = "http://schemas.openxmlformats.org/package/2006/relationships"
)

// Document namespaces.
const (
	PresentationML = "http://schemas.openxmlformats.org/presentationml/2006/main"
	WordML         = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	SpreadsheetML  = "http://schemas.openxmlformats.org/spreadsheetml/2006/main"

	DrawingML        = "http://schemas.openxmlformats.org/drawingml/2006/main"
	DrawingMLChart   = "http://schemas.openxmlformats.org/drawingml/2006/chart"
	DrawingMLDiagram = "http://schemas.openxmlformats.org/drawingml/2006/diagram"
	DrawingMLPicture = "http://schemas.openxmlformats.org/drawingml/2006/picture"

	DocRelationships = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

	MarkupCompatibility = "http://schemas.openxmlformats.org/markup-compatibility/2006"

	CoreProperties     = "http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
	ExtendedProperties = "http://schemas.openxmlformats.org/officeDocument/2006/extended-properties"
	DublinCore         = "http://purl.org/dc/elements/1.1/"
	DCTerms            = "http://purl.org/dc/terms/"

	VML = "urn:schemas-microsoft-com:vml"
	XML = "http://www.w3.org/XML/1998/namespace"
	XSI = "http://www.w3.org/2001/XMLSchema-instance"
)

// Relationship-type URIs.
const (
	RelOfficeDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"

	RelSlide         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide"
	RelSlideLayout   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout"
	RelSlideMaster   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster"
	RelNotesSlide    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/notesSlide"
	RelNotesMaster   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/notesMaster"
	RelHandoutMaster = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/handoutMaster"
	RelTheme         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme"
	RelPresProps     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/presProps"
	RelViewProps     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/viewProps"
	RelTableStyles   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/tableStyles"

	RelImage     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	RelHyperlink = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink"
	RelFont      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/font"

	RelStyles        = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
	RelSettings      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/settings"
	RelFontTable     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/fontTable"
	RelNumbering     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/numbering"
	RelWorksheet     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet"
	RelSharedStrings = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/sharedStrings"
)

// prefixes maps the conventional short prefix to its namespace URI.
var prefixes = map[string]string{
	"ct":      ContentTypes,
	"rel":     Relationships,
	"p":       PresentationML,
	"w":       WordML,
	"x":       SpreadsheetML,
	"a":       DrawingML,
	"c":       DrawingMLChart,
	"dgm":     DrawingMLDiagram,
	"pic":     DrawingMLPicture,
	"r":       DocRelationships,
	"mc":      MarkupCompatibility,
	"cp":      CoreProperties,
	"ep":      ExtendedProperties,
	"dc":      DublinCore,
	"dcterms": DCTerms,
	"v":       VML,
	"xml":     XML,
	"xsi":     XSI,
}

var uris = func() map[string]string {
	m := make(map[string]string, len(prefixes))
	for p, u := range prefixes {
		m[u] = p
	}
	return m
}()

// URI returns the namespace URI for a conventional prefix, or "" if unknown.
func URI(prefix string) string {
	return prefixes[prefix]
}

// Prefix returns the conventional prefix for a namespace URI, or "" if unknown.
func Prefix(uri string) string {
	return uris[uri]
}

// Clark returns the Clark-notation qualified name {uri}local.
func Clark(uri, local string) string {
	if uri == "" {
		return local
	}
	return "{" + uri + "}" + local
}

// Prefixed returns the prefix:local rendering of a name, falling back to the
// bare local name when the namespace has no conventional prefix.
func Prefixed(uri, local string) string {
	if p := Prefix(uri); p != "" {
		return p + ":" + local
	}
	return local
}
