package report

import "fmt"

// Category classifies a validation finding by subsystem.
type Category string

const (
	CategoryPackage      Category = "package"
	CategorySchema       Category = "schema"
	CategorySemantic     Category = "semantic"
	CategoryRelationship Category = "relationship"
	CategoryMarkupCompat Category = "markup-compatibility"
)

// Severity levels for validation findings.
type Severity string

const (
	Error   Severity = "error"
	Warning Severity = "warning"
	Info    Severity = "info"
)

// FileFormat selects the Office version whose element and attribute tables
// apply during validation.
type FileFormat string

const (
	Office2007   FileFormat = "office2007"
	Office2010   FileFormat = "office2010"
	Office2013   FileFormat = "office2013"
	Office2016   FileFormat = "office2016"
	Office2019   FileFormat = "office2019"
	Office2021   FileFormat = "office2021"
	Microsoft365 FileFormat = "microsoft365"
)

var formatRank = map[FileFormat]int{
	Office2007:   0,
	Office2010:   1,
	Office2013:   2,
	Office2016:   3,
	Office2019:   4,
	Office2021:   5,
	Microsoft365: 6,
}

// FormatAtLeast reports whether f is the same version as min or newer.
// Unknown formats compare as the default (Office2019).
func FormatAtLeast(f, min FileFormat) bool {
	rf, ok := formatRank[f]
	if !ok {
		rf = formatRank[Office2019]
	}
	rm, ok := formatRank[min]
	if !ok {
		rm = formatRank[Office2019]
	}
	return rf >= rm
}

// ParseFileFormat returns the FileFormat for a flag value, or false when the
// value is not a recognized version.
func ParseFileFormat(s string) (FileFormat, bool) {
	f := FileFormat(s)
	_, ok := formatRank[f]
	return f, ok
}

// Finding is a single validation result.
type Finding struct {
	Category    Category `json:"category"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Part        string   `json:"part"`
	Path        string   `json:"path"`
	Node        string   `json:"node"`
	RelatedNode string   `json:"related_node"`
	ID          string   `json:"id"`
}

func (f Finding) String() string {
	return fmt.Sprintf("%s [%s] %s (%s%s)", f.Severity, f.Category, f.Description, f.Part, f.Path)
}

// Report collects all findings from a validation run, in emission order.
type Report struct {
	FilePath string
	Format   FileFormat
	Findings []Finding
}

// NewReport creates an empty report for a file.
func NewReport(path string, format FileFormat) *Report {
	return &Report{FilePath: path, Format: format}
}

// Add appends a finding to the report.
func (r *Report) Add(f Finding) {
	r.Findings = append(r.Findings, f)
}

func (r *Report) count(sev Severity) int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == sev {
			n++
		}
	}
	return n
}

// ErrorCount returns the number of error-severity findings.
func (r *Report) ErrorCount() int { return r.count(Error) }

// WarningCount returns the number of warning-severity findings.
func (r *Report) WarningCount() int { return r.count(Warning) }

// InfoCount returns the number of info-severity findings.
func (r *Report) InfoCount() int { return r.count(Info) }

// IsValid returns true if there are no error-severity findings.
func (r *Report) IsValid() bool {
	return r.ErrorCount() == 0
}
