package report

import (
	"encoding/xml"
	"io"
)

// xmlResult mirrors the reference validator's dump shape: a <result> root
// with one <error> element per finding, fields as attributes.
type xmlResult struct {
	XMLName xml.Name   `xml:"result"`
	Errors  []xmlError `xml:"error"`
}

type xmlError struct {
	Category    string `xml:"category,attr"`
	Severity    string `xml:"severity,attr"`
	Description string `xml:"description,attr"`
	Part        string `xml:"part,attr"`
	Path        string `xml:"path,attr"`
	Node        string `xml:"node,attr"`
	RelatedNode string `xml:"related_node,attr"`
	ID          string `xml:"id,attr"`
}

// WriteXML writes the findings in the reference dump shape.
func (r *Report) WriteXML(w io.Writer) error {
	out := xmlResult{}
	for _, f := range r.Findings {
		out.Errors = append(out.Errors, xmlError{
			Category:    string(f.Category),
			Severity:    string(f.Severity),
			Description: f.Description,
			Part:        f.Part,
			Path:        f.Path,
			Node:        f.Node,
			RelatedNode: f.RelatedNode,
			ID:          f.ID,
		})
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// ReadXML parses a dump produced by WriteXML back into findings.
func ReadXML(rd io.Reader) ([]Finding, error) {
	var in xmlResult
	dec := xml.NewDecoder(rd)
	if err := dec.Decode(&in); err != nil {
		return nil, err
	}
	findings := make([]Finding, 0, len(in.Errors))
	for _, e := range in.Errors {
		findings = append(findings, Finding{
			Category:    Category(e.Category),
			Severity:    Severity(e.Severity),
			Description: e.Description,
			Part:        e.Part,
			Path:        e.Path,
			Node:        e.Node,
			RelatedNode: e.RelatedNode,
			ID:          e.ID,
		})
	}
	return findings, nil
}
