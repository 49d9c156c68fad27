package report

import (
	"encoding/json"
	"io"
)

// WriteJSON writes the findings as a JSON array. Absent optional strings are
// written as empty strings, which the struct tags already guarantee.
func (r *Report) WriteJSON(w io.Writer) error {
	findings := r.Findings
	if findings == nil {
		findings = []Finding{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(findings)
}

// ReadJSON parses a findings array produced by WriteJSON.
func ReadJSON(rd io.Reader) ([]Finding, error) {
	var findings []Finding
	dec := json.NewDecoder(rd)
	if err := dec.Decode(&findings); err != nil {
		return nil, err
	}
	return findings, nil
}
