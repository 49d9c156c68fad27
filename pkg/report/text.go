package report

import (
	"fmt"
	"io"
)

// WriteText writes human-readable validation output to w, one finding per
// line, terminated by a per-severity summary line.
func (r *Report) WriteText(w io.Writer) {
	for _, f := range r.Findings {
		fmt.Fprintln(w, f.String())
	}
	fmt.Fprintf(w, "Check finished. Errors: %d, Warnings: %d, Info: %d\n",
		r.ErrorCount(), r.WarningCount(), r.InfoCount())
}
