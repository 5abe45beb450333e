package check

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/mitchellh/go-wordwrap"
)

const textWidth = 78

// WriteText renders the report for a terminal.
func (r *Report) WriteText(w io.Writer) error {
	ew := &errWriter{w: w}
	ew.printf("%s: %s\n", r.Source, r.Status)
	if r.Config != "" {
		ew.printf("  config: %s\n", r.Config)
	}
	for _, e := range r.Errors {
		ew.printf("  error: %s\n", e.Error())
	}
	for _, f := range r.Findings {
		subject := f.Policy
		if f.Variable != "" {
			subject += " (" + f.Variable + ")"
		}
		ew.printf("  %-7s %s\n", f.Severity, subject)
		ew.printf("%s\n", indent(wordwrap.WrapString(f.Message, textWidth-10), "          "))
		if f.Remediation != "" {
			ew.printf("%s\n", indent(wordwrap.WrapString("hint: "+f.Remediation, textWidth-10), "          "))
		}
	}
	for _, warn := range r.Warnings {
		ew.printf("  note: %s\n", warn)
	}
	return ew.err
}

// WriteJSON renders the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func indent(s, prefix string) string {
	return prefix + strings.ReplaceAll(s, "\n", "\n"+prefix)
}

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
