package cfg

import (
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/mitchellh/go-wordwrap"
	"gopkg.in/yaml.v3"
)

// DumpMode selects the rendering of DumpVarList.
type DumpMode string

const (
	// ModeTextShort lists name and default per variable.
	ModeTextShort DumpMode = "short"

	// ModeTextFull adds group, type, unit, range, dependencies and the
	// description.
	ModeTextFull DumpMode = "full"

	// ModeJSON is a machine readable listing of the full information.
	ModeJSON DumpMode = "json"

	// ModeYAML is the same listing as ModeJSON in YAML.
	ModeYAML DumpMode = "yaml"
)

// ParseDumpMode converts a mode name to a DumpMode.
func ParseDumpMode(s string) (DumpMode, error) {
	switch m := DumpMode(strings.ToLower(s)); m {
	case ModeTextShort, ModeTextFull, ModeJSON, ModeYAML:
		return m, nil
	}
	return "", fmt.Errorf("unknown dump mode %q (expected short, full, json or yaml)", s)
}

// VarDoc is the structured documentation record of one variable.
type VarDoc struct {
	Name        string      `json:"name" yaml:"name"`
	Group       Group       `json:"group" yaml:"group"`
	Type        ValueKind   `json:"type" yaml:"type"`
	Unit        string      `json:"unit,omitempty" yaml:"unit,omitempty"`
	Default     interface{} `json:"default" yaml:"default"`
	Required    bool        `json:"required" yaml:"required"`
	Range       string      `json:"range,omitempty" yaml:"range,omitempty"`
	Requires    []string    `json:"requires,omitempty" yaml:"requires,omitempty"`
	Description string      `json:"description" yaml:"description"`
}

// VarListDoc is the top-level structured dump.
type VarListDoc struct {
	Variables []VarDoc `json:"variables" yaml:"variables"`
}

// Docs returns the documentation records in registry order.
func Docs() VarListDoc {
	table := descriptors()
	doc := VarListDoc{Variables: make([]VarDoc, 0, len(table))}
	for i := range table {
		d := &table[i]
		vd := VarDoc{
			Name:        d.Name,
			Group:       d.Group,
			Type:        d.Kind,
			Unit:        string(d.Unit),
			Range:       d.RangeDoc,
			Requires:    d.Requires,
			Description: d.Description,
		}
		if def, ok := d.Default.Get(); ok {
			vd.Default = def.Interface()
		} else {
			vd.Required = true
		}
		doc.Variables = append(doc.Variables, vd)
	}
	return doc
}

// DumpVarList writes the variable list in the requested mode. Every output
// line is prefixed with linePrefix. Output is deterministic.
func DumpVarList(w io.Writer, mode DumpMode, linePrefix string) error {
	var out string
	switch mode {
	case ModeTextShort:
		out = dumpShort()
	case ModeTextFull:
		out = dumpFull()
	case ModeJSON:
		data, err := json.MarshalIndent(Docs(), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode variable list: %w", err)
		}
		out = string(data) + "\n"
	case ModeYAML:
		data, err := yaml.Marshal(Docs())
		if err != nil {
			return fmt.Errorf("failed to encode variable list: %w", err)
		}
		out = string(data)
	default:
		return fmt.Errorf("unknown dump mode %q", mode)
	}
	if linePrefix != "" {
		out = prefixLines(out, linePrefix)
	}
	_, err := io.WriteString(w, out)
	return err
}

func dumpShort() string {
	var b strings.Builder
	table := descriptors()
	width := 0
	for i := range table {
		width = max(width, len(table[i].Name))
	}
	for i := range table {
		fmt.Fprintf(&b, "%-*s = %s\n", width, table[i].Name, table[i].DefaultText())
	}
	return b.String()
}

func dumpFull() string {
	var b strings.Builder
	table := descriptors()
	for i := range table {
		d := &table[i]
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s\n", d.Name)
		fmt.Fprintf(&b, "  group       : %s\n", d.Group)
		fmt.Fprintf(&b, "  type        : %s\n", d.Kind)
		if d.Unit != "" {
			unit := string(d.Unit)
			if sfx := d.Unit.CanonicalSuffix(); sfx != "" {
				unit += " (" + sfx + ")"
			}
			fmt.Fprintf(&b, "  unit        : %s\n", unit)
		}
		fmt.Fprintf(&b, "  default     : %s\n", d.DefaultText())
		if d.RangeDoc != "" {
			fmt.Fprintf(&b, "  range       : %s\n", d.RangeDoc)
		}
		if len(d.Requires) > 0 {
			fmt.Fprintf(&b, "  requires    : %s\n", strings.Join(d.Requires, ", "))
		}
		desc := wordwrap.WrapString(d.Description, 64)
		for j, line := range strings.Split(desc, "\n") {
			label := "  description : "
			if j > 0 {
				label = "                "
			}
			b.WriteString(label + line + "\n")
		}
	}
	return b.String()
}

func prefixLines(s, prefix string) string {
	lines := strings.SplitAfter(s, "\n")
	var b strings.Builder
	for _, l := range lines {
		if l == "" {
			continue
		}
		b.WriteString(prefix + l)
	}
	return b.String()
}
