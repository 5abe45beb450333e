package schema

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// hclDocument is the top-level structure of an HCL configuration:
//
//	datasource = "pg.ncmat"
//	variables {
//	  temp   = "20C"
//	  lcaxis = [0, 0, 1]
//	  dir1   = { crys_hkl = [0, 0, 1], lab = [0, 0, 1] }
//	}
type hclDocument struct {
	DataSource string        `hcl:"datasource"`
	Variables  *hclVariables `hcl:"variables,block"`
}

type hclVariables struct {
	Remain hcl.Body `hcl:",remain"`
}

func (l *Loader) decodeHCL(source string, data []byte) (Document, map[string]position, []ValidationError) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, source)
	if diags.HasErrors() {
		return Document{}, nil, convertHCLDiags(source, diags)
	}

	var parsed hclDocument
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return Document{}, nil, convertHCLDiags(source, diags)
	}

	doc := Document{DataSource: parsed.DataSource}
	positions := make(map[string]position)
	if parsed.Variables != nil {
		attrs, diags := parsed.Variables.Remain.JustAttributes()
		if diags.HasErrors() {
			return Document{}, nil, convertHCLDiags(source, diags)
		}

		names := make([]string, 0, len(attrs))
		for name := range attrs {
			names = append(names, name)
		}
		sort.Strings(names)

		var errs []ValidationError
		doc.Variables = make(map[string]interface{}, len(attrs))
		for _, name := range names {
			attr := attrs[name]
			path := "variables." + name
			positions[path] = position{attr.NameRange.Start.Line, attr.NameRange.Start.Column}

			val, diags := attr.Expr.Value(nil)
			if diags.HasErrors() {
				errs = append(errs, convertHCLDiags(source, diags)...)
				continue
			}
			v, err := ctyToGo(val)
			if err != nil {
				errs = append(errs, ValidationError{
					File:    source,
					Line:    attr.NameRange.Start.Line,
					Column:  attr.NameRange.Start.Column,
					Path:    path,
					Message: err.Error(),
				})
				continue
			}
			doc.Variables[name] = v
		}
		if len(errs) > 0 {
			return Document{}, nil, errs
		}
	}

	if errs := l.checkSchema(source, doc, positions); len(errs) > 0 {
		return Document{}, nil, errs
	}
	return doc, positions, nil
}

// ctyToGo converts an HCL value to the plain Go values used in Document.
// Integral numbers become int64 so that they satisfy integer constraints.
func ctyToGo(v cty.Value) (interface{}, error) {
	if v.IsNull() {
		return nil, nil
	}
	if !v.IsWhollyKnown() {
		return nil, fmt.Errorf("value is not known")
	}

	t := v.Type()
	switch {
	case t == cty.String:
		return v.AsString(), nil
	case t == cty.Bool:
		return v.True(), nil
	case t == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == 0 {
				return i, nil
			}
		}
		f, _ := bf.Float64()
		return f, nil
	case t.IsTupleType() || t.IsListType() || t.IsSetType():
		out := make([]interface{}, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			g, err := ctyToGo(ev)
			if err != nil {
				return nil, err
			}
			out = append(out, g)
		}
		return out, nil
	case t.IsObjectType() || t.IsMapType():
		out := make(map[string]interface{}, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			g, err := ctyToGo(ev)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = g
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value of type %s", t.FriendlyName())
}

func convertHCLDiags(source string, diags hcl.Diagnostics) []ValidationError {
	var out []ValidationError
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		ve := ValidationError{File: source, Message: d.Summary}
		if d.Detail != "" {
			ve.Message += ": " + d.Detail
		}
		if d.Subject != nil {
			ve.Line = d.Subject.Start.Line
			ve.Column = d.Subject.Start.Column
		}
		out = append(out, ve)
	}
	return out
}
