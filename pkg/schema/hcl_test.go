package schema

import (
	"context"
	"strings"
	"testing"

	"github.com/zclconf/go-cty/cty"

	"github.com/nccfg/nccfg/pkg/cfg"
)

const pgHCL = `
datasource = "C_sg194_pyrolytic_graphite.ncmat"

variables {
  temp    = "20C"
  mos     = "0.5deg"
  dir1    = { crys_hkl = [0, 0, 1], lab = [0, 0, 1] }
  dir2    = "@crys:1,0,0@lab:1,0,0"
  lcaxis  = [0, 0, 1]
  vdoslux = 2
  sans    = false
}
`

func TestLoader_LoadHCL(t *testing.T) {
	res, err := newTestLoader().LoadBytes(context.Background(), "pg.hcl", FormatHCL, []byte(pgHCL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Errors) > 0 {
		t.Fatalf("unexpected document errors: %v", res.Errors)
	}
	c := res.Config
	if !c.IsLayeredCrystal() || c.VdosLux() != 2 || c.SANS() {
		t.Errorf("unexpected configuration %s", c)
	}
	d1, _, _ := c.Orientation()
	if d1.Frame != cfg.FrameHKL {
		t.Errorf("dir1 = %v", d1)
	}
}

func TestLoader_LoadHCLErrors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantLine int
		wantPath string
		wantMsg  string
		wantCode cfg.ErrorCode
	}{
		{
			name:     "syntax error",
			src:      "datasource = \"x\"\nvariables {\n  temp = \n}\n",
			wantLine: 3,
		},
		{
			name:    "missing datasource",
			src:     "variables {\n  temp = 20\n}\n",
			wantMsg: "datasource",
		},
		{
			name:     "value out of range",
			src:      "datasource = \"x\"\nvariables {\n  temp = 20\n  vdoslux = 9\n}\n",
			wantLine: 4,
			wantCode: cfg.ErrCodeRange,
		},
		{
			name:     "schema type mismatch",
			src:      "datasource = \"x\"\nvariables {\n  vdoslux = \"high\"\n}\n",
			wantPath: "vdoslux",
		},
		{
			name:    "function call",
			src:     "datasource = \"x\"\nvariables {\n  temp = upper(\"x\")\n}\n",
			wantMsg: "Function calls not allowed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newTestLoader().LoadBytes(context.Background(), "bad.hcl", FormatHCL, []byte(tt.src))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(res.Errors) == 0 || res.Config != nil {
				t.Fatalf("expected document errors, got config %v", res.Config)
			}
			e := res.Errors[0]
			if e.File != "bad.hcl" {
				t.Errorf("File = %q", e.File)
			}
			if tt.wantLine != 0 && e.Line != tt.wantLine {
				t.Errorf("Line = %d, want %d (%v)", e.Line, tt.wantLine, e)
			}
			if tt.wantPath != "" && !strings.Contains(e.Path, tt.wantPath) {
				t.Errorf("Path = %q, want substring %q", e.Path, tt.wantPath)
			}
			if tt.wantMsg != "" && !strings.Contains(e.Message, tt.wantMsg) {
				t.Errorf("Message = %q, want substring %q", e.Message, tt.wantMsg)
			}
			if e.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", e.Code, tt.wantCode)
			}
		})
	}
}

func TestCtyToGo(t *testing.T) {
	tests := []struct {
		name string
		in   cty.Value
		want string
	}{
		{name: "string", in: cty.StringVal("20C"), want: "20C"},
		{name: "integer", in: cty.NumberIntVal(250), want: "250"},
		{name: "fraction", in: cty.NumberFloatVal(0.5), want: "0.5"},
		{name: "bool", in: cty.True, want: "true"},
		{name: "tuple", in: cty.TupleVal([]cty.Value{cty.NumberIntVal(0), cty.NumberIntVal(0), cty.NumberIntVal(1)}), want: "0,0,1"},
		{
			name: "orientation",
			in: cty.ObjectVal(map[string]cty.Value{
				"crys": cty.ListVal([]cty.Value{cty.NumberIntVal(1), cty.NumberIntVal(0), cty.NumberIntVal(0)}),
				"lab":  cty.ListVal([]cty.Value{cty.NumberIntVal(0), cty.NumberIntVal(1), cty.NumberIntVal(0)}),
			}),
			want: "@crys:1,0,0@lab:0,1,0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ctyToGo(tt.in)
			if err != nil {
				t.Fatalf("ctyToGo() error = %v", err)
			}
			got, err := ValueToken(v)
			if err != nil {
				t.Fatalf("ValueToken() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("token = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := ctyToGo(cty.UnknownVal(cty.String)); err == nil {
		t.Error("expected error for unknown value")
	}
	if v, err := ctyToGo(cty.NullVal(cty.String)); err != nil || v != nil {
		t.Errorf("null = %v, %v", v, err)
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{path: "pg.yaml", want: FormatYAML},
		{path: "pg.YML", want: FormatYAML},
		{path: "pg.json", want: FormatJSON},
		{path: "pg.cue", want: FormatCUE},
		{path: "conf/pg.hcl", want: FormatHCL},
		{path: "pg.toml", wantErr: true},
		{path: "pg", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := DetectFormat(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DetectFormat() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("DetectFormat() = %q, want %q", got, tt.want)
			}
		})
	}
}
