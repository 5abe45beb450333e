package cfg

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/hashicorp/go-multierror"
)

func TestParseCfgString(t *testing.T) {
	c, err := ParseCfgString(" Al_sg225.ncmat ; temp=20C;;vdoslux = 2 ; inelas=none ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.DataSource != "Al_sg225.ncmat" {
		t.Errorf("data source = %q", c.DataSource)
	}
	if got := c.Temperature().Kelvin(); math.Abs(got-293.15) > 1e-12 {
		t.Errorf("temperature = %v", got)
	}
	if c.VdosLux() != 2 || c.VdosLuxForDebye() != 0 {
		t.Errorf("vdoslux = %d (debye %d)", c.VdosLux(), c.VdosLuxForDebye())
	}
	if !c.InelasDisabled() {
		t.Error("inelas=none must disable inelastic scattering")
	}
	if got := c.String(); got != "Al_sg225.ncmat;inelas=0;temp=293.15;vdoslux=2" {
		t.Errorf("String() = %q", got)
	}
}

func TestParseCfgString_LastAssignmentWins(t *testing.T) {
	c, err := ParseCfgString("x;vdoslux=1;vdoslux=5")
	if err != nil {
		t.Fatal(err)
	}
	if c.VdosLux() != 5 {
		t.Errorf("vdoslux = %d", c.VdosLux())
	}
}

func TestTokenizeCfgString(t *testing.T) {
	ds, got, err := TokenizeCfgString("pg.ncmat; temp = 20C ;; lcaxis=0,0,1;temp=bogus")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ds != "pg.ncmat" {
		t.Errorf("data source = %q", ds)
	}
	want := []Assignment{{"temp", "20C"}, {"lcaxis", "0,0,1"}, {"temp", "bogus"}}
	if len(got) != len(want) {
		t.Fatalf("assignments = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("assignment %d = %v, want %v", i, got[i], want[i])
		}
	}

	if _, _, err := TokenizeCfgString("x;temp"); CodeOf(err) != ErrCodeSyntax {
		t.Errorf("missing '=' gave %v", err)
	}
}

func TestParseCfgString_Errors(t *testing.T) {
	tests := []struct {
		input string
		code  ErrorCode
		text  string
	}{
		{"x;tmp=10", ErrCodeUnknownVariable, "did you mean: temp"},
		{"x;temp", ErrCodeSyntax, "expected name=value"},
		{"x;temp=hot", ErrCodeSyntax, `parameter "temp"`},
		{"x;mos=100deg", ErrCodeRange, `parameter "mos"`},
		{"x;scatfactory=a@!a", ErrCodeConflict, "simultaneously required and excluded"},
	}
	for _, tt := range tests {
		_, err := ParseCfgString(tt.input)
		if CodeOf(err) != tt.code {
			t.Errorf("%q: code %s, want %s (%v)", tt.input, CodeOf(err), tt.code, err)
			continue
		}
		if !strings.Contains(err.Error(), tt.text) {
			t.Errorf("%q: error %q does not contain %q", tt.input, err.Error(), tt.text)
		}
	}
}

func TestConfig_Defaults(t *testing.T) {
	c := NewConfig("x")
	if c.Temperature() != -1 || c.Dcutoff() != 0 || !math.IsInf(float64(c.DcutoffUp()), 1) {
		t.Errorf("unexpected defaults: %v %v %v", c.Temperature(), c.Dcutoff(), c.DcutoffUp())
	}
	if c.ScCutoff() != 0.4 || c.DirTol() != 1e-4 || c.MosPrec() != 1e-3 {
		t.Errorf("unexpected defaults: %v %v %v", c.ScCutoff(), c.DirTol(), c.MosPrec())
	}
	if c.VdosLux() != 3 || c.LcMode() != 0 || c.Inelas() != "auto" {
		t.Errorf("unexpected defaults: %v %v %q", c.VdosLux(), c.LcMode(), c.Inelas())
	}
	if !c.IncohElas() || !c.CohElas() || !c.SANS() {
		t.Error("elastic components and SANS default to enabled")
	}
	if _, ok := c.Mosaicity(); ok {
		t.Error("mos has no default")
	}
	if _, _, ok := c.Orientation(); ok {
		t.Error("orientation has no default")
	}
	if _, ok := c.LcAxis(); ok {
		t.Error("lcaxis has no default")
	}
	if c.IsSingleCrystal() || c.IsLayeredCrystal() {
		t.Error("empty configuration is not a single crystal")
	}
	if !c.FactoryRequest(VarScatFactory).IsEmpty() || c.AtomDB() != nil {
		t.Error("factory requests and atomdb default to empty")
	}
	if len(c.Explicit()) != 0 || c.String() != "x" {
		t.Errorf("nothing should be explicit, got %q", c.String())
	}
}

func TestConfig_SetUnsetClone(t *testing.T) {
	c := NewConfig("x")
	if err := c.Set(VarDcutoff, DoubleValue(-1)); err != nil {
		t.Fatal(err)
	}
	if !c.Has(VarDcutoff) || c.Dcutoff() != 0 {
		t.Errorf("dcutoff = %v", c.Dcutoff())
	}
	if err := c.Set(VarVdosLux, IntValue(9)); CodeOf(err) != ErrCodeRange {
		t.Errorf("expected range error, got %v", err)
	}
	if c.Has(VarVdosLux) {
		t.Error("rejected value must not be stored")
	}

	cp := c.Clone()
	c.Unset(VarDcutoff)
	if c.Has(VarDcutoff) {
		t.Error("Unset did not remove the assignment")
	}
	if !cp.Has(VarDcutoff) {
		t.Error("clone shares state with the original")
	}
}

func TestConfig_SingleCrystal(t *testing.T) {
	c, err := ParseCfgString("pg.ncmat;mos=0.5deg;dir1=@crys_hkl:0,0,1@lab:0,0,1;dir2=@crys:1,0,0@lab:1,0,0;lcaxis=0,0,1;lcmode=-50")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.CheckConsistency(); err != nil {
		t.Fatalf("unexpected consistency error: %v", err)
	}
	mos, ok := c.Mosaicity()
	if !ok || math.Abs(mos.Degrees()-0.5) > 1e-12 {
		t.Errorf("mos = %v", mos)
	}
	d1, d2, ok := c.Orientation()
	if !ok || d1.Frame != FrameHKL || d2.Frame != FrameAxis {
		t.Errorf("orientation = %v, %v, %v", d1, d2, ok)
	}
	if !c.IsSingleCrystal() || !c.IsLayeredCrystal() || c.LcMode() != -50 {
		t.Error("expected a layered single crystal")
	}

	again, err := ParseCfgString(c.String())
	if err != nil {
		t.Fatalf("re-parse of %q failed: %v", c.String(), err)
	}
	if again.String() != c.String() {
		t.Errorf("round trip changed %q into %q", c.String(), again.String())
	}
}

func TestConfig_CheckConsistency(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"x", 0},
		{"x;temp=100", 0},
		{"x;mos=1deg", 2},
		{"x;dir1=@crys:1,0,0@lab:0,0,1", 2},
		{"x;mos=1deg;dir1=@crys:1,0,0@lab:0,0,1", 2},
		{"x;dirtol=1deg", 3},
	}
	for _, tt := range tests {
		c, err := ParseCfgString(tt.input)
		if err != nil {
			t.Fatalf("%q: %v", tt.input, err)
		}
		err = c.CheckConsistency()
		if tt.want == 0 {
			if err != nil {
				t.Errorf("%q: unexpected error %v", tt.input, err)
			}
			continue
		}
		var merr *multierror.Error
		if !errors.As(err, &merr) {
			t.Fatalf("%q: expected *multierror.Error, got %T", tt.input, err)
		}
		if len(merr.Errors) != tt.want {
			t.Errorf("%q: %d violations, want %d: %v", tt.input, len(merr.Errors), tt.want, err)
		}
		for _, e := range merr.Errors {
			if CodeOf(e) != ErrCodeDependency {
				t.Errorf("%q: unexpected code in %v", tt.input, e)
			}
		}
	}
}

func TestConfig_CheckConsistencyMessage(t *testing.T) {
	c, err := ParseCfgString("x;mos=1deg;dir1=@crys:1,0,0@lab:0,0,1")
	if err != nil {
		t.Fatal(err)
	}
	err = c.CheckConsistency()
	if err == nil || !strings.Contains(err.Error(), "when mos is set, dir2 must also be provided") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestConfig_Accessors(t *testing.T) {
	c, err := ParseCfgString("x;scatfactory=stdscat@!bragg;atomdb=nodefaults@H:is:D;sans=off;dcutoffup=2nm")
	if err != nil {
		t.Fatal(err)
	}
	req := c.FactoryRequest(VarScatFactory)
	if req.SpecificRequest() != "stdscat" || !req.Excludes("bragg") {
		t.Errorf("factory request = %v", req)
	}
	if got := c.AtomDB(); len(got) != 2 || got[0] != "nodefaults" || got[1] != "H:is:D" {
		t.Errorf("atomdb = %q", got)
	}
	if c.SANS() {
		t.Error("sans=off")
	}
	if c.DcutoffUp() != 20 {
		t.Errorf("dcutoffup = %v", c.DcutoffUp())
	}
}
